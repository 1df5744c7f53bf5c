// Package api provides the HTTP client for the WantAnIdea API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wantanidea/wantanidea-cli/internal/config"
	"github.com/wantanidea/wantanidea-cli/internal/observability"
	"github.com/wantanidea/wantanidea-cli/internal/output"
	"github.com/wantanidea/wantanidea-cli/internal/version"
)

// AuthMode selects how a request is authenticated.
type AuthMode int

const (
	// AuthNone sends no credentials.
	AuthNone AuthMode = iota
	// AuthService sends the fixed service-basic credential. Used only for
	// pre-session endpoints (login/register/refresh/password flows).
	AuthService
	// AuthBearer sends the current access token, if one is stored.
	AuthBearer
)

// CredentialStore is the slice of the credential store the client needs.
// *auth.Store satisfies it.
type CredentialStore interface {
	LoadTokens() (access, refresh string)
	SaveTokens(access, refresh string) error
	Clear() error
}

// Response wraps an API response.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
}

// UnmarshalData unmarshals the response data into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Empty reports whether the response carried no body (204 No Content).
func (r *Response) Empty() bool {
	return len(r.Data) == 0
}

// Client is the HTTP request executor. On a 401 for a bearer-authenticated
// request outside /auth/, it hands off to the refresh coordinator and retries
// the identical request exactly once with the new token.
type Client struct {
	httpClient *http.Client
	cfg        *config.Config
	creds      CredentialStore
	refresher  *Refresher
	collector  *observability.SessionCollector
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithCollector wires a session metrics collector.
func WithCollector(c *observability.SessionCollector) Option {
	return func(cl *Client) { cl.collector = c }
}

// WithLogger sets the debug logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.httpClient = h }
}

// NewClient creates a new API client.
func NewClient(cfg *config.Config, creds CredentialStore, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:    cfg,
		creds:  creds,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.refresher = newRefresher(c, creds)
	return c
}

// OnSessionInvalid registers a callback fired when a refresh cycle fails and
// the stored credentials have been cleared. The session manager uses it to
// drop its in-memory user. Must be set before the client is used.
func (c *Client) OnSessionInvalid(fn func()) {
	c.refresher.onInvalidate = fn
}

// Refresh forces a token refresh cycle (or joins one already in flight).
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresher.Token(ctx)
	return err
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, mode AuthMode) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, mode)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, mode AuthMode) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, mode)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, mode AuthMode) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, mode)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, mode AuthMode) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, mode)
}

// Do executes one request. The retry budget after a successful token refresh
// is exactly one, so a server that keeps returning 401 cannot loop the client.
func (c *Client) Do(ctx context.Context, method, path string, body any, mode AuthMode) (*Response, error) {
	resp, err := c.send(ctx, method, path, body, mode, "")
	if err == nil {
		return resp, nil
	}

	if !isUnauthorized(err) || mode != AuthBearer || isAuthPath(path) {
		return nil, err
	}

	token, rerr := c.refresher.Token(ctx)
	if rerr != nil {
		if errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
			return nil, rerr
		}
		return nil, output.ErrSessionExpired()
	}

	if c.collector != nil {
		c.collector.RecordRetry()
	}
	resp, err = c.send(ctx, method, path, body, mode, token)
	if err != nil {
		if isUnauthorized(err) {
			return nil, output.ErrSessionExpired()
		}
		return nil, err
	}
	return resp, nil
}

// send issues a single HTTP request and normalizes the result. tokenOverride
// carries a freshly refreshed access token for the post-refresh retry.
func (c *Client) send(ctx context.Context, method, path string, body any, mode AuthMode, tokenOverride string) (*Response, error) {
	url := c.cfg.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch mode {
	case AuthService:
		req.SetBasicAuth(c.cfg.ServiceUser, c.cfg.ServicePass)
	case AuthBearer:
		token := tokenOverride
		if token == "" {
			token, _ = c.creds.LoadTokens()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("request", "method", method, "url", url, "auth", mode)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.collector != nil {
			c.collector.RecordRequest(time.Since(start), true)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("response", "method", method, "url", url, "status", resp.StatusCode)
	if c.collector != nil {
		c.collector.RecordRequest(time.Since(start), resp.StatusCode >= 400)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return &Response{StatusCode: resp.StatusCode, Headers: resp.Header}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return &Response{Data: data, StatusCode: resp.StatusCode, Headers: resp.Header}, nil

	default:
		return nil, c.errorFromResponse(resp)
	}
}

// errorFromResponse builds a typed error from a 4xx/5xx response. The body is
// probed for a JSON message; anything else is kept verbatim as detail.
func (c *Client) errorFromResponse(resp *http.Response) *output.Error {
	data, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if json.Unmarshal(data, &apiErr) == nil {
		msg = apiErr.Message
		if msg == "" {
			msg = apiErr.Error
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if msg == "" {
			msg = "Authentication required"
		}
		return &output.Error{
			Code:       output.CodeAuth,
			Message:    msg,
			HTTPStatus: http.StatusUnauthorized,
		}
	}

	if msg != "" {
		return output.ErrAPI(resp.StatusCode, msg)
	}
	return output.ErrAPIDetail(
		resp.StatusCode,
		fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		string(data),
	)
}

// isUnauthorized reports whether err is a 401 from the server, as opposed to
// a session-expired error synthesized after a failed refresh.
func isUnauthorized(err error) bool {
	e := output.AsError(err)
	return e.Code == output.CodeAuth && e.HTTPStatus == http.StatusUnauthorized
}

// isAuthPath reports whether path is an auth-bootstrap endpoint. A 401 from
// those means bad credentials, not a stale token, and must not trigger a
// refresh cycle.
func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}
