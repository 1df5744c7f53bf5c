package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/wantanidea/wantanidea-cli/internal/models"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// refreshTimeout bounds a refresh cycle. The backend contract sets no bound,
// but an unbounded call would leave the coordinator stuck in refreshing with
// every queued caller blocked behind it.
const refreshTimeout = 10 * time.Second

type refreshResult struct {
	token string
	err   error
}

// Refresher serializes token refreshes: at most one refresh HTTP call is in
// flight process-wide. The first 401 starts a cycle; callers arriving while
// one is in flight queue a waiter and are resolved in FIFO order when it
// settles. The Refresher is the only writer to the credential store during a
// cycle.
type Refresher struct {
	client       *Client
	creds        CredentialStore
	onInvalidate func()

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func newRefresher(client *Client, creds CredentialStore) *Refresher {
	return &Refresher{client: client, creds: creds}
}

// Token returns a freshly refreshed access token, joining an in-flight cycle
// if one exists. On failure the stored credentials have already been cleared
// and the invalidation callback fired.
func (r *Refresher) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.refreshing {
		ch := make(chan refreshResult, 1)
		r.waiters = append(r.waiters, ch)
		r.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			// The waiter's own request was canceled; the cycle continues
			// for everyone else and the buffered channel absorbs its result.
			return "", ctx.Err()
		}
	}

	_, refreshToken := r.creds.LoadTokens()
	if refreshToken == "" {
		r.mu.Unlock()
		return "", output.ErrSessionExpired()
	}
	r.refreshing = true
	r.mu.Unlock()

	token, err := r.doRefresh(ctx, refreshToken)
	r.settle(token, err)
	return token, err
}

// doRefresh issues the single refresh HTTP call for this cycle. The cycle is
// shared by every queued caller, so it must not die with the triggering
// request's context; it gets its own bounded deadline instead.
func (r *Refresher) doRefresh(ctx context.Context, refreshToken string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
	defer cancel()

	resp, err := r.client.send(ctx, http.MethodPost, "/auth/refresh",
		map[string]string{"refreshToken": refreshToken}, AuthService, "")
	if err != nil {
		return "", err
	}

	var tr models.RefreshResponse
	if err := resp.UnmarshalData(&tr); err != nil {
		return "", output.ErrAPI(resp.StatusCode, "malformed refresh response")
	}
	if tr.Token == "" {
		return "", output.ErrSessionExpired()
	}

	if err := r.creds.SaveTokens(tr.Token, tr.RefreshToken); err != nil {
		return "", err
	}
	return tr.Token, nil
}

// settle closes the cycle: on failure the store is fully cleared and the
// session layer notified, then every waiter is drained in arrival order.
func (r *Refresher) settle(token string, err error) {
	if err != nil {
		_ = r.creds.Clear()
		if r.onInvalidate != nil {
			r.onInvalidate()
		}
	}

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.refreshing = false
	r.mu.Unlock()

	if r.client.collector != nil {
		r.client.collector.RecordRefresh(err != nil)
	}

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}
}
