package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wantanidea/wantanidea-cli/internal/observability"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

func TestServiceAuthSendsBasicCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "changeme", pass)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "wai/"))
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Post(context.Background(), "/auth/forgot-password", map[string]string{"email": "a@b.c"}, AuthService)
	assert.NoError(t, err)
}

func TestBearerAuthOmittedWhenNoToken(t *testing.T) {
	var sawAuth atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth.Store(r.Header.Get("Authorization") != "")
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Get(context.Background(), "/users/profile", AuthBearer)
	require.NoError(t, err)
	assert.False(t, sawAuth.Load(), "no stored token means no Authorization header")
}

func TestNoContentIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{access: "tok"})
	resp, err := client.Delete(context.Background(), "/users/me/account", AuthBearer)
	require.NoError(t, err)
	assert.True(t, resp.Empty())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestErrorBodyMessageIsExtracted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "email already registered"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Post(context.Background(), "/auth/register", map[string]string{}, AuthService)
	require.Error(t, err)

	apiErr := output.AsError(err)
	assert.Equal(t, output.CodeAPI, apiErr.Code)
	assert.Equal(t, "email already registered", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
}

func TestNonJSONErrorBodyKeptAsDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Get(context.Background(), "/users/profile", AuthNone)
	require.Error(t, err)

	apiErr := output.AsError(err)
	assert.Equal(t, "HTTP 502: Bad Gateway", apiErr.Message)
	assert.Contains(t, apiErr.Detail, "bad gateway")
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Get(context.Background(), "/users/profile", AuthNone)
	require.Error(t, err)
	assert.True(t, output.IsNetwork(err))
	assert.True(t, output.AsError(err).Retryable)
	assert.Equal(t, 0, output.AsError(err).HTTPStatus)
}

func TestAuthPath401DoesNotTriggerRefresh(t *testing.T) {
	var refreshCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "bad credentials"})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := &memStore{access: "tok", refresh: "rtok"}
	client := NewClient(testConfig(server.URL), store)

	_, err := client.Post(context.Background(), "/auth/login", map[string]string{}, AuthService)
	require.Error(t, err)
	assert.True(t, output.IsAuth(err))
	assert.Equal(t, "bad credentials", output.AsError(err).Message)
	assert.Equal(t, int64(0), refreshCalls.Load())

	// Credentials are untouched: a login 401 is user error, not expiry.
	access, refresh := store.LoadTokens()
	assert.Equal(t, "tok", access)
	assert.Equal(t, "rtok", refresh)
}

func TestCollectorCountsRequestsAndRefreshes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"ideasSubmitted": 2})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "fresh-token"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	collector := observability.NewSessionCollector()
	client := NewClient(testConfig(server.URL), &memStore{access: "stale", refresh: "rtok"},
		WithCollector(collector))

	_, err := client.Get(context.Background(), "/users/me/stats", AuthBearer)
	require.NoError(t, err)

	m := collector.Summary()
	assert.Equal(t, 3, m.TotalRequests, "original + refresh + retry")
	assert.Equal(t, 1, m.TotalRetries)
	assert.Equal(t, 1, m.RefreshCycles)
	assert.Equal(t, 0, m.RefreshFailures)
}

func TestContextCancellationPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), &memStore{})
	_, err := client.Get(ctx, "/users/profile", AuthNone)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, output.IsNetwork(err))
}
