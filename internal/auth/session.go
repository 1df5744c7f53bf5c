// Package auth provides credential storage and the session lifecycle for the
// WantAnIdea platform.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wantanidea/wantanidea-cli/internal/api"
	"github.com/wantanidea/wantanidea-cli/internal/models"
	"github.com/wantanidea/wantanidea-cli/internal/output"
)

// Providers supported by the social login endpoints.
var SocialProviders = map[string]string{
	"google":   "googleToken",
	"github":   "githubCode",
	"linkedin": "linkedinCode",
}

// Session owns the in-memory user and is the only layer allowed to mutate
// session state in response to errors. All operations return typed errors
// from the output package so callers can distinguish retry, re-auth, and
// inline validation failures.
type Session struct {
	store  *Store
	client *api.Client

	mu   sync.Mutex
	user *models.UserProfile
}

// NewSession creates a session manager and registers it for invalidation
// when a refresh cycle fails.
func NewSession(store *Store, client *api.Client) *Session {
	s := &Session{store: store, client: client}
	client.OnSessionInvalid(s.dropUser)
	return s
}

// CurrentUser returns the in-memory user, or nil when logged out.
func (s *Session) CurrentUser() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsAuthenticated is derived state, recomputed on every read: a user is
// authenticated only while both the profile and an access token exist.
func (s *Session) IsAuthenticated() bool {
	access, _ := s.store.LoadTokens()
	return s.CurrentUser() != nil && access != ""
}

func (s *Session) setUser(u *models.UserProfile) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) dropUser() {
	s.setUser(nil)
}

// Bootstrap restores session state at process start. With nothing cached it
// returns immediately without touching the network. With a cached profile and
// token it sets the in-memory session optimistically, refreshes proactively
// if the access token is already expired, then fetches the authoritative
// profile. Only an auth failure clears state; transient errors keep the
// cached session. The session is settled, one way or the other, on return.
func (s *Session) Bootstrap(ctx context.Context) error {
	user := s.store.LoadUser()
	access, refresh := s.store.LoadTokens()

	if user == nil || access == "" {
		if user != nil || access != "" || refresh != "" {
			// Half a session is no session
			_ = s.store.Clear()
		}
		s.dropUser()
		return nil
	}

	s.setUser(user)

	if refresh != "" && tokenExpired(access) {
		if err := s.client.Refresh(ctx); err != nil {
			// Refresher already cleared the store and dropped the user
			return output.ErrSessionExpired()
		}
	}

	resp, err := s.client.Get(ctx, "/users/profile", api.AuthBearer)
	if err != nil {
		if output.IsAuth(err) {
			_ = s.store.Clear()
			s.dropUser()
			return err
		}
		// Network blip or server trouble: keep the cached session
		return nil
	}

	var profile models.UserProfile
	if err := resp.UnmarshalData(&profile); err != nil {
		return nil
	}
	profile.ApplyDefaults()

	access, refresh = s.store.LoadTokens() // may have rotated during refresh
	if err := s.store.SaveSession(&profile, access, refresh); err != nil {
		return err
	}
	s.setUser(&profile)
	return nil
}

// Login authenticates with email and password. The backend encodes business
// failure inside a 200 response; verified must be checked, not the status.
func (s *Session) Login(ctx context.Context, email, password string) (*models.UserProfile, error) {
	resp, err := s.client.Post(ctx, "/auth/login",
		map[string]string{"email": email, "password": password}, api.AuthService)
	if err != nil {
		return nil, err
	}

	var lr models.LoginResponse
	if err := resp.UnmarshalData(&lr); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "malformed login response")
	}

	if !lr.Verified || lr.Token == "" {
		msg := lr.Message
		if msg == "" {
			msg = "Invalid email or password"
		}
		return nil, output.ErrValidation(msg)
	}

	user := &models.UserProfile{
		ID:         lr.UserID,
		Email:      lr.Email,
		Name:       lr.Name,
		IsVerified: true,
	}
	user.ApplyDefaults()

	if err := s.store.SaveSession(user, lr.Token, lr.RefreshToken); err != nil {
		return nil, err
	}
	s.setUser(user)
	return user, nil
}

// Register creates an account. Full success needs both a created user and an
// issued token; a user created without a token is surfaced as a distinct
// recoverable failure, because the account now exists and a naive retry
// would conflict.
func (s *Session) Register(ctx context.Context, req models.RegisterRequest) (*models.UserProfile, error) {
	resp, err := s.client.Post(ctx, "/auth/register", req, api.AuthService)
	if err != nil {
		return nil, err
	}

	var rr models.RegisterResponse
	if err := resp.UnmarshalData(&rr); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "malformed register response")
	}

	if !rr.Success || rr.User == nil {
		msg := rr.Message
		if msg == "" {
			msg = "Registration failed"
		}
		return nil, output.ErrValidation(msg)
	}

	if rr.Token == "" {
		return nil, output.ErrValidationHint(
			"Account created, please sign in manually",
			"Run: wai auth login",
		)
	}

	user := rr.User
	user.ApplyDefaults()

	if err := s.store.SaveSession(user, rr.Token, rr.RefreshToken); err != nil {
		return nil, err
	}
	s.setUser(user)
	return user, nil
}

// SocialLogin authenticates via an OAuth provider's code or token. The
// success and failure contract matches Login.
func (s *Session) SocialLogin(ctx context.Context, provider, codeOrToken string) (*models.UserProfile, error) {
	field, ok := SocialProviders[provider]
	if !ok {
		return nil, output.ErrUsage(fmt.Sprintf("unsupported provider %q (google, github, linkedin)", provider))
	}

	resp, err := s.client.Post(ctx, "/auth/social/"+provider,
		map[string]string{field: codeOrToken}, api.AuthService)
	if err != nil {
		return nil, err
	}

	var sr models.SocialLoginResponse
	if err := resp.UnmarshalData(&sr); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "malformed social login response")
	}

	if sr.User == nil || sr.Token == "" {
		msg := sr.Message
		if msg == "" {
			msg = fmt.Sprintf("%s sign-in failed", provider)
		}
		return nil, output.ErrValidation(msg)
	}

	user := sr.User
	user.ApplyDefaults()

	if err := s.store.SaveSession(user, sr.Token, sr.RefreshToken); err != nil {
		return nil, err
	}
	s.setUser(user)
	return user, nil
}

// Logout clears persisted and in-memory session state. The session is
// client-owned once issued, so no network call is needed.
func (s *Session) Logout() error {
	s.dropUser()
	return s.store.Clear()
}

// UpdateProfile writes profile changes and replaces the local profile
// wholesale with the server's returned representation. Fields the server
// omits disappear; the server is the source of truth after a write.
func (s *Session) UpdateProfile(ctx context.Context, changes map[string]any) (*models.UserProfile, error) {
	resp, err := s.client.Put(ctx, "/users/profile", changes, api.AuthBearer)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := resp.UnmarshalData(&profile); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "malformed profile response")
	}

	access, refresh := s.store.LoadTokens()
	if err := s.store.SaveSession(&profile, access, refresh); err != nil {
		return nil, err
	}
	s.setUser(&profile)
	return &profile, nil
}

// UpdatePreferences writes notification/visibility settings.
func (s *Session) UpdatePreferences(ctx context.Context, prefs *models.Preferences) error {
	_, err := s.client.Put(ctx, "/users/preferences", prefs, api.AuthBearer)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.Preferences = prefs
	}
	user := s.user
	s.mu.Unlock()

	if user != nil {
		access, refresh := s.store.LoadTokens()
		return s.store.SaveSession(user, access, refresh)
	}
	return nil
}

// Stats fetches the user's activity counters.
func (s *Session) Stats(ctx context.Context) (*models.Stats, error) {
	resp, err := s.client.Get(ctx, "/users/me/stats", api.AuthBearer)
	if err != nil {
		return nil, err
	}
	var stats models.Stats
	if err := resp.UnmarshalData(&stats); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "malformed stats response")
	}
	return &stats, nil
}

// UpdateStats writes the user's activity counters.
func (s *Session) UpdateStats(ctx context.Context, stats *models.Stats) error {
	_, err := s.client.Put(ctx, "/users/me/stats", stats, api.AuthBearer)
	return err
}

// Account fetches the raw account record.
func (s *Session) Account(ctx context.Context) (*api.Response, error) {
	return s.client.Get(ctx, "/users/me/account", api.AuthBearer)
}

// Pre-session flows, all service-basic.

func (s *Session) ForgotPassword(ctx context.Context, email string) error {
	_, err := s.client.Post(ctx, "/auth/forgot-password",
		map[string]string{"email": email}, api.AuthService)
	return err
}

func (s *Session) ResetPassword(ctx context.Context, token, newPassword string) error {
	_, err := s.client.Post(ctx, "/auth/reset-password",
		map[string]string{"token": token, "newPassword": newPassword}, api.AuthService)
	return err
}

func (s *Session) VerifyEmail(ctx context.Context, verificationToken string) error {
	_, err := s.client.Post(ctx, "/auth/verify-email",
		map[string]string{"verificationToken": verificationToken}, api.AuthService)
	return err
}

func (s *Session) ResendVerification(ctx context.Context, email string) error {
	_, err := s.client.Post(ctx, "/auth/resend-verification",
		map[string]string{"email": email}, api.AuthService)
	return err
}

// tokenExpired decodes the access token's exp claim without verifying the
// signature (the client holds no signing key). Opaque tokens report false and
// rely on the reactive 401 path.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Now().After(exp.Time)
}
