// Package models defines the data types exchanged with the WantAnIdea API.
package models

import (
	"strings"
	"time"
)

// Preferences holds a user's notification and visibility settings.
type Preferences struct {
	EmailNotifications  bool   `json:"emailNotifications"`
	IdeaRecommendations bool   `json:"ideaRecommendations"`
	WeeklyDigest        bool   `json:"weeklyDigest"`
	ProfileVisibility   string `json:"profileVisibility"`
}

// Stats holds a user's activity counters.
type Stats struct {
	IdeasSubmitted   int `json:"ideasSubmitted"`
	ProfileViews     int `json:"profileViews"`
	InspirationCount int `json:"inspirationCount"`
	TotalShares      int `json:"totalShares"`
}

// UserProfile is the client-side representation of a platform user.
type UserProfile struct {
	ID             int64        `json:"id"`
	Email          string       `json:"email"`
	Name           string       `json:"name"`
	Bio            string       `json:"bio,omitempty"`
	Location       string       `json:"location,omitempty"`
	Website        string       `json:"website,omitempty"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	JoinDate       string       `json:"joinDate,omitempty"`
	IsVerified     bool         `json:"isVerified"`
	Preferences    *Preferences `json:"preferences,omitempty"`
	Stats          *Stats       `json:"stats,omitempty"`
}

// DefaultPreferences returns the client-side preference defaults applied when
// the server response omits them.
func DefaultPreferences() *Preferences {
	return &Preferences{
		EmailNotifications:  true,
		IdeaRecommendations: true,
		WeeklyDigest:        true,
		ProfileVisibility:   "public",
	}
}

// DefaultStats returns zeroed activity counters.
func DefaultStats() *Stats {
	return &Stats{}
}

// ApplyDefaults fills fields the server omits at login/registration time.
// It is used when constructing a profile, never when replacing one after a
// server write (the server representation wins wholesale there).
func (u *UserProfile) ApplyDefaults() {
	if u.Name == "" && u.Email != "" {
		u.Name = strings.SplitN(u.Email, "@", 2)[0]
	}
	if u.JoinDate == "" {
		u.JoinDate = time.Now().UTC().Format(time.RFC3339)
	}
	if u.Preferences == nil {
		u.Preferences = DefaultPreferences()
	}
	if u.Stats == nil {
		u.Stats = DefaultStats()
	}
}

// LoginResponse is the body of POST /auth/login. The backend signals business
// failure inside a 200 response: verified must be inspected, not inferred
// from the HTTP status.
type LoginResponse struct {
	Verified     bool   `json:"verified"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Message      string `json:"message,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// RegisterResponse is the body of POST /auth/register. A created user without
// an issued token is a partial success the caller must surface distinctly.
type RegisterResponse struct {
	Success      bool         `json:"success"`
	User         *UserProfile `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	Message      string       `json:"message,omitempty"`
}

// RefreshResponse is the body of POST /auth/refresh.
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// SocialLoginResponse is the body of POST /auth/social/{provider}.
type SocialLoginResponse struct {
	User         *UserProfile `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
	Message      string       `json:"message,omitempty"`
}
