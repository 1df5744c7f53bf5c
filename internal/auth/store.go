package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"

	"github.com/wantanidea/wantanidea-cli/internal/models"
)

const serviceName = "wantanidea"

// Storage keys, namespaced exactly as the platform's web client stores them.
const (
	KeyUser         = "wantanidea_user"
	KeyAccessToken  = "wantanidea_token"
	KeyRefreshToken = "wantanidea_refresh_token"
)

var sessionKeys = []string{KeyUser, KeyAccessToken, KeyRefreshToken}

// Store persists session credentials, preferring the system keychain.
//
// Missing keys are reported as absent, never as errors. The user profile and
// tokens are always written together (Clear removes all three), so persistent
// state can never hold a profile without its tokens or vice versa.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

// NewStore creates a credential store.
func NewStore(fallbackDir string) *Store {
	// Skip keyring for tests or when explicitly disabled
	if os.Getenv("WANTANIDEA_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	// Test if keyring is available
	testKey := "wantanidea::probe"
	err := keyring.Set(serviceName, testKey, "probe")
	if err == nil {
		_ = keyring.Delete(serviceName, testKey) // Best-effort cleanup
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	fmt.Fprintf(os.Stderr, "warning: system keyring unavailable, credentials stored in plaintext at %s\n",
		filepath.Join(fallbackDir, "credentials.json"))
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// LoadTokens returns the stored access and refresh tokens. Absent tokens are
// returned as empty strings.
func (s *Store) LoadTokens() (access, refresh string) {
	access, _ = s.get(KeyAccessToken)
	refresh, _ = s.get(KeyRefreshToken)
	return access, refresh
}

// LoadUser returns the stored user profile, or nil if absent. A stored value
// that fails to decode is treated as absent and all session keys are cleared
// so the cache can't stay half-valid.
func (s *Store) LoadUser() *models.UserProfile {
	raw, ok := s.get(KeyUser)
	if !ok || raw == "" {
		return nil
	}
	var user models.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		_ = s.Clear()
		return nil
	}
	return &user
}

// SaveSession persists the profile and both tokens in one write.
func (s *Store) SaveSession(user *models.UserProfile, access, refresh string) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.putAll(map[string]string{
		KeyUser:         string(data),
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	})
}

// SaveTokens overwrites the token pair, keeping the current refresh token when
// the server rotates only the access token.
func (s *Store) SaveTokens(access, refresh string) error {
	if refresh == "" {
		_, refresh = s.LoadTokens()
	}
	return s.putAll(map[string]string{
		KeyAccessToken:  access,
		KeyRefreshToken: refresh,
	})
}

// Clear removes the profile and both tokens.
func (s *Store) Clear() error {
	return s.deleteKeys(sessionKeys...)
}

// Low-level key access

func (s *Store) get(key string) (string, bool) {
	if s.useKeyring {
		v, err := keyring.Get(serviceName, key)
		if err != nil {
			return "", false
		}
		return v, true
	}
	return s.getFromFile(key)
}

func (s *Store) putAll(kv map[string]string) error {
	if s.useKeyring {
		for k, v := range kv {
			if err := keyring.Set(serviceName, k, v); err != nil {
				return fmt.Errorf("keyring write for %s: %w", k, err)
			}
		}
		return nil
	}
	return s.updateFile(func(all map[string]string) {
		for k, v := range kv {
			all[k] = v
		}
	})
}

func (s *Store) deleteKeys(keys ...string) error {
	if s.useKeyring {
		for _, k := range keys {
			if err := keyring.Delete(serviceName, k); err != nil && !errors.Is(err, keyring.ErrNotFound) {
				return err
			}
		}
		return nil
	}
	return s.updateFile(func(all map[string]string) {
		for _, k := range keys {
			delete(all, k)
		}
	})
}

// File fallback backend

func (s *Store) credentialsPath() string {
	return filepath.Join(s.fallbackDir, "credentials.json")
}

func (s *Store) lockPath() string {
	return filepath.Join(s.fallbackDir, "credentials.lock")
}

func (s *Store) getFromFile(key string) (string, bool) {
	lock := flock.New(s.lockPath())
	if err := lock.RLock(); err == nil {
		defer func() { _ = lock.Unlock() }()
	}

	all, err := s.loadAllFromFile()
	if err != nil {
		return "", false
	}
	v, ok := all[key]
	return v, ok
}

// updateFile applies mutate under an exclusive lock so concurrent CLI
// invocations can't interleave read-modify-write cycles.
func (s *Store) updateFile(mutate func(map[string]string)) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	lock := flock.New(s.lockPath())
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	all, err := s.loadAllFromFile()
	if err != nil {
		return err
	}
	mutate(all)
	return s.saveAllToFile(all)
}

func (s *Store) loadAllFromFile() (map[string]string, error) {
	data, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	var all map[string]string
	if err := json.Unmarshal(data, &all); err != nil {
		// Corrupt credential file: start over rather than propagate
		return make(map[string]string), nil
	}
	return all, nil
}

func (s *Store) saveAllToFile(all map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with randomized temp file name
	tmpFile, err := os.CreateTemp(s.fallbackDir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Unix: rename atomically replaces the destination.
	// Windows: rename fails when destination exists. Try rename first to
	// preserve the old file on unrelated errors; only remove+retry on failure.
	destPath := s.credentialsPath()
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath) // Clean up stale temp on failure
		return err
	}
	return nil
}
