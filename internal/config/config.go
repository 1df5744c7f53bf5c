// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default service-level credential gating the pre-session /auth/* endpoints.
// This is the platform's shared service secret, not a user identity. It ships
// embedded because the backend expects it from every client; override it with
// service_user/service_pass config or WANTANIDEA_SERVICE_USER/_PASS.
const (
	defaultServiceUser = "admin"
	defaultServicePass = "changeme"
)

// Config holds the resolved configuration.
type Config struct {
	// API settings
	BaseURL string `json:"base_url"`

	// Service-basic credential for pre-session endpoints
	ServiceUser string `json:"service_user"`
	ServicePass string `json:"service_pass"`

	// Request timeout in seconds
	TimeoutSeconds int `json:"timeout_seconds"`

	// Output settings
	Format string `json:"format"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL string
	Format  string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080/api",
		ServiceUser:    defaultServiceUser,
		ServicePass:    defaultServicePass,
		TimeoutSeconds: 30,
		Format:         "auto",
		Sources:        make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global file > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(source)
	}
	if v, ok := fileCfg["service_user"].(string); ok && v != "" {
		cfg.ServiceUser = v
		cfg.Sources["service_user"] = string(source)
	}
	if v, ok := fileCfg["service_pass"].(string); ok && v != "" {
		cfg.ServicePass = v
		cfg.Sources["service_pass"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v, ok := fileCfg["timeout_seconds"].(float64); ok && v > 0 {
		cfg.TimeoutSeconds = int(v)
		cfg.Sources["timeout_seconds"] = string(source)
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WANTANIDEA_BASE_URL"); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(SourceEnv)
	}
	if v := os.Getenv("WANTANIDEA_SERVICE_USER"); v != "" {
		cfg.ServiceUser = v
		cfg.Sources["service_user"] = string(SourceEnv)
	}
	if v := os.Getenv("WANTANIDEA_SERVICE_PASS"); v != "" {
		cfg.ServicePass = v
		cfg.Sources["service_pass"] = string(SourceEnv)
	}
	if v := os.Getenv("WANTANIDEA_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "wantanidea")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
