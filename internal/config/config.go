// Package config loads badge settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/humanitybadge/cli/pkg/deviceflow"
	"github.com/humanitybadge/cli/pkg/gist"
	"github.com/humanitybadge/cli/pkg/share"
	"github.com/humanitybadge/cli/pkg/shortener"
	"github.com/joho/godotenv"
)

const (
	SettingsBackendKeyring = "keyring"
	SettingsBackendFile    = "file"

	// Budgets for the two storage scopes.
	SettingsQuota = 100 * 1024
	LocalQuota    = 10 * 1024 * 1024
)

// Config holds all configuration for the badge CLI and API server.
type Config struct {
	// Share targets
	ViewerURL         string
	ShortenerEndpoint string
	GistAPIURL        string

	// OAuth device flow
	ClientID      string
	Scope         string
	DeviceAuthURL string
	TokenURL      string

	// Outbound requests
	HTTPTimeout time.Duration

	// Storage
	SettingsBackend string
	KeyringService  string
	DataDir         string

	// Logging
	LogLevel string
	LogFile  string

	// Notifications
	NtfyURL string

	// Local API
	ListenAddr string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	dataDir := getEnvOrDefault("BADGE_DATA_DIR", defaultDataDir())
	cfg := &Config{
		ViewerURL:         getEnvOrDefault("BADGE_VIEWER_URL", share.DefaultViewerURL),
		ShortenerEndpoint: getEnvOrDefault("BADGE_SHORTENER_URL", shortener.DefaultEndpoint),
		GistAPIURL:        getEnvOrDefault("BADGE_GITHUB_API_URL", gist.DefaultAPIURL),
		ClientID:          getEnvOrDefault("BADGE_GITHUB_CLIENT_ID", deviceflow.DefaultClientID),
		Scope:             getEnvOrDefault("BADGE_GITHUB_SCOPE", deviceflow.DefaultScope),
		DeviceAuthURL:     getEnvOrDefault("BADGE_GITHUB_DEVICE_URL", "https://github.com/login/device/code"),
		TokenURL:          getEnvOrDefault("BADGE_GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token"),
		HTTPTimeout:       getEnvDurationOrDefault("BADGE_HTTP_TIMEOUT", 30*time.Second),
		SettingsBackend:   strings.ToLower(getEnvOrDefault("BADGE_SETTINGS_BACKEND", SettingsBackendKeyring)),
		KeyringService:    getEnvOrDefault("BADGE_KEYRING_SERVICE", "humanity-badge"),
		DataDir:           dataDir,
		LogLevel:          strings.ToLower(getEnvOrDefault("BADGE_LOG_LEVEL", "info")),
		LogFile:           getEnvOrDefault("BADGE_LOG_FILE", filepath.Join(dataDir, "logs", "badge.log")),
		NtfyURL:           getEnvOrDefault("BADGE_NTFY_URL", ""),
		ListenAddr:        getEnvOrDefault("BADGE_LISTEN_ADDR", "127.0.0.1:8787"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would leave the CLI unusable.
func (c *Config) Validate() error {
	switch c.SettingsBackend {
	case SettingsBackendKeyring, SettingsBackendFile:
	default:
		return fmt.Errorf("invalid BADGE_SETTINGS_BACKEND %q: use %q or %q", c.SettingsBackend, SettingsBackendKeyring, SettingsBackendFile)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("BADGE_HTTP_TIMEOUT must be positive (got %s)", c.HTTPTimeout)
	}
	if c.ViewerURL == "" {
		return fmt.Errorf("BADGE_VIEWER_URL must not be empty")
	}
	return nil
}

// SettingsPath is the file backing the settings scope when the file backend is used.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.json")
}

// LocalPath is the file backing the local scope (recordings, device sessions).
func (c *Config) LocalPath() string {
	return filepath.Join(c.DataDir, "local.json")
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "humanity-badge")
	}
	return ".humanity-badge"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
