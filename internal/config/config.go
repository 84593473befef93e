// Package config contains everything related to configuration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix shared by every environment variable.
const EnvPrefix = "CREDITBAR"

// Config holds the process configuration. User-tunable options such as
// thresholds live in the backend settings file, not here.
type Config struct {
	DataDir      string
	DatabasePath string
	SettingsPath string
	KeyPath      string
	LogPath      string
	LogLevel     string

	AugmentBaseURL string
	OrbBaseURL     string

	// BackendURL selects a remote backend. Empty runs the backend in-process.
	BackendURL string
	ListenAddr string

	ProbeTimeout    time.Duration
	InitTimeout     time.Duration
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration

	AnalyticsDays   int
	CleanupSchedule string
}

// Default values
const (
	defaultProbeTimeout    = 3 * time.Second
	defaultInitTimeout     = 15 * time.Second
	defaultRefreshInterval = 60 * time.Second
	defaultHTTPTimeout     = 30 * time.Second
)

// settings is the raw environment view decoded by envconfig.
type settings struct {
	DataDir      string `envconfig:"DATA_DIR"`
	DatabasePath string `envconfig:"DATABASE_PATH"`
	SettingsPath string `envconfig:"SETTINGS_PATH"`
	KeyPath      string `envconfig:"KEY_PATH"`
	LogPath      string `envconfig:"LOG_PATH"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	AugmentBaseURL string `envconfig:"AUGMENT_BASE_URL" default:"https://app.augmentcode.com"`
	OrbBaseURL     string `envconfig:"ORB_BASE_URL" default:"https://portal.withorb.com"`

	BackendURL string `envconfig:"BACKEND_URL"`
	ListenAddr string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:7878"`

	ProbeTimeout    Duration `envconfig:"PROBE_TIMEOUT"`
	InitTimeout     Duration `envconfig:"INIT_TIMEOUT"`
	RefreshInterval Duration `envconfig:"REFRESH_INTERVAL"`
	HTTPTimeout     Duration `envconfig:"HTTP_TIMEOUT"`

	AnalyticsDays   int    `envconfig:"ANALYTICS_DAYS" default:"30"`
	CleanupSchedule string `envconfig:"CLEANUP_SCHEDULE" default:"@daily"`
}

// Duration decodes either a Go duration ("30s", "1m") or bare seconds ("60").
type Duration time.Duration

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := parseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// The first .env found wins; real environment variables still override it.
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	var s settings
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	cfg := &Config{
		DataDir:         orDefault(s.DataDir, getDefaultDataDir()),
		LogLevel:        s.LogLevel,
		AugmentBaseURL:  s.AugmentBaseURL,
		OrbBaseURL:      s.OrbBaseURL,
		BackendURL:      s.BackendURL,
		ListenAddr:      s.ListenAddr,
		ProbeTimeout:    durationOr(s.ProbeTimeout, defaultProbeTimeout),
		InitTimeout:     durationOr(s.InitTimeout, defaultInitTimeout),
		RefreshInterval: durationOr(s.RefreshInterval, defaultRefreshInterval),
		HTTPTimeout:     durationOr(s.HTTPTimeout, defaultHTTPTimeout),
		AnalyticsDays:   s.AnalyticsDays,
		CleanupSchedule: s.CleanupSchedule,
	}
	cfg.DatabasePath = orDefault(s.DatabasePath, filepath.Join(cfg.DataDir, "data.db"))
	cfg.SettingsPath = orDefault(s.SettingsPath, filepath.Join(cfg.DataDir, "settings.json"))
	cfg.KeyPath = orDefault(s.KeyPath, filepath.Join(cfg.DataDir, "secret.key"))
	cfg.LogPath = orDefault(s.LogPath, filepath.Join(cfg.DataDir, "creditbar.log"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, p := range []string{cfg.DatabasePath, cfg.SettingsPath, cfg.KeyPath} {
		if err := ensureDir(filepath.Dir(p)); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}

	return cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("%s_REFRESH_INTERVAL must be at least 1s, got %v", EnvPrefix, c.RefreshInterval)
	}
	if c.ProbeTimeout <= 0 || c.InitTimeout <= 0 {
		return fmt.Errorf("%s_PROBE_TIMEOUT and %s_INIT_TIMEOUT must be positive", EnvPrefix, EnvPrefix)
	}
	if c.AnalyticsDays < 1 {
		return fmt.Errorf("%s_ANALYTICS_DAYS must be at least 1, got %d", EnvPrefix, c.AnalyticsDays)
	}
	return nil
}

// RemoteBackend reports whether the frontend talks to a backend over HTTP.
func (c *Config) RemoteBackend() bool {
	return c.BackendURL != ""
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "creditbar", ".env"),
			filepath.Join(home, ".creditbar", ".env"),
		)
	}

	return paths
}

// getDefaultDataDir returns the default directory for settings and history.
func getDefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".creditbar"
	}
	return filepath.Join(home, ".config", "creditbar")
}

// parseDuration accepts values like "30s", "1m", "500ms" or bare seconds.
func parseDuration(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return time.Duration(secs) * time.Second, nil
}

func durationOr(d Duration, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return time.Duration(d)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
