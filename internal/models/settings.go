package models

import (
	"errors"
	"fmt"
	"time"
)

// Theme is the preferred colour scheme.
type Theme string

const (
	ThemeLight  Theme = "Light"
	ThemeDark   Theme = "Dark"
	ThemeSystem Theme = "System"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// MinPollingIntervalSeconds is the smallest accepted polling interval.
const MinPollingIntervalSeconds = 30

// ErrInvalidConfig is wrapped by every AppConfig validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// AppConfig holds the user-tunable options. It is always replaced whole.
type AppConfig struct {
	// Primary provider session.
	SessionCookie string `json:"session_cookie,omitempty"`
	UserEmail     string `json:"user_email,omitempty"`

	// Legacy ledger portal.
	OrbToken      string `json:"orb_token,omitempty"`
	CustomerID    string `json:"customer_id,omitempty"`
	PricingUnitID string `json:"pricing_unit_id,omitempty"`

	PollingIntervalSeconds   int   `json:"polling_interval_seconds"`
	LowBalanceThreshold      int64 `json:"low_balance_threshold"`
	CriticalBalanceThreshold int64 `json:"critical_balance_threshold"`
	EnableNotifications      bool  `json:"enable_notifications"`
	EnableSoundAlerts        bool  `json:"enable_sound_alerts"`
	AutoStart                bool  `json:"auto_start"`
	WindowAlwaysOnTop        bool  `json:"window_always_on_top"`
	CompactMode              bool  `json:"compact_mode"`
	Theme                    Theme `json:"theme"`
	DataRetentionDays        int   `json:"data_retention_days"`
}

// DefaultAppConfig returns the configuration used before anything is saved.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		PollingIntervalSeconds:   60,
		LowBalanceThreshold:      500,
		CriticalBalanceThreshold: 100,
		EnableNotifications:      true,
		CompactMode:              true,
		Theme:                    ThemeSystem,
		DataRetentionDays:        30,
	}
}

// Validate checks the option ranges.
func (c AppConfig) Validate() error {
	if c.PollingIntervalSeconds < MinPollingIntervalSeconds {
		return fmt.Errorf("%w: polling interval must be at least %d seconds", ErrInvalidConfig, MinPollingIntervalSeconds)
	}
	if c.CriticalBalanceThreshold >= c.LowBalanceThreshold {
		return fmt.Errorf("%w: critical threshold must be less than low threshold", ErrInvalidConfig)
	}
	if c.DataRetentionDays < 1 {
		return fmt.Errorf("%w: data retention must be at least 1 day", ErrInvalidConfig)
	}
	if c.Theme != "" && !c.Theme.Valid() {
		return fmt.Errorf("%w: unknown theme %q", ErrInvalidConfig, c.Theme)
	}
	return nil
}

// PollingInterval returns the polling interval as a duration.
func (c AppConfig) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}

// IsAugmentConfigured reports whether a primary session is present.
func (c AppConfig) IsAugmentConfigured() bool {
	return c.SessionCookie != ""
}

// IsOrbConfigured reports whether every legacy portal field is present.
func (c AppConfig) IsOrbConfigured() bool {
	return c.OrbToken != "" && c.CustomerID != "" && c.PricingUnitID != ""
}

// IsAuthenticated reports whether either provider is usable.
func (c AppConfig) IsAuthenticated() bool {
	return c.IsAugmentConfigured() || c.IsOrbConfigured()
}

// AuthStatus derives the auth summary. The primary provider wins when both exist.
func (c AppConfig) AuthStatus() AuthStatus {
	method := AuthMethodNone
	switch {
	case c.IsAugmentConfigured():
		method = AuthMethodAugment
	case c.IsOrbConfigured():
		method = AuthMethodOrb
	}
	return AuthStatus{
		IsAuthenticated:     c.IsAuthenticated(),
		IsAugmentConfigured: c.IsAugmentConfigured(),
		IsOrbConfigured:     c.IsOrbConfigured(),
		UserEmail:           c.UserEmail,
		AuthMethod:          method,
	}
}

// LegacyConfig summarises the legacy portal fields without the token.
func (c AppConfig) LegacyConfig() LegacyConfig {
	return LegacyConfig{
		CustomerID:    c.CustomerID,
		PricingUnitID: c.PricingUnitID,
		HasToken:      c.OrbToken != "",
		IsConfigured:  c.IsOrbConfigured(),
	}
}

// Redacted drops the secrets so the config can leave the backend.
func (c AppConfig) Redacted() AppConfig {
	c.SessionCookie = ""
	c.OrbToken = ""
	return c
}

// WithSecretsFrom copies secrets from prev into c when c carries none.
func (c AppConfig) WithSecretsFrom(prev AppConfig) AppConfig {
	if c.SessionCookie == "" {
		c.SessionCookie = prev.SessionCookie
	}
	if c.OrbToken == "" {
		c.OrbToken = prev.OrbToken
	}
	return c
}
