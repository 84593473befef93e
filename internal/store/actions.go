package store

import (
	"context"
	"fmt"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
)

// DefaultAnalyticsDays is the analytics window when none is configured.
const DefaultAnalyticsDays = 30

// DefaultUsageHours is the legacy analytics window.
const DefaultUsageHours = 24

// FetchMode selects where a balance is read from.
type FetchMode int

const (
	// FetchCached reads the backend's stored balance.
	FetchCached FetchMode = iota
	// FetchFresh forces a live read from the configured provider.
	FetchFresh
)

func (m FetchMode) String() string {
	if m == FetchFresh {
		return "fresh"
	}
	return "cached"
}

// FetchBalance reads the balance. Concurrent fetches with the same mode
// share one backend call. Success sets the balance, stamps the update time
// and marks the connection connected; failure marks it errored.
func (s *Store) FetchBalance(ctx context.Context, mode FetchMode) (models.Balance, error) {
	v, err, _ := s.flight.Do("balance:"+mode.String(), func() (any, error) {
		return s.fetchBalance(ctx, mode)
	})
	if err != nil {
		return models.UnknownBalance(), err
	}
	return v.(models.Balance), nil
}

func (s *Store) fetchBalance(ctx context.Context, mode FetchMode) (models.Balance, error) {
	s.beginBusy()
	defer s.endBusy()

	epoch := s.currentEpoch()
	auth := s.AuthStatus()

	var (
		b   models.Balance
		err error
	)
	switch {
	case mode == FetchCached:
		b, err = s.client.GetCurrentBalance(ctx)
	case auth.IsAugmentConfigured:
		var res models.CreditsResult
		res, err = s.client.FetchCredits(ctx)
		b = res.Balance
	case auth.IsOrbConfigured:
		b, err = s.client.FetchFreshBalance(ctx)
	default:
		s.setConnection(epoch, models.ConnectionDisconnected)
		return models.UnknownBalance(), rpc.Errorf(rpc.KindNotConfigured, "No credit provider configured")
	}

	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		logger.Warn("balance fetch failed", "mode", mode, "error", err)
		return models.UnknownBalance(), rpc.Normalize(err)
	}

	s.update(epoch, func(st *State) []Field {
		st.Balance = b
		st.LastUpdate = s.now()
		st.Connection = models.ConnectionConnected
		return []Field{FieldBalance, FieldLastUpdate, FieldConnection}
	})
	return b, nil
}

// FetchAnalytics fetches the primary provider's history for the last days
// and rebuilds the analytics cell from it. Failures leave empty analytics
// and are not returned.
func (s *Store) FetchAnalytics(ctx context.Context, days int) models.UsageAnalytics {
	if days <= 0 {
		days = s.analyticsDays
	}
	v, _, _ := s.flight.Do(fmt.Sprintf("analytics:%d", days), func() (any, error) {
		epoch := s.currentEpoch()
		a, err := s.loadAnalytics(ctx, days)
		s.setAnalytics(epoch, a, err == nil)
		return a, nil
	})
	return v.(models.UsageAnalytics)
}

// AnalyticsFor fetches the primary provider's history for an arbitrary
// window without touching the analytics cell, which keeps tracking the
// default window. Failures return empty analytics.
func (s *Store) AnalyticsFor(ctx context.Context, days int) models.UsageAnalytics {
	if days <= 0 {
		days = s.analyticsDays
	}
	v, _, _ := s.flight.Do(fmt.Sprintf("window:%d", days), func() (any, error) {
		a, _ := s.loadAnalytics(ctx, days)
		return a, nil
	})
	return v.(models.UsageAnalytics)
}

func (s *Store) loadAnalytics(ctx context.Context, days int) (models.UsageAnalytics, error) {
	payload, err := s.client.FetchAnalytics(ctx, days)
	if err != nil {
		logger.Warn("analytics fetch failed, showing empty analytics", "days", days, "error", err)
		return models.EmptyAnalytics(), err
	}
	return models.BuildUsageAnalytics(payload, s.Balance()), nil
}

// FetchUsageAnalytics fetches the backend-computed analytics for the last
// hours and maps them into the analytics cell. Failures leave empty
// analytics and are not returned.
func (s *Store) FetchUsageAnalytics(ctx context.Context, hours int) models.UsageAnalytics {
	if hours <= 0 {
		hours = DefaultUsageHours
	}
	v, _, _ := s.flight.Do(fmt.Sprintf("usage:%d", hours), func() (any, error) {
		epoch := s.currentEpoch()
		a := models.EmptyAnalytics()

		legacy, err := s.client.GetUsageAnalytics(ctx, hours)
		if err != nil {
			logger.Warn("usage analytics fetch failed, showing empty analytics", "hours", hours, "error", err)
		} else {
			a = models.FromLegacyAnalytics(legacy)
		}
		s.setAnalytics(epoch, a, err == nil)
		return a, nil
	})
	return v.(models.UsageAnalytics)
}

func (s *Store) setAnalytics(epoch uint64, a models.UsageAnalytics, ok bool) {
	s.update(epoch, func(st *State) []Field {
		st.Analytics = a
		if ok {
			st.Connection = models.ConnectionConnected
			return []Field{FieldAnalytics, FieldConnection}
		}
		return []Field{FieldAnalytics}
	})
}

// UpdateConfig validates cfg, sends it to the backend and replaces the
// config cell on success.
func (s *Store) UpdateConfig(ctx context.Context, cfg models.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return &rpc.Error{Kind: rpc.KindConfig, Message: err.Error()}
	}

	epoch := s.currentEpoch()
	if err := s.client.UpdateConfig(ctx, cfg); err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return rpc.Normalize(err)
	}

	s.update(epoch, func(st *State) []Field {
		st.Config = cfg.Redacted()
		st.Connection = models.ConnectionConnected
		return []Field{FieldConfig, FieldConnection}
	})
	return nil
}

// SaveCredential exchanges a session secret for an authenticated session.
// On success the auth status, balance and connection are set in that order.
func (s *Store) SaveCredential(ctx context.Context, secret string) (models.SessionResult, error) {
	epoch := s.currentEpoch()

	res, err := s.client.SaveSessionCredential(ctx, secret)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.SessionResult{}, rpc.Normalize(err)
	}

	s.update(epoch, func(st *State) []Field {
		st.Auth.IsAuthenticated = true
		st.Auth.IsAugmentConfigured = true
		st.Auth.UserEmail = res.Email
		st.Auth.AuthMethod = models.AuthMethodAugment
		st.Balance = res.Balance
		st.LastUpdate = s.now()
		st.Connection = models.ConnectionConnected
		return []Field{FieldAuth, FieldBalance, FieldLastUpdate, FieldConnection}
	})
	return res, nil
}

// ClearSession signs out of both providers and resets every dependent cell.
// Each backend clear is attempted on its own; failures are logged only.
func (s *Store) ClearSession(ctx context.Context) {
	// Bump the epoch first so in-flight actions cannot repopulate the cells.
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	if err := s.client.ClearSession(ctx); err != nil {
		logger.Warn("failed to clear primary session", "error", err)
	}
	if err := s.client.ClearLegacyConfig(ctx); err != nil {
		logger.Warn("failed to clear legacy config", "error", err)
	}

	s.set(func(st *State) []Field {
		fresh := initialState()
		st.Balance = fresh.Balance
		st.LastUpdate = fresh.LastUpdate
		st.Auth = fresh.Auth
		st.Analytics = fresh.Analytics
		st.Connection = fresh.Connection
		st.Subscription = nil
		st.Legacy = models.LegacyConfig{}
		return []Field{FieldBalance, FieldLastUpdate, FieldAuth, FieldAnalytics, FieldConnection, FieldSubscription, FieldLegacy}
	})
	logger.Info("session cleared")
}

// LoadAuthStatus reads the auth status from the backend.
func (s *Store) LoadAuthStatus(ctx context.Context) (models.AuthStatus, error) {
	epoch := s.currentEpoch()
	status, err := s.client.GetAuthStatus(ctx)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.SignedOut(), rpc.Normalize(err)
	}
	s.update(epoch, func(st *State) []Field {
		st.Auth = status
		return []Field{FieldAuth}
	})
	return status, nil
}

// LoadConfig reads the application configuration from the backend.
func (s *Store) LoadConfig(ctx context.Context) (models.AppConfig, error) {
	epoch := s.currentEpoch()
	cfg, err := s.client.GetConfig(ctx)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.AppConfig{}, rpc.Normalize(err)
	}
	s.update(epoch, func(st *State) []Field {
		st.Config = cfg
		return []Field{FieldConfig}
	})
	return cfg, nil
}

// LoadLegacyConfig reads the legacy portal settings.
func (s *Store) LoadLegacyConfig(ctx context.Context) (models.LegacyConfig, error) {
	epoch := s.currentEpoch()
	lc, err := s.client.GetLegacyConfig(ctx)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.LegacyConfig{}, rpc.Normalize(err)
	}
	s.update(epoch, func(st *State) []Field {
		st.Legacy = lc
		return []Field{FieldLegacy}
	})
	return lc, nil
}

// FetchSubscription reads the current plan.
func (s *Store) FetchSubscription(ctx context.Context) (models.SubscriptionInfo, error) {
	epoch := s.currentEpoch()
	info, err := s.client.FetchSubscription(ctx)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.SubscriptionInfo{}, rpc.Normalize(err)
	}
	s.update(epoch, func(st *State) []Field {
		st.Subscription = &info
		st.Connection = models.ConnectionConnected
		return []Field{FieldSubscription, FieldConnection}
	})
	return info, nil
}

// SetPortalURL saves the legacy portal settings from a pasted URL and
// reloads the auth status they affect.
func (s *Store) SetPortalURL(ctx context.Context, url string) (models.LegacyConfig, error) {
	epoch := s.currentEpoch()
	lc, err := s.client.ParsePortalURL(ctx, url)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.LegacyConfig{}, rpc.Normalize(err)
	}
	s.update(epoch, func(st *State) []Field {
		st.Legacy = lc
		return []Field{FieldLegacy}
	})
	if _, err := s.LoadAuthStatus(ctx); err != nil {
		logger.Warn("failed to reload auth status", "error", err)
	}
	return lc, nil
}

// TriggerManualUpdate asks the backend for a legacy portal refresh. An
// unknown balance means the portal is not configured and leaves the cell
// untouched.
func (s *Store) TriggerManualUpdate(ctx context.Context) (models.Balance, error) {
	epoch := s.currentEpoch()
	b, err := s.client.TriggerManualUpdate(ctx)
	if err != nil {
		s.setConnection(epoch, models.ConnectionError)
		return models.UnknownBalance(), rpc.Normalize(err)
	}
	if !b.Valid {
		return b, nil
	}
	s.update(epoch, func(st *State) []Field {
		st.Balance = b
		st.LastUpdate = s.now()
		st.Connection = models.ConnectionConnected
		return []Field{FieldBalance, FieldLastUpdate, FieldConnection}
	})
	return b, nil
}

// ApplyPushedBalance handles a balance-updated event exactly like a
// successful fetch.
func (s *Store) ApplyPushedBalance(b models.Balance) {
	s.set(func(st *State) []Field {
		st.Balance = b
		st.LastUpdate = s.now()
		st.Connection = models.ConnectionConnected
		return []Field{FieldBalance, FieldLastUpdate, FieldConnection}
	})
}

// receivePushedBalance is the balance-updated listener. A signed-out store
// drops pushes: the backend may still be finishing a poll that started
// before the session was cleared.
func (s *Store) receivePushedBalance(b models.Balance) {
	s.set(func(st *State) []Field {
		if !st.Auth.IsAuthenticated {
			logger.Debug("dropping pushed balance while signed out")
			return nil
		}
		st.Balance = b
		st.LastUpdate = s.now()
		st.Connection = models.ConnectionConnected
		return []Field{FieldBalance, FieldLastUpdate, FieldConnection}
	})
}

// ApplyPushedConfig handles a config-changed event.
func (s *Store) ApplyPushedConfig(cfg models.AppConfig) {
	s.set(func(st *State) []Field {
		st.Config = cfg
		return []Field{FieldConfig}
	})
}

// ShowWindow marks the detail window visible.
func (s *Store) ShowWindow(ctx context.Context) error {
	return s.setWindow(ctx, s.client.ShowWindow, true)
}

// HideWindow marks the detail window hidden.
func (s *Store) HideWindow(ctx context.Context) error {
	return s.setWindow(ctx, s.client.HideWindow, false)
}

func (s *Store) setWindow(ctx context.Context, call func(context.Context) error, visible bool) error {
	if err := call(ctx); err != nil {
		return rpc.Normalize(err)
	}
	s.set(func(st *State) []Field {
		st.WindowVisible = visible
		return []Field{FieldWindow}
	})
	return nil
}

// ToggleWindow flips the detail window and returns the new visibility.
func (s *Store) ToggleWindow(ctx context.Context) (bool, error) {
	visible, err := s.client.ToggleWindow(ctx)
	if err != nil {
		return false, rpc.Normalize(err)
	}
	s.set(func(st *State) []Field {
		st.WindowVisible = visible
		return []Field{FieldWindow}
	})
	return visible, nil
}

// WindowVisible asks the backend whether the detail window is visible.
func (s *Store) WindowVisible(ctx context.Context) (bool, error) {
	visible, err := s.client.GetWindowVisibility(ctx)
	if err != nil {
		return false, rpc.Normalize(err)
	}
	s.set(func(st *State) []Field {
		st.WindowVisible = visible
		return []Field{FieldWindow}
	})
	return visible, nil
}

// Refresh runs one refresh for whichever provider is configured: the
// primary provider's balance and analytics, or the legacy pair. With no
// provider it makes no calls.
func (s *Store) Refresh(ctx context.Context) error {
	auth := s.AuthStatus()
	switch {
	case auth.IsAugmentConfigured:
		if _, err := s.FetchBalance(ctx, FetchFresh); err != nil {
			return err
		}
		s.FetchAnalytics(ctx, s.analyticsDays)
	case auth.IsOrbConfigured:
		if _, err := s.FetchBalance(ctx, FetchFresh); err != nil {
			return err
		}
		s.FetchUsageAnalytics(ctx, DefaultUsageHours)
	}
	return nil
}

// refreshTick is the scheduler callback. Errors are already reflected in
// the connection cell.
func (s *Store) refreshTick(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.setConnection(s.currentEpoch(), models.ConnectionError)
		logger.Warn("scheduled refresh failed", "error", err)
	}
}
