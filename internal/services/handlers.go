package services

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/j-veylop/creditbar/internal/db"
	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/services/analytics"
	"github.com/j-veylop/creditbar/internal/services/augment"
	"github.com/j-veylop/creditbar/internal/services/orb"
)

var _ rpc.Handler = (*Manager)(nil)

// Handle dispatches one RPC method.
func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	result, err := m.dispatch(ctx, method, params)
	if err != nil {
		return nil, toRPCError(err)
	}
	return result, nil
}

func (m *Manager) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case rpc.MethodTestConnection:
		return "Connection successful", nil
	case rpc.MethodGetCurrentBalance:
		return m.GetCurrentBalance(ctx)
	case rpc.MethodFetchFreshBalance:
		return m.FetchFreshBalance(ctx)
	case rpc.MethodGetUsageAnalytics:
		p, err := rpc.DecodeParams[rpc.HoursParams](params)
		if err != nil {
			return nil, err
		}
		return m.GetUsageAnalytics(ctx, p.Hours)
	case rpc.MethodGetConfig:
		return m.currentConfig().Redacted(), nil
	case rpc.MethodUpdateConfig:
		p, err := rpc.DecodeParams[rpc.ConfigParams](params)
		if err != nil {
			return nil, err
		}
		return nil, m.UpdateConfig(p.Config)
	case rpc.MethodTriggerManualUpdate:
		return m.TriggerManualUpdate(ctx)
	case rpc.MethodShowWindow:
		m.setWindowVisible(true)
		return nil, nil
	case rpc.MethodHideWindow:
		m.setWindowVisible(false)
		return nil, nil
	case rpc.MethodToggleWindow:
		return m.ToggleWindow(), nil
	case rpc.MethodGetWindowVisibility:
		return m.WindowVisible(), nil
	case rpc.MethodParsePortalURL:
		p, err := rpc.DecodeParams[rpc.URLParams](params)
		if err != nil {
			return nil, err
		}
		return m.ParsePortalURL(ctx, p.URL)
	case rpc.MethodGetLegacyConfig:
		return m.currentConfig().LegacyConfig(), nil
	case rpc.MethodClearLegacyConfig:
		return nil, m.ClearLegacyConfig()
	case rpc.MethodSaveSessionCredential:
		p, err := rpc.DecodeParams[rpc.CredentialParams](params)
		if err != nil {
			return nil, err
		}
		return m.SaveSessionCredential(ctx, p.Secret)
	case rpc.MethodGetAuthStatus:
		return m.currentConfig().AuthStatus(), nil
	case rpc.MethodFetchCredits:
		return m.fetchCredits(ctx, m.currentConfig())
	case rpc.MethodFetchSubscription:
		return m.FetchSubscription(ctx)
	case rpc.MethodFetchAnalytics:
		p, err := rpc.DecodeParams[rpc.DaysParams](params)
		if err != nil {
			return nil, err
		}
		return m.FetchAnalytics(ctx, p.Days)
	case rpc.MethodClearSession:
		return nil, m.ClearSession()
	default:
		return nil, rpc.Errorf(rpc.KindUnknownMethod, "unknown method %q", method)
	}
}

// GetCurrentBalance returns the newest stored reading.
func (m *Manager) GetCurrentBalance(ctx context.Context) (models.Balance, error) {
	record, err := m.database.LatestBalance(ctx)
	if err != nil {
		return models.UnknownBalance(), storageError(err)
	}
	if record == nil {
		return models.UnknownBalance(), nil
	}
	return models.NewBalance(record.Amount), nil
}

// FetchFreshBalance reads the legacy portal ledger.
func (m *Manager) FetchFreshBalance(ctx context.Context) (models.Balance, error) {
	amount, err := m.fetchLedger(ctx, m.currentConfig())
	if err != nil {
		return models.UnknownBalance(), err
	}
	return models.NewBalance(amount), nil
}

func (m *Manager) fetchLedger(ctx context.Context, cfg models.AppConfig) (int64, error) {
	amount, err := m.orb.FetchBalance(ctx, orb.FromAppConfig(cfg))
	if err != nil {
		return 0, err
	}
	logger.Info("fetched ledger balance", "balance", amount)
	m.recordBalance(ctx, amount, db.SourceOrb)
	return amount, nil
}

// GetUsageAnalytics computes analytics over the last hours of stored history.
func (m *Manager) GetUsageAnalytics(ctx context.Context, hours int) (models.LegacyAnalytics, error) {
	if hours <= 0 {
		hours = analytics.DefaultHours
	}
	a, err := m.analytics.Calculate(ctx, hours)
	if err != nil {
		return models.LegacyAnalytics{}, storageError(err)
	}
	return a, nil
}

// UpdateConfig replaces the configuration. Secrets missing from cfg are
// kept, since the frontend only ever sees the redacted form.
func (m *Manager) UpdateConfig(cfg models.AppConfig) error {
	return m.settings.Save(cfg.WithSecretsFrom(m.currentConfig()))
}

// TriggerManualUpdate refreshes from the legacy portal. It returns an
// unknown balance when no portal token is saved.
func (m *Manager) TriggerManualUpdate(ctx context.Context) (models.Balance, error) {
	cfg := m.currentConfig()
	if cfg.OrbToken == "" {
		logger.Info("manual update skipped, no portal token")
		return models.UnknownBalance(), nil
	}
	return m.FetchFreshBalance(ctx)
}

func (m *Manager) setWindowVisible(visible bool) {
	m.mu.Lock()
	m.windowVisible = visible
	m.mu.Unlock()
}

// ToggleWindow flips the window flag and returns the new value.
func (m *Manager) ToggleWindow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windowVisible = !m.windowVisible
	return m.windowVisible
}

// WindowVisible reports the window flag.
func (m *Manager) WindowVisible() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.windowVisible
}

// ParsePortalURL saves the portal settings found in raw and fetches the
// balance straight away. A failing first fetch does not undo the save.
func (m *Manager) ParsePortalURL(ctx context.Context, raw string) (models.LegacyConfig, error) {
	portal, err := orb.ParsePortalURL(raw)
	if err != nil {
		return models.LegacyConfig{}, err
	}

	cfg, err := m.settings.Update(portal.Apply)
	if err != nil {
		return models.LegacyConfig{}, err
	}
	logger.Info("portal settings saved", "customer_id", portal.CustomerID)

	if _, err := m.fetchLedger(ctx, cfg); err != nil {
		logger.Warn("initial ledger fetch failed", "error", err)
	}
	return cfg.LegacyConfig(), nil
}

// ClearLegacyConfig removes the portal settings.
func (m *Manager) ClearLegacyConfig() error {
	_, err := m.settings.Update(func(c *models.AppConfig) {
		orb.PortalConfig{}.Apply(c)
	})
	return err
}

// SaveSessionCredential validates a session cookie, saves it with the
// account email and reads the balance with it.
func (m *Manager) SaveSessionCredential(ctx context.Context, secret string) (models.SessionResult, error) {
	if secret == "" {
		return models.SessionResult{}, rpc.Errorf(rpc.KindInvalidArgument, "Session cookie cannot be empty")
	}

	user, err := m.augment.User(ctx, secret)
	if err != nil {
		return models.SessionResult{}, err
	}
	logger.Info("session validated", "email", user.Email)

	cfg, err := m.settings.Update(func(c *models.AppConfig) {
		c.SessionCookie = secret
		c.UserEmail = user.Email
	})
	if err != nil {
		return models.SessionResult{}, err
	}

	credits, err := m.fetchCredits(ctx, cfg)
	if err != nil {
		return models.SessionResult{}, err
	}
	return models.SessionResult{Success: true, Email: user.Email, Balance: credits.Balance}, nil
}

func (m *Manager) fetchCredits(ctx context.Context, cfg models.AppConfig) (models.CreditsResult, error) {
	if !cfg.IsAugmentConfigured() {
		return models.CreditsResult{}, rpc.Errorf(rpc.KindAuth, "No session configured")
	}

	credits, err := m.augment.Credits(ctx, cfg.SessionCookie)
	if err != nil {
		return models.CreditsResult{}, err
	}
	m.recordBalance(ctx, credits.UsageUnitsRemaining, db.SourceAugment)

	return models.CreditsResult{
		CreditsRemaining: credits.UsageUnitsRemaining,
		CreditsUsed:      credits.UsageUnitsConsumedThisBillingCycle,
		Balance:          models.NewBalance(credits.UsageUnitsRemaining),
	}, nil
}

// FetchSubscription returns the current plan.
func (m *Manager) FetchSubscription(ctx context.Context) (models.SubscriptionInfo, error) {
	cfg := m.currentConfig()
	if !cfg.IsAugmentConfigured() {
		return models.SubscriptionInfo{}, rpc.Errorf(rpc.KindAuth, "No session configured")
	}
	sub, err := m.augment.Subscription(ctx, cfg.SessionCookie)
	if err != nil {
		return models.SubscriptionInfo{}, err
	}
	return sub.Info(), nil
}

// FetchAnalytics returns the consumption history for the last days.
func (m *Manager) FetchAnalytics(ctx context.Context, days int) (models.AnalyticsPayload, error) {
	cfg := m.currentConfig()
	if !cfg.IsAugmentConfigured() {
		return models.AnalyticsPayload{}, rpc.Errorf(rpc.KindAuth, "No session cookie configured")
	}
	if days <= 0 {
		days = m.analyticsDays
	}
	return m.augment.Analytics(ctx, cfg.SessionCookie, days), nil
}

// ClearSession forgets the primary session and its email.
func (m *Manager) ClearSession() error {
	_, err := m.settings.Update(func(c *models.AppConfig) {
		c.SessionCookie = ""
		c.UserEmail = ""
	})
	if err == nil {
		logger.Info("session cleared")
	}
	return err
}

type storageErr struct{ err error }

func (e storageErr) Error() string { return e.err.Error() }
func (e storageErr) Unwrap() error { return e.err }

func storageError(err error) error {
	return storageErr{err: err}
}

// toRPCError classifies err for the wire.
func toRPCError(err error) *rpc.Error {
	var (
		rpcErr *rpc.Error
		cfgErr *orb.ConfigError
		stErr  storageErr
		netErr net.Error
	)
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr
	case errors.Is(err, context.DeadlineExceeded):
		return &rpc.Error{Kind: rpc.KindTimeout, Message: err.Error()}
	case errors.As(err, &stErr):
		return &rpc.Error{Kind: rpc.KindStorage, Message: "Database error: " + err.Error()}
	case errors.As(err, &cfgErr):
		return &rpc.Error{Kind: rpc.KindConfig, Message: cfgErr.Message}
	case errors.Is(err, models.ErrInvalidConfig):
		return &rpc.Error{Kind: rpc.KindConfig, Message: err.Error()}
	case errors.Is(err, augment.ErrRejected):
		return &rpc.Error{Kind: rpc.KindAuth, Message: err.Error()}
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return &rpc.Error{Kind: rpc.KindTimeout, Message: err.Error()}
		}
		return &rpc.Error{Kind: rpc.KindNetwork, Message: err.Error()}
	default:
		return rpc.Normalize(err)
	}
}
