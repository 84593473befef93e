package rpc

import (
	"context"
	"encoding/json"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
)

// Client is the typed view of the backend call surface.
type Client struct {
	transport Transport
}

// NewClient wraps a transport.
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// TestConnection is the liveness probe.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	var reply string
	err := c.transport.Call(ctx, MethodTestConnection, nil, &reply)
	return reply, err
}

// GetCurrentBalance reads the backend's cached balance.
func (c *Client) GetCurrentBalance(ctx context.Context) (models.Balance, error) {
	var b models.Balance
	err := c.transport.Call(ctx, MethodGetCurrentBalance, nil, &b)
	return b, err
}

// FetchFreshBalance forces a live read from the legacy portal.
func (c *Client) FetchFreshBalance(ctx context.Context) (models.Balance, error) {
	var b models.Balance
	err := c.transport.Call(ctx, MethodFetchFreshBalance, nil, &b)
	return b, err
}

// GetUsageAnalytics returns the backend-computed analytics for the last hours.
func (c *Client) GetUsageAnalytics(ctx context.Context, hours int) (models.LegacyAnalytics, error) {
	var a models.LegacyAnalytics
	err := c.transport.Call(ctx, MethodGetUsageAnalytics, HoursParams{Hours: hours}, &a)
	return a, err
}

// GetConfig returns the saved configuration without secrets.
func (c *Client) GetConfig(ctx context.Context) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := c.transport.Call(ctx, MethodGetConfig, nil, &cfg)
	return cfg, err
}

// UpdateConfig replaces the saved configuration.
func (c *Client) UpdateConfig(ctx context.Context, cfg models.AppConfig) error {
	return c.transport.Call(ctx, MethodUpdateConfig, ConfigParams{Config: cfg}, nil)
}

// TriggerManualUpdate refreshes from the legacy portal. The balance is
// absent when the portal is not configured.
func (c *Client) TriggerManualUpdate(ctx context.Context) (models.Balance, error) {
	var b models.Balance
	err := c.transport.Call(ctx, MethodTriggerManualUpdate, nil, &b)
	return b, err
}

// ShowWindow marks the detail window visible.
func (c *Client) ShowWindow(ctx context.Context) error {
	return c.transport.Call(ctx, MethodShowWindow, nil, nil)
}

// HideWindow marks the detail window hidden.
func (c *Client) HideWindow(ctx context.Context) error {
	return c.transport.Call(ctx, MethodHideWindow, nil, nil)
}

// ToggleWindow flips the detail window and returns the new visibility.
func (c *Client) ToggleWindow(ctx context.Context) (bool, error) {
	var visible bool
	err := c.transport.Call(ctx, MethodToggleWindow, nil, &visible)
	return visible, err
}

// GetWindowVisibility reports whether the detail window is visible.
func (c *Client) GetWindowVisibility(ctx context.Context) (bool, error) {
	var visible bool
	err := c.transport.Call(ctx, MethodGetWindowVisibility, nil, &visible)
	return visible, err
}

// ParsePortalURL saves the legacy portal settings embedded in url.
func (c *Client) ParsePortalURL(ctx context.Context, url string) (models.LegacyConfig, error) {
	var lc models.LegacyConfig
	err := c.transport.Call(ctx, MethodParsePortalURL, URLParams{URL: url}, &lc)
	return lc, err
}

// GetLegacyConfig returns the legacy portal settings.
func (c *Client) GetLegacyConfig(ctx context.Context) (models.LegacyConfig, error) {
	var lc models.LegacyConfig
	err := c.transport.Call(ctx, MethodGetLegacyConfig, nil, &lc)
	return lc, err
}

// ClearLegacyConfig removes the legacy portal settings.
func (c *Client) ClearLegacyConfig(ctx context.Context) error {
	return c.transport.Call(ctx, MethodClearLegacyConfig, nil, nil)
}

// SaveSessionCredential exchanges a session secret for an authenticated session.
func (c *Client) SaveSessionCredential(ctx context.Context, secret string) (models.SessionResult, error) {
	var res models.SessionResult
	err := c.transport.Call(ctx, MethodSaveSessionCredential, CredentialParams{Secret: secret}, &res)
	return res, err
}

// GetAuthStatus returns which providers are configured.
func (c *Client) GetAuthStatus(ctx context.Context) (models.AuthStatus, error) {
	status := models.SignedOut()
	err := c.transport.Call(ctx, MethodGetAuthStatus, nil, &status)
	return status, err
}

// FetchCredits reads the balance from the primary provider.
func (c *Client) FetchCredits(ctx context.Context) (models.CreditsResult, error) {
	var res models.CreditsResult
	err := c.transport.Call(ctx, MethodFetchCredits, nil, &res)
	return res, err
}

// FetchSubscription returns the current plan.
func (c *Client) FetchSubscription(ctx context.Context) (models.SubscriptionInfo, error) {
	var info models.SubscriptionInfo
	err := c.transport.Call(ctx, MethodFetchSubscription, nil, &info)
	return info, err
}

// FetchAnalytics returns the primary provider's consumption history.
func (c *Client) FetchAnalytics(ctx context.Context, days int) (models.AnalyticsPayload, error) {
	var p models.AnalyticsPayload
	err := c.transport.Call(ctx, MethodFetchAnalytics, DaysParams{Days: days}, &p)
	return p, err
}

// ClearSession forgets the primary provider session.
func (c *Client) ClearSession(ctx context.Context) error {
	return c.transport.Call(ctx, MethodClearSession, nil, nil)
}

// SubscribeBalance calls fn with every pushed balance.
func (c *Client) SubscribeBalance(fn func(models.Balance)) (*Subscription, error) {
	return c.transport.Subscribe(EventBalanceUpdated, func(raw json.RawMessage) {
		var b models.Balance
		if err := json.Unmarshal(raw, &b); err != nil {
			logger.Warn("ignoring malformed balance event", "payload", string(raw), "error", err)
			return
		}
		fn(b)
	})
}

// SubscribeConfig calls fn whenever the saved configuration changes.
func (c *Client) SubscribeConfig(fn func(models.AppConfig)) (*Subscription, error) {
	return c.transport.Subscribe(EventConfigChanged, func(raw json.RawMessage) {
		var cfg models.AppConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			logger.Warn("ignoring malformed config event", "error", err)
			return
		}
		fn(cfg)
	})
}
