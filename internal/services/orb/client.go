// Package orb reads the balance from the legacy ledger portal.
package orb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
)

const (
	// PortalHost is the only host accepted in a pasted portal URL.
	PortalHost = "portal.withorb.com"
	// DefaultBaseURL is where ledger summaries are fetched from.
	DefaultBaseURL = "https://" + PortalHost

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// ConfigError is a problem with the portal settings. Its message is shown
// to the user as is.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

func configError(msg string) error {
	return &ConfigError{Message: msg}
}

// ErrNoBalance is returned when the ledger reply has no usable balance.
var ErrNoBalance = errors.New("Failed to extract balance from response")

// PortalConfig identifies one customer's ledger.
type PortalConfig struct {
	CustomerID    string
	PricingUnitID string
	Token         string
}

// ParsePortalURL extracts the ledger coordinates from a URL copied out of the
// portal, e.g. https://portal.withorb.com/api/v1/customers/ID/ledger_summary?pricing_unit_id=U&token=T.
func ParsePortalURL(raw string) (PortalConfig, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return PortalConfig{}, configError("Invalid URL format")
	}
	if u.Hostname() != PortalHost {
		return PortalConfig{}, configError("URL must be from portal.withorb.com")
	}

	segs := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segs) < 5 || segs[0] != "api" || segs[1] != "v1" || segs[2] != "customers" || segs[4] != "ledger_summary" {
		return PortalConfig{}, configError("URL must be in format: /api/v1/customers/{customer_id}/ledger_summary")
	}

	q := u.Query()
	if !q.Has("pricing_unit_id") {
		return PortalConfig{}, configError("URL must contain pricing_unit_id parameter")
	}
	if !q.Has("token") {
		return PortalConfig{}, configError("URL must contain token parameter")
	}

	cfg := PortalConfig{
		CustomerID:    segs[3],
		PricingUnitID: q.Get("pricing_unit_id"),
		Token:         q.Get("token"),
	}
	if cfg.CustomerID == "" || cfg.PricingUnitID == "" || cfg.Token == "" {
		return PortalConfig{}, configError("Extracted values cannot be empty")
	}
	return cfg, nil
}

// FromAppConfig reads the portal fields of the user configuration.
func FromAppConfig(c models.AppConfig) PortalConfig {
	return PortalConfig{CustomerID: c.CustomerID, PricingUnitID: c.PricingUnitID, Token: c.OrbToken}
}

// Apply writes the portal fields into c.
func (p PortalConfig) Apply(c *models.AppConfig) {
	c.CustomerID = p.CustomerID
	c.PricingUnitID = p.PricingUnitID
	c.OrbToken = p.Token
}

// LedgerURL builds the ledger summary URL under baseURL.
func (p PortalConfig) LedgerURL(baseURL string) (string, error) {
	switch {
	case p.CustomerID == "":
		return "", configError("Customer ID not configured")
	case p.PricingUnitID == "":
		return "", configError("Pricing unit ID not configured")
	case p.Token == "":
		return "", configError("Token not configured")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	q := url.Values{}
	q.Set("pricing_unit_id", p.PricingUnitID)
	q.Set("token", p.Token)
	return fmt.Sprintf("%s/api/v1/customers/%s/ledger_summary?%s",
		strings.TrimRight(baseURL, "/"), url.PathEscape(p.CustomerID), q.Encode()), nil
}

// Client fetches ledger summaries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// FetchBalance returns the customer's credits_balance truncated to whole credits.
func (c *Client) FetchBalance(ctx context.Context, p PortalConfig) (int64, error) {
	ledgerURL, err := p.LedgerURL(c.baseURL)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ledgerURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ledger request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger response: %w", err)
	}
	return parseLedger(body)
}

// parseLedger accepts credits_balance as a numeric string or a number.
func parseLedger(body []byte) (int64, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("failed to parse ledger response: %w", err)
	}
	field, ok := raw["credits_balance"]
	if !ok {
		return 0, ErrNoBalance
	}
	var b models.Balance
	if err := json.Unmarshal(field, &b); err != nil || !b.Valid {
		return 0, ErrNoBalance
	}
	return b.Value, nil
}
