// Package augment is the HTTP client for the primary credit provider.
package augment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
)

// DefaultBaseURL is the provider's web application.
const DefaultBaseURL = "https://app.augmentcode.com"

const (
	userAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	isoDateLayout = "2006-01-02T00:00:00.000Z"
)

// ErrRejected wraps every non-2xx reply. The provider answers an expired
// session this way.
var ErrRejected = errors.New("request rejected, session may have expired")

// CreditsResponse is the /api/credits reply.
type CreditsResponse struct {
	UsageUnitsAvailable                int64 `json:"usageUnitsAvailable"`
	UsageUnitsUsedThisBillingCycle     int64 `json:"usageUnitsUsedThisBillingCycle"`
	UsageUnitsRemaining                int64 `json:"usageUnitsRemaining"`
	UsageUnitsConsumedThisBillingCycle int64 `json:"usageUnitsConsumedThisBillingCycle"`
}

// SubscriptionResponse is the subset of /api/subscription that is used.
type SubscriptionResponse struct {
	PlanID                          string   `json:"planId"`
	PlanName                        string   `json:"planName"`
	BillingPeriodEnd                string   `json:"billingPeriodEnd"`
	CreditsRenewingEachBillingCycle int64    `json:"creditsRenewingEachBillingCycle"`
	CreditsIncludedThisBillingCycle int64    `json:"creditsIncludedThisBillingCycle"`
	PlanFacts                       []string `json:"planFacts"`
	TrialGrant                      int64    `json:"trialGrant"`
	PlanIsExpired                   bool     `json:"planIsExpired"`
}

// Info converts the reply into the shape returned to the frontend.
func (s SubscriptionResponse) Info() models.SubscriptionInfo {
	facts := s.PlanFacts
	if facts == nil {
		facts = []string{}
	}
	return models.SubscriptionInfo{
		PlanName:         s.PlanName,
		BillingPeriodEnd: s.BillingPeriodEnd,
		CreditsIncluded:  s.CreditsIncludedThisBillingCycle,
		CreditsRenewing:  s.CreditsRenewingEachBillingCycle,
		TrialGrant:       s.TrialGrant,
		PlanFacts:        facts,
	}
}

// UserResponse is the subset of /api/user that is used.
type UserResponse struct {
	Email      string `json:"email"`
	IsAdmin    bool   `json:"isAdmin"`
	TenantTier string `json:"tenantTier"`
}

// AnalyticsInfoResponse is the /api/credit-analytics-info reply.
type AnalyticsInfoResponse struct {
	TotalCreditsConsumed string   `json:"totalCreditsConsumed"`
	PercentIncrease      *float64 `json:"creditsPercentIncreaseOverPreviousPeriod"`
	ActiveUserCount      *int     `json:"activeUserCount"`
}

// ConsumptionResponse is the /api/credit-consumption reply.
type ConsumptionResponse struct {
	DataPoints []DataPoint `json:"dataPoints"`
}

// DataPoint is one consumption bucket.
type DataPoint struct {
	DateRange struct {
		StartDateISO string `json:"startDateIso"`
		EndDateISO   string `json:"endDateIso"`
	} `json:"dateRange"`
	CreditsConsumed *string `json:"creditsConsumed"`
	GroupKey        *string `json:"groupKey"`
}

// credits parses the consumed amount; unparseable or missing values are 0.
func (d DataPoint) credits() int64 {
	if d.CreditsConsumed == nil {
		return 0
	}
	n, err := strconv.ParseInt(*d.CreditsConsumed, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Grouping selects how consumption is bucketed.
type Grouping struct {
	GroupBy     string
	Granularity string
}

var (
	// GroupDaily is one bucket per day.
	GroupDaily = Grouping{GroupBy: "NONE", Granularity: "DAY"}
	// GroupByModel is one total per model.
	GroupByModel = Grouping{GroupBy: "MODEL_NAME", Granularity: "TOTAL"}
	// GroupByActivity is one total per activity type.
	GroupByActivity = Grouping{GroupBy: "ACTIVITY_TYPE", Granularity: "TOTAL"}
)

// Client calls the provider with a session cookie.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a client. An empty baseURL uses DefaultBaseURL and a nil
// httpClient gets a 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		now:        time.Now,
	}
}

// User validates the session and returns the account.
func (c *Client) User(ctx context.Context, session string) (*UserResponse, error) {
	var user UserResponse
	if err := c.get(ctx, session, "/api/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Credits returns the current balance.
func (c *Client) Credits(ctx context.Context, session string) (*CreditsResponse, error) {
	var credits CreditsResponse
	if err := c.get(ctx, session, "/api/credits", nil, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}

// Subscription returns the plan details.
func (c *Client) Subscription(ctx context.Context, session string) (*SubscriptionResponse, error) {
	var sub SubscriptionResponse
	if err := c.get(ctx, session, "/api/subscription", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// AnalyticsInfo returns headline figures for the last days.
func (c *Client) AnalyticsInfo(ctx context.Context, session string, days int) (*AnalyticsInfoResponse, error) {
	var info AnalyticsInfoResponse
	if err := c.get(ctx, session, "/api/credit-analytics-info", c.window(days), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Consumption returns consumption for the last days bucketed by g.
func (c *Client) Consumption(ctx context.Context, session string, days int, g Grouping) (*ConsumptionResponse, error) {
	q := url.Values{}
	q.Set("groupBy", g.GroupBy)
	q.Set("granularity", g.Granularity)
	for k, v := range c.window(days) {
		q[k] = v
	}

	var resp ConsumptionResponse
	if err := c.get(ctx, session, "/api/credit-consumption", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analytics fetches the four analytics parts in parallel. A failing part is
// logged and contributes an empty value.
func (c *Client) Analytics(ctx context.Context, session string, days int) models.AnalyticsPayload {
	var (
		info     *AnalyticsInfoResponse
		daily    []models.DailyUsage
		byModel  []models.ModelUsage
		activity []models.ActivityUsage
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := c.AnalyticsInfo(gctx, session, days)
		if err != nil {
			logger.Warn("failed to fetch analytics info", "error", err)
			return nil
		}
		info = resp
		return nil
	})
	g.Go(func() error {
		resp, err := c.Consumption(gctx, session, days, GroupDaily)
		if err != nil {
			logger.Warn("failed to fetch daily consumption", "error", err)
			return nil
		}
		daily = DailyUsage(resp)
		return nil
	})
	g.Go(func() error {
		resp, err := c.Consumption(gctx, session, days, GroupByModel)
		if err != nil {
			logger.Warn("failed to fetch model consumption", "error", err)
			return nil
		}
		byModel = ModelUsage(resp)
		return nil
	})
	g.Go(func() error {
		resp, err := c.Consumption(gctx, session, days, GroupByActivity)
		if err != nil {
			logger.Warn("failed to fetch activity consumption", "error", err)
			return nil
		}
		activity = ActivityUsage(resp)
		return nil
	})
	_ = g.Wait()

	payload := models.AnalyticsPayload{
		AnalyticsInfo: models.AnalyticsInfo{ActiveUsers: 1},
		DailyUsage:    nonNil(daily),
		ModelUsage:    nonNil(byModel),
		ActivityUsage: nonNil(activity),
	}
	if info != nil {
		payload.AnalyticsInfo.TotalCreditsConsumed, _ = strconv.ParseInt(info.TotalCreditsConsumed, 10, 64)
		payload.AnalyticsInfo.PercentIncrease = info.PercentIncrease
		if info.ActiveUserCount != nil {
			payload.AnalyticsInfo.ActiveUsers = *info.ActiveUserCount
		}
	}
	payload.Summarize(days)
	return payload
}

// DailyUsage keeps positive daily buckets, dated by the bucket start day.
func DailyUsage(resp *ConsumptionResponse) []models.DailyUsage {
	out := []models.DailyUsage{}
	for _, dp := range resp.DataPoints {
		n := dp.credits()
		if n <= 0 {
			continue
		}
		date, _, _ := strings.Cut(dp.DateRange.StartDateISO, "T")
		out = append(out, models.DailyUsage{Date: date, TotalCredits: n})
	}
	return out
}

// ModelUsage keeps positive, labelled per-model totals.
func ModelUsage(resp *ConsumptionResponse) []models.ModelUsage {
	out := []models.ModelUsage{}
	for _, dp := range resp.DataPoints {
		if n := dp.credits(); n > 0 && dp.GroupKey != nil {
			out = append(out, models.ModelUsage{ModelName: *dp.GroupKey, Credits: n})
		}
	}
	return out
}

// ActivityUsage keeps positive, labelled per-activity totals.
func ActivityUsage(resp *ConsumptionResponse) []models.ActivityUsage {
	out := []models.ActivityUsage{}
	for _, dp := range resp.DataPoints {
		if n := dp.credits(); n > 0 && dp.GroupKey != nil {
			out = append(out, models.ActivityUsage{ActivityType: *dp.GroupKey, Credits: n})
		}
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// window returns the date range query for the last days, at day precision.
func (c *Client) window(days int) url.Values {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)
	q := url.Values{}
	q.Set("startDateIso", start.Format(isoDateLayout))
	q.Set("endDateIso", end.Format(isoDateLayout))
	return q
}

func (c *Client) get(ctx context.Context, session, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cookie", "_session="+session)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("provider rejected request", "path", path, "status", resp.StatusCode, "body", truncate(string(body), 200))
		return fmt.Errorf("%w: %s returned %d", ErrRejected, path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
