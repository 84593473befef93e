package augment

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newTestClient(fn func(req *http.Request) (*http.Response, error)) *Client {
	c := New("https://augment.test/", &http.Client{Transport: &MockRoundTripper{RoundTripFunc: fn}})
	c.now = func() time.Time { return time.Date(2025, 11, 20, 15, 30, 0, 0, time.UTC) }
	return c
}

func TestCredits(t *testing.T) {
	var gotCookie, gotPath string
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		gotCookie = req.Header.Get("Cookie")
		gotPath = req.URL.Path
		return jsonResponse(200, `{"usageUnitsRemaining": 1234, "usageUnitsConsumedThisBillingCycle": 66}`), nil
	})

	credits, err := c.Credits(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Credits failed: %v", err)
	}
	if credits.UsageUnitsRemaining != 1234 || credits.UsageUnitsConsumedThisBillingCycle != 66 {
		t.Errorf("credits = %+v", credits)
	}
	if gotCookie != "_session=abc" {
		t.Errorf("cookie = %q", gotCookie)
	}
	if gotPath != "/api/credits" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestGet_Errors(t *testing.T) {
	tests := []struct {
		name         string
		roundTrip    func(req *http.Request) (*http.Response, error)
		wantRejected bool
	}{
		{
			name: "Unauthorized",
			roundTrip: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(401, `{"error":"unauthorized"}`), nil
			},
			wantRejected: true,
		},
		{
			name: "NetworkError",
			roundTrip: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		},
		{
			name: "BadJSON",
			roundTrip: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `not json`), nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(tt.roundTrip).User(context.Background(), "s")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrRejected); got != tt.wantRejected {
				t.Errorf("errors.Is(ErrRejected) = %v, want %v (%v)", got, tt.wantRejected, err)
			}
		})
	}
}

func TestConsumption_Query(t *testing.T) {
	var q map[string]string
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		q = map[string]string{}
		for k, v := range req.URL.Query() {
			q[k] = v[0]
		}
		return jsonResponse(200, `{"dataPoints": []}`), nil
	})

	if _, err := c.Consumption(context.Background(), "s", 7, GroupByModel); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"groupBy":      "MODEL_NAME",
		"granularity":  "TOTAL",
		"startDateIso": "2025-11-13T00:00:00.000Z",
		"endDateIso":   "2025-11-20T00:00:00.000Z",
	}
	for k, v := range want {
		if q[k] != v {
			t.Errorf("%s = %q, want %q", k, q[k], v)
		}
	}
}

func TestDailyUsage(t *testing.T) {
	s := func(v string) *string { return &v }
	resp := &ConsumptionResponse{DataPoints: []DataPoint{
		{CreditsConsumed: s("120")},
		{CreditsConsumed: s("0")},
		{CreditsConsumed: nil},
		{CreditsConsumed: s("abc")},
		{CreditsConsumed: s("45")},
	}}
	resp.DataPoints[0].DateRange.StartDateISO = "2025-11-06T00:00:00Z"
	resp.DataPoints[4].DateRange.StartDateISO = "2025-11-07"

	got := DailyUsage(resp)
	if len(got) != 2 {
		t.Fatalf("got %d days, want 2", len(got))
	}
	if got[0].Date != "2025-11-06" || got[0].TotalCredits != 120 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Date != "2025-11-07" || got[1].TotalCredits != 45 {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestModelUsage_SkipsUnlabelled(t *testing.T) {
	s := func(v string) *string { return &v }
	resp := &ConsumptionResponse{DataPoints: []DataPoint{
		{CreditsConsumed: s("10"), GroupKey: s("claude-sonnet")},
		{CreditsConsumed: s("10")},
		{CreditsConsumed: s("0"), GroupKey: s("gpt")},
	}}

	got := ModelUsage(resp)
	if len(got) != 1 || got[0].ModelName != "claude-sonnet" {
		t.Errorf("got %+v", got)
	}
}

func TestAnalytics_PartialFailure(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		seen[req.URL.Path+"?"+req.URL.Query().Get("groupBy")] = true
		mu.Unlock()

		switch {
		case req.URL.Path == "/api/credit-analytics-info":
			return jsonResponse(200, `{"totalCreditsConsumed": "300", "creditsPercentIncreaseOverPreviousPeriod": 12.5}`), nil
		case req.URL.Query().Get("groupBy") == "NONE":
			return jsonResponse(200, `{"dataPoints": [
				{"dateRange": {"startDateIso": "2025-11-18T00:00:00Z"}, "creditsConsumed": "100"},
				{"dateRange": {"startDateIso": "2025-11-19T00:00:00Z"}, "creditsConsumed": "200"}
			]}`), nil
		case req.URL.Query().Get("groupBy") == "MODEL_NAME":
			return jsonResponse(500, `boom`), nil
		default:
			return nil, errors.New("dial tcp: timeout")
		}
	})

	p := c.Analytics(context.Background(), "s", 30)

	if len(seen) != 4 {
		t.Errorf("expected 4 distinct requests, got %v", seen)
	}
	if p.AnalyticsInfo.TotalCreditsConsumed != 300 || p.AnalyticsInfo.PercentIncrease == nil || *p.AnalyticsInfo.PercentIncrease != 12.5 {
		t.Errorf("info = %+v", p.AnalyticsInfo)
	}
	if p.AnalyticsInfo.ActiveUsers != 1 {
		t.Errorf("ActiveUsers = %d, want default 1", p.AnalyticsInfo.ActiveUsers)
	}
	if len(p.DailyUsage) != 2 || p.ModelUsage == nil || len(p.ModelUsage) != 0 || p.ActivityUsage == nil {
		t.Errorf("breakdowns = %+v / %+v / %+v", p.DailyUsage, p.ModelUsage, p.ActivityUsage)
	}
	if p.Summary.TotalCreditsUsed != 300 || p.Summary.DaysWithData != 2 || p.Summary.AvgDailyUsage != 150 || p.Summary.PeriodDays != 30 {
		t.Errorf("summary = %+v", p.Summary)
	}
}

func TestSubscriptionInfo(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"planName": "Developer", "billingPeriodEnd": "2025-12-01",
			"creditsIncludedThisBillingCycle": 1000, "creditsRenewingEachBillingCycle": 900, "trialGrant": 50}`), nil
	})

	sub, err := c.Subscription(context.Background(), "s")
	if err != nil {
		t.Fatal(err)
	}
	info := sub.Info()
	if info.PlanName != "Developer" || info.CreditsIncluded != 1000 || info.CreditsRenewing != 900 || info.TrialGrant != 50 {
		t.Errorf("info = %+v", info)
	}
	if info.PlanFacts == nil {
		t.Error("PlanFacts should be an empty slice")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate(strings.Repeat("x", 12), 10); got != strings.Repeat("x", 10)+"..." {
		t.Errorf("got %q", got)
	}
}
