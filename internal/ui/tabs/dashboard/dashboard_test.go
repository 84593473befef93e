package dashboard

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/creditbar/internal/app"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/store"
)

var testNow = time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)

func float(v float64) *float64 { return &v }

// signedInStore returns an initialized store for an authenticated primary
// provider account.
func signedInStore(t *testing.T) *store.Store {
	t.Helper()

	replies := map[string]any{
		rpc.MethodTestConnection:    "Connection successful",
		rpc.MethodGetAuthStatus:     models.AuthStatus{IsAuthenticated: true, IsAugmentConfigured: true, UserEmail: "dev@example.com", AuthMethod: models.AuthMethodAugment},
		rpc.MethodGetConfig:         models.DefaultAppConfig(),
		rpc.MethodGetLegacyConfig:   models.LegacyConfig{},
		rpc.MethodGetCurrentBalance: models.NewBalance(1500),
		rpc.MethodFetchAnalytics: models.AnalyticsPayload{
			AnalyticsInfo: models.AnalyticsInfo{PercentIncrease: float(12.5)},
			DailyUsage:    []models.DailyUsage{{Date: "2025-11-19", TotalCredits: 240}},
		},
		rpc.MethodFetchSubscription: models.SubscriptionInfo{PlanName: "Developer", BillingPeriodEnd: "2025-12-01", CreditsIncluded: 50000},
	}
	handler := rpc.HandlerFunc(func(_ context.Context, method string, _ json.RawMessage) (any, error) {
		if v, ok := replies[method]; ok {
			return v, nil
		}
		return nil, rpc.Errorf(rpc.KindUnknownMethod, "unknown method %q", method)
	})

	hub := rpc.NewHub()
	client := rpc.NewClient(rpc.NewLocalTransport(handler, hub))
	st := store.New(client, store.WithClock(func() time.Time { return testNow.Add(-5 * time.Minute) }))
	t.Cleanup(func() {
		st.Teardown()
		_ = client.Close()
		hub.Close()
	})

	if err := st.Initialize(context.Background(), store.InitOptions{RefreshInterval: time.Hour}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return st
}

func newModel(state *app.State) *Model {
	m := New(state)
	m.now = func() time.Time { return testNow }
	m.SetSize(100, 60)
	return m
}

func TestModel_Init(t *testing.T) {
	if New(app.NewState(nil)).Init() == nil {
		t.Error("Init should start the spinner")
	}
}

func TestModel_ViewWhileConnecting(t *testing.T) {
	hub := rpc.NewHub()
	defer hub.Close()
	st := store.New(rpc.NewClient(rpc.NewLocalTransport(rpc.HandlerFunc(nil), hub)))

	m := newModel(app.NewState(st))
	if view := m.View(); !strings.Contains(view, "Connecting to backend") {
		t.Errorf("expected spinner while initializing, got %q", view)
	}
}

func TestModel_ViewSignedOut(t *testing.T) {
	m := newModel(app.NewState(nil))
	view := ansi.Strip(m.View())

	for _, want := range []string{
		"Credit Balance",
		models.BalancePlaceholder,
		"Unknown",
		"Never updated",
		"No usage data yet",
		"Not signed in",
		"creditbar login",
		"Disconnected",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_ViewSignedIn(t *testing.T) {
	m := newModel(app.NewState(signedInStore(t)))
	view := ansi.Strip(m.View())

	for _, want := range []string{
		"1,500",
		"Healthy",
		"Updated 5 minutes ago",
		"Low at 500",
		"10/hour · 240/day",
		"6d",
		"↑ Increasing (+12.5%)",
		"dev@example.com",
		"Connected",
		"Developer",
		"Dec 1",
		"50,000 credits",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_SpinnerStopsAfterStartup(t *testing.T) {
	m := newModel(app.NewState(nil))
	if _, cmd := m.Update(spinner.TickMsg{}); cmd != nil {
		t.Error("spinner should not keep ticking once initialized")
	}
}

func TestModel_KeysScrollViewport(t *testing.T) {
	m := newModel(app.NewState(nil))
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if updated != m {
		t.Error("Update should return the same tab")
	}
	if len(m.ShortHelp()) != 2 || len(m.FullHelp()) != 1 {
		t.Error("unexpected help bindings")
	}
}

func TestTrendLabel(t *testing.T) {
	tests := []struct {
		trend   models.Trend
		percent *float64
		want    string
	}{
		{models.TrendIncreasing, float(12.5), "↑ Increasing (+12.5%)"},
		{models.TrendDecreasing, float(-30), "↓ Decreasing (-30.0%)"},
		{models.TrendStable, nil, "→ Stable"},
		{models.TrendInsufficient, float(50), "Not enough data"},
	}
	for _, tt := range tests {
		if got := trendLabel(tt.trend, tt.percent); got != tt.want {
			t.Errorf("trendLabel(%s) = %q, want %q", tt.trend, got, tt.want)
		}
	}
}

func TestConnectionLabel(t *testing.T) {
	tests := map[models.ConnectionStatus]string{
		models.ConnectionConnected:    "● Connected",
		models.ConnectionError:        "✕ Error",
		models.ConnectionDisconnected: "○ Disconnected",
	}
	for status, want := range tests {
		if got := connectionLabel(status); got != want {
			t.Errorf("connectionLabel(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestFormatBillingEnd(t *testing.T) {
	if got := formatBillingEnd("2025-11-27T00:00:00Z", testNow); !strings.HasPrefix(got, "Nov 27 (") {
		t.Errorf("RFC 3339 = %q", got)
	}
	if got := formatBillingEnd("2025-12-01", testNow); !strings.HasPrefix(got, "Dec 1 (") {
		t.Errorf("date only = %q", got)
	}
	if got := formatBillingEnd("end of month", testNow); got != "end of month" {
		t.Errorf("unparseable = %q", got)
	}
}
