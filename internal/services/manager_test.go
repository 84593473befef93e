package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/services/alerts"
)

// fakeProviders serves both provider APIs from one test server.
type fakeProviders struct {
	mu        sync.Mutex
	remaining int64
	ledger    string
	rejectAll bool
}

func (f *fakeProviders) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejectAll {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/user":
		_, _ = w.Write([]byte(`{"email": "dev@example.com"}`))
	case "/api/credits":
		_ = json.NewEncoder(w).Encode(map[string]int64{
			"usageUnitsRemaining":                f.remaining,
			"usageUnitsConsumedThisBillingCycle": 10,
		})
	case "/api/subscription":
		_, _ = w.Write([]byte(`{"planName": "Developer", "creditsIncludedThisBillingCycle": 1000}`))
	case "/api/credit-analytics-info":
		_, _ = w.Write([]byte(`{"totalCreditsConsumed": "30"}`))
	case "/api/credit-consumption":
		_, _ = w.Write([]byte(`{"dataPoints": [{"dateRange": {"startDateIso": "2025-01-01T00:00:00Z"}, "creditsConsumed": "30", "groupKey": "x"}]}`))
	case "/api/v1/customers/cust/ledger_summary":
		_, _ = w.Write([]byte(`{"credits_balance": "` + f.ledger + `"}`))
	default:
		http.NotFound(w, r)
	}
}

type sentNotes struct {
	mu     sync.Mutex
	titles []string
}

func (s *sentNotes) send(title, _ string, _ bool) error {
	s.mu.Lock()
	s.titles = append(s.titles, title)
	s.mu.Unlock()
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeProviders, *sentNotes) {
	t.Helper()

	fake := &fakeProviders{remaining: 4200, ledger: "812.5"}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:   filepath.Join(dir, "data.db"),
		SettingsPath:   filepath.Join(dir, "settings.json"),
		KeyPath:        filepath.Join(dir, "secret.key"),
		AugmentBaseURL: srv.URL,
		OrbBaseURL:     srv.URL,
		HTTPTimeout:    5 * time.Second,
		AnalyticsDays:  30,
	}

	notes := &sentNotes{}
	mgr, err := NewManager(cfg, Options{
		HTTPClient: srv.Client(),
		Notifier:   alerts.NewWithSender(notes.send),
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, fake, notes
}

func call[T any](t *testing.T, mgr *Manager, method string, params any) (T, error) {
	t.Helper()
	var zero T

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			t.Fatal(err)
		}
		raw = data
	}

	res, err := mgr.Handle(context.Background(), method, raw)
	if err != nil {
		return zero, err
	}
	data, _ := json.Marshal(res)
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s result: %v", method, err)
	}
	return out, nil
}

func TestNewManager(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	if mgr.Database() == nil || mgr.Settings() == nil || mgr.Hub() == nil {
		t.Fatal("manager not fully initialized")
	}

	msg, err := call[string](t, mgr, rpc.MethodTestConnection, nil)
	if err != nil || msg != "Connection successful" {
		t.Errorf("test_connection = %q, %v", msg, err)
	}

	b, err := call[models.Balance](t, mgr, rpc.MethodGetCurrentBalance, nil)
	if err != nil || b.Valid {
		t.Errorf("get_current_balance on empty db = %+v, %v", b, err)
	}

	status, err := call[models.AuthStatus](t, mgr, rpc.MethodGetAuthStatus, nil)
	if err != nil || status.IsAuthenticated || status.AuthMethod != models.AuthMethodNone {
		t.Errorf("auth status = %+v, %v", status, err)
	}
}

func TestManager_UnknownMethod(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	_, err := mgr.Handle(context.Background(), "launch_rockets", nil)
	if rpc.KindOf(err) != rpc.KindUnknownMethod {
		t.Errorf("kind = %s", rpc.KindOf(err))
	}
}

func TestManager_NotAuthenticated(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	tests := map[string]string{
		rpc.MethodFetchCredits:      "No session configured",
		rpc.MethodFetchSubscription: "No session configured",
		rpc.MethodFetchAnalytics:    "No session cookie configured",
	}
	for method, want := range tests {
		_, err := mgr.Handle(context.Background(), method, nil)
		if rpc.KindOf(err) != rpc.KindAuth || rpc.Message(err) != want {
			t.Errorf("%s err = %v (%s), want auth %q", method, err, rpc.KindOf(err), want)
		}
	}

	_, err := mgr.Handle(context.Background(), rpc.MethodFetchFreshBalance, nil)
	if rpc.KindOf(err) != rpc.KindConfig || rpc.Message(err) != "Customer ID not configured" {
		t.Errorf("fetch_fresh_balance err = %v (%s)", err, rpc.KindOf(err))
	}

	b, err := call[models.Balance](t, mgr, rpc.MethodTriggerManualUpdate, nil)
	if err != nil || b.Valid {
		t.Errorf("trigger_manual_update = %+v, %v; want absent", b, err)
	}
}

func TestManager_SessionFlow(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	events, cancel := mgr.Hub().Subscribe(16)
	defer cancel()

	res, err := call[models.SessionResult](t, mgr, rpc.MethodSaveSessionCredential, rpc.CredentialParams{Secret: "cookie"})
	if err != nil {
		t.Fatalf("save_session_credential failed: %v", err)
	}
	if !res.Success || res.Email != "dev@example.com" || res.Balance != models.NewBalance(4200) {
		t.Errorf("session result = %+v", res)
	}

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for !(seen[rpc.EventBalanceUpdated] && seen[rpc.EventConfigChanged]) {
		select {
		case ev := <-events:
			seen[ev.Name] = true
			if ev.Name == rpc.EventBalanceUpdated && string(ev.Payload) != "4200" {
				t.Errorf("balance payload = %s", ev.Payload)
			}
			if ev.Name == rpc.EventConfigChanged && json.Valid(ev.Payload) {
				var cfg models.AppConfig
				_ = json.Unmarshal(ev.Payload, &cfg)
				if cfg.SessionCookie != "" {
					t.Error("config-changed leaked the session cookie")
				}
			}
		case <-deadline:
			t.Fatalf("missing events, saw %v", seen)
		}
	}

	status, _ := call[models.AuthStatus](t, mgr, rpc.MethodGetAuthStatus, nil)
	if status.AuthMethod != models.AuthMethodAugment || status.UserEmail != "dev@example.com" {
		t.Errorf("auth status = %+v", status)
	}

	credits, err := call[models.CreditsResult](t, mgr, rpc.MethodFetchCredits, nil)
	if err != nil || credits.CreditsRemaining != 4200 || credits.CreditsUsed != 10 {
		t.Errorf("fetch_credits = %+v, %v", credits, err)
	}

	sub, err := call[models.SubscriptionInfo](t, mgr, rpc.MethodFetchSubscription, nil)
	if err != nil || sub.PlanName != "Developer" {
		t.Errorf("fetch_subscription = %+v, %v", sub, err)
	}

	payload, err := call[models.AnalyticsPayload](t, mgr, rpc.MethodFetchAnalytics, rpc.DaysParams{Days: 7})
	if err != nil || payload.Summary.PeriodDays != 7 || payload.AnalyticsInfo.TotalCreditsConsumed != 30 {
		t.Errorf("fetch_analytics = %+v, %v", payload, err)
	}

	cfg, _ := call[models.AppConfig](t, mgr, rpc.MethodGetConfig, nil)
	if cfg.SessionCookie != "" || cfg.UserEmail != "dev@example.com" {
		t.Errorf("get_config = %+v", cfg)
	}

	if _, err := mgr.Handle(context.Background(), rpc.MethodClearSession, nil); err != nil {
		t.Fatalf("clear_session failed: %v", err)
	}
	status, _ = call[models.AuthStatus](t, mgr, rpc.MethodGetAuthStatus, nil)
	if status.IsAuthenticated || status.UserEmail != "" {
		t.Errorf("status after clear = %+v", status)
	}
}

func TestManager_RejectedSession(t *testing.T) {
	mgr, fake, _ := newTestManager(t)
	fake.rejectAll = true

	_, err := mgr.Handle(context.Background(), rpc.MethodSaveSessionCredential, json.RawMessage(`{"secret": "stale"}`))
	if rpc.KindOf(err) != rpc.KindAuth {
		t.Errorf("kind = %s (%v)", rpc.KindOf(err), err)
	}
	if mgr.Settings().Get().SessionCookie != "" {
		t.Error("rejected cookie was saved")
	}
}

func TestManager_PortalFlow(t *testing.T) {
	mgr, _, notes := newTestManager(t)

	_, err := mgr.Handle(context.Background(), rpc.MethodParsePortalURL, json.RawMessage(`{"url": "https://evil.example.com/x"}`))
	if rpc.KindOf(err) != rpc.KindConfig || rpc.Message(err) != "URL must be from portal.withorb.com" {
		t.Errorf("bad url err = %v (%s)", err, rpc.KindOf(err))
	}

	lc, err := call[models.LegacyConfig](t, mgr, rpc.MethodParsePortalURL, rpc.URLParams{
		URL: "https://portal.withorb.com/api/v1/customers/cust/ledger_summary?pricing_unit_id=pu&token=tok",
	})
	if err != nil {
		t.Fatalf("parse_portal_url failed: %v", err)
	}
	if !lc.IsConfigured || lc.CustomerID != "cust" || !lc.HasToken {
		t.Errorf("legacy config = %+v", lc)
	}

	// The immediate fetch stored the ledger balance.
	b, _ := call[models.Balance](t, mgr, rpc.MethodGetCurrentBalance, nil)
	if b != models.NewBalance(812) {
		t.Errorf("stored balance = %+v", b)
	}

	b, err = call[models.Balance](t, mgr, rpc.MethodTriggerManualUpdate, nil)
	if err != nil || b != models.NewBalance(812) {
		t.Errorf("trigger_manual_update = %+v, %v", b, err)
	}

	a, err := call[models.LegacyAnalytics](t, mgr, rpc.MethodGetUsageAnalytics, nil)
	if err != nil || a.TotalUsagePeriod != 24 || len(a.BalanceHistory) != 2 {
		t.Errorf("get_usage_analytics = %+v, %v", a, err)
	}

	status, _ := call[models.AuthStatus](t, mgr, rpc.MethodGetAuthStatus, nil)
	if status.AuthMethod != models.AuthMethodOrb {
		t.Errorf("auth method = %s", status.AuthMethod)
	}

	if _, err := mgr.Handle(context.Background(), rpc.MethodClearLegacyConfig, nil); err != nil {
		t.Fatal(err)
	}
	lc, _ = call[models.LegacyConfig](t, mgr, rpc.MethodGetLegacyConfig, nil)
	if lc.IsConfigured || lc.HasToken || lc.CustomerID != "" {
		t.Errorf("legacy config after clear = %+v", lc)
	}

	// A healthy balance under default thresholds raises nothing.
	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.titles) != 0 {
		t.Errorf("unexpected notifications: %v", notes.titles)
	}
}

func TestManager_LowBalanceNotifies(t *testing.T) {
	mgr, fake, notes := newTestManager(t)
	fake.remaining = 50

	if _, err := call[models.SessionResult](t, mgr, rpc.MethodSaveSessionCredential, rpc.CredentialParams{Secret: "c"}); err != nil {
		t.Fatal(err)
	}

	notes.mu.Lock()
	defer notes.mu.Unlock()
	if len(notes.titles) == 0 || notes.titles[0] != "Critical Balance Alert" {
		t.Errorf("notifications = %v", notes.titles)
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	if _, err := call[models.SessionResult](t, mgr, rpc.MethodSaveSessionCredential, rpc.CredentialParams{Secret: "keep-me"}); err != nil {
		t.Fatal(err)
	}

	cfg, _ := call[models.AppConfig](t, mgr, rpc.MethodGetConfig, nil)
	cfg.PollingIntervalSeconds = 120
	if _, err := mgr.Handle(context.Background(), rpc.MethodUpdateConfig, mustJSON(t, rpc.ConfigParams{Config: cfg})); err != nil {
		t.Fatalf("update_config failed: %v", err)
	}
	if got := mgr.Settings().Get(); got.PollingIntervalSeconds != 120 || got.SessionCookie != "keep-me" {
		t.Errorf("saved config = %+v", got)
	}

	cfg.LowBalanceThreshold = 10
	cfg.CriticalBalanceThreshold = 20
	_, err := mgr.Handle(context.Background(), rpc.MethodUpdateConfig, mustJSON(t, rpc.ConfigParams{Config: cfg}))
	if rpc.KindOf(err) != rpc.KindConfig {
		t.Errorf("invalid config kind = %s (%v)", rpc.KindOf(err), err)
	}

	_, err = mgr.Handle(context.Background(), rpc.MethodUpdateConfig, json.RawMessage(`{"new_config": 7}`))
	if rpc.KindOf(err) != rpc.KindInvalidArgument {
		t.Errorf("malformed params kind = %s", rpc.KindOf(err))
	}
}

func TestManager_Window(t *testing.T) {
	mgr, _, _ := newTestManager(t)

	steps := []struct {
		method string
		want   bool
	}{
		{rpc.MethodGetWindowVisibility, false},
		{rpc.MethodToggleWindow, true},
		{rpc.MethodGetWindowVisibility, true},
		{rpc.MethodHideWindow, false},
		{rpc.MethodToggleWindow, true},
		{rpc.MethodShowWindow, true},
	}
	for _, s := range steps {
		if _, err := mgr.Handle(context.Background(), s.method, nil); err != nil {
			t.Fatalf("%s failed: %v", s.method, err)
		}
		if got := mgr.WindowVisible(); got != s.want {
			t.Errorf("after %s visible = %v, want %v", s.method, got, s.want)
		}
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	mgr, _, _ := newTestManager(t)
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
