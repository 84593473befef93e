package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
)

// useTempConfig points the package configuration at a scratch directory
// with an in-process backend.
func useTempConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		DataDir:         dir,
		DatabasePath:    filepath.Join(dir, "data.db"),
		SettingsPath:    filepath.Join(dir, "settings.json"),
		KeyPath:         filepath.Join(dir, "secret.key"),
		AugmentBaseURL:  "http://127.0.0.1:1",
		OrbBaseURL:      "http://127.0.0.1:1",
		ProbeTimeout:    time.Second,
		InitTimeout:     5 * time.Second,
		RefreshInterval: time.Minute,
		HTTPTimeout:     time.Second,
		AnalyticsDays:   30,
	}
	t.Cleanup(func() { cfg = prev })
}

func TestCommandTree(t *testing.T) {
	want := map[string]bool{
		"serve": false, "status": false, "login": false, "logout": false,
		"legacy": false, "config": false, "version": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing %q subcommand", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "creditbar ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestInitOptions(t *testing.T) {
	useTempConfig(t)
	opts := initOptions(cfg, true)
	if !opts.Fresh || opts.ProbeTimeout != time.Second || opts.Timeout != 5*time.Second || opts.RefreshInterval != time.Minute {
		t.Errorf("initOptions = %+v", opts)
	}
}

func TestOpenBackend_Remote(t *testing.T) {
	useTempConfig(t)
	cfg.BackendURL = "http://127.0.0.1:1"

	b, err := openBackend(cfg, false)
	if err != nil {
		t.Fatalf("openBackend failed: %v", err)
	}
	if b.manager != nil {
		t.Error("remote backend should not start a manager")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStatus_SignedOut(t *testing.T) {
	useTempConfig(t)

	var out bytes.Buffer
	err := withStore(context.Background(), func(ctx context.Context, st *store.Store) error {
		return runStatus(ctx, &out, st, false, false)
	})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Not signed in") {
		t.Errorf("output = %q", out.String())
	}
}

func TestStatus_JSON(t *testing.T) {
	useTempConfig(t)

	var out bytes.Buffer
	err := withStore(context.Background(), func(ctx context.Context, st *store.Store) error {
		return runStatus(ctx, &out, st, false, true)
	})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}

	var report map[string]any
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON %q: %v", out.String(), err)
	}
	if report["balance"] != nil || report["status"] != string(models.StatusUnknown) || report["authenticated"] != false {
		t.Errorf("report = %v", report)
	}
}

func TestConfigSetAndShow(t *testing.T) {
	useTempConfig(t)
	ctx := context.Background()

	changed := func(name string) bool { return name == "low" || name == "critical" }
	err := withStore(ctx, func(ctx context.Context, st *store.Store) error {
		current, err := st.LoadConfig(ctx)
		if err != nil {
			return err
		}
		return st.UpdateConfig(ctx, applyConfigFlags(current, configFlags{low: 2000, critical: 300}, changed))
	})
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	var out bytes.Buffer
	err = withStore(ctx, func(ctx context.Context, st *store.Store) error {
		c, err := st.LoadConfig(ctx)
		if err != nil {
			return err
		}
		return printConfig(&out, c)
	})
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	var shown models.AppConfig
	if err := json.Unmarshal(out.Bytes(), &shown); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if shown.LowBalanceThreshold != 2000 || shown.CriticalBalanceThreshold != 300 {
		t.Errorf("thresholds = %d/%d", shown.LowBalanceThreshold, shown.CriticalBalanceThreshold)
	}
	if shown.PollingIntervalSeconds != models.DefaultAppConfig().PollingIntervalSeconds {
		t.Error("unchanged settings should be kept")
	}
}

func TestApplyConfigFlags(t *testing.T) {
	base := models.DefaultAppConfig()
	f := configFlags{pollingSeconds: 120, low: 1, critical: 0, notifications: false, theme: "Dark", retentionDays: 7}

	if got := applyConfigFlags(base, f, func(string) bool { return false }); got != base {
		t.Error("no changed flags should leave the config alone")
	}

	got := applyConfigFlags(base, f, func(name string) bool {
		return name == "interval" || name == "notifications" || name == "theme"
	})
	if got.PollingIntervalSeconds != 120 || got.EnableNotifications || got.Theme != models.ThemeDark {
		t.Errorf("got %+v", got)
	}
	if got.LowBalanceThreshold != base.LowBalanceThreshold || got.DataRetentionDays != base.DataRetentionDays {
		t.Error("flags not passed should be ignored")
	}
}

func TestReadSecret(t *testing.T) {
	got, err := readSecret(strings.NewReader("  abc123 \n"))
	if err != nil || got != "abc123" {
		t.Errorf("readSecret = %q, %v", got, err)
	}
	if _, err := readSecret(strings.NewReader("\n")); err == nil {
		t.Error("empty input should fail")
	}
}

func TestPrintStatus(t *testing.T) {
	hours := 150.0
	r := statusReport{
		Balance:        models.NewBalance(1500),
		Status:         models.StatusHealthy,
		Authenticated:  true,
		AuthMethod:     models.AuthMethodAugment,
		Email:          "dev@example.com",
		Connection:     models.ConnectionConnected,
		RatePerDay:     240,
		HoursRemaining: &hours,
		Trend:          models.TrendStable,
	}

	var out bytes.Buffer
	printStatus(&out, r, models.DefaultAppConfig())
	for _, want := range []string{
		"1,500 credits (healthy)",
		"low 500, critical 100",
		"240/day, 6d left (stable)",
		"augment · dev@example.com",
		"connected",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestNewStatusReport(t *testing.T) {
	snap := store.State{
		Balance: models.NewBalance(80),
		Config:  models.DefaultAppConfig(),
	}
	if r := newStatusReport(snap); r.Status != models.StatusCritical {
		t.Errorf("Status = %s", r.Status)
	}
}
