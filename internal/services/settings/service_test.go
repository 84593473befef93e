package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/creditbar/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := New(filepath.Join(dir, "settings.json"), filepath.Join(dir, "secret.key"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, dir
}

func TestNew_CreatesDefaults(t *testing.T) {
	svc, dir := newTestService(t)

	if got := svc.Get(); got != models.DefaultAppConfig() {
		t.Errorf("Get() = %+v, want defaults", got)
	}
	for _, name := range []string{"settings.json", "secret.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestSave_EncryptsSecrets(t *testing.T) {
	svc, dir := newTestService(t)

	cfg := models.DefaultAppConfig()
	cfg.SessionCookie = "cookie-secret-value"
	cfg.OrbToken = "orb-secret-token"
	cfg.UserEmail = "dev@example.com"
	if err := svc.Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "cookie-secret-value") || strings.Contains(string(raw), "orb-secret-token") {
		t.Error("secrets written in plain text")
	}
	if !strings.Contains(string(raw), "dev@example.com") {
		t.Error("non-secret fields should stay readable")
	}

	// A second service with the same key reads the secrets back.
	again, err := New(filepath.Join(dir, "settings.json"), filepath.Join(dir, "secret.key"))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer again.Close()
	if got := again.Get(); got != cfg {
		t.Errorf("reloaded = %+v, want %+v", got, cfg)
	}
}

func TestSave_RejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	cfg := models.DefaultAppConfig()
	cfg.PollingIntervalSeconds = 5
	err := svc.Save(cfg)
	if !errors.Is(err, models.ErrInvalidConfig) {
		t.Fatalf("Save err = %v, want ErrInvalidConfig", err)
	}
	if svc.Get() != models.DefaultAppConfig() {
		t.Error("rejected config must not replace the current one")
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService(t)

	cfg, err := svc.Update(func(c *models.AppConfig) {
		c.CustomerID = "cust"
		c.PricingUnitID = "unit"
		c.OrbToken = "tok"
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !cfg.IsOrbConfigured() || !svc.Get().IsOrbConfigured() {
		t.Error("update not applied")
	}

	select {
	case ev := <-svc.Events():
		if ev.Type != EventConfigSaved {
			t.Errorf("event type = %v, want saved", ev.Type)
		}
	case <-time.After(time.Second):
		t.Error("no saved event")
	}
}

func TestParse_PlainLegacyFile(t *testing.T) {
	svc, _ := newTestService(t)

	legacy := map[string]any{
		"orb_token":                  "plain-token",
		"customer_id":                "c1",
		"pricing_unit_id":            "p1",
		"polling_interval_seconds":   120,
		"low_balance_threshold":      1000,
		"critical_balance_threshold": 200,
		"enable_notifications":       false,
		"theme":                      "Dark",
		"data_retention_days":        14,
	}
	data, _ := json.Marshal(legacy)

	cfg, err := svc.parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.OrbToken != "plain-token" || cfg.PollingIntervalSeconds != 120 || cfg.Theme != models.ThemeDark {
		t.Errorf("parsed = %+v", cfg)
	}
	// fields missing from the file keep their defaults
	if !cfg.CompactMode {
		t.Error("CompactMode should default to true")
	}
}

func TestWatcher_ReloadsExternalEdit(t *testing.T) {
	svc, dir := newTestService(t)
	path := filepath.Join(dir, "settings.json")

	edited := models.DefaultAppConfig()
	edited.PollingIntervalSeconds = 300
	data, _ := json.Marshal(edited)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-svc.Events():
			if ev.Type == EventConfigReloaded {
				if ev.Config.PollingIntervalSeconds != 300 {
					t.Errorf("reloaded interval = %d", ev.Config.PollingIntervalSeconds)
				}
				if svc.Get().PollingIntervalSeconds != 300 {
					t.Error("Get() not updated")
				}
				return
			}
		case <-deadline:
			t.Fatal("external edit not picked up")
		}
	}
}

func TestLoadOrCreateKey_Stable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k", "secret.key")

	first, err := loadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := loadOrCreateKey(path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Encode() != second.Encode() {
		t.Error("key changed between loads")
	}
}
