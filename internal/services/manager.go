// Package services provides the backend: it owns the settings, the balance
// history and the provider clients, and answers every RPC method.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/db"
	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/services/alerts"
	"github.com/j-veylop/creditbar/internal/services/analytics"
	"github.com/j-veylop/creditbar/internal/services/augment"
	"github.com/j-veylop/creditbar/internal/services/orb"
	"github.com/j-veylop/creditbar/internal/services/settings"
)

// alertWindowHours is the analytics window used for alert checks.
const alertWindowHours = 24

// Options tunes a Manager beyond the process configuration.
type Options struct {
	// Monitor starts the background polling loop. The in-process frontend
	// has its own scheduler and leaves this off.
	Monitor bool
	// HTTPClient is shared by the provider clients. Nil builds one from the
	// configured timeout.
	HTTPClient *http.Client
	// Notifier overrides the desktop notifier.
	Notifier *alerts.Notifier
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu            sync.RWMutex
	windowVisible bool

	settings  *settings.Service
	database  *db.DB
	augment   *augment.Client
	orb       *orb.Client
	analytics *analytics.Service
	notifier  *alerts.Notifier
	hub       *rpc.Hub
	cron      *cron.Cron

	analyticsDays int
	intervalChan  chan time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewManager creates the backend and starts its background work.
func NewManager(cfg *config.Config, opts Options) (*Manager, error) {
	m := &Manager{
		hub:           rpc.NewHub(),
		analyticsDays: cfg.AnalyticsDays,
		intervalChan:  make(chan time.Duration, 1),
		stopChan:      make(chan struct{}),
		notifier:      opts.Notifier,
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	m.augment = augment.New(cfg.AugmentBaseURL, httpClient)
	m.orb = orb.New(cfg.OrbBaseURL, httpClient)
	if m.notifier == nil {
		m.notifier = alerts.New()
	}

	var err error
	m.settings, err = settings.New(cfg.SettingsPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}

	m.database, err = db.Open(context.Background(), cfg.DatabasePath)
	if err != nil {
		_ = m.settings.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	m.analytics = analytics.New(m.database)

	m.cron = cron.New()
	if cfg.CleanupSchedule != "" {
		if _, err := m.cron.AddFunc(cfg.CleanupSchedule, m.cleanup); err != nil {
			_ = m.settings.Close()
			_ = m.database.Close()
			return nil, fmt.Errorf("invalid cleanup schedule %q: %w", cfg.CleanupSchedule, err)
		}
	}
	m.cron.Start()

	m.wg.Add(1)
	go m.routeEvents()

	if opts.Monitor {
		m.wg.Add(1)
		go m.monitorLoop()
	}

	return m, nil
}

// Hub returns the push channel fed by this manager.
func (m *Manager) Hub() *rpc.Hub {
	return m.hub
}

// Settings returns the settings service.
func (m *Manager) Settings() *settings.Service {
	return m.settings
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// routeEvents relays settings changes to the push channel and retunes the
// monitor when the polling interval changes.
func (m *Manager) routeEvents() {
	defer m.wg.Done()

	for {
		select {
		case event := <-m.settings.Events():
			m.handleSettingsEvent(event)
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleSettingsEvent(event settings.Event) {
	switch event.Type {
	case settings.EventConfigSaved, settings.EventConfigReloaded:
		m.publish(rpc.EventConfigChanged, event.Config.Redacted())

		select {
		case m.intervalChan <- event.Config.PollingInterval():
		default:
			// A retune is already pending; the monitor reads the latest
			// interval from settings when it applies it.
		}

	case settings.EventError:
		logger.Warn("settings watcher error", "error", event.Error)
	}
}

// publish sends a push event, logging encode failures.
func (m *Manager) publish(event string, payload any) {
	if err := m.hub.Publish(event, payload); err != nil {
		logger.Error("failed to publish event", "event", event, "error", err)
	}
}

// monitorLoop polls whichever provider is configured every polling interval.
func (m *Manager) monitorLoop() {
	defer m.wg.Done()

	interval := m.settings.Get().PollingInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("balance monitor started", "interval", interval)

	for {
		select {
		case <-ticker.C:
			m.monitorTick()
		case <-m.intervalChan:
			if next := m.settings.Get().PollingInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				logger.Info("balance monitor interval changed", "interval", interval)
			}
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) monitorTick() {
	ctx, cancel := context.WithTimeout(context.Background(), m.settings.Get().PollingInterval())
	defer cancel()

	cfg := m.settings.Get()
	var err error
	switch {
	case cfg.IsAugmentConfigured():
		_, err = m.fetchCredits(ctx, cfg)
	case cfg.IsOrbConfigured():
		_, err = m.fetchLedger(ctx, cfg)
	default:
		logger.Debug("monitor tick skipped, no provider configured")
		return
	}
	if err != nil {
		logger.Warn("monitor tick failed", "error", err)
	}
}

// recordBalance stores a reading, announces it and checks alerts. Storage
// failures are logged; the reading is still announced.
func (m *Manager) recordBalance(ctx context.Context, amount int64, source string) {
	if _, err := m.database.InsertBalance(ctx, amount, source); err != nil {
		logger.Error("failed to store balance", "amount", amount, "source", source, "error", err)
	}

	m.publish(rpc.EventBalanceUpdated, amount)
	m.checkAlerts(ctx, amount)
}

func (m *Manager) checkAlerts(ctx context.Context, balance int64) {
	cfg := m.settings.Get()
	if !cfg.EnableNotifications {
		return
	}

	a, err := m.analytics.Calculate(ctx, alertWindowHours)
	if err != nil {
		logger.Warn("skipping alert check", "error", err)
		return
	}
	if sent := m.notifier.Check(a, balance, cfg); len(sent) > 0 {
		logger.Debug("balance alerts sent", "ids", sent)
	}
}

// cleanup applies the retention policy.
func (m *Manager) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	days := m.settings.Get().DataRetentionDays
	removed, err := m.database.Cleanup(ctx, days)
	if err != nil {
		logger.Error("retention cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("retention cleanup", "removed", removed, "retention_days", days)
		if err := m.database.Vacuum(ctx); err != nil {
			logger.Warn("vacuum failed", "error", err)
		}
	}
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var errs []error

	m.closeOnce.Do(func() {
		close(m.stopChan)
		<-m.cron.Stop().Done()
		m.wg.Wait()
		m.hub.Close()

		if err := m.settings.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}

// currentConfig returns the full configuration including secrets.
func (m *Manager) currentConfig() models.AppConfig {
	return m.settings.Get()
}
