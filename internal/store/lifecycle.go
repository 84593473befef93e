package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
)

const (
	DefaultProbeTimeout    = 3 * time.Second
	DefaultInitTimeout     = 15 * time.Second
	DefaultRefreshInterval = 60 * time.Second
	DefaultWarningTTL      = 5 * time.Second
)

// Warnings shown when startup degrades.
const (
	WarningUnreachable = "Backend is not responding. Some data may be unavailable."
	WarningSlowStartup = "Startup is taking longer than expected. Showing what has loaded so far."
)

// ErrBackendUnreachable is returned when the connectivity probe times out.
var ErrBackendUnreachable = errors.New("backend did not respond")

// InitOptions tunes the startup sequence. Zero fields take the defaults.
type InitOptions struct {
	// Fresh reads the balance from the provider instead of the backend's
	// stored value.
	Fresh           bool
	ProbeTimeout    time.Duration
	Timeout         time.Duration
	RefreshInterval time.Duration
	WarningTTL      time.Duration
}

func (o InitOptions) withDefaults() InitOptions {
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultInitTimeout
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.WarningTTL <= 0 {
		o.WarningTTL = DefaultWarningTTL
	}
	return o
}

// Initialize runs the startup sequence once. Every step after the probe
// logs its failure and moves on. When the whole sequence outlives
// opts.Timeout the store is marked initialized with a warning and the
// remaining steps finish in the background. Only a probe timeout is
// returned as an error.
func (s *Store) Initialize(ctx context.Context, opts InitOptions) error {
	opts = opts.withDefaults()

	s.lifeMu.Lock()
	if s.started || s.tornDown {
		s.lifeMu.Unlock()
		return nil
	}
	s.started = true
	s.lifeMu.Unlock()

	logger.Info("initializing", "fresh", opts.Fresh, "timeout", opts.Timeout)

	errc := make(chan error, 1)
	go func() {
		errc <- s.runSequence(ctx, opts)
	}()

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("initialization failed", "error", err)
			s.markInitialized()
			s.ShowWarning(WarningUnreachable, opts.WarningTTL)
			return err
		}
		logger.Info("initialization complete")
		return nil
	case <-timer.C:
		logger.Warn("initialization timed out, continuing degraded", "timeout", opts.Timeout)
		s.markInitialized()
		s.ShowWarning(WarningSlowStartup, opts.WarningTTL)
		return nil
	}
}

func (s *Store) runSequence(ctx context.Context, opts InitOptions) error {
	if err := s.probe(ctx, opts.ProbeTimeout); err != nil {
		return err
	}

	auth, authErr := s.LoadAuthStatus(ctx)
	if authErr != nil {
		logger.Warn("failed to load auth status", "error", authErr)
	}
	if _, err := s.LoadConfig(ctx); err != nil {
		logger.Warn("failed to load config", "error", err)
	}
	if _, err := s.LoadLegacyConfig(ctx); err != nil {
		logger.Warn("failed to load legacy config", "error", err)
	}

	switch {
	case auth.IsAuthenticated:
		s.initialFetch(ctx, auth, opts.Fresh)
	case authErr == nil:
		s.setConnection(s.currentEpoch(), models.ConnectionDisconnected)
		logger.Info("not authenticated, skipping initial fetch")
	}

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.tornDown {
		return nil
	}
	s.subscribeLocked()
	s.scheduler.Start(opts.RefreshInterval)
	s.markInitialized()
	return nil
}

// probe checks that the backend answers within timeout. Non-timeout
// failures are logged and do not stop startup.
func (s *Store) probe(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := make(chan error, 1)
	go func() {
		_, err := s.client.TestConnection(pctx)
		res <- err
	}()

	var err error
	select {
	case err = <-res:
	case <-pctx.Done():
		err = pctx.Err()
	}

	switch {
	case err == nil:
		s.setConnection(s.currentEpoch(), models.ConnectionConnected)
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded):
		s.setConnection(s.currentEpoch(), models.ConnectionError)
		return fmt.Errorf("%w within %v", ErrBackendUnreachable, timeout)
	default:
		s.setConnection(s.currentEpoch(), models.ConnectionError)
		logger.Warn("connection test failed", "error", err)
		return nil
	}
}

func (s *Store) initialFetch(ctx context.Context, auth models.AuthStatus, fresh bool) {
	mode := FetchCached
	if fresh {
		mode = FetchFresh
	}
	if _, err := s.FetchBalance(ctx, mode); err != nil {
		logger.Warn("initial balance fetch failed", "mode", mode, "error", err)
	}

	if auth.IsAugmentConfigured {
		s.FetchAnalytics(ctx, s.analyticsDays)
		if _, err := s.FetchSubscription(ctx); err != nil {
			logger.Warn("failed to load subscription", "error", err)
		}
		return
	}
	s.FetchUsageAnalytics(ctx, DefaultUsageHours)
}

// subscribeLocked registers the push listeners. Callers hold lifeMu.
func (s *Store) subscribeLocked() {
	if s.balanceSub == nil {
		sub, err := s.client.SubscribeBalance(s.receivePushedBalance)
		if err != nil {
			logger.Warn("failed to subscribe to balance updates", "error", err)
		} else {
			s.balanceSub = sub
		}
	}
	if s.configSub == nil {
		sub, err := s.client.SubscribeConfig(s.ApplyPushedConfig)
		if err != nil {
			logger.Warn("failed to subscribe to config changes", "error", err)
		} else {
			s.configSub = sub
		}
	}
}

func (s *Store) markInitialized() {
	s.set(func(st *State) []Field {
		if st.Initialized {
			return nil
		}
		st.Initialized = true
		return []Field{FieldInitialized}
	})
}

// ShowWarning displays msg until ttl elapses or another warning replaces it.
func (s *Store) ShowWarning(msg string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultWarningTTL
	}
	s.set(func(st *State) []Field {
		st.Warning = msg
		return []Field{FieldWarning}
	})

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	s.warningSeq++
	seq := s.warningSeq
	if s.warningTimer != nil {
		s.warningTimer.Stop()
	}
	s.warningTimer = time.AfterFunc(ttl, func() { s.clearWarning(seq) })
}

func (s *Store) clearWarning(seq uint64) {
	s.lifeMu.Lock()
	current := seq == s.warningSeq
	s.lifeMu.Unlock()
	if !current {
		return
	}
	s.set(func(st *State) []Field {
		st.Warning = ""
		return []Field{FieldWarning}
	})
}

// Teardown stops the scheduler and cancels push listeners. Only the first
// call has any effect. In-flight calls are left to finish.
func (s *Store) Teardown() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.tornDown {
		return
	}
	s.tornDown = true

	s.scheduler.Stop()
	s.balanceSub.Unsubscribe()
	s.configSub.Unsubscribe()
	s.balanceSub, s.configSub = nil, nil
	if s.warningTimer != nil {
		s.warningTimer.Stop()
	}
	logger.Info("store torn down")
}
