package store

import (
	"context"
	"sync"
	"time"

	"github.com/j-veylop/creditbar/internal/logger"
)

// Scheduler runs a refresh callback on a fixed period. At most one timer is
// active at any time.
type Scheduler struct {
	tick func(context.Context)

	mu       sync.Mutex
	stop     chan struct{}
	done     chan struct{}
	interval time.Duration
}

// NewScheduler returns a stopped scheduler that calls tick on every period.
func NewScheduler(tick func(context.Context)) *Scheduler {
	return &Scheduler{tick: tick}
}

// Start begins periodic ticks, replacing any running timer. The first tick
// fires one interval after Start. A non-positive interval uses
// DefaultRefreshInterval.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done, s.interval = stop, done, interval

	go s.run(interval, stop, done)
	logger.Debug("refresh scheduler started", "interval", interval)
}

// Stop cancels the timer. Stopping a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done, s.interval = nil, nil, 0
	logger.Debug("refresh scheduler stopped")
}

// Running reports whether a timer is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Interval returns the active period, or zero when stopped.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) run(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire(stop)
		case <-stop:
			return
		}
	}
}

// fire runs one tick. Only a stop cancels the tick in flight; a slow
// backend simply delays the next tick.
func (s *Scheduler) fire(stop chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.tick(ctx)
}
