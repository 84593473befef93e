// Package store holds the frontend state: observable cells filled by backend
// calls, push events and the refresh scheduler.
package store

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
)

// Field names one observable cell.
type Field string

const (
	FieldBalance      Field = "balance"
	FieldLastUpdate   Field = "last_update"
	FieldConfig       Field = "config"
	FieldAuth         Field = "auth"
	FieldAnalytics    Field = "analytics"
	FieldConnection   Field = "connection"
	FieldSubscription Field = "subscription"
	FieldLegacy       Field = "legacy"
	FieldBusy         Field = "busy"
	FieldInitialized  Field = "initialized"
	FieldWarning      Field = "warning"
	FieldWindow       Field = "window"
)

// Change reports that a cell was written.
type Change struct {
	Field Field
}

// State is a copy of every cell.
type State struct {
	Balance       models.Balance
	LastUpdate    time.Time
	Config        models.AppConfig
	Auth          models.AuthStatus
	Analytics     models.UsageAnalytics
	Connection    models.ConnectionStatus
	Subscription  *models.SubscriptionInfo
	Legacy        models.LegacyConfig
	Busy          bool
	Initialized   bool
	Warning       string
	WindowVisible bool
}

func initialState() State {
	return State{
		Config:     models.DefaultAppConfig(),
		Auth:       models.SignedOut(),
		Analytics:  models.EmptyAnalytics(),
		Connection: models.ConnectionDisconnected,
	}
}

// Store is the application state container. Cells are last-writer-wins;
// every write is a full replacement of the cell value.
type Store struct {
	mu    sync.RWMutex
	state State
	busy  int

	// epoch advances on ClearSession. Writes from actions started in an
	// earlier epoch are dropped.
	epoch uint64

	client *rpc.Client
	now    func() time.Time
	flight singleflight.Group

	watchMu  sync.RWMutex
	watchers map[uint64]chan Change
	nextID   uint64

	scheduler *Scheduler

	lifeMu       sync.Mutex
	balanceSub   *rpc.Subscription
	configSub    *rpc.Subscription
	warningTimer *time.Timer
	warningSeq   uint64
	started      bool
	tornDown     bool

	analyticsDays int
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithAnalyticsDays sets the window used by scheduled analytics refreshes.
func WithAnalyticsDays(days int) Option {
	return func(s *Store) {
		if days > 0 {
			s.analyticsDays = days
		}
	}
}

// New creates a store bound to client.
func New(client *rpc.Client, opts ...Option) *Store {
	s := &Store{
		state:         initialState(),
		client:        client,
		now:           time.Now,
		watchers:      make(map[uint64]chan Change),
		analyticsDays: DefaultAnalyticsDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = NewScheduler(s.refreshTick)
	return s
}

// Snapshot returns a copy of all cells.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Balance returns the current balance.
func (s *Store) Balance() models.Balance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Balance
}

// LastUpdateTime returns when the balance was last set. Zero means never.
func (s *Store) LastUpdateTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastUpdate
}

// Config returns the application configuration.
func (s *Store) Config() models.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Config
}

// AuthStatus returns the authentication status.
func (s *Store) AuthStatus() models.AuthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Auth
}

// Analytics returns the usage analytics.
func (s *Store) Analytics() models.UsageAnalytics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Analytics
}

// Connection returns the connection status.
func (s *Store) Connection() models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Connection
}

// Busy reports whether a balance fetch is in flight.
func (s *Store) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Busy
}

// Initialized reports whether the startup sequence has finished.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Initialized
}

// Warning returns the current degraded-state warning, if any.
func (s *Store) Warning() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Warning
}

// AnalyticsDays returns the window used by scheduled analytics refreshes.
func (s *Store) AnalyticsDays() int {
	return s.analyticsDays
}

// Scheduler returns the refresh scheduler.
func (s *Store) Scheduler() *Scheduler {
	return s.scheduler
}

// BalanceStatus classifies the balance with the configured thresholds.
func (s *Store) BalanceStatus() models.BalanceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ClassifyBalance(s.state.Balance, s.state.Config.LowBalanceThreshold, s.state.Config.CriticalBalanceThreshold)
}

// FormattedBalance returns the grouped balance or the placeholder.
func (s *Store) FormattedBalance() string {
	return models.FormatBalance(s.Balance())
}

// Watch registers an observer. The channel receives one Change per written
// cell; a slow observer loses its oldest pending changes. cancel closes the
// channel.
func (s *Store) Watch(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Change, buffer)

	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.watchMu.Unlock()
		})
	}
}

func (s *Store) notify(fields ...Field) {
	s.watchMu.RLock()
	defer s.watchMu.RUnlock()

	for _, f := range fields {
		for _, ch := range s.watchers {
			sendChange(ch, Change{Field: f})
		}
	}
}

// sendChange sends without blocking, dropping the oldest change when full.
func sendChange(ch chan Change, c Change) {
	select {
	case ch <- c:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// currentEpoch returns the session epoch for an action about to start.
func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// update applies fn to the cells when epoch is still current and notifies
// observers of the fields fn reports. It returns false when the write was
// dropped.
func (s *Store) update(epoch uint64, fn func(st *State) []Field) bool {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	fields := fn(&s.state)
	s.mu.Unlock()

	s.notify(fields...)
	return true
}

// set writes unconditionally.
func (s *Store) set(fn func(st *State) []Field) {
	s.mu.Lock()
	fields := fn(&s.state)
	s.mu.Unlock()
	s.notify(fields...)
}

// setConnection records the outcome of a backend call.
func (s *Store) setConnection(epoch uint64, status models.ConnectionStatus) {
	s.update(epoch, func(st *State) []Field {
		st.Connection = status
		return []Field{FieldConnection}
	})
}

// beginBusy and endBusy bracket balance fetches. Busy stays set while any
// fetch is in flight.
func (s *Store) beginBusy() {
	s.mu.Lock()
	s.busy++
	changed := !s.state.Busy
	s.state.Busy = true
	s.mu.Unlock()
	if changed {
		s.notify(FieldBusy)
	}
}

func (s *Store) endBusy() {
	s.mu.Lock()
	if s.busy > 0 {
		s.busy--
	}
	changed := s.state.Busy && s.busy == 0
	if changed {
		s.state.Busy = false
	}
	s.mu.Unlock()
	if changed {
		s.notify(FieldBusy)
	}
}
