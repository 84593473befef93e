package app

import (
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
)

// State is the UI-side view of the application: the store's cells plus the
// toast queue that only the terminal needs.
type State struct {
	store  *store.Store
	toasts *toastQueue
}

// NewState wraps st. A nil store yields an empty, signed-out snapshot.
func NewState(st *store.Store) *State {
	return &State{store: st, toasts: newToastQueue()}
}

// Store returns the underlying store, or nil.
func (s *State) Store() *store.Store {
	return s.store
}

// Snapshot returns a copy of every store cell.
func (s *State) Snapshot() store.State {
	if s.store != nil {
		return s.store.Snapshot()
	}
	return store.State{
		Config:     models.DefaultAppConfig(),
		Auth:       models.SignedOut(),
		Analytics:  models.EmptyAnalytics(),
		Connection: models.ConnectionDisconnected,
	}
}

// IsInitialLoading reports whether the startup sequence is still running.
func (s *State) IsInitialLoading() bool {
	return s.store != nil && !s.store.Initialized()
}

// Toasts returns the live toasts, oldest first.
func (s *State) Toasts() []Toast {
	return s.toasts.live()
}
