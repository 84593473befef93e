package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/store"
)

// newTestStore builds a store answered by replies, keyed by method.
func newTestStore(t *testing.T, replies map[string]any) (*store.Store, *rpc.Hub) {
	t.Helper()

	handler := rpc.HandlerFunc(func(_ context.Context, method string, _ json.RawMessage) (any, error) {
		v, ok := replies[method]
		if !ok {
			return nil, rpc.Errorf(rpc.KindUnknownMethod, "unknown method %q", method)
		}
		if err, isErr := v.(error); isErr {
			return nil, err
		}
		return v, nil
	})

	hub := rpc.NewHub()
	client := rpc.NewClient(rpc.NewLocalTransport(handler, hub))
	st := store.New(client)
	t.Cleanup(func() {
		st.Teardown()
		_ = client.Close()
		hub.Close()
	})
	return st, hub
}

var signedInAuth = models.AuthStatus{
	IsAuthenticated:     true,
	IsAugmentConfigured: true,
	UserEmail:           "dev@example.com",
	AuthMethod:          models.AuthMethodAugment,
}

func TestNewState(t *testing.T) {
	s := NewState(nil)
	if s.Store() != nil {
		t.Error("Store should be nil")
	}
	if s.IsInitialLoading() {
		t.Error("a state without a store is never loading")
	}

	snap := s.Snapshot()
	if snap.Balance.Valid || snap.Connection != models.ConnectionDisconnected {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Config != models.DefaultAppConfig() {
		t.Error("snapshot should carry the default config")
	}
}

func TestState_SnapshotFollowsStore(t *testing.T) {
	st, _ := newTestStore(t, nil)
	s := NewState(st)

	if !s.IsInitialLoading() {
		t.Error("store has not been initialized yet")
	}

	st.ApplyPushedBalance(models.NewBalance(1200))
	if got := s.Snapshot().Balance; got != models.NewBalance(1200) {
		t.Errorf("Balance = %v", got)
	}
}
