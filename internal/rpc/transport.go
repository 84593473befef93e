package rpc

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/j-veylop/creditbar/internal/logger"
)

// Handler executes one named call. Params is the raw JSON argument object,
// which may be empty.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return f(ctx, method, params)
}

// DecodeParams unmarshals raw call arguments into T. Empty input yields the
// zero value.
func DecodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, Errorf(KindInvalidArgument, "invalid arguments: %v", err)
	}
	return v, nil
}

// Transport delivers calls to a backend and its push events back.
type Transport interface {
	// Call invokes method with params and decodes the reply into result,
	// which may be nil. Failures are *Error.
	Call(ctx context.Context, method string, params, result any) error
	// Subscribe invokes fn with the payload of every event named event.
	Subscribe(event string, fn func(json.RawMessage)) (*Subscription, error)
	Close() error
}

// Subscription is a cancellable event registration.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// NewSubscription wraps cancel so it runs at most once.
func NewSubscription(cancel func()) *Subscription {
	return &Subscription{cancel: cancel}
}

// Unsubscribe cancels the registration. Extra calls, and calls on a nil
// Subscription, do nothing.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// LocalTransport calls a Handler in-process. Params and results pass
// through JSON so behaviour matches the HTTP transport.
type LocalTransport struct {
	handler Handler
	hub     *Hub

	mu   sync.Mutex
	subs []*Subscription
}

// NewLocalTransport returns a transport bound to handler and hub.
func NewLocalTransport(handler Handler, hub *Hub) *LocalTransport {
	return &LocalTransport{handler: handler, hub: hub}
}

// Call implements Transport.
func (t *LocalTransport) Call(ctx context.Context, method string, params, result any) error {
	raw, err := encodeParams(params)
	if err != nil {
		return err
	}

	reply, err := t.handler.Handle(ctx, method, raw)
	if err != nil {
		return Normalize(err)
	}
	if result == nil {
		return nil
	}

	data, err := json.Marshal(reply)
	if err != nil {
		return Errorf(KindInternal, "failed to encode %s result: %v", method, err)
	}
	if err := json.Unmarshal(data, result); err != nil {
		return Errorf(KindInternal, "failed to decode %s result: %v", method, err)
	}
	return nil
}

// Subscribe implements Transport.
func (t *LocalTransport) Subscribe(event string, fn func(json.RawMessage)) (*Subscription, error) {
	if t.hub == nil {
		return nil, Errorf(KindInternal, "no event source")
	}

	ch, cancel := t.hub.Subscribe(16)
	go func() {
		for ev := range ch {
			if ev.Name == event {
				fn(ev.Payload)
			}
		}
		logger.Debug("event listener stopped", "event", event)
	}()

	sub := NewSubscription(cancel)
	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()
	return sub, nil
}

// Close cancels every subscription made through t.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	return nil
}

func encodeParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, Errorf(KindInvalidArgument, "failed to encode arguments: %v", err)
	}
	return data, nil
}

// ensure interface compliance
var (
	_ Transport = (*LocalTransport)(nil)
	_ Transport = (*HTTPTransport)(nil)
)
