package rpc

import (
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(4)
	defer cancel()

	if err := hub.Publish(EventBalanceUpdated, 1500); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Name != EventBalanceUpdated || string(ev.Payload) != "1500" {
			t.Errorf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestHub_DropsOldestWhenFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(2)
	defer cancel()

	for _, v := range []int{1, 2, 3} {
		_ = hub.Publish(EventBalanceUpdated, v)
	}

	first := <-ch
	second := <-ch
	if string(first.Payload) != "2" || string(second.Payload) != "3" {
		t.Errorf("got %s, %s; want 2, 3", first.Payload, second.Payload)
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)

	cancel()
	cancel()

	if hub.Len() != 0 {
		t.Errorf("Len = %d, want 0", hub.Len())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Close()
	hub.Close()

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}

	late, lateCancel := hub.Subscribe(1)
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
}

func TestSubscription_Unsubscribe(t *testing.T) {
	calls := 0
	sub := NewSubscription(func() { calls++ })

	sub.Unsubscribe()
	sub.Unsubscribe()
	if calls != 1 {
		t.Errorf("cancel ran %d times, want 1", calls)
	}

	var nilSub *Subscription
	nilSub.Unsubscribe()
}
