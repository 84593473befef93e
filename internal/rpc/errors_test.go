package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type blankError struct{}

func (blankError) Error() string { return "" }

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"structured", Errorf(KindAuth, "session expired"), "session expired"},
		{"wrapped structured", fmt.Errorf("saving: %w", Errorf(KindStorage, "disk full")), "disk full"},
		{"structured without message", &Error{Kind: KindNetwork}, "network"},
		{"plain", errors.New("boom"), "boom"},
		{"empty text", blankError{}, DefaultMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"structured", Errorf(KindNotConfigured, "x"), KindNotConfigured},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), KindTimeout},
		{"plain", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}

	orig := Errorf(KindAuth, "nope")
	if got := Normalize(fmt.Errorf("wrap: %w", orig)); got != orig {
		t.Errorf("Normalize should unwrap to the original *Error, got %+v", got)
	}

	got := Normalize(context.DeadlineExceeded)
	if got.Kind != KindTimeout || got.Message != context.DeadlineExceeded.Error() {
		t.Errorf("Normalize(deadline) = %+v", got)
	}
	if !IsTimeout(got) {
		t.Error("IsTimeout should be true")
	}
}
