// Package rpc carries calls and push events between the state layer and the
// backend, either in-process or over HTTP.
package rpc

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch without parsing messages.
type Kind string

const (
	KindAuth            Kind = "auth"
	KindConfig          Kind = "config"
	KindNetwork         Kind = "network"
	KindTimeout         Kind = "timeout"
	KindNotConfigured   Kind = "not_configured"
	KindStorage         Kind = "storage"
	KindInvalidArgument Kind = "invalid_argument"
	KindInternal        Kind = "internal"
	KindUnknownMethod   Kind = "unknown_method"
)

// DefaultMessage is shown when an error carries no text of its own.
const DefaultMessage = "An unexpected error occurred"

// Error is the single structured failure returned by every call.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Context deadlines map to KindTimeout and
// anything unstructured to KindInternal.
func KindOf(err error) Kind {
	var rpcErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rpcErr):
		return rpcErr.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// Message returns the human message for err: the structured message when
// present, then the error text, then DefaultMessage.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr.Message != "" {
		return rpcErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}

// Normalize converts any error into an *Error.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Kind: KindOf(err), Message: Message(err)}
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
