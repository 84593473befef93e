// Package models defines data structures and domain types.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// BalancePlaceholder is shown when no balance is known.
const BalancePlaceholder = "--"

// Balance is the remaining credit quantity. The zero value is an unknown balance.
type Balance struct {
	Value int64
	Valid bool
}

// NewBalance returns a known balance.
func NewBalance(v int64) Balance {
	return Balance{Value: v, Valid: true}
}

// UnknownBalance returns the absent balance.
func UnknownBalance() Balance {
	return Balance{}
}

// MarshalJSON encodes the balance as a number or null.
func (b Balance) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(b.Value)
}

// UnmarshalJSON accepts a number, a numeric string or null.
// Fractional credits are truncated toward zero.
func (b *Balance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = Balance{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid balance %q: %w", string(data), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid balance %q", string(data))
	}
	*b = NewBalance(int64(f))
	return nil
}

// String returns the formatted balance.
func (b Balance) String() string {
	return FormatBalance(b)
}

// BalanceStatus is the traffic-light classification of a balance.
type BalanceStatus string

const (
	StatusCritical BalanceStatus = "critical"
	StatusWarning  BalanceStatus = "warning"
	StatusHealthy  BalanceStatus = "healthy"
	StatusUnknown  BalanceStatus = "unknown"
)

// ClassifyBalance maps a balance onto a status using inclusive thresholds.
func ClassifyBalance(b Balance, low, critical int64) BalanceStatus {
	switch {
	case !b.Valid:
		return StatusUnknown
	case b.Value <= critical:
		return StatusCritical
	case b.Value <= low:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// FormatBalance groups thousands with commas, or returns the placeholder.
func FormatBalance(b Balance) string {
	if !b.Valid {
		return BalancePlaceholder
	}
	return humanize.Comma(b.Value)
}
