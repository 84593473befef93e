package models

import (
	"fmt"
	"time"
)

// TimeRange is one of the analytics windows the usage tab cycles through.
type TimeRange int

// Selectable windows, in cycling order.
const (
	TimeRange7Days TimeRange = iota
	TimeRange30Days
	TimeRange90Days
)

var timeRangeDays = [...]int{7, 30, 90}

func (t TimeRange) valid() bool {
	return t >= 0 && int(t) < len(timeRangeDays)
}

func (t TimeRange) String() string {
	if !t.valid() {
		return "Unknown"
	}
	return fmt.Sprintf("%d Days", timeRangeDays[t])
}

// Days returns the window length. Unknown ranges fall back to 30 days.
func (t TimeRange) Days() int {
	if !t.valid() {
		return timeRangeDays[TimeRange30Days]
	}
	return timeRangeDays[t]
}

// Next cycles 7 -> 30 -> 90 -> 7 days.
func (t TimeRange) Next() TimeRange {
	return (t + 1) % TimeRange(len(timeRangeDays))
}

// TimeRangeForDays picks the range of exactly days, defaulting to 30 days.
func TimeRangeForDays(days int) TimeRange {
	for i, d := range timeRangeDays {
		if d == days {
			return TimeRange(i)
		}
	}
	return TimeRange30Days
}

// BalancePoint is one stored balance reading.
type BalancePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Balance   int64     `json:"balance"`
}

// UsagePoint is the consumption between two consecutive readings.
type UsagePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	UsageAmount int64     `json:"usage_amount"`
	RatePerHour float64   `json:"rate_per_hour"`
}
