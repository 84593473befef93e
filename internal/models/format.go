package models

import (
	"fmt"
	"math"
)

// FormatTimeRemaining renders hours as minutes below one hour, one-decimal
// hours below a day, and rounded days otherwise.
func FormatTimeRemaining(hours float64) string {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		return BalancePlaceholder
	}
	switch {
	case hours < 1:
		return fmt.Sprintf("%dm", int(math.Round(hours*60)))
	case hours < 24:
		return fmt.Sprintf("%.1fh", hours)
	default:
		return fmt.Sprintf("%dd", int(math.Round(hours/24)))
	}
}

// FormatHoursRemaining is FormatTimeRemaining for an optional estimate.
func FormatHoursRemaining(hours *float64) string {
	if hours == nil {
		return BalancePlaceholder
	}
	return FormatTimeRemaining(*hours)
}

// FormatUsageRate uses more precision for smaller rates.
func FormatUsageRate(rate float64) string {
	switch {
	case rate == 0:
		return "0"
	case rate < 1:
		return fmt.Sprintf("%.2f", rate)
	case rate < 10:
		return fmt.Sprintf("%.1f", rate)
	default:
		return fmt.Sprintf("%.0f", rate)
	}
}
