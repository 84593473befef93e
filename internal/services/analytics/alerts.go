package analytics

import (
	"fmt"

	"github.com/j-veylop/creditbar/internal/models"
)

// Level is an alert's severity.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Subject says what an alert is about.
type Subject string

const (
	SubjectBalance   Subject = "balance"
	SubjectDepletion Subject = "depletion"
)

const (
	criticalHoursRemaining = 2.0
	warningHoursRemaining  = 24.0
)

// Alert is one condition worth telling the user about.
type Alert struct {
	Level                  Level    `json:"level"`
	Subject                Subject  `json:"subject"`
	Message                string   `json:"message"`
	EstimatedTimeRemaining *float64 `json:"estimated_time_remaining"`
}

// Alerts checks the current balance against the thresholds and the
// estimated time until depletion.
func Alerts(a models.LegacyAnalytics, low, critical int64) []Alert {
	if !a.CurrentBalance.Valid {
		return nil
	}

	var alerts []Alert
	balance := a.CurrentBalance.Value

	switch {
	case balance <= critical:
		alerts = append(alerts, Alert{
			Level:                  LevelCritical,
			Subject:                SubjectBalance,
			Message:                fmt.Sprintf("Critical: Only %d credits remaining!", balance),
			EstimatedTimeRemaining: a.EstimatedHoursRemaining,
		})
	case balance <= low:
		alerts = append(alerts, Alert{
			Level:                  LevelWarning,
			Subject:                SubjectBalance,
			Message:                fmt.Sprintf("Warning: %d credits remaining", balance),
			EstimatedTimeRemaining: a.EstimatedHoursRemaining,
		})
	}

	if h := a.EstimatedHoursRemaining; h != nil {
		msg := fmt.Sprintf("Credits will be depleted in %.1f hours at current usage rate", *h)
		switch {
		case *h <= criticalHoursRemaining:
			alerts = append(alerts, Alert{Level: LevelCritical, Subject: SubjectDepletion, Message: msg, EstimatedTimeRemaining: h})
		case *h <= warningHoursRemaining:
			alerts = append(alerts, Alert{Level: LevelWarning, Subject: SubjectDepletion, Message: msg, EstimatedTimeRemaining: h})
		}
	}

	return alerts
}
