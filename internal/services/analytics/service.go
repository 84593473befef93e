// Package analytics derives usage statistics from the stored balance history.
package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/j-veylop/creditbar/internal/db"
	"github.com/j-veylop/creditbar/internal/models"
)

// DefaultHours is the window used when none is requested.
const DefaultHours = 24

const (
	// slopeThreshold is credits per reading before the trend leaves Stable.
	slopeThreshold  = 1.0
	minTrendSamples = 3
)

// Store is the subset of the database the engine reads.
type Store interface {
	BalanceHistory(ctx context.Context, hours int) ([]db.BalanceRecord, error)
	UsageHistory(ctx context.Context, hours int) ([]db.UsageRecord, error)
}

// Service computes analytics over a Store.
type Service struct {
	store Store
}

// New creates an analytics service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Calculate returns the analytics for the last hours. A non-positive value
// uses DefaultHours.
func (s *Service) Calculate(ctx context.Context, hours int) (models.LegacyAnalytics, error) {
	if hours <= 0 {
		hours = DefaultHours
	}

	balances, err := s.store.BalanceHistory(ctx, hours)
	if err != nil {
		return models.LegacyAnalytics{}, fmt.Errorf("failed to load balance history: %w", err)
	}
	usage, err := s.store.UsageHistory(ctx, hours)
	if err != nil {
		return models.LegacyAnalytics{}, fmt.Errorf("failed to load usage history: %w", err)
	}

	return Compute(balances, usage, hours), nil
}

// Compute builds the analytics from ascending balance and usage records.
func Compute(balances []db.BalanceRecord, usage []db.UsageRecord, hours int) models.LegacyAnalytics {
	a := models.LegacyAnalytics{
		TotalUsagePeriod: hours,
		Trend:            Trend(balances),
		EfficiencyScore:  Efficiency(usage),
		PeakUsageHour:    PeakHour(usage),
		BalanceHistory:   make([]models.BalancePoint, 0, len(balances)),
		UsageHistory:     make([]models.UsagePoint, 0, len(usage)),
	}

	if len(balances) > 0 {
		a.CurrentBalance = models.NewBalance(balances[len(balances)-1].Amount)
	}

	a.UsageRatePerHour, a.UsageRatePerDay = Rates(usage)
	if a.CurrentBalance.Valid && a.UsageRatePerHour > 0 {
		h := float64(a.CurrentBalance.Value) / a.UsageRatePerHour
		d := h / 24
		a.EstimatedHoursRemaining, a.EstimatedDaysRemaining = &h, &d
	}

	if len(usage) > 0 {
		a.AverageSessionUsage = float64(totalUsage(usage)) / float64(len(usage))
	}

	for _, b := range balances {
		a.BalanceHistory = append(a.BalanceHistory, models.BalancePoint{Timestamp: b.Timestamp, Balance: b.Amount})
	}
	for _, u := range usage {
		a.UsageHistory = append(a.UsageHistory, models.UsagePoint{
			Timestamp:   u.Timestamp,
			UsageAmount: u.UsageAmount,
			RatePerHour: u.RatePerHour(),
		})
	}

	return a
}

// Rates returns the overall consumption per hour and per day.
func Rates(usage []db.UsageRecord) (perHour, perDay float64) {
	minutes := lo.SumBy(usage, func(u db.UsageRecord) int64 { return u.DurationMinutes })
	if minutes <= 0 {
		return 0, 0
	}
	perHour = float64(totalUsage(usage)) / float64(minutes) * 60
	return perHour, perHour * 24
}

// Trend fits a least-squares line through the balances, using the reading
// index as x. A falling balance means consumption is increasing.
func Trend(balances []db.BalanceRecord) models.Trend {
	if len(balances) < minTrendSamples {
		return models.TrendInsufficient
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, b := range balances {
		x, y := float64(i), float64(b.Amount)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	n := float64(len(balances))
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)

	switch {
	case slope < -slopeThreshold:
		return models.TrendIncreasing
	case slope > slopeThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// Efficiency scores how steady consumption is, from 0 to 100. It is 100
// minus the coefficient of variation of the per-minute rates as a percentage.
func Efficiency(usage []db.UsageRecord) float64 {
	rates := lo.FilterMap(usage, func(u db.UsageRecord, _ int) (float64, bool) {
		if u.DurationMinutes <= 0 {
			return 0, false
		}
		return float64(u.UsageAmount) / float64(u.DurationMinutes), true
	})
	if len(rates) == 0 {
		return 0
	}

	mean := lo.Sum(rates) / float64(len(rates))
	variance := lo.SumBy(rates, func(r float64) float64 { return (r - mean) * (r - mean) }) / float64(len(rates))

	cv := 1.0
	if mean > 0 {
		cv = math.Sqrt(variance) / mean
	}
	return math.Max(0, 1-math.Min(cv, 1)) * 100
}

// PeakHour returns the UTC hour of day with the most consumption. Ties go to
// the later hour.
func PeakHour(usage []db.UsageRecord) *int {
	if len(usage) == 0 {
		return nil
	}

	var hourly [24]int64
	for _, u := range usage {
		hourly[u.Timestamp.UTC().Hour()] += u.UsageAmount
	}

	peak := 0
	for h := 1; h < len(hourly); h++ {
		if hourly[h] >= hourly[peak] {
			peak = h
		}
	}
	return &peak
}

func totalUsage(usage []db.UsageRecord) int64 {
	return lo.SumBy(usage, func(u db.UsageRecord) int64 { return u.UsageAmount })
}
