package models

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Trend classifies how consumption is moving.
type Trend string

const (
	TrendIncreasing   Trend = "increasing"
	TrendDecreasing   Trend = "decreasing"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient"
)

// trendThresholdPercent is the change needed to leave Stable.
const trendThresholdPercent = 10.0

// trendSampleDays is the number of days in each half of the daily comparison.
const trendSampleDays = 3

// DailyUsage is the total consumed on one calendar day.
type DailyUsage struct {
	Date         string `json:"date"`
	TotalCredits int64  `json:"total_credits"`
}

// ModelUsage is consumption attributed to one model.
type ModelUsage struct {
	ModelName string `json:"model_name"`
	Credits   int64  `json:"credits"`
}

// ActivityUsage is consumption attributed to one activity type.
type ActivityUsage struct {
	ActivityType string `json:"activity_type"`
	Credits      int64  `json:"credits"`
}

// AnalyticsInfo is the provider's headline figures for the window.
type AnalyticsInfo struct {
	TotalCreditsConsumed int64    `json:"total_credits_consumed"`
	PercentIncrease      *float64 `json:"percent_increase"`
	ActiveUsers          int      `json:"active_users"`
}

// AnalyticsSummary is computed from the daily series.
type AnalyticsSummary struct {
	TotalCreditsUsed int64   `json:"total_credits_used"`
	DaysWithData     int     `json:"days_with_data"`
	AvgDailyUsage    float64 `json:"avg_daily_usage"`
	PeriodDays       int     `json:"period_days"`
}

// AnalyticsPayload is the raw consumption history from the primary provider.
type AnalyticsPayload struct {
	AnalyticsInfo AnalyticsInfo    `json:"analytics_info"`
	DailyUsage    []DailyUsage     `json:"daily_usage"`
	ModelUsage    []ModelUsage     `json:"model_usage"`
	ActivityUsage []ActivityUsage  `json:"activity_usage"`
	Summary       AnalyticsSummary `json:"summary"`
}

// Summarize fills Summary from the daily series.
func (p *AnalyticsPayload) Summarize(periodDays int) {
	total := lo.SumBy(p.DailyUsage, func(d DailyUsage) int64 { return d.TotalCredits })
	p.Summary = AnalyticsSummary{
		TotalCreditsUsed: total,
		DaysWithData:     len(p.DailyUsage),
		PeriodDays:       periodDays,
	}
	if len(p.DailyUsage) > 0 {
		p.Summary.AvgDailyUsage = float64(total) / float64(len(p.DailyUsage))
	}
}

// LegacyAnalytics is computed by the backend from its own balance history.
type LegacyAnalytics struct {
	CurrentBalance          Balance        `json:"current_balance"`
	UsageRatePerHour        float64        `json:"usage_rate_per_hour"`
	UsageRatePerDay         float64        `json:"usage_rate_per_day"`
	EstimatedDaysRemaining  *float64       `json:"estimated_days_remaining"`
	EstimatedHoursRemaining *float64       `json:"estimated_hours_remaining"`
	TotalUsagePeriod        int            `json:"total_usage_period"`
	AverageSessionUsage     float64        `json:"average_session_usage"`
	PeakUsageHour           *int           `json:"peak_usage_hour"`
	Trend                   Trend          `json:"trend"`
	EfficiencyScore         float64        `json:"efficiency_score"`
	BalanceHistory          []BalancePoint `json:"balance_history"`
	UsageHistory            []UsagePoint   `json:"usage_history"`
}

// UsageAnalytics is the frontend's derived aggregate. It is rebuilt whole on
// every fetch.
type UsageAnalytics struct {
	RatePerHour         float64         `json:"rate_per_hour"`
	RatePerDay          float64         `json:"rate_per_day"`
	HoursRemaining      *float64        `json:"hours_remaining"`
	DaysRemaining       *float64        `json:"days_remaining"`
	Trend               Trend           `json:"trend"`
	PercentChange       *float64        `json:"percent_change"`
	TotalUsage          int64           `json:"total_usage"`
	DaysWithData        int             `json:"days_with_data"`
	PeriodDays          int             `json:"period_days"`
	AverageSessionUsage float64         `json:"average_session_usage"`
	PeakUsageHour       *int            `json:"peak_usage_hour"`
	EfficiencyScore     float64         `json:"efficiency_score"`
	DailyUsage          []DailyUsage    `json:"daily_usage"`
	ModelUsage          []ModelUsage    `json:"model_usage"`
	ActivityUsage       []ActivityUsage `json:"activity_usage"`
	BalanceHistory      []BalancePoint  `json:"balance_history"`
	UsageHistory        []UsagePoint    `json:"usage_history"`
}

// EmptyAnalytics is substituted whenever analytics cannot be fetched.
func EmptyAnalytics() UsageAnalytics {
	return UsageAnalytics{
		Trend:          TrendInsufficient,
		DailyUsage:     []DailyUsage{},
		ModelUsage:     []ModelUsage{},
		ActivityUsage:  []ActivityUsage{},
		BalanceHistory: []BalancePoint{},
		UsageHistory:   []UsagePoint{},
	}
}

// IsEmpty reports whether there is nothing to chart.
func (a UsageAnalytics) IsEmpty() bool {
	return len(a.DailyUsage) == 0 && len(a.ModelUsage) == 0 &&
		len(a.ActivityUsage) == 0 && len(a.BalanceHistory) == 0 && len(a.UsageHistory) == 0
}

// ComputeTrend classifies consumption. An explicit percent change wins;
// otherwise the mean of the last three days is compared with the mean of the
// up to three days before them.
func ComputeTrend(percentChange *float64, daily []DailyUsage) Trend {
	if percentChange != nil {
		return classifyChange(*percentChange)
	}
	if len(daily) < trendSampleDays {
		return TrendInsufficient
	}

	sorted := slices.Clone(daily)
	slices.SortFunc(sorted, func(a, b DailyUsage) int { return strings.Compare(a.Date, b.Date) })

	n := len(sorted)
	earlier := sorted[max(0, n-2*trendSampleDays) : n-trendSampleDays]
	if len(earlier) == 0 {
		// Nothing to compare the recent days against.
		return TrendStable
	}
	recent := meanCredits(sorted[n-trendSampleDays:])
	previous := meanCredits(earlier)

	if previous == 0 {
		if recent > 0 {
			return TrendIncreasing
		}
		return TrendStable
	}
	return classifyChange((recent - previous) / previous * 100)
}

func classifyChange(percent float64) Trend {
	switch {
	case percent > trendThresholdPercent:
		return TrendIncreasing
	case percent < -trendThresholdPercent:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func meanCredits(days []DailyUsage) float64 {
	if len(days) == 0 {
		return 0
	}
	return float64(lo.SumBy(days, func(d DailyUsage) int64 { return d.TotalCredits })) / float64(len(days))
}

// RemainingTime estimates hours and days until balance is spent at avgDaily
// credits per day. Both are nil when the balance is unknown or usage is zero.
func RemainingTime(balance Balance, avgDaily float64) (hours, days *float64) {
	if !balance.Valid || avgDaily <= 0 {
		return nil, nil
	}
	d := float64(balance.Value) / avgDaily
	h := d * 24
	return &h, &d
}

// BuildUsageAnalytics derives the frontend aggregate from a primary-provider
// payload and the current balance.
func BuildUsageAnalytics(p AnalyticsPayload, balance Balance) UsageAnalytics {
	a := EmptyAnalytics()

	a.DailyUsage = append(a.DailyUsage, p.DailyUsage...)
	a.ModelUsage = append(a.ModelUsage, p.ModelUsage...)
	a.ActivityUsage = append(a.ActivityUsage, p.ActivityUsage...)

	avg := p.Summary.AvgDailyUsage
	if avg == 0 && len(p.DailyUsage) > 0 {
		avg = meanCredits(p.DailyUsage)
	}

	a.RatePerDay = avg
	a.RatePerHour = avg / 24
	a.HoursRemaining, a.DaysRemaining = RemainingTime(balance, avg)
	a.PercentChange = p.AnalyticsInfo.PercentIncrease
	a.Trend = ComputeTrend(p.AnalyticsInfo.PercentIncrease, p.DailyUsage)
	a.DaysWithData = p.Summary.DaysWithData
	if a.DaysWithData == 0 {
		a.DaysWithData = len(p.DailyUsage)
	}
	a.PeriodDays = p.Summary.PeriodDays

	a.TotalUsage = p.AnalyticsInfo.TotalCreditsConsumed
	if a.TotalUsage == 0 {
		a.TotalUsage = p.Summary.TotalCreditsUsed
	}
	return a
}

// FromLegacyAnalytics maps the legacy shape into the frontend aggregate.
// Daily usage is rebuilt by bucketing usage points per calendar day.
func FromLegacyAnalytics(l LegacyAnalytics) UsageAnalytics {
	a := EmptyAnalytics()

	a.RatePerHour = l.UsageRatePerHour
	a.RatePerDay = l.UsageRatePerDay
	a.HoursRemaining = l.EstimatedHoursRemaining
	a.DaysRemaining = l.EstimatedDaysRemaining
	a.Trend = l.Trend
	if a.Trend == "" {
		a.Trend = TrendInsufficient
	}
	a.AverageSessionUsage = l.AverageSessionUsage
	a.PeakUsageHour = l.PeakUsageHour
	a.EfficiencyScore = l.EfficiencyScore
	a.PeriodDays = (l.TotalUsagePeriod + 23) / 24
	a.BalanceHistory = append(a.BalanceHistory, l.BalanceHistory...)
	a.UsageHistory = append(a.UsageHistory, l.UsageHistory...)

	byDay := lo.GroupBy(l.UsageHistory, func(u UsagePoint) string {
		return u.Timestamp.UTC().Format("2006-01-02")
	})
	days := lo.Keys(byDay)
	slices.Sort(days)
	for _, day := range days {
		total := lo.SumBy(byDay[day], func(u UsagePoint) int64 { return u.UsageAmount })
		if total > 0 {
			a.DailyUsage = append(a.DailyUsage, DailyUsage{Date: day, TotalCredits: total})
		}
	}

	a.DaysWithData = len(a.DailyUsage)
	a.TotalUsage = lo.SumBy(l.UsageHistory, func(u UsagePoint) int64 { return u.UsageAmount })
	return a
}
