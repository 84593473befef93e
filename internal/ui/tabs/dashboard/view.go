package dashboard

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// View renders the dashboard component.
func (m *Model) View() string {
	if m.state.IsInitialLoading() {
		return m.renderLoading()
	}

	snap := m.state.Snapshot()

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderBalanceCard(snap),
		m.renderUsageCard(snap.Analytics),
		m.renderAccountCard(snap),
	)

	return m.pane.Render(content)
}

func (m *Model) renderLoading() string {
	return m.startup.Render(m.width, m.height, m.now())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Credit Balance")
	subtitle := styles.HelpStyle.Render("Remaining credits and how fast they are going")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 40), 90)
}

func (m *Model) renderBalanceCard(snap store.State) string {
	cfg := snap.Config
	status := models.ClassifyBalance(snap.Balance, cfg.LowBalanceThreshold, cfg.CriticalBalanceThreshold)

	amount := styles.GetStatusStyle(status).Render(models.FormatBalance(snap.Balance))
	headline := amount + " " + styles.HelpStyle.Render("credits")

	updated := "Never updated"
	if !snap.LastUpdate.IsZero() {
		updated = "Updated " + humanize.RelTime(snap.LastUpdate, m.now(), "ago", "from now")
	}

	thresholds := fmt.Sprintf("Low at %s · Critical at %s",
		humanize.Comma(cfg.LowBalanceThreshold), humanize.Comma(cfg.CriticalBalanceThreshold))

	rows := []string{
		headline,
		"",
		m.gauge.View(snap.Balance, cfg),
		"",
		styles.HelpStyle.Render(updated),
		styles.HelpStyle.Render(thresholds),
	}

	return styles.BalanceCardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderUsageCard(a models.UsageAnalytics) string {
	rows := []string{styles.CardTitleStyle.Render("Usage")}

	if a.RatePerHour == 0 && a.IsEmpty() {
		rows = append(rows, styles.HelpStyle.Render("No usage data yet"))
		return styles.CardStyle.Width(m.cardWidth()).Render(
			lipgloss.JoinVertical(lipgloss.Left, rows...),
		)
	}

	rows = append(rows,
		renderRow("Rate", fmt.Sprintf("%s/hour · %s/day",
			models.FormatUsageRate(a.RatePerHour), models.FormatUsageRate(a.RatePerDay))),
		renderRow("Time left", models.FormatHoursRemaining(a.HoursRemaining)),
		renderRow("Trend", styles.GetTrendStyle(a.Trend).Render(trendLabel(a.Trend, a.PercentChange))),
	)
	if a.TotalUsage > 0 {
		window := ""
		if a.PeriodDays > 0 {
			window = fmt.Sprintf(" over %d days", a.PeriodDays)
		}
		rows = append(rows, renderRow("Used", humanize.Comma(a.TotalUsage)+window))
	}
	if a.PeakUsageHour != nil {
		rows = append(rows, renderRow("Peak hour", fmt.Sprintf("%02d:00", *a.PeakUsageHour)))
	}
	if a.EfficiencyScore > 0 {
		rows = append(rows, renderRow("Efficiency", fmt.Sprintf("%.0f%%", a.EfficiencyScore)))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderAccountCard(snap store.State) string {
	rows := []string{styles.CardTitleStyle.Render("Account")}

	switch {
	case snap.Auth.IsAugmentConfigured:
		who := "Signed in"
		if snap.Auth.UserEmail != "" {
			who = snap.Auth.UserEmail
		}
		rows = append(rows, renderRow("Provider", "Augment · "+who))
	case snap.Auth.IsOrbConfigured:
		rows = append(rows, renderRow("Provider", "Orb portal · "+snap.Legacy.CustomerID))
	default:
		rows = append(rows,
			renderRow("Provider", styles.WarningTextStyle.Render("Not signed in")),
			styles.InfoTextStyle.Render("  ╰─▶ Run `creditbar login` to add a session"),
		)
	}

	conn := styles.GetConnectionStyle(snap.Connection).Render(connectionLabel(snap.Connection))
	rows = append(rows, renderRow("Backend", conn))

	if sub := snap.Subscription; sub != nil {
		rows = append(rows, renderRow("Plan", sub.PlanName))
		if sub.BillingPeriodEnd != "" {
			rows = append(rows, renderRow("Renews", formatBillingEnd(sub.BillingPeriodEnd, m.now())))
		}
		if sub.CreditsIncluded > 0 {
			rows = append(rows, renderRow("Included", humanize.Comma(sub.CreditsIncluded)+" credits"))
		}
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().Width(12).Foreground(styles.TextMuted)
	return labelStyle.Render(label) + " " + value
}

func trendLabel(trend models.Trend, percent *float64) string {
	var label string
	switch trend {
	case models.TrendIncreasing:
		label = "↑ Increasing"
	case models.TrendDecreasing:
		label = "↓ Decreasing"
	case models.TrendStable:
		label = "→ Stable"
	default:
		return "Not enough data"
	}
	if percent != nil {
		label += fmt.Sprintf(" (%+.1f%%)", *percent)
	}
	return label
}

func connectionLabel(status models.ConnectionStatus) string {
	switch status {
	case models.ConnectionConnected:
		return "● Connected"
	case models.ConnectionError:
		return "✕ Error"
	default:
		return "○ Disconnected"
	}
}

// formatBillingEnd renders an RFC 3339 or date-only timestamp relative to
// now, falling back to the raw value.
func formatBillingEnd(raw string, now time.Time) string {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2") + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
		}
	}
	return raw
}
