package usage

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/ui/components"
	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// View renders the usage tab.
func (m *Model) View() string {
	a, ok := m.analytics()
	if m.loading || !ok {
		return m.renderLoading()
	}
	if a.IsEmpty() {
		return m.renderEmpty()
	}

	sections := []string{
		m.renderHeader(a),
		m.renderDailyChart(a),
	}
	if len(a.ModelUsage) > 0 {
		sections = append(sections, m.renderBars("By Model", components.ModelBars(a.ModelUsage)))
	}
	if len(a.ActivityUsage) > 0 {
		sections = append(sections, m.renderBars("By Activity", components.ActivityBars(a.ActivityUsage)))
	}
	if len(a.BalanceHistory) > 0 {
		sections = append(sections, m.renderBalanceHistory(a.BalanceHistory))
	}

	return m.pane.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderLoading() string {
	return m.pane.Render(styles.HelpStyle.Render(fmt.Sprintf("Loading usage for the last %s...", m.timeRange)))
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		"",
		styles.HelpStyle.Render("No usage recorded in this period."),
		styles.HelpStyle.Render("Charts appear once credits are consumed."),
	)
	return m.pane.Render(content)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Usage")

	label := "[t] " + m.timeRange.String()
	if m.legacyOnly() {
		label = "Last 24 hours"
	}
	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeStyle.Render(label))
}

func (m *Model) renderHeader(a models.UsageAnalytics) string {
	summary := fmt.Sprintf("%s credits used · %s/day · %d days with usage",
		humanize.Comma(a.TotalUsage),
		models.FormatUsageRate(a.RatePerDay),
		a.DaysWithData,
	)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTitle(), styles.HelpStyle.Render(summary), "")
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderDailyChart(a models.UsageAnalytics) string {
	rows := []string{styles.CardTitleStyle.Render("Daily Consumption"), ""}

	if len(a.DailyUsage) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No daily data available"))
	} else {
		rows = append(rows,
			components.RenderDailyUsage(a.DailyUsage, m.cardWidth()-16, 8),
			"",
			components.RenderLegend([]components.LegendItem{
				{Label: "Credits used", Color: components.ChartUsageColor},
			}),
		)
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderBars(title string, items []components.BarItem) string {
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			styles.CardTitleStyle.Render(title),
			"",
			components.RenderBarChart(items, m.cardWidth()-4),
		),
	)
}

func (m *Model) renderBalanceHistory(points []models.BalancePoint) string {
	first, last := points[0], points[len(points)-1]
	span := fmt.Sprintf("%s → %s",
		models.FormatBalance(models.NewBalance(first.Balance)),
		models.FormatBalance(models.NewBalance(last.Balance)),
	)

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			styles.CardTitleStyle.Render("Balance History"),
			"",
			components.RenderBalanceSparkline(points, m.cardWidth()-4),
			styles.HelpStyle.Render(span),
			components.RenderLegend([]components.LegendItem{
				{Label: "Balance", Color: components.ChartBalanceColor},
			}),
		),
	)
}
