package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/samber/lo"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// ChartColors defines colors for chart elements.
var (
	ChartUsageColor   = lipgloss.Color("#cc785c")
	ChartBalanceColor = lipgloss.Color("#4285f4")
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.DarkOrange),
	)
}

// RenderDailyUsage charts credits consumed per day.
func RenderDailyUsage(daily []models.DailyUsage, width, height int) string {
	data := lo.Map(daily, func(d models.DailyUsage, _ int) float64 { return float64(d.TotalCredits) })
	if len(data) == 1 {
		// asciigraph needs two points to draw a line.
		data = append([]float64{0}, data...)
	}
	caption := fmt.Sprintf("Credits per day, %d days with usage", len(daily))
	return RenderLineChart(data, width, height, caption)
}

// BarItem is one row of a bar chart.
type BarItem struct {
	Label string
	Value int64
}

// ModelBars converts per-model usage into bar rows.
func ModelBars(usage []models.ModelUsage) []BarItem {
	return lo.Map(usage, func(u models.ModelUsage, _ int) BarItem {
		return BarItem{Label: u.ModelName, Value: u.Credits}
	})
}

// ActivityBars converts per-activity usage into bar rows.
func ActivityBars(usage []models.ActivityUsage) []BarItem {
	return lo.Map(usage, func(u models.ActivityUsage, _ int) BarItem {
		return BarItem{Label: u.ActivityType, Value: u.Credits}
	})
}

// RenderBarChart creates a horizontal bar chart with labels on the left.
func RenderBarChart(items []BarItem, width int) string {
	if len(items) == 0 {
		return ""
	}

	maxVal := lo.MaxBy(items, func(a, b BarItem) bool { return a.Value > b.Value }).Value
	if maxVal <= 0 {
		maxVal = 1
	}

	labelWidth := lo.Max(lo.Map(items, func(it BarItem, _ int) int { return len(it.Label) }))
	labelWidth = min(labelWidth, 24)

	barWidth := max(width-labelWidth-12, 10)

	lines := make([]string, 0, len(items))
	for _, it := range items {
		label := it.Label
		if len(label) > labelWidth {
			label = label[:labelWidth-1] + "…"
		}
		barLen := max(int(float64(it.Value)/float64(maxVal)*float64(barWidth)), 0)
		bar := lipgloss.NewStyle().Foreground(ChartUsageColor).Render(strings.Repeat("█", barLen))
		lines = append(lines, fmt.Sprintf("%*s │%s %s", labelWidth, label, bar, models.FormatBalance(models.NewBalance(it.Value))))
	}
	return strings.Join(lines, "\n")
}

// RenderSparkline creates a compact inline sparkline, sampling values down
// to width.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	minVal, maxVal := lo.Min(values), lo.Max(values)
	span := maxVal - minVal

	step := max(float64(len(values))/float64(width), 1)

	var b strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		v := values[int(float64(i)*step)]
		idx := len(sparkChars) - 1
		if span > 0 {
			idx = int((v - minVal) / span * float64(len(sparkChars)-1))
		}
		b.WriteRune(sparkChars[max(0, min(idx, len(sparkChars)-1))])
	}
	return b.String()
}

// RenderBalanceSparkline draws the stored balance history.
func RenderBalanceSparkline(points []models.BalancePoint, width int) string {
	values := lo.Map(points, func(p models.BalancePoint, _ int) float64 { return float64(p.Balance) })
	return lipgloss.NewStyle().Foreground(ChartBalanceColor).Render(RenderSparkline(values, width))
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := lo.Map(items, func(item LegendItem, _ int) string {
		return fmt.Sprintf("%s %s", lipgloss.NewStyle().Foreground(item.Color).Render("■"), item.Label)
	})
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
