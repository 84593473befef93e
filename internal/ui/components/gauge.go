// Package components provides reusable UI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// gaugeHeadroom is how many low thresholds fill the gauge completely.
const gaugeHeadroom = 4

// BalanceGauge renders the balance against the configured thresholds as a
// bar that drains towards the critical level.
type BalanceGauge struct {
	bar   progress.Model
	width int
}

// NewBalanceGauge creates a gauge of the given width.
func NewBalanceGauge(width int) BalanceGauge {
	g := BalanceGauge{}
	g.SetWidth(width)
	return g
}

// SetWidth resizes the bar.
func (g *BalanceGauge) SetWidth(width int) {
	if width < 10 {
		width = 10
	}
	g.width = width
	g.bar = progress.New(
		progress.WithScaledGradient("#ff5f87", "#04b575"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

// Fill returns how full the gauge is for balance.
func Fill(balance models.Balance, low int64) float64 {
	if !balance.Valid || balance.Value <= 0 {
		return 0
	}
	if low <= 0 {
		return 1
	}
	f := float64(balance.Value) / float64(low*gaugeHeadroom)
	return min(f, 1)
}

// View renders the bar followed by the status label.
func (g BalanceGauge) View(balance models.Balance, cfg models.AppConfig) string {
	status := models.ClassifyBalance(balance, cfg.LowBalanceThreshold, cfg.CriticalBalanceThreshold)
	label := styles.GetStatusStyle(status).Render(StatusLabel(status))

	if !balance.Valid {
		empty := lipgloss.NewStyle().Foreground(styles.Subtle).
			Render(fmt.Sprintf("%*s", g.width, ""))
		return empty + " " + label
	}
	return g.bar.ViewAs(Fill(balance, cfg.LowBalanceThreshold)) + " " + label
}

// StatusLabel is the human label for a balance status.
func StatusLabel(status models.BalanceStatus) string {
	switch status {
	case models.StatusHealthy:
		return "Healthy"
	case models.StatusWarning:
		return "Low"
	case models.StatusCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}
