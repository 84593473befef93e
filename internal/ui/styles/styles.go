// Package styles holds the palette and shared lipgloss styles of the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/models"
)

// Palette. Every colour adapts to the terminal background, which ApplyTheme
// can pin to light or dark.
var (
	Primary   = lipgloss.AdaptiveColor{Light: "#C2185B", Dark: "#FF5FAF"}
	Secondary = lipgloss.AdaptiveColor{Light: "#5E35B1", Dark: "#8787FF"}
	Subtle    = lipgloss.AdaptiveColor{Light: "#B0B0B0", Dark: "#585858"}

	Success = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#5FD787"}
	Warning = lipgloss.AdaptiveColor{Light: "#EF6C00", Dark: "#FFD75F"}
	Error   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F5F"}
	Info    = lipgloss.AdaptiveColor{Light: "#0277BD", Dark: "#5FAFFF"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#212121", Dark: "#D0D0D0"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#616161", Dark: "#8A8A8A"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9E9E9E", Dark: "#585858"}

	panelBackground = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#262626"}
)

// ApplyTheme pins the palette to the configured scheme. System leaves the
// terminal's own detection in place.
func ApplyTheme(theme models.Theme) {
	switch theme {
	case models.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case models.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	}
}

// Layout.
var (
	DocStyle = lipgloss.NewStyle().Margin(1, 2).Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	HelpStyle  = lipgloss.NewStyle().Foreground(TextMuted)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Subtle).
			Padding(1, 2).
			MarginBottom(1)
	CardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Secondary)

	// BalanceCardStyle frames the headline balance on the dashboard.
	BalanceCardStyle = CardStyle.
				Border(lipgloss.ThickBorder()).
				BorderForeground(Secondary).
				Padding(1, 4)
)

// Overlays.
var (
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Background(panelBackground).
			Padding(1, 3)
)

// Text.
var (
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	InfoTextStyle    = lipgloss.NewStyle().Foreground(Info)
)

var statusStyles = map[models.BalanceStatus]lipgloss.Style{
	models.StatusHealthy:  lipgloss.NewStyle().Bold(true).Foreground(Success),
	models.StatusWarning:  lipgloss.NewStyle().Bold(true).Foreground(Warning),
	models.StatusCritical: lipgloss.NewStyle().Bold(true).Blink(true).Foreground(Error),
}

// GetStatusStyle returns the style for a balance status.
func GetStatusStyle(status models.BalanceStatus) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle().Foreground(Subtle)
}

// GetTrendStyle colours a usage trend. Rising consumption is bad news.
func GetTrendStyle(trend models.Trend) lipgloss.Style {
	switch trend {
	case models.TrendIncreasing:
		return WarningTextStyle
	case models.TrendDecreasing:
		return SuccessTextStyle
	case models.TrendStable:
		return InfoTextStyle
	}
	return HelpStyle
}

// GetConnectionStyle colours the connection indicator.
func GetConnectionStyle(status models.ConnectionStatus) lipgloss.Style {
	switch status {
	case models.ConnectionConnected:
		return SuccessTextStyle
	case models.ConnectionError:
		return ErrorTextStyle
	}
	return HelpStyle
}

// CenterBoth places content in the middle of a width x height box.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
