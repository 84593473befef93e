package info

import (
	"fmt"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
	"github.com/j-veylop/creditbar/internal/ui/styles"
	"github.com/j-veylop/creditbar/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	snap := m.state.Snapshot()

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderSessionCard(snap),
		m.renderPreferencesCard(snap.Config),
		m.renderPathsCard(),
		m.renderAboutCard(),
	)

	return m.pane.Render(content)
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Session, settings and build information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) card(title string, rows ...string) string {
	body := append([]string{styles.CardTitleStyle.Render(title), ""}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, body...),
	)
}

func (m *Model) renderSessionCard(snap store.State) string {
	auth := snap.Auth

	rows := []string{
		renderRow("Signed in", yesNo(auth.IsAuthenticated)),
	}
	if auth.AuthMethod != "" {
		rows = append(rows, renderRow("Method", string(auth.AuthMethod)))
	}
	if auth.UserEmail != "" {
		rows = append(rows, renderRow("Email", auth.UserEmail))
	}
	rows = append(rows,
		renderRow("Augment", configured(auth.IsAugmentConfigured)),
		renderRow("Orb portal", configured(auth.IsOrbConfigured)),
	)

	if legacy := snap.Legacy; legacy.IsConfigured || legacy.CustomerID != "" {
		rows = append(rows,
			renderRow("Customer", legacy.CustomerID),
			renderRow("Pricing unit", legacy.PricingUnitID),
			renderRow("Token stored", yesNo(legacy.HasToken)),
		)
	}

	rows = append(rows, renderRow("Backend",
		styles.GetConnectionStyle(snap.Connection).Render(string(snap.Connection))))

	return m.card("Session", rows...)
}

func (m *Model) renderPreferencesCard(cfg models.AppConfig) string {
	polling := (time.Duration(cfg.PollingIntervalSeconds) * time.Second).String()

	return m.card("Preferences",
		renderRow("Polling", "every "+polling),
		renderRow("Low balance", humanize.Comma(cfg.LowBalanceThreshold)),
		renderRow("Critical", humanize.Comma(cfg.CriticalBalanceThreshold)),
		renderRow("Notifications", onOff(cfg.EnableNotifications)),
		renderRow("Sound alerts", onOff(cfg.EnableSoundAlerts)),
		renderRow("Theme", string(cfg.Theme)),
		renderRow("Retention", fmt.Sprintf("%d days", cfg.DataRetentionDays)),
	)
}

func (m *Model) renderPathsCard() string {
	if m.config == nil {
		return m.card("Paths", styles.HelpStyle.Render("Configuration not loaded"))
	}

	backend := "in-process"
	if m.config.BackendURL != "" {
		backend = m.config.BackendURL
	}

	return m.card("Paths",
		renderRow("Data dir", m.config.DataDir),
		renderRow("Database", m.config.DatabasePath),
		renderRow("Settings", m.config.SettingsPath),
		renderRow("Log file", m.config.LogPath),
		renderRow("Backend", backend),
		renderRow("Listen", m.config.ListenAddr),
	)
}

func (m *Model) renderAboutCard() string {
	return m.card("About creditbar",
		renderRow("Version", version.GetVersion()),
		renderRow("Commit", version.GetCommit()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	)
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func configured(v bool) string {
	if v {
		return styles.SuccessTextStyle.Render("configured")
	}
	return styles.HelpStyle.Render("not configured")
}
