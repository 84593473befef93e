package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// toastTop is the row the toast stack starts on, just under the navbar.
const toastTop = 2

// toastLevel is how a toast of one severity is drawn.
type toastLevel struct {
	tag   string
	style lipgloss.Style
}

// chrome holds the styles of everything the shell draws around the tabs.
type chrome struct {
	navbar   lipgloss.Style
	current  lipgloss.Style
	other    lipgloss.Style
	body     lipgloss.Style
	heading  lipgloss.Style
	section  lipgloss.Style
	dim      lipgloss.Style
	levels   map[NotificationType]toastLevel
	fallback toastLevel
}

func newChrome() chrome {
	level := func(tag string, c lipgloss.TerminalColor) toastLevel {
		return toastLevel{tag: tag, style: lipgloss.NewStyle().Foreground(c).Padding(0, 1)}
	}
	return chrome{
		navbar: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(styles.Subtle),
		current: lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2),
		other:   lipgloss.NewStyle().Foreground(styles.TextMuted).Padding(0, 2),
		body:    lipgloss.NewStyle().Padding(1, 2),
		heading: lipgloss.NewStyle().Bold(true).Foreground(styles.Primary),
		section: lipgloss.NewStyle().Foreground(styles.Secondary),
		dim:     lipgloss.NewStyle().Foreground(styles.TextMuted),
		levels: map[NotificationType]toastLevel{
			NotificationSuccess: level("[OK]", styles.Success),
			NotificationError:   {tag: "[ERR]", style: lipgloss.NewStyle().Bold(true).Foreground(styles.Error).Padding(0, 1)},
			NotificationWarning: level("[WARN]", styles.Warning),
			NotificationInfo:    level("[INFO]", styles.Info),
		},
		fallback: level("", styles.Info),
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return m.look.body.Render(m.spin.View() + " Loading...")
	}

	screen := m.renderNavbar() + "\n" + m.renderActiveTab()

	if m.showHelp {
		panel := m.renderHelp()
		x := (m.width - lipgloss.Width(panel)) / 2
		y := (m.height - lipgloss.Height(panel)) / 2
		screen = overlay(screen, panel, max(x, 0), max(y, 0))
	}

	if toasts := m.renderToasts(); len(toasts) > 0 {
		stack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
		x := max(m.width-lipgloss.Width(stack)-2, 0)
		screen = overlay(screen, stack, x, toastTop)
	}
	return screen
}

func (m *Model) renderActiveTab() string {
	if int(m.active) < len(m.tabs) && m.tabs[m.active] != nil {
		return m.tabs[m.active].View()
	}
	return m.look.body.Render(fmt.Sprintf("%s\n\n%s",
		m.active, m.look.dim.Render("This tab is not yet implemented.")))
}

func (m *Model) renderNavbar() string {
	items := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		if TabID(i) == m.active {
			items[i] = m.look.current.Render(fmt.Sprintf("[%d] %s", i+1, title))
		} else {
			items[i] = m.look.other.Render(fmt.Sprintf(" %d  %s", i+1, title))
		}
	}
	return m.look.navbar.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

// renderToasts draws the store warning first, then the queued toasts.
func (m *Model) renderToasts() []string {
	var out []string
	draw := func(level toastLevel, tag, text string) {
		out = append(out, styles.ToastStyle.Render(level.style.Render(tag+" "+text)))
	}

	if warning := m.state.Snapshot().Warning; warning != "" {
		lvl := m.look.levels[NotificationWarning]
		draw(lvl, lvl.tag, warning)
	}

	for _, t := range m.state.Toasts() {
		lvl, ok := m.look.levels[t.Type]
		if !ok {
			lvl = m.look.fallback
		}
		tag := lvl.tag
		if t.Type == NotificationLoading {
			tag = m.spin.View()
		}
		draw(lvl, tag, t.Message)
	}
	return out
}

func (m *Model) renderHelp() string {
	line := func(help, desc string) string {
		return fmt.Sprintf("  %-13s %s", help, desc)
	}

	rows := []string{m.look.heading.Render("Keyboard Shortcuts"), ""}
	for _, s := range m.keys.sections() {
		rows = append(rows, m.look.section.Render(s.title))
		for _, b := range s.bindings {
			rows = append(rows, line(b.Help().Key, b.Help().Desc))
		}
		rows = append(rows, "")
	}

	if int(m.active) < len(m.tabs) && m.tabs[m.active] != nil {
		if local := m.tabs[m.active].ShortHelp(); len(local) > 0 {
			rows = append(rows, m.look.section.Render(m.active.String()))
			for _, b := range local {
				rows = append(rows, line(b.Help().Key, b.Help().Desc))
			}
			rows = append(rows, "")
		}
	}

	rows = append(rows, m.look.dim.Render("Press ? or esc to close"))
	return styles.HelpPanelStyle.Render(strings.Join(rows, "\n"))
}

// overlay draws layer over base with its top-left corner at column x, row y.
// Cells of base outside the layer are kept; short base lines are padded.
func overlay(base, layer string, x, y int) string {
	rows := strings.Split(base, "\n")
	patch := strings.Split(layer, "\n")
	width := lipgloss.Width(layer)

	for len(rows) < y+len(patch) {
		rows = append(rows, "")
	}

	for i, p := range patch {
		row := rows[y+i]
		left := ansi.Truncate(row, x, "")
		if gap := x - lipgloss.Width(left); gap > 0 {
			left += strings.Repeat(" ", gap)
		}
		rows[y+i] = left + p + ansi.TruncateLeft(row, x+width, "")
	}
	return strings.Join(rows, "\n")
}
