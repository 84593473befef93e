package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// slowAfter is how long startup may take before the elapsed time is shown.
const slowAfter = 2 * time.Second

// StartupIndicator is the spinner shown while the store connects to the
// backend. It reports how long the wait has lasted once startup is slow.
type StartupIndicator struct {
	spin    spinner.Model
	message string
	since   time.Time
}

// NewStartupIndicator creates an indicator that started waiting at since.
func NewStartupIndicator(message string, since time.Time) StartupIndicator {
	spin := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	spin.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return StartupIndicator{spin: spin, message: message, since: since}
}

// Tick starts the animation.
func (s StartupIndicator) Tick() tea.Cmd {
	return s.spin.Tick
}

// Update advances the animation.
func (s StartupIndicator) Update(msg spinner.TickMsg) (StartupIndicator, tea.Cmd) {
	var cmd tea.Cmd
	s.spin, cmd = s.spin.Update(msg)
	return s, cmd
}

// Line renders the spinner, the message and, when slow, the time waited.
func (s StartupIndicator) Line(now time.Time) string {
	line := s.spin.View() + " " + lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.message)
	if waited := now.Sub(s.since); waited >= slowAfter {
		line += styles.HelpStyle.Render(fmt.Sprintf(" (%s)", waited.Truncate(time.Second)))
	}
	return line
}

// Render centers the indicator in a width x height area.
func (s StartupIndicator) Render(width, height int, now time.Time) string {
	return styles.CenterBoth(s.Line(now), width, height)
}
