// Package dashboard provides the balance overview tab.
package dashboard

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/creditbar/internal/app"
	"github.com/j-veylop/creditbar/internal/ui/components"
)

// Model is the dashboard tab. It shows a startup indicator until the store
// is initialized, then the balance, its status and the burn rate.
type Model struct {
	state   *app.State
	startup components.StartupIndicator
	gauge   components.BalanceGauge
	pane    components.ScrollPane
	now     func() time.Time
	width   int
	height  int
}

// New creates a new dashboard model.
func New(state *app.State) *Model {
	return &Model{
		state:   state,
		startup: components.NewStartupIndicator("Connecting to backend...", time.Now()),
		gauge:   components.NewBalanceGauge(30),
		pane:    components.NewScrollPane(),
		now:     time.Now,
	}
}

// Init starts the startup animation.
func (m *Model) Init() tea.Cmd {
	return m.startup.Tick()
}

// Update animates the indicator during startup and scrolls afterwards.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		// Letting the tick chain lapse stops the animation for good.
		if !m.state.IsInitialLoading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.startup, cmd = m.startup.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.pane.Update(msg)
	}
	return m, nil
}

// SetSize sets the available size. The gauge scales with the width.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = width, height
	m.pane.SetSize(width, height)
	m.gauge.SetWidth(min(max(width-30, 10), 50))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return m.pane.Bindings()
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.pane.Bindings()}
}
