// Package usage provides the consumption history tab.
package usage

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/creditbar/internal/app"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/ui/components"
)

var toggleRange = key.NewBinding(
	key.WithKeys("t"),
	key.WithHelp("t", "toggle range (7d/30d/90d)"),
)

// Model represents the usage tab state.
type Model struct {
	state *app.State
	pane  components.ScrollPane

	// defaultRange is the window the store keeps refreshed. Other ranges
	// are fetched on demand and kept here.
	defaultRange models.TimeRange
	timeRange    models.TimeRange
	loaded       map[models.TimeRange]models.UsageAnalytics
	loading      bool

	width int
}

// New creates a new usage tab model.
func New(state *app.State) *Model {
	days := 0
	if st := state.Store(); st != nil {
		days = st.AnalyticsDays()
	}
	r := models.TimeRangeForDays(days)

	return &Model{
		state:        state,
		pane:         components.NewScrollPane(),
		defaultRange: r,
		timeRange:    r,
		loaded:       make(map[models.TimeRange]models.UsageAnalytics),
	}
}

// Init initializes the usage tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the usage tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AnalyticsLoadedMsg:
		r := models.TimeRangeForDays(msg.Days)
		m.loaded[r] = msg.Analytics
		if r == m.timeRange {
			m.loading = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	if key.Matches(msg, toggleRange) {
		// The legacy provider only reports a fixed 24 hour window.
		if m.legacyOnly() {
			return m, nil
		}
		m.timeRange = m.timeRange.Next()
		if m.timeRange == m.defaultRange {
			m.loading = false
			return m, nil
		}
		cmd := app.FetchAnalyticsCmd(m.state.Store(), m.timeRange.Days())
		if cmd == nil {
			m.loaded[m.timeRange] = models.EmptyAnalytics()
			return m, nil
		}
		m.loading = true
		return m, cmd
	}

	return m, m.pane.Update(msg)
}

// analytics returns the data for the selected range. The default range
// follows the store so scheduled refreshes show up immediately.
func (m *Model) analytics() (models.UsageAnalytics, bool) {
	if m.timeRange == m.defaultRange || m.legacyOnly() {
		return m.state.Snapshot().Analytics, true
	}
	a, ok := m.loaded[m.timeRange]
	return a, ok
}

func (m *Model) legacyOnly() bool {
	auth := m.state.Snapshot().Auth
	return auth.IsOrbConfigured && !auth.IsAugmentConfigured
}

// SetSize sets the available size for the usage tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.pane.SetSize(width, height)
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{toggleRange}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{toggleRange},
		m.pane.Bindings(),
	}
}
