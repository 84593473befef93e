// Package info provides the session, settings and build information tab.
package info

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/creditbar/internal/app"
	"github.com/j-veylop/creditbar/internal/config"
	"github.com/j-veylop/creditbar/internal/ui/components"
)

// Model is the info tab. It is read-only: every row comes from the store
// snapshot, the process configuration or the build metadata.
type Model struct {
	state  *app.State
	config *config.Config
	pane   components.ScrollPane
	width  int
}

// New creates the tab. cfg may be nil when the configuration failed to load.
func New(state *app.State, cfg *config.Config) *Model {
	return &Model{state: state, config: cfg, pane: components.NewScrollPane()}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		return m, m.pane.Update(k)
	}
	return m, nil
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.pane.SetSize(width, height)
}

func (m *Model) ShortHelp() []key.Binding { return m.pane.Bindings() }

func (m *Model) FullHelp() [][]key.Binding { return [][]key.Binding{m.pane.Bindings()} }
