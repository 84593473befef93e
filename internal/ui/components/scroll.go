package components

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// ScrollPane is the scrollable document area of a tab.
type ScrollPane struct {
	view   viewport.Model
	width  int
	height int
	up     key.Binding
	down   key.Binding
}

// NewScrollPane returns an empty pane. It draws nothing until sized.
func NewScrollPane() ScrollPane {
	return ScrollPane{
		view: viewport.New(0, 0),
		up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
	}
}

// SetSize sets the outer size. The viewport gets what the document frame
// leaves over.
func (p *ScrollPane) SetSize(width, height int) {
	p.width, p.height = width, height
	p.view.Width = max(0, width-styles.DocStyle.GetHorizontalFrameSize())
	p.view.Height = max(0, height-styles.DocStyle.GetVerticalFrameSize())
}

// Width is the usable content width.
func (p *ScrollPane) Width() int {
	return p.view.Width
}

// Update scrolls on key input.
func (p *ScrollPane) Update(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	p.view, cmd = p.view.Update(msg)
	return cmd
}

// Render shows content at the current scroll offset.
func (p *ScrollPane) Render(content string) string {
	p.view.SetContent(content)
	return styles.DocStyle.Width(p.width).Height(p.height).Render(p.view.View())
}

// Bindings returns the scroll keys for the help overlay.
func (p *ScrollPane) Bindings() []key.Binding {
	return []key.Binding{p.up, p.down}
}
