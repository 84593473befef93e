package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// TabID identifies a tab. The value is also its position in the navbar.
type TabID int

// Tabs in navbar order.
const (
	TabDashboard TabID = iota
	TabUsage
	TabInfo
)

var tabTitles = []string{"Dashboard", "Usage", "Info"}

func (t TabID) String() string {
	if t >= 0 && int(t) < len(tabTitles) {
		return tabTitles[t]
	}
	return "Unknown"
}

// Tab is one screen of the TUI. Key input only reaches the active tab;
// every other message is delivered to all tabs.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	// SetSize is called with the area below the navbar.
	SetSize(width, height int)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}
