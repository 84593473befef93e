package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap holds the bindings that work on every tab.
type keyMap struct {
	Tabs []key.Binding
	Next key.Binding
	Prev key.Binding

	Refresh key.Binding
	Update  key.Binding
	Window  key.Binding
	Logout  key.Binding

	Help  key.Binding
	Close key.Binding
	Quit  key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

func newKeyMap() keyMap {
	return keyMap{
		Tabs: []key.Binding{
			bind("1", "dashboard", "1"),
			bind("2", "usage", "2"),
			bind("3", "info", "3"),
		},
		Next: bind("tab/→", "next tab", "tab", "right"),
		Prev: bind("shift+tab/←", "previous tab", "shift+tab", "left"),

		Refresh: bind("r", "refresh balance", "r", "ctrl+r"),
		Update:  bind("u", "ask backend to poll", "u"),
		Window:  bind("w", "toggle window", "w"),
		Logout:  bind("L", "sign out", "L"),

		Help:  bind("?", "toggle help", "?"),
		Close: bind("esc", "close help", "esc"),
		Quit:  bind("q", "quit", "q", "ctrl+c"),
	}
}

// helpSection is one titled block of the help overlay.
type helpSection struct {
	title    string
	bindings []key.Binding
}

func (k keyMap) sections() []helpSection {
	tabs := append(append([]key.Binding{}, k.Tabs...), k.Next, k.Prev)
	return []helpSection{
		{"Tabs", tabs},
		{"Balance", []key.Binding{k.Refresh, k.Update, k.Window, k.Logout}},
		{"General", []key.Binding{k.Help, k.Close, k.Quit}},
	}
}

// tabFor returns the tab bound to a number key.
func (k keyMap) tabFor(msg tea.KeyMsg) (TabID, bool) {
	for i, b := range k.Tabs {
		if key.Matches(msg, b) {
			return TabID(i), true
		}
	}
	return 0, false
}
