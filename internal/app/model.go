// Package app is the Bubble Tea shell around the store: navbar, global keys,
// toasts and the help overlay. The tabs render the store's cells.
package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/store"
	"github.com/j-veylop/creditbar/internal/ui/styles"
)

// chromeHeight is the number of rows taken by the navbar and margins.
const chromeHeight = 5

// Model is the root tea.Model.
type Model struct {
	state    *State
	store    *store.Store
	initOpts store.InitOptions
	keys     keyMap
	look     chrome
	spin     spinner.Model

	tabs   []Tab
	active TabID

	width, height int
	ready         bool
	showHelp      bool

	changes   <-chan store.Change
	stopWatch func()
}

// NewModel creates the shell. st may be nil, in which case nothing talks to
// a backend and the tabs show a signed-out view.
func NewModel(st *store.Store, opts store.InitOptions) *Model {
	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		state:    NewState(st),
		store:    st,
		initOpts: opts,
		keys:     newKeyMap(),
		look:     newChrome(),
		spin:     spin,
		tabs:     make([]Tab, len(tabTitles)),
	}
}

// SetTabs installs the tab models in navbar order.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	m.resizeTabs()
}

// State returns the shared state handed to the tabs.
func (m *Model) State() *State { return m.state }

// ActiveTab returns the tab currently shown.
func (m *Model) ActiveTab() TabID { return m.active }

// Ready reports whether the terminal size is known.
func (m *Model) Ready() bool { return m.ready }

// Init starts the toast sweeper and, with a store, the startup sequence and
// the change subscription.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, sweepTick()}

	if m.store != nil {
		m.state.toasts.setLoading("Connecting to backend...")
		watch, cancel := watchStoreCmd(m.store)
		m.stopWatch = cancel
		cmds = append(cmds, watch, initializeCmd(m.store, m.initOpts))
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}
	return tea.Batch(cmds...)
}

// Close stops watching the store. It is safe to call more than once.
func (m *Model) Close() {
	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height, m.ready = msg.Width, msg.Height, true
		m.resizeTabs()

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))
		return m, tea.Batch(append(cmds, m.updateTab(m.active, msg))...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case TickMsg:
		m.state.toasts.sweep()
		cmds = append(cmds, sweepTick())

	case StoreSubscribedMsg:
		m.changes = msg.Channel
		cmds = append(cmds, waitForChangeCmd(m.changes))

	case StoreChangedMsg:
		m.handleStoreChange(msg.Change)
		if m.changes != nil {
			cmds = append(cmds, waitForChangeCmd(m.changes))
		}

	case AddNotificationMsg:
		id := m.state.toasts.push(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, expireNotificationCmd(id, msg.Duration))
		}

	case RemoveNotificationMsg:
		m.state.toasts.remove(msg.ID)

	case ClearExpiredNotificationsMsg:
		m.state.toasts.sweep()

	case TabSwitchMsg:
		m.switchTab(msg.Tab)

	case ToggleHelpMsg:
		m.showHelp = !m.showHelp

	default:
		cmds = append(cmds, m.handleResult(msg))
	}

	for i := range m.tabs {
		cmds = append(cmds, m.updateTab(TabID(i), msg))
	}
	return m, tea.Batch(cmds...)
}

// handleResult turns the outcome of a backend action into a toast.
func (m *Model) handleResult(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case InitDoneMsg:
		m.state.toasts.clearLoading()
		if msg.Err != nil {
			return errorNotice("Startup", msg.Err)
		}
	case RefreshDoneMsg:
		if msg.Err != nil {
			return errorNotice("Refresh", msg.Err)
		}
		return Notify(NotificationInfo, "Balance refreshed")
	case ManualUpdateMsg:
		if msg.Err != nil {
			return errorNotice("Update", msg.Err)
		}
		if !msg.Balance.Valid {
			return Notify(NotificationInfo, "No balance available yet")
		}
		return Notify(NotificationSuccess, fmt.Sprintf("Balance updated: %s", msg.Balance))
	case WindowToggledMsg:
		if msg.Err != nil {
			return errorNotice("Window", msg.Err)
		}
		if msg.Visible {
			return Notify(NotificationInfo, "Window shown")
		}
		return Notify(NotificationInfo, "Window hidden")
	case LogoutDoneMsg:
		return Notify(NotificationSuccess, "Signed out")
	case ErrorMsg:
		return errorNotice(msg.Context, msg.Error)
	}
	return nil
}

// handleStoreChange mirrors the busy flag as the loading toast once startup
// is over, and applies the configured theme.
func (m *Model) handleStoreChange(change store.Change) {
	if m.store == nil {
		return
	}
	switch change.Field {
	case store.FieldConfig:
		styles.ApplyTheme(m.store.Config().Theme)
	case store.FieldInitialized:
		m.state.toasts.clearLoading()
	case store.FieldBusy:
		if !m.store.Initialized() {
			return
		}
		if m.store.Busy() {
			m.state.toasts.setLoading("Refreshing...")
		} else {
			m.state.toasts.clearLoading()
		}
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	if id, ok := k.tabFor(msg); ok {
		m.switchTab(id)
		return nil
	}

	switch {
	case key.Matches(msg, k.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, k.Close):
		m.showHelp = false
	case m.showHelp:
		// Navigation is frozen behind the overlay.
	case key.Matches(msg, k.Next):
		m.switchTab(m.active + 1)
	case key.Matches(msg, k.Prev):
		m.switchTab(m.active - 1)
	}

	if m.store == nil {
		return nil
	}
	switch {
	case key.Matches(msg, k.Refresh):
		return refreshCmd(m.store)
	case key.Matches(msg, k.Update):
		return manualUpdateCmd(m.store)
	case key.Matches(msg, k.Window):
		return toggleWindowCmd(m.store)
	case key.Matches(msg, k.Logout):
		return logoutCmd(m.store)
	}
	return nil
}

// switchTab activates id, wrapping around at either end.
func (m *Model) switchTab(id TabID) {
	n := TabID(len(m.tabs))
	if n == 0 {
		return
	}
	m.active = (id%n + n) % n
	m.resizeTabs()
}

func (m *Model) updateTab(id TabID, msg tea.Msg) tea.Cmd {
	if int(id) >= len(m.tabs) || m.tabs[id] == nil {
		return nil
	}
	var cmd tea.Cmd
	m.tabs[id], cmd = m.tabs[id].Update(msg)
	return cmd
}

func (m *Model) resizeTabs() {
	if !m.ready {
		return
	}
	h := max(0, m.height-chromeHeight)
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, h)
		}
	}
}
