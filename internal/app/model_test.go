package app

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/store"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func readyModel(st *store.Store) *Model {
	m := NewModel(st, store.InitOptions{RefreshInterval: time.Hour})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

// stubTab records what it receives.
type stubTab struct {
	content string
	width   int
	height  int
	msgs    int
}

func (s *stubTab) Init() tea.Cmd { return nil }
func (s *stubTab) Update(tea.Msg) (Tab, tea.Cmd) { s.msgs++; return s, nil }
func (s *stubTab) View() string { return s.content }
func (s *stubTab) SetSize(w, h int) { s.width, s.height = w, h }
func (s *stubTab) ShortHelp() []key.Binding { return nil }
func (s *stubTab) FullHelp() [][]key.Binding { return nil }

func TestNewModel(t *testing.T) {
	model := NewModel(nil, store.InitOptions{})
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.active != TabDashboard {
		t.Error("Default tab should be Dashboard")
	}
	if len(model.tabs) != 3 {
		t.Errorf("Should have 3 tab slots, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	if NewModel(nil, store.InitOptions{}).Init() == nil {
		t.Error("Init returned nil command")
	}

	st, _ := newTestStore(t, nil)
	m := NewModel(st, store.InitOptions{})
	m.Init()
	defer m.Close()

	notifs := m.state.Toasts()
	if len(notifs) != 1 || notifs[0].Type != NotificationLoading {
		t.Errorf("expected a loading toast while connecting, got %+v", notifs)
	}
	if m.stopWatch == nil {
		t.Error("model should be watching the store")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	tab := &stubTab{}
	model := NewModel(nil, store.InitOptions{})
	model.SetTabs([]Tab{tab, &stubTab{}, &stubTab{}})

	model.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	if !model.Ready() || model.width != 100 || model.height != 50 {
		t.Errorf("size = %dx%d ready=%v", model.width, model.height, model.ready)
	}
	if tab.width != 100 || tab.height != 45 {
		t.Errorf("tab size = %dx%d", tab.width, tab.height)
	}
}

func TestModel_TabSwitching(t *testing.T) {
	model := readyModel(nil)

	model.Update(TabSwitchMsg{Tab: TabUsage})
	if model.ActiveTab() != TabUsage {
		t.Errorf("ActiveTab = %v, want Usage", model.active)
	}

	model.Update(runes("3"))
	if model.active != TabInfo {
		t.Errorf("ActiveTab = %v, want Info", model.active)
	}

	model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if model.active != TabDashboard {
		t.Errorf("tab should wrap to Dashboard, got %v", model.active)
	}

	model.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	if model.active != TabInfo {
		t.Errorf("shift+tab should wrap to Info, got %v", model.active)
	}
}

func TestModel_RoutesMessagesToTabs(t *testing.T) {
	dash, usage := &stubTab{}, &stubTab{}
	model := NewModel(nil, store.InitOptions{})
	model.SetTabs([]Tab{dash, usage, &stubTab{}})

	model.Update(runes("x"))
	if dash.msgs != 1 || usage.msgs != 0 {
		t.Errorf("keys: dash=%d usage=%d", dash.msgs, usage.msgs)
	}

	model.Update(AnalyticsLoadedMsg{Days: 7})
	if dash.msgs != 2 || usage.msgs != 1 {
		t.Errorf("broadcast: dash=%d usage=%d", dash.msgs, usage.msgs)
	}
}

func TestModel_Update_Tick(t *testing.T) {
	model := NewModel(nil, store.InitOptions{})
	if _, cmd := model.Update(TickMsg{Time: time.Now()}); cmd == nil {
		t.Error("TickMsg should schedule the next tick")
	}
}

func TestModel_View(t *testing.T) {
	model := NewModel(nil, store.InitOptions{})

	if view := model.View(); !strings.Contains(view, "Loading...") {
		t.Error("View should show Loading when not ready")
	}

	model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := model.View()
	for _, want := range []string{"Dashboard", "Usage", "Info", "not yet implemented"} {
		if !strings.Contains(view, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestModel_Help(t *testing.T) {
	model := readyModel(nil)

	model.Update(ToggleHelpMsg{})
	if !model.showHelp {
		t.Fatal("showHelp should be true")
	}
	view := model.View()
	for _, want := range []string{"Keyboard Shortcuts", "toggle window", "sign out"} {
		if !strings.Contains(view, want) {
			t.Errorf("help missing %q", want)
		}
	}

	model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if model.showHelp {
		t.Error("esc should close help")
	}
}

func TestModel_Notifications(t *testing.T) {
	model := readyModel(nil)

	model.Update(AddNotificationMsg{Message: "Test Note", Type: NotificationInfo})
	if len(model.state.Toasts()) != 1 {
		t.Fatal("expected 1 notification")
	}
	if !strings.Contains(model.View(), "Test Note") {
		t.Error("View should show notification")
	}

	id := model.state.Toasts()[0].ID
	model.Update(RemoveNotificationMsg{ID: id})
	if len(model.state.Toasts()) != 0 {
		t.Error("notification should be removed")
	}
}

func TestModel_ResultMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want NotificationType
	}{
		{"refresh ok", RefreshDoneMsg{}, NotificationInfo},
		{"refresh failed", RefreshDoneMsg{Err: rpc.Errorf(rpc.KindNetwork, "offline")}, NotificationError},
		{"manual update", ManualUpdateMsg{Balance: models.NewBalance(10)}, NotificationSuccess},
		{"manual update unconfigured", ManualUpdateMsg{Balance: models.UnknownBalance()}, NotificationInfo},
		{"window", WindowToggledMsg{Visible: true}, NotificationInfo},
		{"window failed", WindowToggledMsg{Err: rpc.Errorf(rpc.KindInternal, "no window")}, NotificationError},
		{"logout", LogoutDoneMsg{}, NotificationSuccess},
		{"init failed", InitDoneMsg{Err: store.ErrBackendUnreachable}, NotificationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := NewModel(nil, store.InitOptions{})
			_, cmd := model.Update(tt.msg)
			if cmd == nil {
				t.Fatal("expected a notification command")
			}
			found := false
			for _, msg := range collect(cmd) {
				if add, ok := msg.(AddNotificationMsg); ok && add.Type == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("no %s notification", tt.want)
			}
		})
	}
}

// collect runs cmd and flattens batches, skipping timer commands.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c == nil {
			continue
		}
		out = append(out, collect(c)...)
	}
	return out
}

func TestModel_StoreWarningToast(t *testing.T) {
	st, _ := newTestStore(t, nil)
	model := readyModel(st)

	st.ShowWarning(store.WarningSlowStartup, time.Hour)
	if !strings.Contains(model.View(), store.WarningSlowStartup) {
		t.Error("store warning should render as a toast")
	}
}

func TestModel_BusyMirrorsLoadingToast(t *testing.T) {
	st, _ := newTestStore(t, map[string]any{
		rpc.MethodTestConnection:  "Connection successful",
		rpc.MethodGetAuthStatus:   models.SignedOut(),
		rpc.MethodGetConfig:       models.DefaultAppConfig(),
		rpc.MethodGetLegacyConfig: models.LegacyConfig{},
	})
	model := NewModel(st, store.InitOptions{})
	model.state.toasts.setLoading("Connecting to backend...")

	model.handleStoreChange(store.Change{Field: store.FieldBusy})
	if len(model.state.Toasts()) != 1 {
		t.Error("busy changes before startup should not touch the toast")
	}

	model.Update(initializeCmd(st, store.InitOptions{RefreshInterval: time.Hour})())
	if len(model.state.Toasts()) != 0 {
		t.Error("startup completion should clear the loading toast")
	}
}

func TestModel_KeysWithoutStore(t *testing.T) {
	model := readyModel(nil)
	for _, k := range []string{"r", "u", "w", "L"} {
		if cmd := model.handleKeyMsg(runes(k)); cmd != nil {
			t.Errorf("key %q should do nothing without a store", k)
		}
	}
}

func TestModel_ActionKeys(t *testing.T) {
	st, _ := newTestStore(t, map[string]any{
		rpc.MethodToggleWindow: true,
	})
	model := readyModel(st)

	cmd := model.handleKeyMsg(runes("w"))
	if cmd == nil {
		t.Fatal("w should toggle the window")
	}
	if msg, ok := cmd().(WindowToggledMsg); !ok || !msg.Visible {
		t.Errorf("got %#v", msg)
	}
}

func TestModel_QuitStopsWatching(t *testing.T) {
	st, _ := newTestStore(t, nil)
	model := NewModel(st, store.InitOptions{})
	model.Init()

	cmd := model.handleKeyMsg(runes("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if model.stopWatch != nil {
		t.Error("quit should stop watching the store")
	}
}

func TestTabID_String(t *testing.T) {
	tests := map[TabID]string{
		TabDashboard: "Dashboard",
		TabUsage:     "Usage",
		TabInfo:      "Info",
		TabID(9):     "Unknown",
	}
	for id, want := range tests {
		if got := id.String(); got != want {
			t.Errorf("TabID(%d).String() = %q, want %q", id, got, want)
		}
	}
}

func TestOverlay(t *testing.T) {
	base := "abcdef\nghijkl"

	if got := overlay(base, "XY", 2, 1); got != "abcdef\nghXYkl" {
		t.Errorf("inside = %q", got)
	}
	if got := overlay("ab", "XY", 4, 0); got != "ab  XY" {
		t.Errorf("past the end = %q", got)
	}
	if got := overlay("ab", "X\nY", 0, 1); got != "ab\nX\nY" {
		t.Errorf("below = %q", got)
	}
}

func TestModel_ConfigChangeAppliesTheme(t *testing.T) {
	prev := lipgloss.HasDarkBackground()
	t.Cleanup(func() { lipgloss.SetHasDarkBackground(prev) })

	st, _ := newTestStore(t, nil)
	model := NewModel(st, store.InitOptions{})

	cfg := models.DefaultAppConfig()
	cfg.Theme = models.ThemeLight
	st.ApplyPushedConfig(cfg)
	model.handleStoreChange(store.Change{Field: store.FieldConfig})

	if lipgloss.HasDarkBackground() {
		t.Error("light theme should be applied")
	}
}
