package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/rpc"
	"github.com/j-veylop/creditbar/internal/store"
)

const (
	// DefaultTickInterval is how often expired toasts are swept.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is how long a success toast stays up.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for informational toasts.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for error toasts.
	LongNotificationDuration = 10 * time.Second

	watchBuffer = 32
)

func sweepTick() tea.Cmd {
	return tea.Tick(DefaultTickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// initializeCmd runs the store's startup sequence. The sequencer applies
// its own deadline.
func initializeCmd(st *store.Store, opts store.InitOptions) tea.Cmd {
	return func() tea.Msg {
		return InitDoneMsg{Err: st.Initialize(context.Background(), opts)}
	}
}

// watchStoreCmd subscribes to store changes. The returned cancel func is
// kept by the model and called on quit.
func watchStoreCmd(st *store.Store) (tea.Cmd, func()) {
	ch, cancel := st.Watch(watchBuffer)
	return func() tea.Msg {
		return StoreSubscribedMsg{Channel: ch}
	}, cancel
}

func waitForChangeCmd(ch <-chan store.Change) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return StoreChangedMsg{Change: change}
	}
}

// storeAction runs fn against the backend. User-triggered calls carry no
// deadline of their own; they end when the backend answers.
func storeAction(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return fn(context.Background())
	}
}

func refreshCmd(st *store.Store) tea.Cmd {
	return storeAction(func(ctx context.Context) tea.Msg {
		return RefreshDoneMsg{Err: st.Refresh(ctx)}
	})
}

// manualUpdateCmd asks the backend to poll its provider right away.
func manualUpdateCmd(st *store.Store) tea.Cmd {
	return storeAction(func(ctx context.Context) tea.Msg {
		b, err := st.TriggerManualUpdate(ctx)
		return ManualUpdateMsg{Balance: b, Err: err}
	})
}

func toggleWindowCmd(st *store.Store) tea.Cmd {
	return storeAction(func(ctx context.Context) tea.Msg {
		visible, err := st.ToggleWindow(ctx)
		return WindowToggledMsg{Visible: visible, Err: err}
	})
}

func logoutCmd(st *store.Store) tea.Cmd {
	return storeAction(func(ctx context.Context) tea.Msg {
		st.ClearSession(ctx)
		return LogoutDoneMsg{}
	})
}

// FetchAnalyticsCmd loads the consumption history for the given window.
// The store's own analytics are left alone. It returns nil when there is
// no store to ask.
func FetchAnalyticsCmd(st *store.Store, days int) tea.Cmd {
	if st == nil {
		return nil
	}
	return storeAction(func(ctx context.Context) tea.Msg {
		return AnalyticsLoadedMsg{Days: days, Analytics: st.AnalyticsFor(ctx, days)}
	})
}

func expireNotificationCmd(id string, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

// Notify returns a command that raises a toast of the given type. The
// lifetime depends on the type.
func Notify(t NotificationType, message string) tea.Cmd {
	d := QuickNotificationDuration
	switch t {
	case NotificationSuccess:
		d = DefaultNotificationDuration
	case NotificationError:
		d = LongNotificationDuration
	}
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// errorNotice turns a backend error into a toast and a log line.
func errorNotice(action string, err error) tea.Cmd {
	logger.Warn(action+" failed", "kind", rpc.KindOf(err), "error", err)
	return Notify(NotificationError, fmt.Sprintf("%s: %s", action, rpc.Message(err)))
}
