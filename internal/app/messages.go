package app

import (
	"time"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StoreSubscribedMsg carries the store's change channel once watching starts.
type StoreSubscribedMsg struct {
	Channel <-chan store.Change
}

// StoreChangedMsg reports that a store cell was written.
type StoreChangedMsg struct {
	Change store.Change
}

// InitDoneMsg is sent when the startup sequence returns.
type InitDoneMsg struct {
	Err error
}

// RefreshDoneMsg is sent when a user-requested refresh completes.
type RefreshDoneMsg struct {
	Err error
}

// ManualUpdateMsg carries the result of a backend-side balance update.
type ManualUpdateMsg struct {
	Balance models.Balance
	Err     error
}

// WindowToggledMsg carries the new floating-window visibility.
type WindowToggledMsg struct {
	Visible bool
	Err     error
}

// LogoutDoneMsg is sent after the session has been cleared.
type LogoutDoneMsg struct{}

// AnalyticsLoadedMsg is sent after analytics for a window were fetched.
type AnalyticsLoadedMsg struct {
	Days      int
	Analytics models.UsageAnalytics
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
