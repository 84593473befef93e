// Package alerts sends desktop notifications when the balance runs low.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/services/analytics"
)

// Cooldown is the minimum gap between two notifications with the same id.
const Cooldown = 5 * time.Minute

// highUsageFactor is how far the hourly rate must exceed the average
// session usage to count as unusual.
const highUsageFactor = 2.0

// Notification ids, one cooldown each.
const (
	IDCriticalBalance = "critical_balance"
	IDLowBalance      = "low_balance"
	IDTimeCritical    = "time_critical"
	IDTimeWarning     = "time_warning"
	IDHighUsage       = "high_usage"
)

// Notification is one message for the desktop.
type Notification struct {
	ID    string
	Title string
	Body  string
}

// SendFunc delivers a notification. sound requests an audible alert.
type SendFunc func(title, body string, sound bool) error

// Notifier applies thresholds and per-id cooldowns before sending.
type Notifier struct {
	mu   sync.Mutex
	last map[string]time.Time
	send SendFunc
	now  func() time.Time
}

// New creates a notifier that sends through beeep.
func New() *Notifier {
	beeep.AppName = "creditbar"
	return NewWithSender(desktopSend)
}

// NewWithSender creates a notifier with a custom delivery function.
func NewWithSender(send SendFunc) *Notifier {
	return &Notifier{
		last: make(map[string]time.Time),
		send: send,
		now:  time.Now,
	}
}

func desktopSend(title, body string, sound bool) error {
	if sound {
		return beeep.Alert(title, body, "")
	}
	return beeep.Notify(title, body, "")
}

// Evaluate returns the notifications warranted by the analytics and balance
// under cfg's thresholds, ignoring cooldowns. Balance and depletion
// conditions come from the analytics alerts.
func Evaluate(a models.LegacyAnalytics, balance int64, cfg models.AppConfig) []Notification {
	a.CurrentBalance = models.NewBalance(balance)

	var out []Notification
	for _, alert := range analytics.Alerts(a, cfg.LowBalanceThreshold, cfg.CriticalBalanceThreshold) {
		if note, ok := fromAlert(alert); ok {
			out = append(out, note)
		}
	}

	if rate := a.UsageRatePerHour; rate > 0 && rate > a.AverageSessionUsage*highUsageFactor {
		out = append(out, Notification{IDHighUsage, "High Usage Detected",
			fmt.Sprintf("Current usage rate (%.1f/hour) is significantly higher than average", rate)})
	}

	return out
}

func fromAlert(alert analytics.Alert) (Notification, bool) {
	critical := alert.Level == analytics.LevelCritical
	switch {
	case alert.Subject == analytics.SubjectBalance && critical:
		return Notification{IDCriticalBalance, "Critical Balance Alert", alert.Message}, true
	case alert.Subject == analytics.SubjectBalance:
		return Notification{IDLowBalance, "Low Balance Warning", alert.Message}, true
	case alert.Subject == analytics.SubjectDepletion && critical:
		return Notification{IDTimeCritical, "Credits Depleting Soon", alert.Message}, true
	case alert.Subject == analytics.SubjectDepletion:
		return Notification{IDTimeWarning, "Credits Running Low", alert.Message}, true
	}
	return Notification{}, false
}

// Check evaluates and sends whatever is due. It returns the ids that were
// delivered. Nothing is sent when notifications are disabled.
func (n *Notifier) Check(a models.LegacyAnalytics, balance int64, cfg models.AppConfig) []string {
	if !cfg.EnableNotifications {
		return nil
	}

	var sent []string
	for _, note := range Evaluate(a, balance, cfg) {
		if n.sendIfDue(note, cfg.EnableSoundAlerts) {
			sent = append(sent, note.ID)
		}
	}
	return sent
}

// sendIfDue records the send time only when delivery succeeds, so a failed
// notification is retried on the next check.
func (n *Notifier) sendIfDue(note Notification, sound bool) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if last, ok := n.last[note.ID]; ok && now.Sub(last) < Cooldown {
		return false
	}

	if err := n.send(note.Title, note.Body, sound); err != nil {
		logger.Error("failed to send notification", "id", note.ID, "error", err)
		return false
	}

	n.last[note.ID] = now
	logger.Info("sent notification", "id", note.ID, "title", note.Title)
	return true
}
