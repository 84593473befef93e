package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
)

// NotificationType is the severity of a toast.
type NotificationType int

// Toast severities. Loading toasts carry a spinner and never expire.
const (
	NotificationSuccess NotificationType = iota
	NotificationError
	NotificationWarning
	NotificationInfo
	NotificationLoading
)

var notificationNames = [...]string{"success", "error", "warning", "info"}

func (n NotificationType) String() string {
	if n >= 0 && int(n) < len(notificationNames) {
		return notificationNames[n]
	}
	return "unknown"
}

const (
	// loadingToastID is reused so there is at most one loading toast.
	loadingToastID = "loading"

	maxToasts = 5
)

// Toast is one message in the corner of the screen.
type Toast struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	// TTL of zero keeps the toast until it is removed.
	TTL time.Duration
}

func (t Toast) expired(now time.Time) bool {
	return t.TTL > 0 && now.Sub(t.CreatedAt) > t.TTL
}

type toastQueue struct {
	mu    sync.Mutex
	items []Toast
	seq   int
	now   func() time.Time
}

func newToastQueue() *toastQueue {
	return &toastQueue{now: time.Now}
}

// push appends a toast and returns its ID. Only the newest maxToasts are kept.
func (q *toastQueue) push(kind NotificationType, message string, ttl time.Duration) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	id := "t" + strconv.Itoa(q.seq)
	q.items = append(q.items, Toast{ID: id, Type: kind, Message: message, CreatedAt: q.now(), TTL: ttl})
	if extra := len(q.items) - maxToasts; extra > 0 {
		q.items = q.items[extra:]
	}
	return id
}

func (q *toastQueue) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = lo.Reject(q.items, func(t Toast, _ int) bool { return t.ID == id })
}

func (q *toastQueue) sweep() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	q.items = lo.Reject(q.items, func(t Toast, _ int) bool { return t.expired(now) })
}

func (q *toastQueue) live() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	return lo.Filter(q.items, func(t Toast, _ int) bool { return !t.expired(now) })
}

// setLoading shows message in the single loading toast.
func (q *toastQueue) setLoading(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, i, ok := lo.FindIndexOf(q.items, func(t Toast) bool { return t.ID == loadingToastID }); ok {
		q.items[i].Message = message
		return
	}
	q.items = append(q.items, Toast{ID: loadingToastID, Type: NotificationLoading, Message: message, CreatedAt: q.now()})
}

func (q *toastQueue) clearLoading() {
	q.remove(loadingToastID)
}
