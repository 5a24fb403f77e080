package timeline

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a toast.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Toast is a short user-visible notification.
type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier receives toasts. Implementations must not block.
type Notifier interface {
	Notify(t Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify calls f.
func (f NotifierFunc) Notify(t Toast) { f(t) }

// LogNotifier writes toasts to a logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

// Notify logs t.
func (n LogNotifier) Notify(t Toast) {
	if n.Log == nil {
		return
	}
	if t.Level == LevelError {
		n.Log.WithField("toast", true).Warn(t.Message)
		return
	}
	n.Log.WithField("toast", true).Info(t.Message)
}

// ToastQueue buffers toasts for a UI to drain. When full, the oldest toast
// is dropped.
type ToastQueue struct {
	mu    sync.Mutex
	items []Toast
	max   int
	ready chan struct{}
}

// NewToastQueue creates a queue holding at most max toasts.
func NewToastQueue(max int) *ToastQueue {
	if max <= 0 {
		max = 16
	}
	return &ToastQueue{max: max, ready: make(chan struct{}, 1)}
}

// Notify enqueues t.
func (q *ToastQueue) Notify(t Toast) {
	q.mu.Lock()
	if len(q.items) >= q.max {
		q.items = q.items[1:]
	}
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled whenever a toast is enqueued.
func (q *ToastQueue) Ready() <-chan struct{} {
	return q.ready
}

// Drain returns and clears all queued toasts.
func (q *ToastQueue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func infof(n Notifier, now time.Time, msg string) {
	if n != nil {
		n.Notify(Toast{Level: LevelInfo, Message: msg, At: now})
	}
}

func errorf(n Notifier, now time.Time, err error) {
	if n != nil {
		n.Notify(Toast{Level: LevelError, Message: err.Error(), At: now})
	}
}
