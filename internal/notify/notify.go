// Package notify carries short user-visible messages ("toasts") from the
// sync engine and stores to the UI.
package notify

import (
	"sync"
	"time"
)

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// DefaultThrottle is the window in which a repeated message is dropped.
const DefaultThrottle = 2 * time.Second

const historySize = 20

// Notification is one delivered message.
type Notification struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier delivers messages, dropping exact repeats inside the throttle
// window. Each Notifier owns its own throttle state.
type Notifier struct {
	mu       sync.Mutex
	throttle time.Duration
	now      func() time.Time
	lastSeen map[string]time.Time
	recent   []Notification
	sink     func(Notification)
}

// New returns a Notifier. A zero throttle uses DefaultThrottle; a nil now
// uses time.Now.
func New(throttle time.Duration, now func() time.Time) *Notifier {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		throttle: throttle,
		now:      now,
		lastSeen: make(map[string]time.Time),
	}
}

// SetSink registers a callback invoked for every delivered notification.
func (n *Notifier) SetSink(fn func(Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sink = fn
}

func (n *Notifier) Info(msg string) bool    { return n.push(LevelInfo, msg) }
func (n *Notifier) Success(msg string) bool { return n.push(LevelSuccess, msg) }
func (n *Notifier) Error(msg string) bool   { return n.push(LevelError, msg) }

// Latest returns the most recent delivered notification.
func (n *Notifier) Latest() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.recent) == 0 {
		return Notification{}, false
	}
	return n.recent[len(n.recent)-1], true
}

// Recent returns up to the last historySize notifications, oldest first.
func (n *Notifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

// push reports whether the message was delivered.
func (n *Notifier) push(level Level, msg string) bool {
	n.mu.Lock()
	now := n.now()
	key := level.String() + "\x00" + msg
	if last, ok := n.lastSeen[key]; ok && now.Sub(last) < n.throttle {
		n.mu.Unlock()
		return false
	}
	n.lastSeen[key] = now
	for k, at := range n.lastSeen {
		if now.Sub(at) >= n.throttle {
			delete(n.lastSeen, k)
		}
	}
	item := Notification{Level: level, Message: msg, At: now}
	n.recent = append(n.recent, item)
	if len(n.recent) > historySize {
		n.recent = n.recent[len(n.recent)-historySize:]
	}
	sink := n.sink
	n.mu.Unlock()

	if sink != nil {
		sink(item)
	}
	return true
}
