package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityError   Severity = "error"
)

// DefaultDuration is how long a notification stays up when the caller passes zero.
const DefaultDuration = 2 * time.Second

// Notification is one fire-and-forget user message.
type Notification struct {
	ID        string        `json:"id"`
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Queue holds the notifications currently on screen and dismisses each one
// when its duration elapses.
type Queue struct {
	mu     sync.Mutex
	items  []Notification
	timers *Timers
	logger *zap.Logger
	now    func() time.Time
}

// NewQueue builds a Queue whose auto-dismissals run on timers.
func NewQueue(timers *Timers, logger *zap.Logger) *Queue {
	if timers == nil {
		timers = NewTimers(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		timers: timers,
		logger: logger,
		now:    time.Now,
	}
}

// Notify shows message for d (DefaultDuration when d <= 0).
func (q *Queue) Notify(message string, severity Severity, d time.Duration) Notification {
	if d <= 0 {
		d = DefaultDuration
	}
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		Duration:  d,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()

	q.timers.Schedule(timerKey(n.ID), d, func() { q.remove(n.ID) })
	q.logger.Debug("notification shown",
		zap.String("notification_id", n.ID),
		zap.String("severity", string(severity)),
		zap.String("message", message),
		zap.Duration("duration", d),
	)
	return n
}

// Dismiss removes a notification early and cancels its timer.
func (q *Queue) Dismiss(id string) bool {
	q.timers.Cancel(timerKey(id))
	return q.remove(id)
}

// Active returns the notifications currently shown, oldest first.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.items...)
}

// Close cancels every pending dismissal.
func (q *Queue) Close() {
	q.mu.Lock()
	ids := make([]string, 0, len(q.items))
	for _, n := range q.items {
		ids = append(ids, n.ID)
	}
	q.mu.Unlock()
	for _, id := range ids {
		q.timers.Cancel(timerKey(id))
	}
}

func (q *Queue) remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func timerKey(id string) string { return "notification:" + id }
