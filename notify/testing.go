package notify

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler fires callbacks only when Advance moves its clock past
// their deadline. It lets callers drive deferred effects deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
	owner   *ManualScheduler
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewManualScheduler starts a scheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{at: s.now + d, fn: f, owner: s}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock by d and runs every due callback in deadline order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTask
	rest := s.tasks[:0]
	for _, t := range s.tasks {
		switch {
		case t.stopped:
		case t.at <= s.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	s.tasks = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// Waiting counts callbacks that are scheduled and not stopped.
func (s *ManualScheduler) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}
