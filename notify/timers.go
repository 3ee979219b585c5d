// Package notify holds time-boxed user notifications and the keyed timers
// behind every deferred side effect of the storefront.
package notify

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// RealScheduler schedules on the runtime timer heap.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

type pending struct {
	stop Stopper
}

// Timers tracks scheduled callbacks by key. Scheduling a key that is already
// pending replaces the earlier task.
type Timers struct {
	mu    sync.Mutex
	sched Scheduler
	tasks map[string]*pending
}

// NewTimers builds Timers on sched, or on RealScheduler when sched is nil.
func NewTimers(sched Scheduler) *Timers {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Timers{
		sched: sched,
		tasks: make(map[string]*pending),
	}
}

// Schedule runs fn after delay under key. It reports whether an earlier
// pending task for the same key was cancelled.
func (t *Timers) Schedule(key string, delay time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	replaced := false
	if old, ok := t.tasks[key]; ok {
		old.stop.Stop()
		replaced = true
	}

	p := &pending{}
	t.tasks[key] = p
	p.stop = t.sched.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.tasks[key] != p {
			// superseded or cancelled after the timer already fired
			t.mu.Unlock()
			return
		}
		delete(t.tasks, key)
		t.mu.Unlock()
		fn()
	})
	return replaced
}

// Cancel stops the task under key. It reports whether one was pending.
func (t *Timers) Cancel(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.tasks[key]
	if !ok {
		return false
	}
	p.stop.Stop()
	delete(t.tasks, key)
	return true
}

// Pending reports whether a task is scheduled under key.
func (t *Timers) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.tasks[key]
	return ok
}

// Stop cancels every pending task.
func (t *Timers) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, p := range t.tasks {
		p.stop.Stop()
		delete(t.tasks, key)
	}
}
