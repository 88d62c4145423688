package governor

import (
	"sync"
	"time"
)

// Task is a pending delayed call.
type Task interface {
	// Cancel stops the call from running. It reports false if the call
	// already ran or was cancelled.
	Cancel() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// TimerScheduler runs tasks on time.AfterFunc timers.
type TimerScheduler struct{}

type timerTask struct{ t *time.Timer }

func (t timerTask) Cancel() bool { return t.t.Stop() }

func (TimerScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return timerTask{time.AfterFunc(d, fn)}
}

// FakeScheduler holds tasks until Fire is called.
type FakeScheduler struct {
	mu    sync.Mutex
	tasks []*FakeTask
}

type FakeTask struct {
	Delay time.Duration

	fn        func()
	mu        sync.Mutex
	cancelled bool
	fired     bool
}

func (t *FakeTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

func (t *FakeTask) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *FakeTask) fire() bool {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
	return true
}

func (s *FakeScheduler) AfterFunc(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &FakeTask{Delay: d, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Tasks returns every task scheduled so far, including cancelled ones.
func (s *FakeScheduler) Tasks() []*FakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*FakeTask(nil), s.tasks...)
}

// Fire runs every pending task synchronously and returns how many ran.
func (s *FakeScheduler) Fire() int {
	n := 0
	for _, t := range s.Tasks() {
		if t.fire() {
			n++
		}
	}
	return n
}
