package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Task is a handle to scheduled work
type Task interface {
	// Stop cancels the task. It reports whether the cancellation
	// happened before the task ran.
	Stop() bool
}

// Scheduler runs a function after a delay without blocking the caller.
// It can be mocked so tests fire deferred work deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

// RealScheduler implements Scheduler using time.AfterFunc
type RealScheduler struct{}

// NewScheduler creates a new RealScheduler
func NewScheduler() *RealScheduler {
	return &RealScheduler{}
}

// AfterFunc schedules fn to run in its own goroutine after d
func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return timerTask{timer: time.AfterFunc(d, fn)}
}

type timerTask struct {
	timer *time.Timer
}

func (t timerTask) Stop() bool {
	return t.timer.Stop()
}
