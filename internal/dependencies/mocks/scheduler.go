package mocks

import (
	"sync"
	"time"

	"github.com/coderipple/coderipple-go/internal/dependencies/clock"
)

// ScheduledTask is a deferred function captured by the MockScheduler
type ScheduledTask struct {
	Delay time.Duration
	fn    func()

	mu      sync.Mutex
	fired   bool
	stopped bool
}

// Stop marks the task cancelled if it has not fired yet
func (t *ScheduledTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Fire runs the task synchronously unless it was stopped or already fired
func (t *ScheduledTask) Fire() {
	t.mu.Lock()
	if t.fired || t.stopped {
		t.mu.Unlock()
		return
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

// Stopped reports whether the task was cancelled before firing
func (t *ScheduledTask) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// MockScheduler captures deferred work so tests can fire it deterministically
type MockScheduler struct {
	mu    sync.Mutex
	tasks []*ScheduledTask
}

// Ensure MockScheduler implements Scheduler
var _ clock.Scheduler = (*MockScheduler)(nil)

// NewMockScheduler creates a new MockScheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{}
}

// AfterFunc records the task instead of scheduling it
func (s *MockScheduler) AfterFunc(d time.Duration, fn func()) clock.Task {
	task := &ScheduledTask{Delay: d, fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return task
}

// Tasks returns all captured tasks in scheduling order
func (s *MockScheduler) Tasks() []*ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ScheduledTask, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// FireAll runs every pending task in scheduling order
func (s *MockScheduler) FireAll() {
	for _, task := range s.Tasks() {
		task.Fire()
	}
}
