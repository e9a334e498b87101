package mocks

import (
	"time"

	"github.com/coderipple/coderipple-go/internal/dependencies/clock"
)

// MockClock is a Clock frozen at a settable instant
type MockClock struct {
	CurrentTime time.Time
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock frozen at t
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the frozen instant
func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

// Advance moves the clock forward by d
func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set jumps the clock to t
func (c *MockClock) Set(t time.Time) {
	c.CurrentTime = t
}
