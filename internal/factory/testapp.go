package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/coderipple/coderipple-go/internal/dependencies/mocks"
	"github.com/coderipple/coderipple-go/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockRandom    *mocks.MockRandom
	MockScheduler *mocks.MockScheduler
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	mockScheduler := mocks.NewMockScheduler()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(store, mockClock, mockScheduler, mockRandom, nil, logger)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockRandom:    mockRandom,
		MockScheduler: mockScheduler,
	}
}
