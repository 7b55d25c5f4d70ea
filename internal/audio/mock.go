package audio

import (
	"context"
	"sync"
)

// MockSink is an in-memory Sink for tests. It records every accepted level.
type MockSink struct {
	mu     sync.Mutex
	min    float64
	max    float64
	levels []float64
	err    error
	closed bool
}

// NewMockSink creates a MockSink with the given range.
func NewMockSink(min, max float64) *MockSink {
	return &MockSink{min: min, max: max}
}

// SetError makes subsequent SetLevel calls fail with err.
func (m *MockSink) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockSink) Range() (min, max float64) {
	return m.min, m.max
}

func (m *MockSink) SetLevel(ctx context.Context, level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if err := checkLevel(level, m.min, m.max); err != nil {
		return err
	}
	m.levels = append(m.levels, level)
	return nil
}

// Levels returns a copy of the accepted levels in call order.
func (m *MockSink) Levels() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.levels...)
}

// Closed reports whether Close was called.
func (m *MockSink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
