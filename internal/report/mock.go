package report

import (
	"context"
	"sync"
)

// Mock implements Generator for testing.
type Mock struct {
	// GenerateFunc is called when Generate is invoked.
	GenerateFunc func(ctx context.Context, closedSeconds float64, location string) (string, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Generate invocation.
type MockCall struct {
	ClosedSeconds float64
	Location      string
}

// NewMock creates a mock that returns a canned report.
func NewMock() *Mock {
	return &Mock{
		GenerateFunc: func(ctx context.Context, closedSeconds float64, location string) (string, error) {
			return "Mock incident report", nil
		},
	}
}

// Generate records the call and delegates to GenerateFunc.
func (m *Mock) Generate(ctx context.Context, closedSeconds float64, location string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{ClosedSeconds: closedSeconds, Location: location})
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, closedSeconds, location)
	}
	return "", ErrNoAPIKey
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}
