package events

import (
	"context"
	"log/slog"
	"sync"
)

// Publisher delivers end-of-call records to the history collaborator.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// NoopPublisher drops records after logging them.
type NoopPublisher struct{}

// NewNoopPublisher creates a NoopPublisher.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (*NoopPublisher) Publish(_ context.Context, rec Record) error {
	slog.Debug("[Events] Dropping record", "session_id", rec.SessionID, "reason", rec.Reason)
	return nil
}

func (*NoopPublisher) Close() error { return nil }

// MockPublisher records all publishes for test assertions.
type MockPublisher struct {
	mu      sync.Mutex
	records []Record
	closed  bool
	err     error // if set, Publish returns this error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns a copy of all published records.
func (m *MockPublisher) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Closed returns whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetError causes all subsequent Publish calls to return err.
// Pass nil to clear.
func (m *MockPublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
