package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumihq/recall/pkg/eventstream"
)

// MockPublisher records published events for assertions.
type MockPublisher struct {
	mu        sync.Mutex
	Ingested  []*eventstream.MemoryIngestedEvent
	Forgotten []*eventstream.SessionForgottenEvent

	// FailAll causes every publish to return an error.
	FailAll bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishIngested(_ context.Context, event *eventstream.MemoryIngestedEvent) error {
	if m.FailAll {
		return fmt.Errorf("mock publish failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ingested = append(m.Ingested, event)
	return nil
}

func (m *MockPublisher) PublishForgotten(_ context.Context, event *eventstream.SessionForgottenEvent) error {
	if m.FailAll {
		return fmt.Errorf("mock publish failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Forgotten = append(m.Forgotten, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*MockPublisher)(nil)
