package eventstream

import "context"

// Publisher publishes memory lifecycle events to an event stream backend.
type Publisher interface {
	PublishIngested(ctx context.Context, event *MemoryIngestedEvent) error
	PublishForgotten(ctx context.Context, event *SessionForgottenEvent) error
	Close() error
}
