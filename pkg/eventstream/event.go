// Package eventstream publishes memory lifecycle events to an event stream
// backend. Downstream consumers use them for audit trails and for detecting
// index drift that calls for a re-index.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryIngested is emitted after conversation records are
	// committed to the vector index.
	EventTypeMemoryIngested = "recall.memory.ingested"

	// EventTypeSessionForgotten is emitted after a session's records are
	// deleted from the vector index.
	EventTypeSessionForgotten = "recall.session.forgotten"
)

// MemoryIngestedEvent is a transport-neutral payload for a committed ingest.
type MemoryIngestedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	RecordIDs     []string  `json:"record_ids"`
}

// SessionForgottenEvent is a transport-neutral payload for a session delete.
type SessionForgottenEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	SessionID     string    `json:"session_id"`
	Deleted       int       `json:"deleted"`
}

// NewMemoryIngestedEvent builds a v1 ingest event.
func NewMemoryIngestedEvent(userID, sessionID string, recordIDs []string) *MemoryIngestedEvent {
	return &MemoryIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeMemoryIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		UserID:        userID,
		SessionID:     sessionID,
		RecordIDs:     recordIDs,
	}
}

// NewSessionForgottenEvent builds a v1 forget event.
func NewSessionForgottenEvent(sessionID string, deleted int) *SessionForgottenEvent {
	return &SessionForgottenEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionForgotten,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		SessionID:     sessionID,
		Deleted:       deleted,
	}
}
