// Package transcripts persists canonical chat transcripts in PostgreSQL.
//
// The transcript store is the source of truth; the vector index is a
// derived artifact. Consistency between the two is eventual, and repair is
// by re-indexing from here (recall reindex).
package transcripts

import (
	"context"
	"time"
)

// Turn is a single stored user/assistant exchange.
type Turn struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	SessionID        string    `json:"session_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store persists and retrieves chat transcripts.
type Store interface {
	// SaveTurn appends a turn to the transcript.
	SaveTurn(ctx context.Context, turn Turn) error

	// RecentTurns returns the most recent turns for a session in
	// chronological order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]Turn, error)

	// IterateTurns streams every stored turn ordered by user, session,
	// and time, invoking fn for each. Returning false from fn stops the
	// iteration. Used by re-indexing.
	IterateTurns(ctx context.Context, fn func(Turn) bool) error

	// Close releases resources.
	Close() error
}
