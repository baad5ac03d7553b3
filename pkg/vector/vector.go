// Package vector provides interfaces and implementations for persistent
// vector storage with metadata-scoped similarity retrieval.
package vector

import "context"

// Metadata field names shared by all index backends. Filters may only
// reference these fields.
const (
	FieldUserID       = "user_id"
	FieldSessionID    = "session_id"
	FieldMessageIndex = "message_index"
	FieldType         = "type"
	FieldChunkID      = "chunk_id"
)

// Record is a stored (vector, text, metadata) triple.
type Record struct {
	// ID is a unique identifier for the record. Assigned at write time when
	// empty; never reused.
	ID string

	// Embedding is the vector representation of Content. Its length must
	// match the index dimensions for the lifetime of the collection.
	Embedding []float32

	// Content is the chunk text the embedding was computed from.
	Content string

	// Metadata holds the exact-match attributes the record can be scoped by.
	Metadata map[string]string
}

// QueryResult is a similarity search hit.
type QueryResult struct {
	Record

	// Score is the distance between the query vector and the record vector
	// under the backend's metric. Lower means more similar; results are
	// ordered ascending.
	Score float32
}

// Index handles durable storage and retrieval of embedded records.
//
// Opening an index against an existing persisted collection attaches to the
// existing data; opening against a new name creates an empty collection.
type Index interface {
	// Upsert stores records durably and returns the assigned IDs in input
	// order. Records without an ID are assigned a fresh one.
	Upsert(ctx context.Context, records []Record) ([]string, error)

	// Query returns up to topK records matching the filter, ordered
	// ascending by Score. An empty collection yields an empty slice.
	Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]QueryResult, error)

	// DeleteWhere removes every record matching the filter and reports how
	// many were deleted. Deleting zero records is not an error.
	DeleteWhere(ctx context.Context, filter Filter) (int, error)

	// Count returns the total number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the index.
	Close() error
}
