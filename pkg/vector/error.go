package vector

import "errors"

var (
	// ErrNotFound is returned when a record is not found in the index.
	ErrNotFound = errors.New("record not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the index backend is unreachable or
	// rejects a request.
	ErrConnection = errors.New("vector index connection failed")

	// ErrDimensionMismatch is returned when an upserted embedding does not
	// match the collection's configured dimensions. Mixing embedding models
	// without re-indexing corrupts similarity search, so it is rejected.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrBadFilter is returned when a filter references an unknown
	// metadata field.
	ErrBadFilter = errors.New("invalid metadata filter")
)
