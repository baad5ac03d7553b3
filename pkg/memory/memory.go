// Package memory gives conversational agents long-term memory: chat turns
// are chunked, embedded, and persisted in a vector index, then retrieved by
// semantic similarity scoped to a user and optionally a session.
//
// The Store composes three collaborators behind narrow contracts:
//
//   - chunker.Chunker splits a turn's text into bounded overlapping chunks
//   - embeddings.Embedder maps chunks and queries to vectors
//   - vector.Index persists records and answers filtered similarity queries
//
// A single Store instance is constructed at startup and shared across
// requests; it holds no cross-call mutable state, so all four operations are
// safe to invoke concurrently.
package memory

import "time"

// ConversationTurn is one user/assistant exchange supplied per ingest call.
// Turns are ephemeral input; the canonical transcript lives in the
// relational store, and the vector index is a derived artifact.
type ConversationTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// RecordMetadata is the metadata persisted with every indexed chunk.
type RecordMetadata struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	MessageIndex int    `json:"message_index"`
	Type         string `json:"type"`
	ChunkID      string `json:"chunk_id"`
}

// RetrievalResult is a single retrieved memory.
type RetrievalResult struct {
	Content  string         `json:"content"`
	Metadata RecordMetadata `json:"metadata"`

	// SimilarityScore is the distance between the query and the record
	// under the index's metric; lower means more similar.
	SimilarityScore float32 `json:"similarity_score"`
}

// Stats reports diagnostic information about the index.
type Stats struct {
	TotalDocuments int    `json:"total_documents"`
	CollectionName string `json:"collection_name"`
}

// recordType is the metadata type tag for conversation-derived records.
const recordType = "conversation"

// Config holds Store configuration.
type Config struct {
	// CollectionName is the name reported by Stats. It should match the
	// collection the index was opened against.
	CollectionName string

	// ChunkSize is the maximum chunk length in runes. Default 1000.
	ChunkSize int

	// ChunkOverlap is the tail overlap between consecutive chunks in
	// runes. Default 200.
	ChunkOverlap int

	// TopK is the default number of results for Retrieve. Default 5.
	TopK int

	// Timeout bounds each public operation. Zero disables the bound.
	Timeout time.Duration
}

// DefaultConfig returns the configuration matching the standard deployment.
func DefaultConfig() Config {
	return Config{
		CollectionName: "chat_history",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		TopK:           5,
		Timeout:        30 * time.Second,
	}
}
