// Package embeddings defines the text embedding provider contract.
package embeddings

import "context"

// Embedder converts text into fixed-length vector embeddings.
//
// Whether the backing model is a local server or a remote API is a
// deployment-time choice; callers only depend on these two operations.
type Embedder interface {
	// EmbedDocuments converts a batch of texts into embeddings, one vector
	// per input, order-preserving. Implementations batch the call when the
	// underlying API supports it.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery converts a single query text into an embedding. Backends
	// that distinguish query and document encoding may use the query mode.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
