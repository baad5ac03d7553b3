// Package chromem provides a pure-Go persistent vector index backed by
// chromem-go. It needs no external service or cgo, which makes it the
// default backend for local deployments.
package chromem

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	chromemgo "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/vector"
)

// DefaultCollectionName is the default collection for conversation memory.
const DefaultCollectionName = "chat_history"

// Index implements vector.Index using chromem-go.
type Index struct {
	db *chromemgo.DB

	// mu guards collection: a full wipe drops and recreates the
	// underlying chromem collection, swapping the pointer.
	mu         sync.RWMutex
	collection *chromemgo.Collection

	collectionName string
	dimensions     uint
	logger         *zap.Logger
}

// col returns the current collection for read paths.
func (x *Index) col() *chromemgo.Collection {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.collection
}

// Config holds configuration for the chromem index.
type Config struct {
	// PersistDir is the directory the database is persisted to. Empty runs
	// fully in-memory (useful for tests).
	PersistDir string

	// CollectionName names the collection. Defaults to
	// DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the expected embedding dimension count. Must be
	// configured; upserts with a different dimension are rejected.
	Dimensions uint
}

// NewIndex opens a chromem-backed index. A persist directory holding an
// existing collection is attached to without clearing prior data.
func NewIndex(c Config, logger *zap.Logger) (*Index, error) {
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("chromem embedding dimensions cannot be 0, must be configured")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	var db *chromemgo.DB
	var err error
	if c.PersistDir == "" {
		db = chromemgo.NewDB()
	} else {
		db, err = chromemgo.NewPersistentDB(c.PersistDir, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening persistent db: %v", vector.ErrConnection, err)
		}
	}

	// Embeddings are always provided by the caller, so no embedding func is
	// registered on the collection.
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: get or create collection %q: %v", vector.ErrConnection, collectionName, err)
	}

	logger.Info("chromem index initialized",
		zap.String("persist_dir", c.PersistDir),
		zap.String("collection", collectionName),
		zap.Int("existing_documents", col.Count()),
	)

	return &Index{
		db:             db,
		collection:     col,
		collectionName: collectionName,
		dimensions:     c.Dimensions,
		logger:         logger,
	}, nil
}

// Upsert stores records durably and returns the assigned IDs in input order.
func (x *Index) Upsert(ctx context.Context, records []vector.Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(records))
	docs := make([]chromemgo.Document, 0, len(records))
	for _, rec := range records {
		if uint(len(rec.Embedding)) != x.dimensions {
			return nil, fmt.Errorf("%w: record has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, len(rec.Embedding), x.dimensions)
		}

		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids = append(ids, id)

		docs = append(docs, chromemgo.Document{
			ID:        id,
			Content:   rec.Content,
			Embedding: rec.Embedding,
			Metadata:  rec.Metadata,
		})
	}

	if err := x.col().AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("%w: adding documents: %v", vector.ErrConnection, err)
	}

	x.logger.Debug("upserted records into chromem",
		zap.Int("count", len(docs)),
	)

	return ids, nil
}

// Query returns up to topK records matching the filter, ascending by
// distance. chromem scores cosine similarity (higher = closer); scores are
// converted to distances to keep the lower-is-better contract.
func (x *Index) Query(ctx context.Context, embedding []float32, topK int, filter vector.Filter) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	col := x.col()

	// chromem rejects nResults larger than the collection, and an empty
	// collection is not an error for callers.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := col.QueryEmbedding(ctx, embedding, topK, filter.ToMap(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying collection: %v", vector.ErrConnection, err)
	}

	out := make([]vector.QueryResult, 0, len(results))
	for _, res := range results {
		out = append(out, vector.QueryResult{
			Record: vector.Record{
				ID:        res.ID,
				Embedding: res.Embedding,
				Content:   res.Content,
				Metadata:  res.Metadata,
			},
			Score: 1 - res.Similarity,
		})
	}

	x.logger.Debug("queried chromem",
		zap.Int("results", len(out)),
	)

	return out, nil
}

// DeleteWhere removes every record matching the filter and reports how many
// were deleted. chromem's delete does not report a count, so it is derived
// from the collection size before and after.
func (x *Index) DeleteWhere(ctx context.Context, filter vector.Filter) (int, error) {
	if err := filter.Validate(); err != nil {
		return 0, err
	}

	// An empty filter means "everything"; chromem's document-level delete
	// needs at least one constraint, so drop and recreate the collection.
	// The swap holds the write lock so concurrent reads never see a
	// deleted collection.
	if len(filter) == 0 {
		x.mu.Lock()
		defer x.mu.Unlock()

		before := x.collection.Count()
		if before == 0 {
			return 0, nil
		}
		if err := x.db.DeleteCollection(x.collectionName); err != nil {
			return 0, fmt.Errorf("%w: deleting collection: %v", vector.ErrConnection, err)
		}
		col, err := x.db.GetOrCreateCollection(x.collectionName, nil, nil)
		if err != nil {
			return 0, fmt.Errorf("%w: recreating collection: %v", vector.ErrConnection, err)
		}
		x.collection = col
		return before, nil
	}

	col := x.col()
	before := col.Count()
	if before == 0 {
		return 0, nil
	}

	if err := col.Delete(ctx, filter.ToMap(), nil); err != nil {
		return 0, fmt.Errorf("%w: deleting documents: %v", vector.ErrConnection, err)
	}

	deleted := before - col.Count()
	x.logger.Debug("deleted records from chromem",
		zap.Int("count", deleted),
	)

	return deleted, nil
}

// Count returns the total number of records in the collection.
func (x *Index) Count(_ context.Context) (int, error) {
	return x.col().Count(), nil
}

// Close releases resources held by the index. chromem persists on write, so
// there is nothing to flush.
func (x *Index) Close() error {
	return nil
}

var _ vector.Index = (*Index)(nil)
