package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/chunker"
	"github.com/lumihq/recall/pkg/embeddings"
	"github.com/lumihq/recall/pkg/eventstream"
	"github.com/lumihq/recall/pkg/eventstream/nop"
	"github.com/lumihq/recall/pkg/vector"
)

// Store orchestrates chunking, embedding, and vector indexing of
// conversation memory.
type Store struct {
	chunker   *chunker.Chunker
	embedder  embeddings.Embedder
	index     vector.Index
	publisher eventstream.Publisher
	config    Config
	logger    *zap.Logger
}

// NewStore creates a Store. Construct once at startup and inject into
// request handlers; the embedder and index hold open connections or loaded
// models and are meant to live for the process lifetime.
func NewStore(embedder embeddings.Embedder, index vector.Index, publisher eventstream.Publisher, config Config, logger *zap.Logger) (*Store, error) {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = DefaultConfig().ChunkOverlap
	}
	if config.TopK <= 0 {
		config.TopK = DefaultConfig().TopK
	}
	if config.CollectionName == "" {
		config.CollectionName = DefaultConfig().CollectionName
	}

	ch, err := chunker.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}

	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	return &Store{
		chunker:   ch,
		embedder:  embedder,
		index:     index,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}, nil
}

// opContext bounds an operation by the configured timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

// Ingest chunks and embeds a conversation, persists the resulting records,
// and reports how many were written. All chunks from all turns are embedded
// in one batched call and upserted in one call, so a failure anywhere
// commits nothing. An empty conversation, or one whose turns are all empty,
// is a no-op.
func (s *Store) Ingest(ctx context.Context, userID, sessionID string, conversation []ConversationTurn) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var texts []string
	var records []vector.Record
	for i, turn := range conversation {
		// Skip empty turns before serializing; the role prefixes alone
		// carry no memory worth embedding.
		if turn.User == "" && turn.Assistant == "" {
			continue
		}
		content := fmt.Sprintf("user: %s\nassistant: %s", turn.User, turn.Assistant)

		for _, chunk := range s.chunker.Split(content) {
			texts = append(texts, chunk)
			records = append(records, vector.Record{
				Content: chunk,
				Metadata: map[string]string{
					vector.FieldUserID:       userID,
					vector.FieldSessionID:    sessionID,
					vector.FieldMessageIndex: strconv.Itoa(i),
					vector.FieldType:         recordType,
					vector.FieldChunkID:      uuid.NewString(),
				},
			})
		}
	}

	if len(records) == 0 {
		s.logger.Debug("nothing to ingest",
			zap.String("user_id", userID),
			zap.String("session_id", sessionID),
		)
		return 0, nil
	}

	vecs, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks: %w", len(texts), err)
	}
	if len(vecs) != len(records) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			vector.ErrEmbedding, len(vecs), len(records))
	}
	for i := range records {
		records[i].Embedding = vecs[i]
	}

	ids, err := s.index.Upsert(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("upserting %d records: %w", len(records), err)
	}

	s.logger.Info("ingested conversation",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("turns", len(conversation)),
		zap.Int("records", len(ids)),
	)

	event := eventstream.NewMemoryIngestedEvent(userID, sessionID, ids)
	if err := s.publisher.PublishIngested(ctx, event); err != nil {
		// The index write already committed; event delivery is best effort.
		s.logger.Warn("publishing ingest event failed", zap.Error(err))
	}

	return len(ids), nil
}

// Retrieve returns up to k memories relevant to the query, scoped to the
// user and, when sessionID is non-empty, to that session. k <= 0 uses the
// configured default. Results are ordered ascending by similarity score.
//
// A non-nil error means the lookup failed rather than found nothing;
// callers that cannot use degraded context may treat both the same way.
func (s *Store) Retrieve(ctx context.Context, query, userID, sessionID string, k int) ([]RetrievalResult, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if k <= 0 {
		k = s.config.TopK
	}

	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	filter := vector.Filter{}.Eq(vector.FieldUserID, userID)
	if sessionID != "" {
		filter = filter.Eq(vector.FieldSessionID, sessionID)
	}

	hits, err := s.index.Query(ctx, embedding, k, filter)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	results := make([]RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, RetrievalResult{
			Content:         hit.Content,
			Metadata:        metadataFromRecord(hit.Metadata),
			SimilarityScore: hit.Score,
		})
	}

	s.logger.Debug("retrieved memories",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Forget deletes every record ingested under the given session and reports
// how many were removed. A missing or already-empty session is success.
//
// The delete filter is session-only: session IDs are treated as unique
// across users in this system. See DESIGN.md for the scoping discussion.
func (s *Store) Forget(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	filter := vector.Filter{}.Eq(vector.FieldSessionID, sessionID)
	deleted, err := s.index.DeleteWhere(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("deleting session %s: %w", sessionID, err)
	}

	s.logger.Info("forgot session",
		zap.String("session_id", sessionID),
		zap.Int("deleted", deleted),
	)

	if deleted > 0 {
		event := eventstream.NewSessionForgottenEvent(sessionID, deleted)
		if err := s.publisher.PublishForgotten(ctx, event); err != nil {
			s.logger.Warn("publishing forget event failed", zap.Error(err))
		}
	}

	return deleted, nil
}

// Stats reports the total record count and collection name. On a count
// failure the returned Stats is zero-valued and the error describes the
// failure; diagnostics must not take the caller down with them.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	count, err := s.index.Count(ctx)
	if err != nil {
		return Stats{CollectionName: s.config.CollectionName}, fmt.Errorf("counting records: %w", err)
	}

	return Stats{
		TotalDocuments: count,
		CollectionName: s.config.CollectionName,
	}, nil
}

// metadataFromRecord converts the index's flat metadata map back into the
// typed form.
func metadataFromRecord(md map[string]string) RecordMetadata {
	idx, _ := strconv.Atoi(md[vector.FieldMessageIndex])
	return RecordMetadata{
		UserID:       md[vector.FieldUserID],
		SessionID:    md[vector.FieldSessionID],
		MessageIndex: idx,
		Type:         md[vector.FieldType],
		ChunkID:      md[vector.FieldChunkID],
	}
}
