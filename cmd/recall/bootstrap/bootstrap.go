// Package bootstrap resolves configuration into the wired runtime shared
// by the recall commands: vector index, embedder, event publisher, and the
// memory store composed from them.
package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/dotdir"
	"github.com/lumihq/recall/pkg/embeddings"
	embeddingutils "github.com/lumihq/recall/pkg/embeddings/utils"
	"github.com/lumihq/recall/pkg/eventstream"
	"github.com/lumihq/recall/pkg/eventstream/kafka"
	"github.com/lumihq/recall/pkg/eventstream/nop"
	"github.com/lumihq/recall/pkg/memory"
	"github.com/lumihq/recall/pkg/vector"
	vectorutils "github.com/lumihq/recall/pkg/vector/utils"
)

// Settings is the flat, resolved view of the configuration after the full
// viper precedence chain (flags > env > config file > defaults).
type Settings struct {
	APIListen   string
	PostgresURL string

	VectorProvider string
	VectorTarget   string
	VectorPath     string
	VectorAPIKey   string
	Collection     string

	EmbeddingProvider string
	EmbeddingTarget   string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	Dimensions        uint

	ChunkSize      uint
	ChunkOverlap   uint
	TopK           uint
	TimeoutSeconds uint

	EventBrokers string
	EventTopic   string
}

// Resolve reads all settings out of a configured viper instance.
func Resolve(v *viper.Viper) Settings {
	return Settings{
		APIListen:   v.GetString("api.listen"),
		PostgresURL: v.GetString("storage.postgres_url"),

		VectorProvider: v.GetString("vector_store.provider"),
		VectorTarget:   v.GetString("vector_store.target"),
		VectorPath:     v.GetString("vector_store.path"),
		VectorAPIKey:   v.GetString("vector_store.api_key"),
		Collection:     v.GetString("vector_store.collection"),

		EmbeddingProvider: v.GetString("embedding.provider"),
		EmbeddingTarget:   v.GetString("embedding.target"),
		EmbeddingModel:    v.GetString("embedding.model"),
		EmbeddingAPIKey:   v.GetString("embedding.api_key"),
		Dimensions:        v.GetUint("embedding.dimensions"),

		ChunkSize:      v.GetUint("memory.chunk_size"),
		ChunkOverlap:   v.GetUint("memory.chunk_overlap"),
		TopK:           v.GetUint("memory.top_k"),
		TimeoutSeconds: v.GetUint("memory.timeout_seconds"),

		EventBrokers: v.GetString("events.brokers"),
		EventTopic:   v.GetString("events.topic"),
	}
}

// Runtime holds the wired components behind a memory store. Close releases
// them in reverse construction order.
type Runtime struct {
	Store     *memory.Store
	Index     vector.Index
	Embedder  embeddings.Embedder
	Publisher eventstream.Publisher

	logger *zap.Logger
}

// NewRuntime wires an index, embedder, and publisher from settings and
// composes them into a memory store.
func NewRuntime(ctx context.Context, s Settings, configDir string, logger *zap.Logger) (*Runtime, error) {
	index, err := vectorutils.NewIndex(ctx, &vectorutils.NewIndexOpts{
		ProviderType: s.VectorProvider,
		Path:         resolveVectorPath(s, configDir),
		Target:       s.VectorTarget,
		APIKey:       s.VectorAPIKey,
		Collection:   s.Collection,
		Dimensions:   s.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector index: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: s.EmbeddingProvider,
		TargetURL:    s.EmbeddingTarget,
		Model:        s.EmbeddingModel,
		APIKey:       s.EmbeddingAPIKey,
	})
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	publisher, err := newPublisher(s, logger)
	if err != nil {
		embedder.Close()
		index.Close()
		return nil, err
	}

	store, err := memory.NewStore(embedder, index, publisher, memory.Config{
		CollectionName: s.Collection,
		ChunkSize:      int(s.ChunkSize),
		ChunkOverlap:   int(s.ChunkOverlap),
		TopK:           int(s.TopK),
		Timeout:        time.Duration(s.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		publisher.Close()
		embedder.Close()
		index.Close()
		return nil, fmt.Errorf("creating memory store: %w", err)
	}

	return &Runtime{
		Store:     store,
		Index:     index,
		Embedder:  embedder,
		Publisher: publisher,
		logger:    logger,
	}, nil
}

// Close releases the runtime's components. Errors are logged, not returned;
// shutdown should not stop halfway.
func (r *Runtime) Close() {
	if err := r.Publisher.Close(); err != nil {
		r.logger.Warn("closing event publisher", zap.Error(err))
	}
	if err := r.Embedder.Close(); err != nil {
		r.logger.Warn("closing embedder", zap.Error(err))
	}
	if err := r.Index.Close(); err != nil {
		r.logger.Warn("closing vector index", zap.Error(err))
	}
}

func newPublisher(s Settings, logger *zap.Logger) (eventstream.Publisher, error) {
	if s.EventBrokers == "" {
		return nop.NewPublisher(), nil
	}

	brokers := strings.Split(s.EventBrokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   s.EventTopic,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}
	return publisher, nil
}

// resolveVectorPath picks the on-disk location for embedded backends when
// none is configured: the resolved .recall/ directory, or the working
// directory as a last resort.
func resolveVectorPath(s Settings, configDir string) string {
	if s.VectorPath != "" {
		return s.VectorPath
	}

	base := ""
	if target, err := dotdir.NewManager().Target(configDir); err == nil {
		base = target
	}

	switch s.VectorProvider {
	case "sqlite":
		return filepath.Join(base, "memory.db")
	case "chromem":
		return filepath.Join(base, "memory")
	default:
		return ""
	}
}
