package config

const (
	defaultAPIListen = ":8081"

	defaultVectorProvider   = "chromem"
	defaultVectorCollection = "chat_history"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultChunkSize      = 1000
	defaultChunkOverlap   = 200
	defaultTopK           = 5
	defaultTimeoutSeconds = 30

	defaultEventsTopic = "recall.memory.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Memory: MemoryConfig{
			ChunkSize:      defaultChunkSize,
			ChunkOverlap:   defaultChunkOverlap,
			TopK:           defaultTopK,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Events: EventsConfig{
			Topic: defaultEventsTopic,
		},
	}
}
