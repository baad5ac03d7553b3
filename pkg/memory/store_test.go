package memory_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/memory"
	testutils "github.com/lumihq/recall/pkg/utils/test"
	"github.com/lumihq/recall/pkg/vector"
)

func TestMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Suite")
}

var _ = Describe("Store", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		index     *testutils.MockIndex
		publisher *testutils.MockPublisher
		store     *memory.Store
	)

	newStore := func(cfg memory.Config) *memory.Store {
		s, err := memory.NewStore(embedder, index, publisher, cfg, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockIndex()
		publisher = testutils.NewMockPublisher()
		store = newStore(memory.Config{})
	})

	Describe("Ingest", func() {
		It("persists one record per short turn with full metadata", func() {
			turns := []memory.ConversationTurn{
				{User: "hello", Assistant: "hi there"},
				{User: "how are you", Assistant: "fine"},
			}

			records, err := store.Ingest(ctx, "u1", "s1", turns)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal(2))

			stored := index.Records()
			Expect(stored).To(HaveLen(2))

			Expect(stored[0].Content).To(Equal("user: hello\nassistant: hi there"))
			Expect(stored[0].Metadata[vector.FieldUserID]).To(Equal("u1"))
			Expect(stored[0].Metadata[vector.FieldSessionID]).To(Equal("s1"))
			Expect(stored[0].Metadata[vector.FieldMessageIndex]).To(Equal("0"))
			Expect(stored[0].Metadata[vector.FieldType]).To(Equal("conversation"))
			Expect(stored[0].Metadata[vector.FieldChunkID]).NotTo(BeEmpty())

			Expect(stored[1].Metadata[vector.FieldMessageIndex]).To(Equal("1"))

			// Chunk IDs are fresh per record.
			Expect(stored[0].Metadata[vector.FieldChunkID]).NotTo(
				Equal(stored[1].Metadata[vector.FieldChunkID]))
		})

		It("embeds all chunks in a single batched call", func() {
			turns := []memory.ConversationTurn{
				{User: "a", Assistant: "b"},
				{User: "c", Assistant: "d"},
				{User: "e", Assistant: "f"},
			}

			_, err := store.Ingest(ctx, "u1", "s1", turns)
			Expect(err).NotTo(HaveOccurred())
			Expect(embedder.DocumentCalls).To(Equal(1))
		})

		It("treats an empty conversation as a no-op", func() {
			records, err := store.Ingest(ctx, "u1", "s1", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeZero())
			Expect(embedder.DocumentCalls).To(BeZero())
			Expect(index.Records()).To(BeEmpty())
		})

		It("treats a conversation of all-empty turns as a no-op", func() {
			records, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{}, {},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeZero())
			Expect(embedder.DocumentCalls).To(BeZero())
			Expect(index.Records()).To(BeEmpty())
		})

		It("skips empty turns but keeps the position of the rest", func() {
			records, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
				{},
				{User: "bye", Assistant: "see you"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal(2))

			stored := index.Records()
			Expect(stored).To(HaveLen(2))
			Expect(stored[0].Metadata[vector.FieldMessageIndex]).To(Equal("0"))
			Expect(stored[1].Metadata[vector.FieldMessageIndex]).To(Equal("2"))
		})

		It("commits nothing when embedding fails", func() {
			embedder.FailAll = true

			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
			})
			Expect(err).To(HaveOccurred())
			Expect(index.Records()).To(BeEmpty())
		})

		It("commits nothing when the index write fails", func() {
			index.FailUpsert = true

			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
			})
			Expect(err).To(HaveOccurred())
			Expect(index.Records()).To(BeEmpty())
		})

		It("splits a long turn into multiple records sharing a message index", func() {
			long := make([]byte, 0, 3000)
			for i := 0; i < 600; i++ {
				long = append(long, []byte("word ")...)
			}
			store = newStore(memory.Config{ChunkSize: 1000, ChunkOverlap: 200})

			records, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: string(long), Assistant: "short"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeNumerically(">", 1))

			for _, rec := range index.Records() {
				Expect(rec.Metadata[vector.FieldMessageIndex]).To(Equal("0"))
			}
		})

		It("publishes an ingest event after commit", func() {
			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Ingested).To(HaveLen(1))
			Expect(publisher.Ingested[0].UserID).To(Equal("u1"))
			Expect(publisher.Ingested[0].SessionID).To(Equal("s1"))
			Expect(publisher.Ingested[0].RecordIDs).To(HaveLen(1))
		})

		It("still succeeds when event publishing fails", func() {
			publisher.FailAll = true

			records, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal(1))
		})
	})

	Describe("Retrieve", func() {
		BeforeEach(func() {
			embedder.Embeddings["user: apples\nassistant: fruit"] = []float32{1, 0, 0}
			embedder.Embeddings["user: rockets\nassistant: space"] = []float32{0, 1, 0}
			embedder.Embeddings["user: pears\nassistant: also fruit"] = []float32{0.9, 0.1, 0}
			embedder.Embeddings["fruit query"] = []float32{1, 0, 0}

			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "apples", Assistant: "fruit"},
				{User: "rockets", Assistant: "space"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Ingest(ctx, "u1", "s2", []memory.ConversationTurn{
				{User: "pears", Assistant: "also fruit"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Ingest(ctx, "u2", "s3", []memory.ConversationTurn{
				{User: "apples", Assistant: "fruit"},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("scopes results to the user", func() {
			results, err := store.Retrieve(ctx, "fruit query", "u1", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			for _, r := range results {
				Expect(r.Metadata.UserID).To(Equal("u1"))
			}
		})

		It("additionally scopes to a session when given one", func() {
			results, err := store.Retrieve(ctx, "fruit query", "u1", "s2", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Metadata.SessionID).To(Equal("s2"))
		})

		It("orders results by ascending distance and honors k", func() {
			results, err := store.Retrieve(ctx, "fruit query", "u1", "", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Content).To(Equal("user: apples\nassistant: fruit"))
			Expect(results[0].SimilarityScore).To(BeNumerically("<=", results[1].SimilarityScore))
		})

		It("uses the configured default when k is not positive", func() {
			store = newStore(memory.Config{TopK: 1})
			results, err := store.Retrieve(ctx, "fruit query", "u1", "", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("returns an empty result for a user with no memories", func() {
			results, err := store.Retrieve(ctx, "fruit query", "nobody", "", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("surfaces embedding failures as errors", func() {
			embedder.FailAll = true
			_, err := store.Retrieve(ctx, "fruit query", "u1", "", 5)
			Expect(err).To(HaveOccurred())
		})

		It("surfaces index failures as errors", func() {
			index.FailQuery = true
			_, err := store.Retrieve(ctx, "fruit query", "u1", "", 5)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Forget", func() {
		BeforeEach(func() {
			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "a", Assistant: "b"},
				{User: "c", Assistant: "d"},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.Ingest(ctx, "u1", "s2", []memory.ConversationTurn{
				{User: "e", Assistant: "f"},
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("deletes only the named session", func() {
			deleted, err := store.Forget(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(2))

			remaining := index.Records()
			Expect(remaining).To(HaveLen(1))
			Expect(remaining[0].Metadata[vector.FieldSessionID]).To(Equal("s2"))
		})

		It("treats an unknown session as success", func() {
			deleted, err := store.Forget(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
		})

		It("publishes a forget event when records were deleted", func() {
			_, err := store.Forget(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Forgotten).To(HaveLen(1))
			Expect(publisher.Forgotten[0].SessionID).To(Equal("s1"))
			Expect(publisher.Forgotten[0].Deleted).To(Equal(2))
		})

		It("does not publish when nothing was deleted", func() {
			_, err := store.Forget(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(publisher.Forgotten).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("reports the record count and collection name", func() {
			_, err := store.Ingest(ctx, "u1", "s1", []memory.ConversationTurn{
				{User: "a", Assistant: "b"},
			})
			Expect(err).NotTo(HaveOccurred())

			stats, err := store.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalDocuments).To(Equal(1))
			Expect(stats.CollectionName).To(Equal("chat_history"))
		})

		It("returns zero counts and an error when counting fails", func() {
			index.FailCount = true

			stats, err := store.Stats(ctx)
			Expect(err).To(HaveOccurred())
			Expect(stats.TotalDocuments).To(BeZero())
			Expect(stats.CollectionName).To(Equal("chat_history"))
		})
	})
})
