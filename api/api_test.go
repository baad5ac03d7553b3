package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/memory"
	"github.com/lumihq/recall/pkg/observability"
	testutils "github.com/lumihq/recall/pkg/utils/test"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

// metrics register on the default prometheus registry, so they are created
// once for the whole suite.
var testMetrics = observability.NewMetrics("recall_api_test")

var _ = Describe("Server", func() {
	var (
		server    *Server
		embedder  *testutils.MockEmbedder
		index     *testutils.MockIndex
		publisher *testutils.MockPublisher
	)

	BeforeEach(func() {
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockIndex()
		publisher = testutils.NewMockPublisher()

		store, err := memory.NewStore(embedder, index, publisher, memory.Config{}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0"}, store, testMetrics, zap.NewNop())
	})

	ingestBody := func(userID, sessionID string, turns []memory.ConversationTurn) *bytes.Reader {
		body, err := json.Marshal(IngestRequest{
			UserID:       userID,
			SessionID:    sessionID,
			Conversation: turns,
		})
		Expect(err).NotTo(HaveOccurred())
		return bytes.NewReader(body)
	}

	doIngest := func(userID, sessionID string, turns []memory.ConversationTurn) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/v1/memory/ingest",
			ingestBody(userID, sessionID, turns))
		req.Header.Set("Content-Type", "application/json")
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, out any) {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, out)).To(Succeed())
	}

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body string
			decode(resp, &body)
			Expect(body).To(Equal("pong"))
		})
	})

	Describe("GET /metrics", func() {
		It("exposes prometheus metrics", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("POST /v1/memory/ingest", func() {
		It("ingests a conversation and reports the record count", func() {
			resp := doIngest("u1", "s1", []memory.ConversationTurn{
				{User: "hello", Assistant: "hi"},
				{User: "bye", Assistant: "cya"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body IngestResponse
			decode(resp, &body)
			Expect(body.Status).To(Equal("ok"))
			Expect(body.Turns).To(Equal(2))
			Expect(body.Records).To(Equal(2))

			Expect(index.Records()).To(HaveLen(2))
		})

		It("rejects a request without user_id", func() {
			resp := doIngest("", "s1", []memory.ConversationTurn{{User: "a", Assistant: "b"}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request without session_id", func() {
			resp := doIngest("u1", "", []memory.ConversationTurn{{User: "a", Assistant: "b"}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/memory/ingest",
				bytes.NewReader([]byte("{not json")))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("accepts an empty conversation as a no-op", func() {
			resp := doIngest("u1", "s1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body IngestResponse
			decode(resp, &body)
			Expect(body.Records).To(BeZero())
		})

		It("returns 500 when the store cannot commit", func() {
			index.FailUpsert = true
			resp := doIngest("u1", "s1", []memory.ConversationTurn{{User: "a", Assistant: "b"}})
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GET /v1/memory/search", func() {
		BeforeEach(func() {
			embedder.Embeddings["user: apples\nassistant: fruit"] = []float32{1, 0, 0}
			embedder.Embeddings["user: rockets\nassistant: space"] = []float32{0, 1, 0}
			embedder.Embeddings["fruit"] = []float32{1, 0, 0}

			resp := doIngest("u1", "s1", []memory.ConversationTurn{
				{User: "apples", Assistant: "fruit"},
				{User: "rockets", Assistant: "space"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("returns scoped results ordered by score", func() {
			req := httptest.NewRequest(http.MethodGet,
				"/v1/memory/search?query=fruit&user_id=u1&top_k=2", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body SearchResponse
			decode(resp, &body)
			Expect(body.Query).To(Equal("fruit"))
			Expect(body.Results).To(HaveLen(2))
			Expect(body.Results[0].Content).To(Equal("user: apples\nassistant: fruit"))
		})

		It("requires a query", func() {
			req := httptest.NewRequest(http.MethodGet, "/v1/memory/search?user_id=u1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("requires a user_id", func() {
			req := httptest.NewRequest(http.MethodGet, "/v1/memory/search?query=fruit", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a non-positive top_k", func() {
			req := httptest.NewRequest(http.MethodGet,
				"/v1/memory/search?query=fruit&user_id=u1&top_k=0", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns empty results with 200 when retrieval fails", func() {
			index.FailQuery = true

			req := httptest.NewRequest(http.MethodGet,
				"/v1/memory/search?query=fruit&user_id=u1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body SearchResponse
			decode(resp, &body)
			Expect(body.Results).NotTo(BeNil())
			Expect(body.Results).To(BeEmpty())
		})

		It("scopes to a session when given one", func() {
			resp := doIngest("u1", "s2", []memory.ConversationTurn{
				{User: "apples", Assistant: "fruit"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodGet,
				"/v1/memory/search?query=fruit&user_id=u1&session_id=s2&top_k=10", nil)
			searchResp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())

			var body SearchResponse
			decode(searchResp, &body)
			Expect(body.Results).To(HaveLen(1))
			Expect(body.Results[0].Metadata.SessionID).To(Equal("s2"))
		})
	})

	Describe("DELETE /v1/memory/session/:session_id", func() {
		BeforeEach(func() {
			resp := doIngest("u1", "s1", []memory.ConversationTurn{
				{User: "a", Assistant: "b"},
				{User: "c", Assistant: "d"},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("deletes the session and reports the count", func() {
			req := httptest.NewRequest(http.MethodDelete, "/v1/memory/session/s1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body ForgetResponse
			decode(resp, &body)
			Expect(body.SessionID).To(Equal("s1"))
			Expect(body.Deleted).To(Equal(2))

			Expect(index.Records()).To(BeEmpty())
		})

		It("treats an unknown session as success", func() {
			req := httptest.NewRequest(http.MethodDelete, "/v1/memory/session/missing", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body ForgetResponse
			decode(resp, &body)
			Expect(body.Deleted).To(BeZero())
		})

		It("returns 500 when the delete fails", func() {
			index.FailDelete = true

			req := httptest.NewRequest(http.MethodDelete, "/v1/memory/session/s1", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("GET /v1/memory/stats", func() {
		It("reports the document count and collection name", func() {
			resp := doIngest("u1", "s1", []memory.ConversationTurn{{User: "a", Assistant: "b"}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodGet, "/v1/memory/stats", nil)
			statsResp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(statsResp.StatusCode).To(Equal(http.StatusOK))

			var body memory.Stats
			decode(statsResp, &body)
			Expect(body.TotalDocuments).To(Equal(1))
			Expect(body.CollectionName).To(Equal("chat_history"))
		})

		It("reports zero counts with 200 when counting fails", func() {
			index.FailCount = true

			req := httptest.NewRequest(http.MethodGet, "/v1/memory/stats", nil)
			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body memory.Stats
			decode(resp, &body)
			Expect(body.TotalDocuments).To(BeZero())
			Expect(body.CollectionName).To(Equal("chat_history"))
		})
	})
})

var _ = Describe("ErrorResponse", func() {
	It("serializes the error field", func() {
		data, err := json.Marshal(ErrorResponse{Error: "boom"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(fmt.Sprintf("{%q:%q}", "error", "boom")))
	})
})
