package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/memory"
	"github.com/lumihq/recall/pkg/utils"
)

// IngestRequest is the body for POST /v1/memory/ingest.
type IngestRequest struct {
	UserID       string                    `json:"user_id"`
	SessionID    string                    `json:"session_id"`
	Conversation []memory.ConversationTurn `json:"conversation"`
}

// IngestResponse reports what an ingest call committed.
type IngestResponse struct {
	Status  string `json:"status"`
	Turns   int    `json:"turns"`
	Records int    `json:"records"`
}

// SearchResponse is the body for GET /v1/memory/search.
type SearchResponse struct {
	Query   string                   `json:"query"`
	Results []memory.RetrievalResult `json:"results"`
}

// ForgetResponse reports how many records a session delete removed.
type ForgetResponse struct {
	SessionID string `json:"session_id"`
	Deleted   int    `json:"deleted"`
}

// handleIngest handles POST /v1/memory/ingest.
// The whole conversation is committed atomically: a failure anywhere
// writes nothing and returns 500.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if req.UserID == "" || req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "user_id and session_id are required",
		})
	}

	records, err := s.store.Ingest(c.Context(), req.UserID, req.SessionID, req.Conversation)
	if err != nil {
		s.metrics.Ingests.WithLabelValues("error").Inc()
		s.logger.Error("ingest failed",
			zap.String("user_id", req.UserID),
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "ingest failed"})
	}

	s.metrics.Ingests.WithLabelValues("ok").Inc()
	s.metrics.IngestedRecords.Add(float64(records))

	return c.JSON(IngestResponse{
		Status:  "ok",
		Turns:   len(req.Conversation),
		Records: records,
	})
}

// handleSearch handles GET /v1/memory/search requests.
// Query parameters:
//   - query (required): the search query text
//   - user_id (required): scope results to this user
//   - session_id (optional): additionally scope results to this session
//   - top_k (optional): number of results to return
//
// A failed lookup returns an empty result set with 200 rather than an
// error status: retrieval augments a conversation, and a caller mid-reply
// is better served by no context than by a failure it cannot act on.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "query parameter is required",
		})
	}

	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "user_id parameter is required",
		})
	}

	topK := 0
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	start := time.Now()
	results, err := s.store.Retrieve(c.Context(), query, userID, c.Query("session_id"), topK)
	s.metrics.ObserveRetrievalLatency(time.Since(start))

	if err != nil {
		s.metrics.Retrievals.WithLabelValues("error").Inc()
		s.logger.Warn("retrieval failed, returning empty results",
			zap.String("user_id", userID),
			zap.String("query", utils.Truncate(query, 80)),
			zap.Error(err),
		)
		results = nil
	} else {
		s.metrics.Retrievals.WithLabelValues("ok").Inc()
	}

	if results == nil {
		results = []memory.RetrievalResult{}
	}

	return c.JSON(SearchResponse{
		Query:   query,
		Results: results,
	})
}

// handleForget handles DELETE /v1/memory/session/:session_id.
func (s *Server) handleForget(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "session_id parameter required",
		})
	}

	deleted, err := s.store.Forget(c.Context(), sessionID)
	if err != nil {
		s.metrics.Forgets.WithLabelValues("error").Inc()
		s.logger.Error("forget failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "forget failed"})
	}

	s.metrics.Forgets.WithLabelValues("ok").Inc()

	return c.JSON(ForgetResponse{
		SessionID: sessionID,
		Deleted:   deleted,
	})
}

// handleStats handles GET /v1/memory/stats. A count failure is reported
// as zero counts rather than an error status; stats are diagnostic and
// must not take the caller down with them.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.store.Stats(c.Context())
	if err != nil {
		s.logger.Warn("stats unavailable, reporting zero counts", zap.Error(err))
	}

	return c.JSON(stats)
}
