package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lumihq/recall/pkg/memory"
	"github.com/lumihq/recall/pkg/observability"
)

// Server is the API server for ingesting and querying conversational memory.
type Server struct {
	config  Config
	store   *memory.Store
	metrics *observability.Metrics
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The store is injected to allow
// sharing with CLI commands that operate on the same index.
func NewServer(config Config, store *memory.Store, metrics *observability.Metrics, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		store:   store,
		metrics: metrics,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/metrics", adaptor.HTTPHandler(observability.MetricsHandler()))

	app.Post("/v1/memory/ingest", s.handleIngest)
	app.Get("/v1/memory/search", s.handleSearch)
	app.Delete("/v1/memory/session/:session_id", s.handleForget)
	app.Get("/v1/memory/stats", s.handleStats)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
