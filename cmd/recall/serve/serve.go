// Package servecmder provides the serve command for running the memory API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lumihq/recall/api"
	"github.com/lumihq/recall/cmd/recall/bootstrap"
	"github.com/lumihq/recall/pkg/config"
	"github.com/lumihq/recall/pkg/logger"
	"github.com/lumihq/recall/pkg/observability"
)

type ServeCommander struct {
	listen            string
	vectorProvider    string
	vectorTarget      string
	vectorPath        string
	collection        string
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	eventBrokers      string
	eventTopic        string

	configDir string
	debug     bool
	logger    *zap.Logger
	viper     *viper.Viper
}

const serveLongDesc string = `Run the recall memory API server.

The server exposes HTTP endpoints for ingesting conversations, searching
memories, deleting sessions, and reading index statistics.`

const serveShortDesc string = "Run the recall memory API server"

// serveFlags defines the flags the serve command registers, keyed by the
// shared flag registry.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name: "listen", Shorthand: "l", ViperKey: "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagVectorStoreProv: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector store backend (chromem, sqlite, qdrant)",
	},
	config.FlagVectorStoreTgt: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "Vector store host:port for remote backends",
	},
	config.FlagVectorStorePath: {
		Name: "vector-store-path", ViperKey: "vector_store.path",
		Description: "On-disk path for embedded vector store backends",
	},
	config.FlagVectorStoreColl: {
		Name: "collection", ViperKey: "vector_store.collection",
		Description: "Vector store collection name",
	},
	config.FlagEmbeddingProv: {
		Name: "embedding-provider", ViperKey: "embedding.provider",
		Description: "Embedding provider (ollama, openai)",
	},
	config.FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Embedding provider base URL",
	},
	config.FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name: "embedding-dimensions", ViperKey: "embedding.dimensions",
		Description: "Embedding dimension count",
	},
	config.FlagEventsBrokers: {
		Name: "events-brokers", ViperKey: "events.brokers",
		Description: "Comma-separated Kafka brokers for memory events (empty disables publishing)",
	},
	config.FlagEventsTopic: {
		Name: "events-topic", ViperKey: "events.topic",
		Description: "Kafka topic for memory events",
	},
}

// serveFlagKeys is the registry order used for both registration and binding.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStorePath,
	config.FlagVectorStoreColl,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(cmder.viper, cmd, serveFlags, serveFlagKeys)
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreColl, &cmder.collection)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventTopic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	settings := bootstrap.Resolve(c.viper)

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, settings, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	metrics := observability.NewMetrics("recall")

	apiConfig := api.Config{
		ListenAddr: settings.APIListen,
	}
	server := api.NewServer(apiConfig, runtime.Store, metrics, c.logger)

	c.logger.Info("starting recall server",
		zap.String("listen", settings.APIListen),
		zap.String("vector_store", settings.VectorProvider),
		zap.String("collection", settings.Collection),
		zap.String("embedding_provider", settings.EmbeddingProvider),
		zap.String("embedding_model", settings.EmbeddingModel),
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
