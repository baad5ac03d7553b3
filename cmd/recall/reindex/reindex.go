// Package reindexcmder provides the reindex command for rebuilding the
// vector index from stored transcripts.
package reindexcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lumihq/recall/cmd/recall/bootstrap"
	"github.com/lumihq/recall/pkg/cliui"
	"github.com/lumihq/recall/pkg/config"
	"github.com/lumihq/recall/pkg/logger"
	"github.com/lumihq/recall/pkg/memory"
	"github.com/lumihq/recall/pkg/transcripts"
	"github.com/lumihq/recall/pkg/vector"
)

type reindexCommander struct {
	postgresURL string
	batchSize   int
	reset       bool

	configDir string
	debug     bool
	logger    *zap.Logger
	viper     *viper.Viper
}

const reindexLongDesc string = `Rebuild the vector index from stored transcripts.

Transcripts in PostgreSQL are the source of truth; the vector index is a
derived artifact. Reindexing walks every stored turn in user/session order
and re-ingests it, chunking and embedding as on the live path.

With --reset, the collection is wiped first so the rebuilt index contains
exactly the stored transcripts.`

const reindexShortDesc string = "Rebuild the vector index from transcripts"

var reindexFlags = config.FlagSet{
	config.FlagPostgresURL: {
		Name: "postgres-url", ViperKey: "storage.postgres_url",
		Description: "PostgreSQL connection URL for the transcript store",
	},
}

func NewReindexCmd() *cobra.Command {
	cmder := &reindexCommander{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		Args:  cobra.NoArgs,
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

			config.BindRegisteredFlags(cmder.viper, cmd, reindexFlags, []string{config.FlagPostgresURL})
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, reindexFlags, config.FlagPostgresURL, &cmder.postgresURL)
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 50, "Turns per ingest batch")
	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Wipe the collection before reindexing")

	return cmd
}

func (c *reindexCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	settings := bootstrap.Resolve(c.viper)
	if settings.PostgresURL == "" {
		return fmt.Errorf("a transcript store is required: set storage.postgres_url or pass --postgres-url")
	}
	if c.batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}

	ctx := context.Background()

	store, err := transcripts.NewPostgresStore(ctx, settings.PostgresURL)
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer store.Close()

	runtime, err := bootstrap.NewRuntime(ctx, settings, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer runtime.Close()

	if c.reset {
		err = cliui.Step(os.Stdout, "Clearing collection", func() error {
			_, stepErr := runtime.Index.DeleteWhere(ctx, vector.Filter{})
			return stepErr
		})
		if err != nil {
			return err
		}
	}

	var (
		batch     []memory.ConversationTurn
		userID    string
		sessionID string
		turns     int
		sessions  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := runtime.Store.Ingest(ctx, userID, sessionID, batch); err != nil {
			return fmt.Errorf("ingesting session %s: %w", sessionID, err)
		}
		batch = batch[:0]
		return nil
	}

	err = cliui.Step(os.Stdout, "Reindexing transcripts", func() error {
		var walkErr error
		iterErr := store.IterateTurns(ctx, func(turn transcripts.Turn) bool {
			// Turns arrive ordered by user, session, then time; a boundary
			// or a full batch flushes what has accumulated.
			if turn.UserID != userID || turn.SessionID != sessionID || len(batch) >= c.batchSize {
				if walkErr = flush(); walkErr != nil {
					return false
				}
				if turn.UserID != userID || turn.SessionID != sessionID {
					sessions++
				}
				userID = turn.UserID
				sessionID = turn.SessionID
			}

			batch = append(batch, memory.ConversationTurn{
				User:      turn.UserMessage,
				Assistant: turn.AssistantMessage,
			})
			turns++
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		if iterErr != nil {
			return fmt.Errorf("walking transcripts: %w", iterErr)
		}
		return flush()
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  Reindexed %s turns across %s sessions\n\n",
		cliui.ValueStyle.Render(fmt.Sprintf("%d", turns)),
		cliui.ValueStyle.Render(fmt.Sprintf("%d", sessions)),
	)
	return nil
}
