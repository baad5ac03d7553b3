// Package recallcmder
package recallcmder

import (
	"github.com/spf13/cobra"

	clearcmder "github.com/lumihq/recall/cmd/recall/clear"
	configcmder "github.com/lumihq/recall/cmd/recall/config"
	reindexcmder "github.com/lumihq/recall/cmd/recall/reindex"
	servecmder "github.com/lumihq/recall/cmd/recall/serve"
	statscmder "github.com/lumihq/recall/cmd/recall/stats"
	versioncmder "github.com/lumihq/recall/cmd/version"
)

const recallLongDesc string = `Recall is long-term semantic memory for conversational agents.

Chat turns are chunked, embedded, and persisted in a vector index, then
retrieved by semantic similarity scoped to a user and session.

Run the service using:
  recall serve         Run the memory API server

Operate on the index using:
  recall stats         Show index statistics
  recall clear         Delete indexed memories
  recall reindex       Rebuild the index from stored transcripts`

const recallShortDesc string = "Recall - semantic memory for agents"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: recallShortDesc,
		Long:  recallLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: .recall/ resolution)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(clearcmder.NewClearCmd())
	cmd.AddCommand(reindexcmder.NewReindexCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
