// Package configcmder provides the config command for managing persistent
// recall configuration stored in the .recall/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent recall configuration.

Configuration is stored as config.toml in the .recall/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.postgres_url, api.listen,
  vector_store.provider, vector_store.target, vector_store.path,
  vector_store.api_key, vector_store.collection,
  embedding.provider, embedding.target, embedding.model,
  embedding.api_key, embedding.dimensions,
  memory.chunk_size, memory.chunk_overlap, memory.top_k, memory.timeout_seconds,
  events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  recall config set <key> <value>   Set a configuration value
  recall config get <key>           Get a configuration value
  recall config list                List all configuration values

Examples:
  recall config set vector_store.provider qdrant
  recall config set embedding.model nomic-embed-text
  recall config get embedding.model
  recall config list`

const configShortDesc string = "Manage persistent recall configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
