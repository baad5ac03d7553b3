// Package statscmder provides the stats command for inspecting the index.
package statscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lumihq/recall/cmd/recall/bootstrap"
	"github.com/lumihq/recall/pkg/cliui"
	"github.com/lumihq/recall/pkg/config"
	"github.com/lumihq/recall/pkg/logger"
)

type statsCommander struct {
	configDir string
	debug     bool
	viper     *viper.Viper
}

const statsLongDesc string = `Show statistics about the memory index.

Reports the total number of indexed records and the collection name for
the configured vector store backend.`

const statsShortDesc string = "Show memory index statistics"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cmder.viper, err = config.InitViper(cmder.configDir)
			return err
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	return cmd
}

func (c *statsCommander) run() error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	settings := bootstrap.Resolve(c.viper)

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, settings, c.configDir, log)
	if err != nil {
		return err
	}
	defer runtime.Close()

	stats, err := runtime.Store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	fmt.Printf("\n  %s  %s\n",
		cliui.KeyStyle.Render("Collection"),
		cliui.ValueStyle.Render(stats.CollectionName),
	)
	fmt.Printf("  %s   %s\n\n",
		cliui.KeyStyle.Render("Documents"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d", stats.TotalDocuments)),
	)

	return nil
}
