// Package clearcmder provides the clear command for deleting indexed memories.
package clearcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lumihq/recall/cmd/recall/bootstrap"
	"github.com/lumihq/recall/pkg/cliui"
	"github.com/lumihq/recall/pkg/config"
	"github.com/lumihq/recall/pkg/logger"
	"github.com/lumihq/recall/pkg/vector"
)

type clearCommander struct {
	sessionID string
	all       bool
	force     bool

	configDir string
	debug     bool
	viper     *viper.Viper
}

const clearLongDesc string = `Delete indexed memories.

With --session, deletes every record ingested under that session.
With --all, wipes the entire collection; this is irreversible and
requires --force.

The canonical transcript store is untouched; a wiped index can be
rebuilt with "recall reindex".`

const clearShortDesc string = "Delete indexed memories"

func NewClearCmd() *cobra.Command {
	cmder := &clearCommander{}

	cmd := &cobra.Command{
		Use:   "clear",
		Short: clearShortDesc,
		Long:  clearLongDesc,
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

	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Delete records for this session only")
	cmd.Flags().BoolVar(&cmder.all, "all", false, "Delete every record in the collection")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Skip the safety check for --all")

	return cmd
}

func (c *clearCommander) run() error {
	if c.sessionID == "" && !c.all {
		return fmt.Errorf("nothing to clear: pass --session <id> or --all")
	}
	if c.sessionID != "" && c.all {
		return fmt.Errorf("--session and --all are mutually exclusive")
	}
	if c.all && !c.force {
		return fmt.Errorf("refusing to clear the entire index without --force")
	}

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	settings := bootstrap.Resolve(c.viper)

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, settings, c.configDir, log)
	if err != nil {
		return err
	}
	defer runtime.Close()

	var deleted int
	if c.sessionID != "" {
		err = cliui.Step(os.Stdout, fmt.Sprintf("Deleting session %s", c.sessionID), func() error {
			var stepErr error
			deleted, stepErr = runtime.Store.Forget(ctx, c.sessionID)
			return stepErr
		})
	} else {
		err = cliui.Step(os.Stdout, fmt.Sprintf("Clearing collection %s", settings.Collection), func() error {
			var stepErr error
			deleted, stepErr = runtime.Index.DeleteWhere(ctx, vector.Filter{})
			return stepErr
		})
	}
	if err != nil {
		return err
	}

	fmt.Printf("\n  Deleted %s records\n\n", cliui.ValueStyle.Render(fmt.Sprintf("%d", deleted)))
	return nil
}
