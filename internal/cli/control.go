package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"crypto-scalper/internal/engine"
	"crypto-scalper/internal/store"
)

// addControlCommands adds the commands that steer a running engine.
func addControlCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(
		newControlCmd(app, store.CommandPause, "Stop opening new scalps (exits keep running)"),
		newControlCmd(app, store.CommandResume, "Resume entries and clear a daily-loss pause"),
		newLiquidateCmd(app),
	)
}

func newControlCmd(app *App, kind store.CommandKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, app, kind)
		},
	}
}

func newLiquidateCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "liquidate",
		Short: "Close every position and pause entries",
		Long: `Queues a liquidation. On its next tick the engine closes all broker
positions, records every open scalp as a manual exit and pauses entries.
Use 'scalper resume' to trade again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("liquidate closes every position; re-run with --yes to confirm")
			}
			return enqueue(cmd, app, store.CommandLiquidate)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the liquidation")
	return cmd
}

func enqueue(cmd *cobra.Command, app *App, kind store.CommandKind) error {
	st, err := engine.OpenStore(app.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Enqueue(cmd.Context(), kind)
	if err != nil {
		return fmt.Errorf("queueing %s: %w", kind, err)
	}

	output := NewOutput(cmd)
	if output.IsJSON() {
		return output.JSON(map[string]interface{}{"id": id, "command": kind, "queued": true})
	}
	output.Success("Queued %s (#%d), applied on the next tick", kind, id)
	return nil
}
