package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crypto-scalper/internal/engine"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/pkg/utils"
)

func newRunCmd(app *App) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scalp loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			logger := app.Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, logger)

			if metricsAddr == "" {
				metricsAddr = cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				srv := metrics.Serve(metricsAddr)
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(sctx)
				}()
				logger.Info().Str("addr", metricsAddr).Msg("Metrics endpoint listening")
			}

			rt, err := engine.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info().Msg("Scalper stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
	return cmd
}

func newOnceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single tick and print the resulting signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			rt, err := engine.Build(ctx, app.Config)
			if err != nil {
				return err
			}
			defer rt.Close()

			eng := rt.Engine
			eng.Start(ctx)
			tickErr := eng.Tick(ctx)
			if err := eng.Shutdown(ctx); err != nil {
				return err
			}
			if tickErr != nil {
				return tickErr
			}

			output := NewOutput(cmd)
			status := eng.Status()
			if output.IsJSON() {
				return output.JSON(status)
			}
			output.Printf("Equity %s  open scalps %d\n\n", utils.FormatUSD(status.Equity), len(status.OpenScalps))
			printSignals(output, status)
			return nil
		},
	}
}
