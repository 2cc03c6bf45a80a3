// Package cli provides the scalper command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"crypto-scalper/internal/config"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/security"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

// skipConfig marks commands that must run without a loaded configuration.
const skipConfig = "skip-config"

// App holds what every command needs. Config is loaded once the command line
// has been parsed so --config can point somewhere else.
type App struct {
	Config *config.Config

	configDir string
	debug     bool
	logger    *zerolog.Logger
}

// Logger builds the process logger from the logging config on first use.
func (a *App) Logger() zerolog.Logger {
	if a.logger == nil {
		l := logging.NewLoggerWithConfig(a.Config.Logging)
		if a.debug {
			logging.SetDebugLevel()
			l = l.Level(zerolog.DebugLevel)
		}
		a.logger = &l
	}
	return *a.logger
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "scalper",
		Short: "Crypto scalping engine",
		Long: `scalper scores crypto pairs every loop interval and manages short-lived
long positions against take-profit, stop-loss, timeout and reversal exits.

Run 'scalper run' to start the loop. Control commands (pause, resume,
liquidate) are queued in the state database and picked up by the running
engine on its next tick.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.configDir, _ = cmd.Flags().GetString("config")
			app.debug, _ = cmd.Flags().GetBool("debug")
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			cfg, err := config.Load(app.configDir)
			if err != nil {
				return err
			}
			app.Config = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/crypto-scalper)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newRunCmd(app),
		newOnceCmd(app),
		newStatusCmd(app),
		newMetricsCmd(app),
		newTradesCmd(app),
		newJournalCmd(app),
	)
	addControlCommands(rootCmd, app)

	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", security.Redact(err.Error()))
		return 1
	}
	return 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Crypto Scalper v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := *app.Config
			cfg.Credentials = security.MaskedCredentials(cfg.Credentials)
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			showConfig(output, &cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show the configuration directory",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir := app.configDir
			if dir == "" {
				dir = config.DefaultConfigDir()
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"path": dir})
			}
			output.Println(dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration files",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			_, err := config.Load(app.configDir)
			if output.IsJSON() {
				res := map[string]interface{}{"valid": err == nil}
				if err != nil {
					res["error"] = err.Error()
				}
				if jerr := output.JSON(res); jerr != nil {
					return jerr
				}
				return err
			}
			if err != nil {
				output.Error("Configuration is invalid: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Bot")
	output.Printf("  Mode:              %s\n", cfg.Bot.Mode)
	output.Printf("  Data dir:          %s\n", cfg.Bot.DataDir)
	output.Printf("  Symbols:           %v\n", cfg.Symbols)
	output.Println()

	s := cfg.Scalp
	output.Bold("Scalp")
	output.Printf("  Loop interval:     %s\n", s.LoopInterval)
	output.Printf("  Bars:              %d x %s\n", s.BarsLimit, s.BarsTimeframe)
	output.Printf("  Entry threshold:   %.2f\n", s.EntryThreshold)
	output.Printf("  Reversal exit:     %.2f\n", s.ExitReversalThreshold)
	output.Printf("  Take profit:       %.2f%%\n", s.TakeProfitPct*100)
	output.Printf("  Stop loss:         %.2f%%\n", s.StopLossPct*100)
	output.Printf("  Max hold:          %s\n", s.MaxHold)
	w := s.Weights
	output.Printf("  Weights:           ema %.2f  rsi %.2f  roc %.2f  vol %.2f  vwap %.2f  spread %.2f\n",
		w.EMACross, w.RSI, w.ROC, w.VolumeSpike, w.VWAPDeviation, w.Spread)
	output.Println()

	r := cfg.Risk
	output.Bold("Risk")
	output.Printf("  Max open scalps:   %d (%d per symbol)\n", r.MaxOpenScalps, r.MaxPerSymbol)
	output.Printf("  Equity per scalp:  %.1f%%\n", r.MaxEquityPerScalp*100)
	output.Printf("  Min notional:      $%.2f\n", r.MinOrderNotional)
	output.Printf("  Cooldown:          %s\n", r.Cooldown)
	output.Printf("  Daily loss limit:  %.1f%% (pause %s)\n", r.DailyLossLimitPct*100, r.DailyLossPause)
	output.Printf("  Daily max scalps:  %d\n", r.DailyMaxScalps)
	output.Println()

	output.Bold("LLM")
	output.Printf("  Enabled:           %v (journal %v)\n", cfg.LLM.Enabled, cfg.LLM.JournalEnabled)
	output.Printf("  Models:            %s / %s\n", cfg.LLM.FastModel, cfg.LLM.BalancedModel)
	output.Println()

	output.Bold("Credentials")
	output.Printf("  Alpaca key:        %s\n", orNone(cfg.Credentials.Alpaca.KeyID))
	output.Printf("  OpenAI key:        %s\n", orNone(cfg.Credentials.OpenAI.APIKey))
}

func orNone(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
