package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Crypto Scalper Configuration

# Tracked pairs, processed in this order every tick
symbols = ["BTC/USD", "ETH/USD", "SOL/USD", "DOGE/USD", "LINK/USD"]

[bot]
# Trading mode: "paper" or "live"
mode = "paper"

[scalp]
loop_interval = "30s"
bars_timeframe = "1Min"
bars_limit = 100
# Enter long when the weighted score reaches this value
entry_threshold = 0.3
# Exit when the score falls to this value
exit_reversal_threshold = -0.2
take_profit_pct = 0.003
stop_loss_pct = 0.002
max_hold = "5m"
ema_fast = 8
ema_slow = 21
rsi_period = 7
roc_period = 5
volume_avg_period = 20
volume_spike_multiplier = 2.0
# Regime classification inputs
bb_period = 20
bb_multiplier = 1.3
rsi_classify_period = 14

# Indicator weights (must sum to 1.0)
[scalp.weights]
ema_cross = 0.25
rsi = 0.15
roc = 0.15
volume_spike = 0.15
vwap_deviation = 0.15
spread = 0.15

[risk]
max_open_scalps = 3
max_per_symbol = 1
# Fraction of equity a single scalp may use
max_equity_per_scalp = 0.15
# Orders below this USD notional are skipped
min_order_notional = 10.0
cooldown = "15s"
# Pause entries when equity falls this far below initial capital
daily_loss_limit_pct = 0.08
daily_loss_pause = "4h"
daily_max_scalps = 200
trailing_stop_pct = 0.05

[llm]
# Regime, sentiment and trade journal generation
enabled = true
journal_enabled = true
fast_model = "gpt-4o-mini"
balanced_model = "gpt-4o"

[data]
# Serve quotes from the websocket stream when fresh
stream_enabled = false
max_quote_age = "10s"

[timeouts]
broker = "10s"
data = "10s"
enrichment = "8s"
llm = "20s"

[logging]
# Log level: debug, info, warn, error
level = "info"
console = true
file = true

[metrics]
# Prometheus listen address, e.g. ":9090" (empty disables)
addr = ""
`

const credentialsTemplate = `# Crypto Scalper Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[alpaca]
key_id = ""
secret_key = ""

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
