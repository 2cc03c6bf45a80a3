// Package config provides configuration management for the scalping engine.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Symbols     []string          `mapstructure:"symbols"`
	Scalp       ScalpConfig       `mapstructure:"scalp"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Modifiers   ModifierConfig    `mapstructure:"modifiers"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Data        DataConfig        `mapstructure:"data"`
	Timeouts    TimeoutConfig     `mapstructure:"timeouts"`
	Logging     logging.LogConfig `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Credentials Credentials       `mapstructure:"-"` // Loaded separately

	dir string
}

// BotConfig holds process-level settings.
type BotConfig struct {
	Mode    string `mapstructure:"mode"` // "paper", "live"
	DataDir string `mapstructure:"data_dir"`
}

// ScalpConfig holds the scalp loop, signal and exit parameters.
type ScalpConfig struct {
	LoopInterval          time.Duration `mapstructure:"loop_interval"`
	BarsTimeframe         string        `mapstructure:"bars_timeframe"`
	BarsLimit             int           `mapstructure:"bars_limit"`
	EntryThreshold        float64       `mapstructure:"entry_threshold"`
	ExitReversalThreshold float64       `mapstructure:"exit_reversal_threshold"`
	TakeProfitPct         float64       `mapstructure:"take_profit_pct"`
	StopLossPct           float64       `mapstructure:"stop_loss_pct"`
	MaxHold               time.Duration `mapstructure:"max_hold"`

	EMAFast               int     `mapstructure:"ema_fast"`
	EMASlow               int     `mapstructure:"ema_slow"`
	RSIPeriod             int     `mapstructure:"rsi_period"`
	ROCPeriod             int     `mapstructure:"roc_period"`
	VolumeAvgPeriod       int     `mapstructure:"volume_avg_period"`
	VolumeSpikeMultiplier float64 `mapstructure:"volume_spike_multiplier"`

	Weights WeightConfig `mapstructure:"weights"`

	// Regime classification inputs
	BBPeriod          int     `mapstructure:"bb_period"`
	BBMultiplier      float64 `mapstructure:"bb_multiplier"`
	RSIClassifyPeriod int     `mapstructure:"rsi_classify_period"`
}

// WeightConfig holds the indicator weights. They must sum to 1.
type WeightConfig struct {
	EMACross      float64 `mapstructure:"ema_cross"`
	RSI           float64 `mapstructure:"rsi"`
	ROC           float64 `mapstructure:"roc"`
	VolumeSpike   float64 `mapstructure:"volume_spike"`
	VWAPDeviation float64 `mapstructure:"vwap_deviation"`
	Spread        float64 `mapstructure:"spread"`
}

// Sum returns the total of all weights.
func (w WeightConfig) Sum() float64 {
	return w.EMACross + w.RSI + w.ROC + w.VolumeSpike + w.VWAPDeviation + w.Spread
}

func (w WeightConfig) values() map[string]float64 {
	return map[string]float64{
		"ema_cross":      w.EMACross,
		"rsi":            w.RSI,
		"roc":            w.ROC,
		"volume_spike":   w.VolumeSpike,
		"vwap_deviation": w.VWAPDeviation,
		"spread":         w.Spread,
	}
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	MaxOpenScalps      int           `mapstructure:"max_open_scalps"`
	MaxPerSymbol       int           `mapstructure:"max_per_symbol"`
	MaxEquityPerScalp  float64       `mapstructure:"max_equity_per_scalp"`
	MinOrderNotional   float64       `mapstructure:"min_order_notional"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	DailyLossLimitPct  float64       `mapstructure:"daily_loss_limit_pct"`
	DailyLossPause     time.Duration `mapstructure:"daily_loss_pause"`
	DailyMaxScalps     int           `mapstructure:"daily_max_scalps"`
	TrailingStopPct    float64       `mapstructure:"trailing_stop_pct"`
	ClosedHistoryLimit int           `mapstructure:"closed_history_limit"`
	TradeLogLimit      int           `mapstructure:"trade_log_limit"`
	JournalLimit       int           `mapstructure:"journal_limit"`
}

// ModifierConfig holds the enrichment-driven parameter adjustments.
type ModifierConfig struct {
	FearGreed FearGreedModifiers `mapstructure:"fear_greed"`
	Funding   FundingModifiers   `mapstructure:"funding"`
	Sentiment SentimentModifiers `mapstructure:"sentiment"`
	Regime    RegimeModifiers    `mapstructure:"regime"`
	Clamps    ModifierClamps     `mapstructure:"clamps"`
}

// FearGreedModifiers adjusts size and targets at index extremes.
type FearGreedModifiers struct {
	ExtremeFearThreshold  float64 `mapstructure:"extreme_fear_threshold"`
	ExtremeGreedThreshold float64 `mapstructure:"extreme_greed_threshold"`
	SizeBoostFear         float64 `mapstructure:"size_boost_fear"`
	SizeReduceGreed       float64 `mapstructure:"size_reduce_greed"`
	TPBoostFear           float64 `mapstructure:"tp_boost_fear"`
	SLTightenGreed        float64 `mapstructure:"sl_tighten_greed"`
}

// FundingModifiers adjusts size by perpetual funding direction.
type FundingModifiers struct {
	NegativeThreshold float64 `mapstructure:"negative_threshold"`
	PositiveThreshold float64 `mapstructure:"positive_threshold"`
	SizeBullishAdjust float64 `mapstructure:"size_bullish_adjust"`
	SizeBearishAdjust float64 `mapstructure:"size_bearish_adjust"`
}

// SentimentModifiers adjusts size by news sentiment.
type SentimentModifiers struct {
	NegativeThreshold float64 `mapstructure:"negative_threshold"`
	PositiveThreshold float64 `mapstructure:"positive_threshold"`
	BearishSizeAdjust float64 `mapstructure:"bearish_size_adjust"`
	BullishSizeAdjust float64 `mapstructure:"bullish_size_adjust"`
}

// RegimeModifiers are scaled by classification confidence.
type RegimeModifiers struct {
	MinConfidence                 float64 `mapstructure:"min_confidence"`
	TrendingUpSizeAdjust          float64 `mapstructure:"trending_up_size_adjust"`
	TrendingUpTPAdjust            float64 `mapstructure:"trending_up_tp_adjust"`
	TrendingDownSizeAdjust        float64 `mapstructure:"trending_down_size_adjust"`
	TrendingDownSLAdjust          float64 `mapstructure:"trending_down_sl_adjust"`
	VolatileExpansionSLAdjust     float64 `mapstructure:"volatile_expansion_sl_adjust"`
	VolatileCompressionSizeAdjust float64 `mapstructure:"volatile_compression_size_adjust"`
}

// Range is an inclusive [min, max] bound.
type Range struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Clamp bounds v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// ModifierClamps bounds every modifier output.
type ModifierClamps struct {
	PositionSizeMultiplier Range `mapstructure:"position_size_multiplier"`
	TakeProfitPct          Range `mapstructure:"take_profit_pct"`
	StopLossPct            Range `mapstructure:"stop_loss_pct"`
}

// LLMConfig holds the regime, sentiment and journal generator settings.
type LLMConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	JournalEnabled bool          `mapstructure:"journal_enabled"`
	FastModel      string        `mapstructure:"fast_model"`
	BalancedModel  string        `mapstructure:"balanced_model"`
	BaseURL        string        `mapstructure:"base_url"`
	RegimeTTL      time.Duration `mapstructure:"regime_ttl"`
	SentimentTTL   time.Duration `mapstructure:"sentiment_ttl"`
	JournalQueue   int           `mapstructure:"journal_queue"`
}

// DataConfig holds market data and enrichment endpoints.
type DataConfig struct {
	AlpacaTradingURL string        `mapstructure:"alpaca_trading_url"`
	AlpacaDataURL    string        `mapstructure:"alpaca_data_url"`
	AlpacaStreamURL  string        `mapstructure:"alpaca_stream_url"`
	StreamEnabled    bool          `mapstructure:"stream_enabled"`
	MaxQuoteAge      time.Duration `mapstructure:"max_quote_age"`
	FearGreedURL     string        `mapstructure:"fear_greed_url"`
	BinanceURL       string        `mapstructure:"binance_url"`
	BybitURL         string        `mapstructure:"bybit_url"`
	HyperliquidURL   string        `mapstructure:"hyperliquid_url"`
	FearGreedTTL     time.Duration `mapstructure:"fear_greed_ttl"`
	FundingTTL       time.Duration `mapstructure:"funding_ttl"`
	NewsTTL          time.Duration `mapstructure:"news_ttl"`
	NewsLimit        int           `mapstructure:"news_limit"`
	RateLimit        float64       `mapstructure:"rate_limit"` // requests per second per host
	BreakerFailures  int           `mapstructure:"breaker_failures"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown"`
	PaperCash        float64       `mapstructure:"paper_cash"`
}

// TimeoutConfig bounds every external call.
type TimeoutConfig struct {
	Broker     time.Duration `mapstructure:"broker"`
	Data       time.Duration `mapstructure:"data"`
	Enrichment time.Duration `mapstructure:"enrichment"`
	LLM        time.Duration `mapstructure:"llm"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Credentials holds API credentials.
type Credentials struct {
	Alpaca AlpacaCredentials `mapstructure:"alpaca"`
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// AlpacaCredentials holds Alpaca API credentials.
type AlpacaCredentials struct {
	KeyID     string `mapstructure:"key_id"`
	SecretKey string `mapstructure:"secret_key"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/crypto-scalper"
	}
	return filepath.Join(home, ".config", "crypto-scalper")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. Missing files are
// created from templates.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{dir: configDir}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// .env files are optional
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without touching the filesystem.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{dir: DefaultConfigDir()}
	_ = v.Unmarshal(cfg)
	return cfg
}

// Dir returns the directory the configuration was loaded from.
func (c *Config) Dir() string {
	return c.dir
}

// Path returns the path of config.toml.
func (c *Config) Path() string {
	return filepath.Join(c.dir, "config.toml")
}

func loadConfigFile(configDir string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir); err != nil {
			return err
		}
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials may still arrive through the environment.
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("bot.mode", "paper")
	v.SetDefault("bot.data_dir", filepath.Join(home, ".config", "crypto-scalper", "data"))
	v.SetDefault("symbols", []string{"BTC/USD", "ETH/USD", "SOL/USD", "DOGE/USD", "LINK/USD"})

	v.SetDefault("scalp.loop_interval", 30*time.Second)
	v.SetDefault("scalp.bars_timeframe", "1Min")
	v.SetDefault("scalp.bars_limit", 100)
	v.SetDefault("scalp.entry_threshold", 0.3)
	v.SetDefault("scalp.exit_reversal_threshold", -0.2)
	v.SetDefault("scalp.take_profit_pct", 0.003)
	v.SetDefault("scalp.stop_loss_pct", 0.002)
	v.SetDefault("scalp.max_hold", 5*time.Minute)
	v.SetDefault("scalp.ema_fast", 8)
	v.SetDefault("scalp.ema_slow", 21)
	v.SetDefault("scalp.rsi_period", 7)
	v.SetDefault("scalp.roc_period", 5)
	v.SetDefault("scalp.volume_avg_period", 20)
	v.SetDefault("scalp.volume_spike_multiplier", 2.0)
	v.SetDefault("scalp.weights.ema_cross", 0.25)
	v.SetDefault("scalp.weights.rsi", 0.15)
	v.SetDefault("scalp.weights.roc", 0.15)
	v.SetDefault("scalp.weights.volume_spike", 0.15)
	v.SetDefault("scalp.weights.vwap_deviation", 0.15)
	v.SetDefault("scalp.weights.spread", 0.15)
	v.SetDefault("scalp.bb_period", 20)
	v.SetDefault("scalp.bb_multiplier", 1.3)
	v.SetDefault("scalp.rsi_classify_period", 14)

	v.SetDefault("risk.max_open_scalps", 3)
	v.SetDefault("risk.max_per_symbol", 1)
	v.SetDefault("risk.max_equity_per_scalp", 0.15)
	v.SetDefault("risk.min_order_notional", 10.0)
	v.SetDefault("risk.cooldown", 15*time.Second)
	v.SetDefault("risk.daily_loss_limit_pct", 0.08)
	v.SetDefault("risk.daily_loss_pause", 4*time.Hour)
	v.SetDefault("risk.daily_max_scalps", 200)
	v.SetDefault("risk.trailing_stop_pct", 0.05)
	v.SetDefault("risk.closed_history_limit", 500)
	v.SetDefault("risk.trade_log_limit", 500)
	v.SetDefault("risk.journal_limit", 200)

	v.SetDefault("modifiers.fear_greed.extreme_fear_threshold", 25.0)
	v.SetDefault("modifiers.fear_greed.extreme_greed_threshold", 75.0)
	v.SetDefault("modifiers.fear_greed.size_boost_fear", 0.2)
	v.SetDefault("modifiers.fear_greed.size_reduce_greed", -0.15)
	v.SetDefault("modifiers.fear_greed.tp_boost_fear", 0.001)
	v.SetDefault("modifiers.fear_greed.sl_tighten_greed", -0.0005)
	v.SetDefault("modifiers.funding.negative_threshold", -0.0001)
	v.SetDefault("modifiers.funding.positive_threshold", 0.0001)
	v.SetDefault("modifiers.funding.size_bullish_adjust", 0.1)
	v.SetDefault("modifiers.funding.size_bearish_adjust", -0.1)
	v.SetDefault("modifiers.sentiment.negative_threshold", -0.3)
	v.SetDefault("modifiers.sentiment.positive_threshold", 0.3)
	v.SetDefault("modifiers.sentiment.bearish_size_adjust", -0.15)
	v.SetDefault("modifiers.sentiment.bullish_size_adjust", 0.1)
	v.SetDefault("modifiers.regime.min_confidence", 0.3)
	v.SetDefault("modifiers.regime.trending_up_size_adjust", 0.1)
	v.SetDefault("modifiers.regime.trending_up_tp_adjust", 0.001)
	v.SetDefault("modifiers.regime.trending_down_size_adjust", -0.2)
	v.SetDefault("modifiers.regime.trending_down_sl_adjust", -0.0005)
	v.SetDefault("modifiers.regime.volatile_expansion_sl_adjust", -0.0005)
	v.SetDefault("modifiers.regime.volatile_compression_size_adjust", -0.1)
	v.SetDefault("modifiers.clamps.position_size_multiplier.min", 0.3)
	v.SetDefault("modifiers.clamps.position_size_multiplier.max", 1.5)
	v.SetDefault("modifiers.clamps.take_profit_pct.min", 0.001)
	v.SetDefault("modifiers.clamps.take_profit_pct.max", 0.008)
	v.SetDefault("modifiers.clamps.stop_loss_pct.min", 0.001)
	v.SetDefault("modifiers.clamps.stop_loss_pct.max", 0.005)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.journal_enabled", true)
	v.SetDefault("llm.fast_model", "gpt-4o-mini")
	v.SetDefault("llm.balanced_model", "gpt-4o")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.regime_ttl", 30*time.Minute)
	v.SetDefault("llm.sentiment_ttl", 15*time.Minute)
	v.SetDefault("llm.journal_queue", 64)

	v.SetDefault("data.alpaca_trading_url", "https://paper-api.alpaca.markets")
	v.SetDefault("data.alpaca_data_url", "https://data.alpaca.markets")
	v.SetDefault("data.alpaca_stream_url", "wss://stream.data.alpaca.markets/v1beta3/crypto/us")
	v.SetDefault("data.stream_enabled", false)
	v.SetDefault("data.max_quote_age", 10*time.Second)
	v.SetDefault("data.fear_greed_url", "https://api.alternative.me")
	v.SetDefault("data.binance_url", "https://fapi.binance.com")
	v.SetDefault("data.bybit_url", "https://api.bybit.com")
	v.SetDefault("data.hyperliquid_url", "https://api.hyperliquid.xyz")
	v.SetDefault("data.fear_greed_ttl", 15*time.Minute)
	v.SetDefault("data.funding_ttl", 15*time.Minute)
	v.SetDefault("data.news_ttl", 15*time.Minute)
	v.SetDefault("data.news_limit", 10)
	v.SetDefault("data.rate_limit", 5.0)
	v.SetDefault("data.breaker_failures", 3)
	v.SetDefault("data.breaker_cooldown", 5*time.Minute)
	v.SetDefault("data.paper_cash", 10000.0)

	v.SetDefault("timeouts.broker", 10*time.Second)
	v.SetDefault("timeouts.data", 10*time.Second)
	v.SetDefault("timeouts.enrichment", 8*time.Second)
	v.SetDefault("timeouts.llm", 20*time.Second)

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.console", logDefaults.Console)
	v.SetDefault("logging.file", logDefaults.File)
	v.SetDefault("logging.file_path", logDefaults.FilePath)
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)

	v.SetDefault("metrics.addr", "")
}

func applyEnvOverrides(cfg *Config) {
	// Alpaca credentials
	if v := os.Getenv("ALPACA_KEY_ID"); v != "" {
		cfg.Credentials.Alpaca.KeyID = v
	}
	if v := os.Getenv("ALPACA_SECRET_KEY"); v != "" {
		cfg.Credentials.Alpaca.SecretKey = v
	}

	// OpenAI credentials
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}

	if v := os.Getenv("BOT_MODE"); v != "" {
		cfg.Bot.Mode = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Bot.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LLM_ENABLED"); v != "" {
		cfg.LLM.Enabled = v != "false"
	}
	if v := os.Getenv("LLM_JOURNAL_ENABLED"); v != "" {
		cfg.LLM.JournalEnabled = v != "false"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bot.Mode != "live" && c.Bot.Mode != "paper" {
		return apperrors.NewValidationError("bot.mode", c.Bot.Mode, "must be 'live' or 'paper'")
	}
	if len(c.Symbols) == 0 {
		return apperrors.NewValidationError("symbols", c.Symbols, "at least one symbol is required")
	}
	for _, s := range c.Symbols {
		if !strings.HasSuffix(s, "/USD") {
			return apperrors.NewValidationError("symbols", s, "must be a USD pair in slash form")
		}
	}

	s := c.Scalp
	if s.LoopInterval <= 0 {
		return apperrors.NewValidationError("scalp.loop_interval", s.LoopInterval, "must be positive")
	}
	if s.BarsLimit < s.EMASlow+1 {
		return apperrors.NewValidationError("scalp.bars_limit", s.BarsLimit, "must cover ema_slow + 1 bars")
	}
	if s.EMAFast <= 0 || s.EMAFast >= s.EMASlow {
		return apperrors.NewValidationError("scalp.ema_fast", s.EMAFast, "must be positive and below ema_slow")
	}
	if s.RSIPeriod <= 0 || s.ROCPeriod <= 0 || s.VolumeAvgPeriod <= 0 || s.BBPeriod <= 0 || s.RSIClassifyPeriod <= 0 {
		return apperrors.NewValidationError("scalp", nil, "indicator periods must be positive")
	}
	if s.VolumeSpikeMultiplier <= 1 {
		return apperrors.NewValidationError("scalp.volume_spike_multiplier", s.VolumeSpikeMultiplier, "must be greater than 1")
	}
	if s.TakeProfitPct <= 0 || s.StopLossPct <= 0 {
		return apperrors.NewValidationError("scalp.take_profit_pct", s.TakeProfitPct, "take-profit and stop-loss must be positive")
	}
	if s.StopLossPct >= s.TakeProfitPct {
		return apperrors.NewValidationError("scalp.stop_loss_pct", s.StopLossPct, "must be below take_profit_pct")
	}
	if s.MaxHold <= 0 {
		return apperrors.NewValidationError("scalp.max_hold", s.MaxHold, "must be positive")
	}
	if s.ExitReversalThreshold >= s.EntryThreshold {
		return apperrors.NewValidationError("scalp.exit_reversal_threshold", s.ExitReversalThreshold, "must be below entry_threshold")
	}
	for name, w := range s.Weights.values() {
		if w < 0 {
			return apperrors.NewValidationError("scalp.weights."+name, w, "must be non-negative")
		}
	}
	if sum := s.Weights.Sum(); math.Abs(sum-1) > 1e-6 {
		return apperrors.NewValidationError("scalp.weights", sum, "must sum to 1.0")
	}

	r := c.Risk
	if r.MaxOpenScalps <= 0 || r.MaxPerSymbol <= 0 || r.DailyMaxScalps <= 0 {
		return apperrors.NewValidationError("risk", nil, "position caps must be positive")
	}
	if r.MaxEquityPerScalp <= 0 || r.MaxEquityPerScalp > 1 {
		return apperrors.NewValidationError("risk.max_equity_per_scalp", r.MaxEquityPerScalp, "must be in (0, 1]")
	}
	if r.DailyLossLimitPct <= 0 || r.DailyLossLimitPct >= 1 {
		return apperrors.NewValidationError("risk.daily_loss_limit_pct", r.DailyLossLimitPct, "must be in (0, 1)")
	}
	if r.MinOrderNotional < 0 || r.Cooldown < 0 || r.DailyLossPause < 0 {
		return apperrors.NewValidationError("risk", nil, "notional and durations must be non-negative")
	}
	if r.ClosedHistoryLimit <= 0 || r.TradeLogLimit <= 0 || r.JournalLimit <= 0 {
		return apperrors.NewValidationError("risk", nil, "history limits must be positive")
	}

	cl := c.Modifiers.Clamps
	for name, rg := range map[string]Range{
		"position_size_multiplier": cl.PositionSizeMultiplier,
		"take_profit_pct":          cl.TakeProfitPct,
		"stop_loss_pct":            cl.StopLossPct,
	} {
		if rg.Min > rg.Max {
			return apperrors.NewValidationError("modifiers.clamps."+name, rg, "min must not exceed max")
		}
	}
	if cl.StopLossPct.Min <= 0 || cl.TakeProfitPct.Min <= 0 || cl.PositionSizeMultiplier.Min < 0 {
		return apperrors.NewValidationError("modifiers.clamps", cl, "lower bounds must be positive")
	}

	if c.Data.NewsLimit <= 0 {
		return apperrors.NewValidationError("data.news_limit", c.Data.NewsLimit, "must be positive")
	}
	if c.Data.RateLimit <= 0 {
		return apperrors.NewValidationError("data.rate_limit", c.Data.RateLimit, "must be positive")
	}

	for name, d := range map[string]time.Duration{
		"broker":     c.Timeouts.Broker,
		"data":       c.Timeouts.Data,
		"enrichment": c.Timeouts.Enrichment,
		"llm":        c.Timeouts.LLM,
	} {
		if d <= 0 {
			return apperrors.NewValidationError("timeouts."+name, d, "must be positive")
		}
	}

	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Bot.Mode == "paper"
}

// HasAlpacaCredentials reports whether both Alpaca keys are set.
func (c *Config) HasAlpacaCredentials() bool {
	return c.Credentials.Alpaca.KeyID != "" && c.Credentials.Alpaca.SecretKey != ""
}

// LLMAvailable reports whether LLM enrichment can run.
func (c *Config) LLMAvailable() bool {
	return c.LLM.Enabled && c.Credentials.OpenAI.APIKey != ""
}
