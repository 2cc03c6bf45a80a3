// Package logging builds the scalper's zerolog logger and its event helpers.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig is the [logging] section of config.toml.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// DefaultLogConfig logs info to the console and to a rotated file next to the
// config directory.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "crypto-scalper", "logs", "scalper.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     14,
	}
}

var levelTags = map[string]*color.Color{
	"debug": color.New(color.FgCyan),
	"info":  color.New(color.FgGreen),
	"warn":  color.New(color.FgYellow),
	"error": color.New(color.FgRed, color.Bold),
	"fatal": color.New(color.FgRed, color.Bold),
}

func formatLevel(colored bool) zerolog.Formatter {
	return func(i interface{}) string {
		level, _ := i.(string)
		tag := strings.ToUpper(level)
		if len(tag) > 3 {
			tag = tag[:3]
		}
		c, ok := levelTags[level]
		if !colored || !ok {
			return tag
		}
		return c.Sprint(tag)
	}
}

func consoleWriter(out *os.File) zerolog.ConsoleWriter {
	colored := isatty.IsTerminal(out.Fd()) && !color.NoColor
	return zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     !colored,
		TimeFormat:  time.TimeOnly,
		FormatLevel: formatLevel(colored),
	}
}

// NewLoggerWithConfig builds the process logger. With both outputs enabled the
// console and the rotated file receive every event.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer
	if cfg.Console {
		writers = append(writers, consoleWriter(os.Stderr))
	}
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var w io.Writer = os.Stderr
	switch len(writers) {
	case 0:
	case 1:
		w = writers[0]
	default:
		w = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel accepts zerolog level names and "warning". Anything else is info.
func ParseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// SetDebugLevel is used by --debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

type ctxKey struct{}

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the attached logger, or a no-op one.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// LogOrder records a filled order. price is the fill price.
func LogOrder(logger zerolog.Logger, symbol, side string, notional, qty, price float64) {
	logger.Info().
		Str("event", "order").
		Str("symbol", symbol).
		Str("side", side).
		Float64("notional", notional).
		Float64("qty", qty).
		Float64("price", price).
		Msg("Order filled")
}

// LogExit records a closed scalp.
func LogExit(logger zerolog.Logger, symbol, reason string, pnl, pnlPct float64, held time.Duration) {
	logger.Info().
		Str("event", "exit").
		Str("symbol", symbol).
		Str("reason", reason).
		Float64("pnl", pnl).
		Float64("pnl_pct", pnlPct).
		Dur("held", held).
		Msg("Scalp closed")
}

// LogAPICall records one upstream HTTP call at debug level. Callers decide
// whether a failure deserves a warning.
func LogAPICall(logger zerolog.Logger, method, endpoint string, duration time.Duration, err error) {
	event := logger.Debug()
	if err != nil {
		event = event.Err(err)
	}
	event.Str("event", "api_call").
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("duration", duration).
		Msg("Upstream call")
}
