package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARNING "))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestFormatLevel(t *testing.T) {
	plain := formatLevel(false)
	assert.Equal(t, "WRN", plain("warn"))
	assert.Equal(t, "INF", plain("info"))
	assert.Contains(t, formatLevel(true)("error"), "ERR")
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), WithComponent(logger, "engine"))
	ctxLogger := FromContext(ctx)
	ctxLogger.Info().Msg("tick")
	assert.Contains(t, buf.String(), `"component":"engine"`)

	// No logger attached: events are dropped.
	bareLogger := FromContext(context.Background())
	bareLogger.Info().Msg("dropped")
	assert.NotContains(t, buf.String(), "dropped")
}

func TestEventHelpers(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	logger := WithSymbol(zerolog.New(&buf), "BTC/USD")

	LogExit(logger, "BTC/USD", "take-profit", 1.5, 0.003, 90*time.Second)
	var exit map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exit))
	assert.Equal(t, "exit", exit["event"])
	assert.Equal(t, "take-profit", exit["reason"])
	assert.Equal(t, "BTC/USD", exit["symbol"])

	buf.Reset()
	LogAPICall(logger, "GET", "/v2/account", time.Millisecond, assert.AnError)
	var call map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &call))
	assert.Equal(t, "debug", call["level"])
	assert.Equal(t, assert.AnError.Error(), call["error"])
}

func TestFileOnlyLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	path := filepath.Join(t.TempDir(), "logs", "scalper.log")
	logger := NewLoggerWithConfig(LogConfig{Level: "info", File: true, FilePath: path, MaxSize: 1})
	logger.Info().Msg("hello")
	assert.FileExists(t, path)
}
