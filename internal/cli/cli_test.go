package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-scalper/internal/engine"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/store"
)

type cliEnv struct {
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	env := cliEnv{configDir: t.TempDir(), dataDir: t.TempDir()}
	t.Setenv("DATA_DIR", env.dataDir)
	t.Setenv("BOT_MODE", "paper")
	t.Setenv("ALPACA_KEY_ID", "")
	t.Setenv("ALPACA_SECRET_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	return env
}

func (env cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", env.configDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (env cliEnv) openStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(env.dataDir, "scalper.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestVersionJSON(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "version", "--json")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v["version"])
}

func TestConfigPathAndValidate(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, env.configDir+"\n", out)

	out, err = env.run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.FileExists(t, filepath.Join(env.configDir, "config.toml"))
}

func TestConfigShowMasksCredentials(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("ALPACA_KEY_ID", "PKAB12345678WXYZ")

	out, err := env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "PKAB********WXYZ")
	assert.NotContains(t, out, "PKAB12345678WXYZ")

	out, err = env.run(t, "config", "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "PKAB12345678WXYZ")
}

func TestControlCommandsEnqueue(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "pause")
	require.NoError(t, err)
	_, err = env.run(t, "resume")
	require.NoError(t, err)

	_, err = env.run(t, "liquidate")
	require.Error(t, err)

	out, err := env.run(t, "liquidate", "--yes", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"queued": true`)

	cmds, err := env.openStore(t).Drain(context.Background())
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, store.CommandPause, cmds[0].Kind)
	assert.Equal(t, store.CommandResume, cmds[1].Kind)
	assert.Equal(t, store.CommandLiquidate, cmds[2].Kind)
}

func seedClosed(t *testing.T, env cliEnv) {
	t.Helper()
	st := env.openStore(t)
	state := store.NewState(store.DefaultLimits(), nil)
	state.LastEquity = 10050
	state.InitialCapital = 10000
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	state.ClosedScalps = []models.ClosedScalp{
		{ID: "a", Symbol: "BTC/USD", EntryPrice: 100, ExitPrice: 100.3, Qty: 10, PnL: 3, PnLPct: 0.003,
			ExitReason: models.ExitTakeProfit, EntryTime: base, ExitTime: base.Add(time.Minute), DurationMs: 60000},
		{ID: "b", Symbol: "ETH/USD", EntryPrice: 100, ExitPrice: 99.8, Qty: 10, PnL: -2, PnLPct: -0.002,
			ExitReason: models.ExitStopLoss, EntryTime: base, ExitTime: base.Add(2 * time.Minute), DurationMs: 120000},
		{ID: "c", Symbol: "BTC/USD", EntryPrice: 100, ExitPrice: 100.1, Qty: 10, PnL: 1, PnLPct: 0.001,
			ExitReason: models.ExitTakeProfit, EntryTime: base, ExitTime: base.Add(3 * time.Minute), DurationMs: 180000},
	}
	require.NoError(t, st.Save(context.Background(), state))
}

func TestStatusJSON(t *testing.T) {
	env := newCLIEnv(t)
	seedClosed(t, env)

	out, err := env.run(t, "status", "--json")
	require.NoError(t, err)

	var s engine.Status
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "paper", s.Mode)
	assert.Equal(t, 10050.0, s.Equity)
	assert.Equal(t, 3, s.Metrics.TotalScalps)
	assert.Empty(t, s.OpenScalps)
}

func TestStatusTable(t *testing.T) {
	env := newCLIEnv(t)
	seedClosed(t, env)

	out, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "$10,050.00")
	assert.Contains(t, out, "+0.50%")
	assert.Contains(t, out, "active")
}

func TestMetricsAndTrades(t *testing.T) {
	env := newCLIEnv(t)
	seedClosed(t, env)

	out, err := env.run(t, "metrics", "--json")
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.TotalScalps)
	assert.Equal(t, 2, report.Wins)
	assert.InDelta(t, 2.0, report.TotalPnL, 1e-9)

	out, err = env.run(t, "trades", "--json", "-n", "1")
	require.NoError(t, err)
	var closed []models.ClosedScalp
	require.NoError(t, json.Unmarshal([]byte(out), &closed))
	require.Len(t, closed, 1)
	assert.Equal(t, "c", closed[0].ID)
}

func TestBuildReport(t *testing.T) {
	closed := []models.ClosedScalp{
		{Symbol: "ETH/USD", PnL: -2, ExitReason: models.ExitStopLoss},
		{Symbol: "BTC/USD", PnL: 3, ExitReason: models.ExitTakeProfit},
		{Symbol: "BTC/USD", PnL: 1, ExitReason: models.ExitTakeProfit},
	}
	r := buildReport(closed)

	require.Len(t, r.ByReason, 2)
	assert.Equal(t, models.ExitTakeProfit, r.ByReason[0].Reason)
	assert.Equal(t, 2, r.ByReason[0].Count)
	assert.InDelta(t, 4.0, r.ByReason[0].PnL, 1e-9)

	require.Len(t, r.BySymbol, 2)
	assert.Equal(t, models.Symbol("BTC/USD"), r.BySymbol[0].Symbol)
	assert.Equal(t, 1.0, r.BySymbol[0].Metrics.WinRate)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, clampLimit(0))
	assert.Equal(t, 1, clampLimit(-5))
	assert.Equal(t, 50, clampLimit(50))
	assert.Equal(t, maxListLimit, clampLimit(1000))
}

func TestTopIndicator(t *testing.T) {
	assert.Equal(t, "-", topIndicator(nil))
	got := topIndicator([]models.IndicatorScore{
		{Name: "ema_cross", Weighted: 0.1},
		{Name: "spread", Weighted: -0.15},
		{Name: "rsi", Weighted: 0.05},
	})
	assert.Equal(t, "spread -0.150", got)
}

func TestTableAlignsColoredCells(t *testing.T) {
	var buf bytes.Buffer
	o := &Output{writer: &buf, colorEnabled: true}
	table := NewTable(o, "A", "B")
	table.AddRow(o.Green("x"), "y")
	table.AddRow("long", "z")
	table.Render()

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Equal(t, visibleLen(string(lines[2])), visibleLen(string(lines[3])))
}
