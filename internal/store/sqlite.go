package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"crypto-scalper/internal/models"
)

// SQLiteStore implements StateStore and CommandQueue using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Open scalps, seq preserves entry order
	CREATE TABLE IF NOT EXISTS open_scalps (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		qty REAL NOT NULL,
		notional REAL NOT NULL,
		take_profit_price REAL NOT NULL,
		stop_loss_price REAL NOT NULL,
		max_hold_until DATETIME NOT NULL,
		entry_score REAL NOT NULL,
		entry_time DATETIME NOT NULL
	);

	-- Closed scalp history
	CREATE TABLE IF NOT EXISTS closed_scalps (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		qty REAL NOT NULL,
		notional REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_pct REAL NOT NULL,
		exit_reason TEXT NOT NULL,
		entry_time DATETIME NOT NULL,
		exit_time DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_log (
		seq INTEGER PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		qty REAL NOT NULL,
		notional REAL NOT NULL,
		price REAL NOT NULL,
		reason TEXT
	);

	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		price REAL NOT NULL,
		notional REAL NOT NULL,
		reason TEXT,
		market_context TEXT,
		analysis TEXT,
		regime TEXT,
		sentiment REAL,
		fear_greed REAL
	);

	-- Scalar fields and JSON blobs
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	-- Control commands from the CLI
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at, id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads the persisted state. An empty database yields a fresh state.
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	st := NewState(DefaultLimits(), nil)

	kv, err := s.loadKV(ctx)
	if err != nil {
		return nil, err
	}
	if err := decodeKV(kv, st); err != nil {
		return nil, err
	}

	if st.OpenScalps, err = s.loadOpenScalps(ctx); err != nil {
		return nil, err
	}
	if st.ClosedScalps, err = s.loadClosedScalps(ctx); err != nil {
		return nil, err
	}
	if st.TradeLog, err = s.loadTradeLog(ctx); err != nil {
		return nil, err
	}
	if st.Journal, err = s.loadJournal(ctx); err != nil {
		return nil, err
	}

	return st, nil
}

// Save writes the whole state in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st *State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveKV(ctx, tx, st); err != nil {
		return err
	}

	for _, table := range []string{"open_scalps", "closed_scalps", "trade_log", "journal"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, p := range st.OpenScalps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO open_scalps (id, seq, symbol, direction, entry_price, qty, notional, take_profit_price, stop_loss_price, max_hold_until, entry_score, entry_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i, string(p.Symbol), string(p.Direction), p.EntryPrice, p.Qty, p.Notional, p.TakeProfitPrice, p.StopLossPrice, p.MaxHoldUntil.UTC(), p.EntryScore, p.EntryTime.UTC())
		if err != nil {
			return fmt.Errorf("failed to save open scalp: %w", err)
		}
	}

	for i, c := range st.ClosedScalps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO closed_scalps (id, seq, symbol, direction, entry_price, exit_price, qty, notional, pnl, pnl_pct, exit_reason, entry_time, exit_time, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, i, string(c.Symbol), string(c.Direction), c.EntryPrice, c.ExitPrice, c.Qty, c.Notional, c.PnL, c.PnLPct, string(c.ExitReason), c.EntryTime.UTC(), c.ExitTime.UTC(), c.DurationMs)
		if err != nil {
			return fmt.Errorf("failed to save closed scalp: %w", err)
		}
	}

	for i, t := range st.TradeLog {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trade_log (seq, timestamp, symbol, side, qty, notional, price, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, i, t.Timestamp.UTC(), string(t.Symbol), string(t.Side), t.Qty, t.Notional, t.Price, t.Reason)
		if err != nil {
			return fmt.Errorf("failed to save trade: %w", err)
		}
	}

	for i, j := range st.Journal {
		var regime sql.NullString
		if j.Regime != nil {
			regime = sql.NullString{String: string(*j.Regime), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO journal (id, seq, timestamp, symbol, side, price, notional, reason, market_context, analysis, regime, sentiment, fear_greed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, j.ID, i, j.Timestamp.UTC(), string(j.Symbol), string(j.Side), j.Price, j.Notional, j.Reason, j.MarketContext, j.Analysis, regime, nullFloat(j.Sentiment), nullFloat(j.FearGreed))
		if err != nil {
			return fmt.Errorf("failed to save journal entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}
	return nil
}

// Enqueue adds a control command and returns its id.
func (s *SQLiteStore) Enqueue(ctx context.Context, kind CommandKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("unknown command: %s", kind)
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO commands (kind, created_at) VALUES (?, ?)", string(kind), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue command: %w", err)
	}
	return res.LastInsertId()
}

// Drain returns pending commands in submission order and marks them processed.
func (s *SQLiteStore) Drain(ctx context.Context) ([]Command, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT id, kind, created_at FROM commands WHERE processed_at IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}

	var cmds []Command
	for rows.Next() {
		var c Command
		var kind string
		if err := rows.Scan(&c.ID, &kind, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		c.Kind = CommandKind(kind)
		cmds = append(cmds, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(cmds) == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE commands SET processed_at = ? WHERE processed_at IS NULL AND id <= ?",
		time.Now().UTC(), cmds[len(cmds)-1].ID); err != nil {
		return nil, fmt.Errorf("failed to mark commands: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit commands: %w", err)
	}
	return cmds, nil
}

func (s *SQLiteStore) loadKV(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM kv")
	if err != nil {
		return nil, fmt.Errorf("failed to query kv: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan kv: %w", err)
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

// kvFields maps kv keys to the State fields stored as JSON.
func kvFields(st *State) map[string]interface{} {
	return map[string]interface{}{
		"started_at":       &st.StartedAt,
		"initial_capital":  &st.InitialCapital,
		"last_equity":      &st.LastEquity,
		"daily":            &st.Daily,
		"last_trade_time":  &st.LastTradeTime,
		"high_water_marks": &st.HighWaterMarks,
		"signals":          &st.Signals,
		"enrichment":       &st.Enrichment,
		"paused":           &st.Paused,
		"paused_until":     &st.PausedUntil,
		"last_tick_at":     &st.LastTickAt,
		"last_error":       &st.LastError,
	}
}

func decodeKV(kv map[string]string, st *State) error {
	for key, target := range kvFields(st) {
		raw, ok := kv[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}
	if st.LastTradeTime == nil {
		st.LastTradeTime = make(map[models.Symbol]time.Time)
	}
	if st.HighWaterMarks == nil {
		st.HighWaterMarks = make(map[models.Symbol]float64)
	}
	return nil
}

func saveKV(ctx context.Context, tx *sql.Tx, st *State) error {
	for key, value := range kvFields(st) {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, string(data)); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadOpenScalps(ctx context.Context) ([]models.ScalpPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, direction, entry_price, qty, notional, take_profit_price, stop_loss_price, max_hold_until, entry_score, entry_time
		FROM open_scalps ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query open scalps: %w", err)
	}
	defer rows.Close()

	var out []models.ScalpPosition
	for rows.Next() {
		var p models.ScalpPosition
		var symbol, direction string
		if err := rows.Scan(&p.ID, &symbol, &direction, &p.EntryPrice, &p.Qty, &p.Notional, &p.TakeProfitPrice, &p.StopLossPrice, &p.MaxHoldUntil, &p.EntryScore, &p.EntryTime); err != nil {
			return nil, fmt.Errorf("failed to scan open scalp: %w", err)
		}
		p.Symbol = models.Symbol(symbol)
		p.Direction = models.Direction(direction)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadClosedScalps(ctx context.Context) ([]models.ClosedScalp, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, direction, entry_price, exit_price, qty, notional, pnl, pnl_pct, exit_reason, entry_time, exit_time, duration_ms
		FROM closed_scalps ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed scalps: %w", err)
	}
	defer rows.Close()

	var out []models.ClosedScalp
	for rows.Next() {
		var c models.ClosedScalp
		var symbol, direction, reason string
		if err := rows.Scan(&c.ID, &symbol, &direction, &c.EntryPrice, &c.ExitPrice, &c.Qty, &c.Notional, &c.PnL, &c.PnLPct, &reason, &c.EntryTime, &c.ExitTime, &c.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan closed scalp: %w", err)
		}
		c.Symbol = models.Symbol(symbol)
		c.Direction = models.Direction(direction)
		c.ExitReason = models.ExitReason(reason)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadTradeLog(ctx context.Context) ([]models.TradeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp, symbol, side, qty, notional, price, reason FROM trade_log ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query trade log: %w", err)
	}
	defer rows.Close()

	var out []models.TradeEntry
	for rows.Next() {
		var t models.TradeEntry
		var symbol, side string
		var reason sql.NullString
		if err := rows.Scan(&t.Timestamp, &symbol, &side, &t.Qty, &t.Notional, &t.Price, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Symbol = models.Symbol(symbol)
		t.Side = models.OrderSide(side)
		t.Reason = reason.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadJournal(ctx context.Context) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, symbol, side, price, notional, reason, market_context, analysis, regime, sentiment, fear_greed
		FROM journal ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []models.JournalEntry
	for rows.Next() {
		var j models.JournalEntry
		var symbol, side string
		var reason, marketContext, analysis, regime sql.NullString
		var sentiment, fearGreed sql.NullFloat64
		if err := rows.Scan(&j.ID, &j.Timestamp, &symbol, &side, &j.Price, &j.Notional, &reason, &marketContext, &analysis, &regime, &sentiment, &fearGreed); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		j.Symbol = models.Symbol(symbol)
		j.Side = models.OrderSide(side)
		j.Reason = reason.String
		j.MarketContext = marketContext.String
		j.Analysis = analysis.String
		if regime.Valid {
			r := models.Regime(regime.String)
			j.Regime = &r
		}
		if sentiment.Valid {
			v := sentiment.Float64
			j.Sentiment = &v
		}
		if fearGreed.Valid {
			v := fearGreed.Float64
			j.FearGreed = &v
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

var (
	_ StateStore   = (*SQLiteStore)(nil)
	_ CommandQueue = (*SQLiteStore)(nil)
)
