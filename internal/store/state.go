package store

import (
	"time"

	"github.com/google/uuid"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/models"
)

const dateLayout = "2006-01-02"

// Limits caps the append-only histories held in State.
type Limits struct {
	ClosedHistory int
	TradeLog      int
	Journal       int
}

// DefaultLimits returns the retention bounds used when none are configured.
func DefaultLimits() Limits {
	return Limits{ClosedHistory: 500, TradeLog: 500, Journal: 200}
}

// DailyCounter counts scalp entries for one UTC date.
type DailyCounter struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// OpenParams describes a filled entry order.
type OpenParams struct {
	Symbol        models.Symbol
	FillPrice     float64
	Qty           float64
	Notional      float64
	Score         float64
	TakeProfitPct float64
	StopLossPct   float64
	MaxHold       time.Duration
}

// State is the engine's single-writer aggregate. Only the tick loop mutates it;
// everything else reads copies.
type State struct {
	StartedAt      time.Time                   `json:"started_at"`
	InitialCapital float64                     `json:"initial_capital"`
	LastEquity     float64                     `json:"last_equity"`
	OpenScalps     []models.ScalpPosition      `json:"open_scalps"`
	ClosedScalps   []models.ClosedScalp        `json:"closed_scalps"`
	Daily          DailyCounter                `json:"daily"`
	LastTradeTime  map[models.Symbol]time.Time `json:"last_trade_time"`
	HighWaterMarks map[models.Symbol]float64   `json:"high_water_marks"`
	TradeLog       []models.TradeEntry         `json:"trade_log"`
	Signals        []models.SignalSnapshot     `json:"signals"`
	Enrichment     *models.EnrichmentContext   `json:"enrichment"`
	Journal        []models.JournalEntry       `json:"journal"`
	Paused         bool                        `json:"paused"`
	PausedUntil    *time.Time                  `json:"paused_until"`
	LastTickAt     *time.Time                  `json:"last_tick_at"`
	LastError      string                      `json:"last_error"`

	limits Limits
	now    func() time.Time
}

// NewState returns an empty state started now.
func NewState(limits Limits, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		StartedAt:      now().UTC(),
		LastTradeTime:  make(map[models.Symbol]time.Time),
		HighWaterMarks: make(map[models.Symbol]float64),
		limits:         limits,
		now:            now,
	}
}

// Configure sets retention limits and the clock on a loaded state.
func (s *State) Configure(limits Limits, now func() time.Time) {
	s.limits = limits
	if now != nil {
		s.now = now
	}
}

// Now returns the state's clock reading.
func (s *State) Now() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// OpenScalp records a filled long entry. Targets are computed from the fill
// price and the daily entry counter is incremented.
func (s *State) OpenScalp(p OpenParams) models.ScalpPosition {
	now := s.Now()
	pos := models.ScalpPosition{
		ID:              uuid.NewString(),
		Symbol:          p.Symbol,
		Direction:       models.DirectionLong,
		EntryPrice:      p.FillPrice,
		Qty:             p.Qty,
		Notional:        p.Notional,
		TakeProfitPrice: p.FillPrice * (1 + p.TakeProfitPct),
		StopLossPrice:   p.FillPrice * (1 - p.StopLossPct),
		MaxHoldUntil:    now.Add(p.MaxHold),
		EntryScore:      p.Score,
		EntryTime:       now,
	}
	s.OpenScalps = append(s.OpenScalps, pos)
	s.IncrementDailyScalpCount()
	return pos
}

// CloseScalp moves the open scalp id to closed history. Unknown ids return
// ErrPositionNotFound and leave the state untouched.
func (s *State) CloseScalp(id string, exitPrice float64, reason models.ExitReason) (models.ClosedScalp, error) {
	idx := -1
	for i := range s.OpenScalps {
		if s.OpenScalps[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ClosedScalp{}, apperrors.ErrPositionNotFound
	}

	pos := s.OpenScalps[idx]
	exitTime := s.Now()
	duration := exitTime.Sub(pos.EntryTime).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	var pnlPct float64
	if pos.EntryPrice > 0 {
		pnlPct = (exitPrice - pos.EntryPrice) / pos.EntryPrice
	}

	closed := models.ClosedScalp{
		ID:         pos.ID,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Qty:        pos.Qty,
		Notional:   pos.Notional,
		PnL:        (exitPrice - pos.EntryPrice) * pos.Qty,
		PnLPct:     pnlPct,
		ExitReason: reason,
		EntryTime:  pos.EntryTime,
		ExitTime:   exitTime,
		DurationMs: duration,
	}

	s.OpenScalps = append(s.OpenScalps[:idx:idx], s.OpenScalps[idx+1:]...)
	s.ClosedScalps = capTail(append(s.ClosedScalps, closed), s.limits.ClosedHistory)
	return closed, nil
}

// OpenScalpsFor returns the open scalps for symbol in entry order.
func (s *State) OpenScalpsFor(symbol models.Symbol) []models.ScalpPosition {
	var out []models.ScalpPosition
	for _, p := range s.OpenScalps {
		if p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out
}

// IncrementDailyScalpCount bumps today's entry counter, resetting it when the
// UTC date has rolled over, and returns the new count.
func (s *State) IncrementDailyScalpCount() int {
	today := s.Now().UTC().Format(dateLayout)
	if s.Daily.Date != today {
		s.Daily = DailyCounter{Date: today}
	}
	s.Daily.Count++
	return s.Daily.Count
}

// DailyScalpCount returns today's entry count; a stale date counts as zero.
func (s *State) DailyScalpCount() int {
	if s.Daily.Date != s.Now().UTC().Format(dateLayout) {
		return 0
	}
	return s.Daily.Count
}

// RecordTrade appends to the trade log and stamps the symbol's last trade time.
func (s *State) RecordTrade(entry models.TradeEntry) {
	s.TradeLog = capTail(append(s.TradeLog, entry), s.limits.TradeLog)
	if s.LastTradeTime == nil {
		s.LastTradeTime = make(map[models.Symbol]time.Time)
	}
	s.LastTradeTime[entry.Symbol] = entry.Timestamp
}

// AppendJournal adds generated journal entries, oldest trimmed first.
func (s *State) AppendJournal(entries ...models.JournalEntry) {
	if len(entries) == 0 {
		return
	}
	s.Journal = capTail(append(s.Journal, entries...), s.limits.Journal)
}

// SetPaused toggles the manual pause. Resuming also clears a daily-loss pause.
func (s *State) SetPaused(paused bool) {
	s.Paused = paused
	if !paused {
		s.PausedUntil = nil
	}
}

// PauseUntil blocks new entries until t.
func (s *State) PauseUntil(t time.Time) {
	s.PausedUntil = &t
}

// MarkTick records a completed or failed tick.
func (s *State) MarkTick(err error) {
	now := s.Now()
	s.LastTickAt = &now
	if err != nil {
		s.LastError = err.Error()
		return
	}
	s.LastError = ""
}

// Metrics derives aggregate statistics from closed history.
func (s *State) Metrics() models.ScalpMetrics {
	return ComputeMetrics(s.ClosedScalps)
}

// ComputeMetrics aggregates closed scalps. A scalp with positive PnL is a win.
func ComputeMetrics(closed []models.ClosedScalp) models.ScalpMetrics {
	m := models.ScalpMetrics{TotalScalps: len(closed)}
	if len(closed) == 0 {
		return m
	}

	var totalDuration int64
	m.BestPnL = closed[0].PnL
	m.WorstPnL = closed[0].PnL
	for _, c := range closed {
		if c.PnL > 0 {
			m.Wins++
		} else {
			m.Losses++
		}
		m.TotalPnL += c.PnL
		totalDuration += c.DurationMs
		if c.PnL > m.BestPnL {
			m.BestPnL = c.PnL
		}
		if c.PnL < m.WorstPnL {
			m.WorstPnL = c.PnL
		}
	}

	n := float64(len(closed))
	m.WinRate = float64(m.Wins) / n
	m.AvgPnL = m.TotalPnL / n
	m.AvgDurationMs = float64(totalDuration) / n
	return m
}

func capTail[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	out := make([]T, limit)
	copy(out, items[len(items)-limit:])
	return out
}
