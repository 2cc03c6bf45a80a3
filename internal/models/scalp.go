package models

import "time"

// Direction is the side a signal recommends.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionNone  Direction = "none"
)

// ExitReason explains why a scalp was closed.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take-profit"
	ExitStopLoss   ExitReason = "stop-loss"
	ExitTimeout    ExitReason = "timeout"
	ExitReversal   ExitReason = "reversal"
	ExitManual     ExitReason = "manual"
)

// IndicatorScore is one weighted component of a scalp signal.
type IndicatorScore struct {
	Name     string  `json:"name"`
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// ScalpSignal is the scored evaluation of one instrument on one tick.
type ScalpSignal struct {
	Symbol     Symbol           `json:"symbol"`
	Direction  Direction        `json:"direction"`
	Score      float64          `json:"score"`
	Indicators []IndicatorScore `json:"indicators"`
	Price      float64          `json:"price"`
	Spread     float64          `json:"spread"`
	Timestamp  time.Time        `json:"timestamp"`
}

// SignalSnapshot is the per-tick reporting view of a signal.
type SignalSnapshot struct {
	Symbol     Symbol           `json:"symbol"`
	Price      float64          `json:"price"`
	Score      float64          `json:"score"`
	Direction  Direction        `json:"direction"`
	Indicators []IndicatorScore `json:"indicators"`
	Action     string           `json:"action"`
	Timestamp  time.Time        `json:"timestamp"`
}

// ScalpPosition is an open scalp. For long positions
// TakeProfitPrice > EntryPrice > StopLossPrice.
type ScalpPosition struct {
	ID              string    `json:"id"`
	Symbol          Symbol    `json:"symbol"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	Qty             float64   `json:"qty"`
	Notional        float64   `json:"notional"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	MaxHoldUntil    time.Time `json:"max_hold_until"`
	EntryScore      float64   `json:"entry_score"`
	EntryTime       time.Time `json:"entry_time"`
}

// ClosedScalp is the immutable record of an exited scalp.
type ClosedScalp struct {
	ID         string     `json:"id"`
	Symbol     Symbol     `json:"symbol"`
	Direction  Direction  `json:"direction"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Qty        float64    `json:"qty"`
	Notional   float64    `json:"notional"`
	PnL        float64    `json:"pnl"`
	PnLPct     float64    `json:"pnl_pct"`
	ExitReason ExitReason `json:"exit_reason"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	DurationMs int64      `json:"duration_ms"`
}

// ScalpMetrics aggregates closed scalp history.
type ScalpMetrics struct {
	TotalScalps   int     `json:"total_scalps"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AvgPnL        float64 `json:"avg_pnl"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	BestPnL       float64 `json:"best_pnl"`
	WorstPnL      float64 `json:"worst_pnl"`
}

// TradeEntry is one line of the trade log.
type TradeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    Symbol    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Qty       float64   `json:"qty"`
	Notional  float64   `json:"notional"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
}
