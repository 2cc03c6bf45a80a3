package trading

import (
	"fmt"

	"crypto-scalper/internal/config"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/store"
)

// Risk rule names reported in RiskError.
const (
	RulePaused       = "paused"
	RuleCooldown     = "cooldown"
	RuleMaxOpen      = "max_open_scalps"
	RuleMaxPerSymbol = "max_per_symbol"
	RuleDailyMax     = "daily_max_scalps"
)

// RiskGate evaluates entries against the current state snapshot. It holds no
// state of its own.
type RiskGate struct {
	cfg config.RiskConfig
}

// NewRiskGate creates a gate for the given limits.
func NewRiskGate(cfg config.RiskConfig) *RiskGate {
	return &RiskGate{cfg: cfg}
}

// IsPaused reports whether entries are blocked by the manual pause or an
// unexpired daily-loss pause.
func (g *RiskGate) IsPaused(st *store.State) bool {
	if st.Paused {
		return true
	}
	return st.PausedUntil != nil && st.Now().Before(*st.PausedUntil)
}

// InCooldown reports whether symbol traded within the cooldown window.
func (g *RiskGate) InCooldown(st *store.State, symbol models.Symbol) bool {
	last, ok := st.LastTradeTime[symbol]
	if !ok || last.IsZero() {
		return false
	}
	return st.Now().Sub(last) < g.cfg.Cooldown
}

// DailyLossBreached reports whether equity has fallen at least the daily loss
// limit below initial capital.
func (g *RiskGate) DailyLossBreached(st *store.State, equity float64) bool {
	if st.InitialCapital <= 0 {
		return false
	}
	lossPct := (st.InitialCapital - equity) / st.InitialCapital
	return lossPct >= g.cfg.DailyLossLimitPct
}

// TripDailyLoss pauses entries for the configured period when the daily loss
// limit is breached and no pause is already running. It returns true when it
// tripped the breaker.
func (g *RiskGate) TripDailyLoss(st *store.State, equity float64) bool {
	if !g.DailyLossBreached(st, equity) {
		return false
	}
	if st.PausedUntil != nil && st.Now().Before(*st.PausedUntil) {
		return false
	}
	st.PauseUntil(st.Now().Add(g.cfg.DailyLossPause))
	return true
}

// CheckEntry returns a *RiskError naming the first rule that blocks a new
// entry for symbol, or nil.
func (g *RiskGate) CheckEntry(st *store.State, symbol models.Symbol) error {
	if g.IsPaused(st) {
		return apperrors.NewRiskError(RulePaused, 1, 0, "entries paused")
	}
	if g.InCooldown(st, symbol) {
		elapsed := st.Now().Sub(st.LastTradeTime[symbol])
		return apperrors.NewRiskError(RuleCooldown, elapsed.Seconds(), g.cfg.Cooldown.Seconds(),
			fmt.Sprintf("%s traded recently", symbol))
	}
	if open := len(st.OpenScalps); open >= g.cfg.MaxOpenScalps {
		return apperrors.NewRiskError(RuleMaxOpen, float64(open), float64(g.cfg.MaxOpenScalps), "too many open scalps")
	}
	if open := len(st.OpenScalpsFor(symbol)); open >= g.cfg.MaxPerSymbol {
		return apperrors.NewRiskError(RuleMaxPerSymbol, float64(open), float64(g.cfg.MaxPerSymbol),
			fmt.Sprintf("%s already has an open scalp", symbol))
	}
	if count := st.DailyScalpCount(); count >= g.cfg.DailyMaxScalps {
		return apperrors.NewRiskError(RuleDailyMax, float64(count), float64(g.cfg.DailyMaxScalps), "daily scalp limit reached")
	}
	return nil
}

// UpdateHighWaterMark raises the recorded peak for symbol when price exceeds it.
func (g *RiskGate) UpdateHighWaterMark(st *store.State, symbol models.Symbol, price float64) {
	if st.HighWaterMarks == nil {
		st.HighWaterMarks = make(map[models.Symbol]float64)
	}
	if price > st.HighWaterMarks[symbol] {
		st.HighWaterMarks[symbol] = price
	}
}

// ClearHighWaterMark forgets the peak for symbol.
func (g *RiskGate) ClearHighWaterMark(st *store.State, symbol models.Symbol) {
	delete(st.HighWaterMarks, symbol)
}

// CheckTrailingStop reports whether price has drawn down at least the trailing
// stop percentage from the symbol's high-water mark.
func (g *RiskGate) CheckTrailingStop(st *store.State, symbol models.Symbol, price float64) bool {
	hwm := st.HighWaterMarks[symbol]
	if hwm <= 0 {
		return false
	}
	return (hwm-price)/hwm >= g.cfg.TrailingStopPct
}
