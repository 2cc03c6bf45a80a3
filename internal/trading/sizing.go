package trading

import (
	"math"

	"crypto-scalper/internal/config"
)

// CalculateScalpSize returns the USD notional for a long entry, or 0 when the
// order would fall below the minimum notional.
//
// Conviction scales linearly with score/threshold up to 2x, so a signal exactly
// at the threshold uses half of the per-scalp equity cap.
func CalculateScalpSize(equity, score, sizeMultiplier float64, scalp config.ScalpConfig, risk config.RiskConfig) float64 {
	if equity <= 0 || scalp.EntryThreshold <= 0 {
		return 0
	}

	scoreRatio := math.Min(score/scalp.EntryThreshold, 2)
	basePct := risk.MaxEquityPerScalp * scoreRatio / 2
	notional := equity * basePct * sizeMultiplier
	notional = math.Min(notional, equity*risk.MaxEquityPerScalp)

	if notional < risk.MinOrderNotional || notional <= 0 {
		return 0
	}
	return notional
}
