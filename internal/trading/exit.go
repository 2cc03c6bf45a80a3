package trading

import (
	"time"

	"crypto-scalper/internal/models"
)

// CheckScalpExit evaluates exits in strict priority order: take-profit,
// stop-loss, timeout, reversal. The first match wins.
func CheckScalpExit(pos models.ScalpPosition, price, score float64, now time.Time, reversalThreshold float64) (models.ExitReason, bool) {
	switch {
	case price >= pos.TakeProfitPrice:
		return models.ExitTakeProfit, true
	case price <= pos.StopLossPrice:
		return models.ExitStopLoss, true
	case !now.Before(pos.MaxHoldUntil):
		return models.ExitTimeout, true
	case score <= reversalThreshold:
		return models.ExitReversal, true
	}
	return "", false
}
