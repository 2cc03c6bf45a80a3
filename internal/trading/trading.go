// Package trading provides the scalp decision primitives: enrichment modifiers,
// position sizing, the risk/capacity gate and exit evaluation.
package trading

import (
	"time"

	"crypto-scalper/internal/models"
)

// ExitDecision is the outcome of evaluating one open scalp.
type ExitDecision struct {
	Position models.ScalpPosition
	Reason   models.ExitReason
	// Qty is the quantity to sell, never more than Position.Qty.
	Qty   float64
	Price float64
	Score float64
	At    time.Time
}

// EntryDecision is a sized long entry that passed the risk gate.
type EntryDecision struct {
	Symbol    models.Symbol
	Notional  float64
	Price     float64
	Score     float64
	Modifiers models.SignalModifiers
}
