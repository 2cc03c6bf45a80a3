package trading

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"crypto-scalper/internal/config"
	"crypto-scalper/internal/models"
)

func newParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	return parameters
}

var allRegimes = []models.Regime{
	models.RegimeTrendingUp, models.RegimeTrendingDown, models.RegimeRangeBound,
	models.RegimeVolatileExpansion, models.RegimeVolatileCompression,
}

// Feature: crypto-scalper, Property 3: Modifier outputs stay within configured clamps
//
// Property: For any combination of fear-greed, funding, sentiment, regime and
// confidence (including absent sources and out-of-range values), every modifier
// field lies within its configured [min, max].
func TestProperty_ModifiersAlwaysClamped(t *testing.T) {
	cfg := config.Default()
	clamps := cfg.Modifiers.Clamps
	properties := gopter.NewProperties(newParameters())

	optional := func(g gopter.Gen) gopter.Gen {
		return gopter.CombineGens(gen.Bool(), g).Map(func(v []interface{}) *float64 {
			if !v[0].(bool) {
				return nil
			}
			f := v[1].(float64)
			return &f
		})
	}

	properties.Property("outputs within clamps", prop.ForAll(
		func(fg, funding, sentiment, confidence *float64, regimeIdx int) bool {
			in := ModifierInput{FearGreed: fg, FundingRate: funding, Sentiment: sentiment, RegimeConfidence: confidence}
			if regimeIdx < len(allRegimes) {
				r := allRegimes[regimeIdx]
				in.Regime = &r
			}
			m := CalculateScalpModifiers(cfg.Scalp, cfg.Modifiers, in)
			return within(m.PositionSizeMultiplier, clamps.PositionSizeMultiplier) &&
				within(m.TakeProfitPct, clamps.TakeProfitPct) &&
				within(m.StopLossPct, clamps.StopLossPct)
		},
		optional(gen.Float64Range(-100, 200)),
		optional(gen.Float64Range(-1, 1)),
		optional(gen.Float64Range(-5, 5)),
		optional(gen.Float64Range(-2, 3)),
		gen.IntRange(0, len(allRegimes)),
	))

	properties.Property("extreme config adjustments are still clamped", prop.ForAll(
		func(boost float64) bool {
			c := config.Default()
			c.Modifiers.FearGreed.SizeBoostFear = boost
			c.Modifiers.FearGreed.TPBoostFear = boost
			c.Modifiers.Regime.TrendingUpSizeAdjust = boost
			c.Modifiers.Regime.TrendingUpTPAdjust = boost
			fg, conf := 5.0, 1.0
			regime := models.RegimeTrendingUp
			m := CalculateScalpModifiers(c.Scalp, c.Modifiers, ModifierInput{FearGreed: &fg, Regime: &regime, RegimeConfidence: &conf})
			return within(m.PositionSizeMultiplier, clamps.PositionSizeMultiplier) &&
				within(m.TakeProfitPct, clamps.TakeProfitPct)
		},
		gen.Float64Range(-1000, 1000),
	))

	properties.TestingRun(t)
}

func within(v float64, r config.Range) bool {
	return v >= r.Min && v <= r.Max
}

// Feature: crypto-scalper, Property 4: Exit priority is take-profit, stop-loss, timeout, reversal
//
// Property: When the price is at or above the take-profit price the reason is
// take-profit regardless of hold time or score.
func TestProperty_ExitPriority(t *testing.T) {
	properties := gopter.NewProperties(newParameters())
	entryTime := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	position := func(entry float64) models.ScalpPosition {
		return models.ScalpPosition{
			ID:              "p",
			Symbol:          "BTC/USD",
			Direction:       models.DirectionLong,
			EntryPrice:      entry,
			TakeProfitPrice: entry * 1.003,
			StopLossPrice:   entry * 0.998,
			MaxHoldUntil:    entryTime.Add(5 * time.Minute),
			EntryTime:       entryTime,
		}
	}

	properties.Property("take-profit beats timeout and reversal", prop.ForAll(
		func(entry, overshoot, score float64, heldSec int) bool {
			pos := position(entry)
			price := pos.TakeProfitPrice * (1 + overshoot)
			reason, ok := CheckScalpExit(pos, price, score, entryTime.Add(time.Duration(heldSec)*time.Second), -0.2)
			return ok && reason == models.ExitTakeProfit
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 0.05),
		gen.Float64Range(-1, 1),
		gen.IntRange(0, 3600),
	))

	properties.Property("stop-loss beats timeout and reversal", prop.ForAll(
		func(entry, undershoot, score float64, heldSec int) bool {
			pos := position(entry)
			price := pos.StopLossPrice * (1 - undershoot)
			reason, ok := CheckScalpExit(pos, price, score, entryTime.Add(time.Duration(heldSec)*time.Second), -0.2)
			return ok && reason == models.ExitStopLoss
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(0, 0.05),
		gen.Float64Range(-1, 1),
		gen.IntRange(0, 3600),
	))

	properties.Property("inside the band, timeout beats reversal", prop.ForAll(
		func(entry, score float64, heldSec int) bool {
			pos := position(entry)
			reason, ok := CheckScalpExit(pos, entry, score, entryTime.Add(time.Duration(heldSec)*time.Second), -0.2)
			switch {
			case heldSec >= 300:
				return ok && reason == models.ExitTimeout
			case score <= -0.2:
				return ok && reason == models.ExitReversal
			default:
				return !ok
			}
		},
		gen.Float64Range(0.01, 100000),
		gen.Float64Range(-1, 1),
		gen.IntRange(0, 600),
	))

	properties.TestingRun(t)
}

// Feature: crypto-scalper, Property 9: Scalp size never exceeds the per-scalp equity cap
func TestProperty_ScalpSizeBounded(t *testing.T) {
	cfg := config.Default()
	properties := gopter.NewProperties(newParameters())

	properties.Property("0 or within [minNotional, equity*maxEquityPerScalp]", prop.ForAll(
		func(equity, score, mult float64) bool {
			n := CalculateScalpSize(equity, score, mult, cfg.Scalp, cfg.Risk)
			if n == 0 {
				return true
			}
			return n >= cfg.Risk.MinOrderNotional && n <= equity*cfg.Risk.MaxEquityPerScalp+1e-9
		},
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0.3, 1),
		gen.Float64Range(0.3, 1.5),
	))

	properties.TestingRun(t)
}
