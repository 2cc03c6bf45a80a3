package trading

import (
	"crypto-scalper/internal/config"
	"crypto-scalper/internal/models"
)

// ModifierInput is the per-symbol enrichment view. Nil means the source was
// unavailable and contributes no adjustment.
type ModifierInput struct {
	FearGreed        *float64
	FundingRate      *float64
	Sentiment        *float64
	Regime           *models.Regime
	RegimeConfidence *float64
}

// ModifierInputFor extracts the inputs for symbol from an enrichment context.
func ModifierInputFor(ec *models.EnrichmentContext, symbol models.Symbol) ModifierInput {
	in := ModifierInput{
		FearGreed:   ec.FearGreedValue(),
		FundingRate: ec.FundingRateFor(symbol),
		Sentiment:   ec.SentimentFor(symbol),
	}
	if ec != nil && ec.Regime != nil {
		regime := ec.Regime.Regime
		confidence := ec.Regime.Confidence
		in.Regime = &regime
		in.RegimeConfidence = &confidence
	}
	return in
}

// CalculateScalpModifiers adjusts the baseline take-profit, stop-loss and a unit
// size multiplier from enrichment. Rules are additive across sources and the
// result is clamped once at the end.
func CalculateScalpModifiers(scalp config.ScalpConfig, cfg config.ModifierConfig, in ModifierInput) models.SignalModifiers {
	size := 1.0
	tp := scalp.TakeProfitPct
	sl := scalp.StopLossPct

	if in.FearGreed != nil {
		fg := cfg.FearGreed
		if *in.FearGreed < fg.ExtremeFearThreshold {
			size += fg.SizeBoostFear
			tp += fg.TPBoostFear
		} else if *in.FearGreed > fg.ExtremeGreedThreshold {
			size += fg.SizeReduceGreed
			sl += fg.SLTightenGreed
		}
	}

	if in.FundingRate != nil {
		fd := cfg.Funding
		if *in.FundingRate < fd.NegativeThreshold {
			size += fd.SizeBullishAdjust
		} else if *in.FundingRate > fd.PositiveThreshold {
			size += fd.SizeBearishAdjust
		}
	}

	if in.Sentiment != nil {
		st := cfg.Sentiment
		if *in.Sentiment < st.NegativeThreshold {
			size += st.BearishSizeAdjust
		} else if *in.Sentiment > st.PositiveThreshold {
			size += st.BullishSizeAdjust
		}
	}

	if in.Regime != nil && in.RegimeConfidence != nil && *in.RegimeConfidence > cfg.Regime.MinConfidence {
		rg := cfg.Regime
		scale := *in.RegimeConfidence

		switch *in.Regime {
		case models.RegimeTrendingUp:
			size += rg.TrendingUpSizeAdjust * scale
			tp += rg.TrendingUpTPAdjust * scale
		case models.RegimeTrendingDown:
			size += rg.TrendingDownSizeAdjust * scale
			sl += rg.TrendingDownSLAdjust * scale
		case models.RegimeVolatileExpansion:
			sl += rg.VolatileExpansionSLAdjust * scale
		case models.RegimeVolatileCompression:
			size += rg.VolatileCompressionSizeAdjust * scale
		}
	}

	c := cfg.Clamps
	return models.SignalModifiers{
		PositionSizeMultiplier: c.PositionSizeMultiplier.Clamp(size),
		TakeProfitPct:          c.TakeProfitPct.Clamp(tp),
		StopLossPct:            c.StopLossPct.Clamp(sl),
	}
}
