// Package scoring combines scalp indicator scores into a weighted directional signal.
package scoring

import (
	"math"
	"time"

	"crypto-scalper/internal/analysis/indicators"
	"crypto-scalper/internal/models"
)

// Indicator names as reported in signals.
const (
	NameEMACross      = "ema-cross"
	NameRSI           = "rsi"
	NameROC           = "roc"
	NameVolumeSpike   = "volume-spike"
	NameVWAPDeviation = "vwap-deviation"
	NameSpread        = "spread"
)

// IndicatorWeights defines the weight of each indicator in the composite score.
// The weights are expected to partition 1.0; the scorer does not enforce it.
type IndicatorWeights struct {
	EMACross      float64
	RSI           float64
	ROC           float64
	VolumeSpike   float64
	VWAPDeviation float64
	Spread        float64
}

// DefaultWeights returns the default indicator weights.
func DefaultWeights() IndicatorWeights {
	return IndicatorWeights{
		EMACross:      0.25,
		RSI:           0.15,
		ROC:           0.15,
		VolumeSpike:   0.15,
		VWAPDeviation: 0.15,
		Spread:        0.15,
	}
}

// Sum returns the total of all weights.
func (w IndicatorWeights) Sum() float64 {
	return w.EMACross + w.RSI + w.ROC + w.VolumeSpike + w.VWAPDeviation + w.Spread
}

// Params configures indicator periods and the entry threshold.
type Params struct {
	EntryThreshold        float64
	EMAFast               int
	EMASlow               int
	RSIPeriod             int
	ROCPeriod             int
	VolumeAvgPeriod       int
	VolumeSpikeMultiplier float64
	Weights               IndicatorWeights
}

// DefaultParams returns the 1-minute scalp defaults.
func DefaultParams() Params {
	return Params{
		EntryThreshold:        0.3,
		EMAFast:               8,
		EMASlow:               21,
		RSIPeriod:             7,
		ROCPeriod:             5,
		VolumeAvgPeriod:       20,
		VolumeSpikeMultiplier: 2.0,
		Weights:               DefaultWeights(),
	}
}

// SignalScorer produces scalp signals. It is stateless apart from its clock.
type SignalScorer struct {
	params Params
	now    func() time.Time
}

// NewSignalScorer creates a scorer with the given parameters.
func NewSignalScorer(params Params) *SignalScorer {
	return &SignalScorer{params: params, now: time.Now}
}

// NewSignalScorerWithClock creates a scorer that stamps signals with now().
func NewSignalScorerWithClock(params Params, now func() time.Time) *SignalScorer {
	return &SignalScorer{params: params, now: now}
}

// Params returns the scorer's parameters.
func (s *SignalScorer) Params() Params {
	return s.params
}

// GenerateSignal scores one instrument. The aggregate score is the plain sum of
// weighted indicator scores; the direction is long at or above the entry
// threshold and none otherwise. Short entries are never produced.
func (s *SignalScorer) GenerateSignal(symbol models.Symbol, bars []models.Bar, quote models.QuoteSnapshot, vwap *float64) models.ScalpSignal {
	closes := models.Closes(bars)
	volumes := models.Volumes(bars)
	p := s.params
	w := p.Weights

	scores := []models.IndicatorScore{
		component(NameEMACross, indicators.EMACrossScore(closes, p.EMAFast, p.EMASlow), w.EMACross),
		component(NameRSI, indicators.RSIScore(indicators.RSI(closes, p.RSIPeriod)), w.RSI),
		component(NameROC, indicators.ROCScore(closes, p.ROCPeriod), w.ROC),
		component(NameVolumeSpike, indicators.VolumeSpikeScore(volumes, closes, p.VolumeAvgPeriod, p.VolumeSpikeMultiplier), w.VolumeSpike),
		component(NameVWAPDeviation, indicators.VWAPDeviationScore(quote.MidPrice, vwap), w.VWAPDeviation),
		component(NameSpread, indicators.SpreadScore(quote.Spread, quote.MidPrice), w.Spread),
	}

	var total float64
	for _, sc := range scores {
		total += sc.Weighted
	}

	direction := models.DirectionNone
	if total >= p.EntryThreshold {
		direction = models.DirectionLong
	}

	return models.ScalpSignal{
		Symbol:     symbol,
		Direction:  direction,
		Score:      total,
		Indicators: scores,
		Price:      quote.MidPrice,
		Spread:     quote.Spread,
		Timestamp:  s.now(),
	}
}

func component(name string, raw, weight float64) models.IndicatorScore {
	if math.IsNaN(raw) {
		raw = 0
	}
	return models.IndicatorScore{
		Name:     name,
		Raw:      raw,
		Weight:   weight,
		Weighted: raw * weight,
	}
}
