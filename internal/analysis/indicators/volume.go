package indicators

import "math"

// VolumeSpikeScore compares the latest volume to the average of the avgPeriod
// bars before it. Below spikeMultiplier it is 0; otherwise it is signed by the
// latest price move with intensity rising linearly from 1x to spikeMultiplier x.
func VolumeSpikeScore(volumes, closes []float64, avgPeriod int, spikeMultiplier float64) float64 {
	n := len(volumes)
	if avgPeriod <= 0 || n < avgPeriod+1 || len(closes) < 2 {
		return 0
	}

	avg := mean(volumes[n-1-avgPeriod : n-1])
	if avg <= 0 {
		return 0
	}

	ratio := volumes[n-1] / avg
	if ratio < spikeMultiplier {
		return 0
	}

	direction := sign(closes[len(closes)-1] - closes[len(closes)-2])

	intensity := 1.0
	if spikeMultiplier > 1 {
		intensity = math.Min((ratio-1)/(spikeMultiplier-1), 1)
	}

	return bounded(direction * intensity)
}

// VWAPDeviationScore is bullish below VWAP and bearish above, with ±0.3%
// deviation mapping to ∓1. A missing or non-positive VWAP is neutral.
func VWAPDeviationScore(price float64, vwap *float64) float64 {
	if vwap == nil || *vwap <= 0 {
		return 0
	}
	deviation := (price - *vwap) / *vwap
	return bounded(-deviation / 0.003)
}

// SpreadScore rates quote tightness: spread/mid at or under 0.01% is +1, at or
// over 0.05% is -1, linear between. A quote without a mid price is -1.
func SpreadScore(spread, midPrice float64) float64 {
	if midPrice <= 0 {
		return -1
	}
	pct := spread / midPrice * 100
	switch {
	case pct <= 0.01:
		return 1
	case pct >= 0.05:
		return -1
	default:
		return bounded(1 - 2*(pct-0.01)/0.04)
	}
}
