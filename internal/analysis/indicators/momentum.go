package indicators

// RSI computes the Relative Strength Index with Wilder smoothing. It returns 50
// without period+1 closes, 100 when there were gains but no losses, and 50 for a
// completely flat window.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSIScore maps RSI to a score: oversold (<=30) is bullish in [0,1], overbought
// (>=70) is bearish in [-1,0], anything between is neutral.
func RSIScore(rsi float64) float64 {
	switch {
	case rsi <= 30:
		return bounded((30 - rsi) / 30)
	case rsi >= 70:
		return bounded(-(rsi - 70) / 30)
	default:
		return 0
	}
}

// ROCScore maps the percentage change over period bars so that ±0.5% is ±1.
func ROCScore(closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+1 {
		return 0
	}
	past := closes[n-1-period]
	if past <= 0 {
		return 0
	}
	rocPct := (closes[n-1] - past) / past * 100
	return bounded(rocPct / 0.5)
}
