package indicators

import "math"

// CalculateEMA calculates an EMA series seeded with the SMA of the first period
// values. Entries before period-1 are zero. Returns nil without enough data.
func CalculateEMA(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	result := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)

	result[period-1] = mean(values[:period])

	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}

	return result
}

// EMACrossScore scores the fast/slow EMA relationship. A fresh crossover between
// the previous and latest bar is ±1; an established trend is damped to at most
// ±0.7 by the size of the gap.
func EMACrossScore(closes []float64, fast, slow int) float64 {
	if fast <= 0 || slow <= 0 || len(closes) < slow+1 || len(closes) < fast+1 {
		return 0
	}

	fastEMA := CalculateEMA(closes, fast)
	slowEMA := CalculateEMA(closes, slow)
	n := len(closes)

	if slowEMA[n-1] <= 0 || slowEMA[n-2] <= 0 {
		return 0
	}

	gap := (fastEMA[n-1] - slowEMA[n-1]) / slowEMA[n-1]
	prevGap := (fastEMA[n-2] - slowEMA[n-2]) / slowEMA[n-2]

	if prevGap <= 0 && gap > 0 {
		return 1
	}
	if prevGap >= 0 && gap < 0 {
		return -1
	}

	return bounded(sign(gap) * math.Min(math.Abs(gap)*100, 1) * 0.7)
}
