package indicators

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// meanStd returns the mean and population standard deviation of window.
func meanStd(window []float64) (m, sd float64) {
	if len(window) == 0 {
		return 0, 0
	}
	m = mean(window)
	var ss float64
	for _, v := range window {
		ss += (v - m) * (v - m)
	}
	return m, math.Sqrt(ss / float64(len(window)))
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// bounded clamps a raw score to [-1, 1], mapping NaN to neutral.
func bounded(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, -1, 1)
}

// sign returns -1, 0 or 1.
func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
