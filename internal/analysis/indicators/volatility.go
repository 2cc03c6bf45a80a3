// Package indicators provides pure technical indicator functions over price and
// volume series. Scores are normalized to [-1, 1].
package indicators

// Bands holds Bollinger Band levels for the latest bar.
type Bands struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Bandwidth float64 `json:"bandwidth"`
}

// BollingerBands computes bands over the last period closes using the SMA and
// population standard deviation. Fewer than period closes yields the zero band.
func BollingerBands(closes []float64, period int, multiplier float64) Bands {
	if period <= 0 || len(closes) < period {
		return Bands{}
	}

	window := closes[len(closes)-period:]
	sma, sd := meanStd(window)

	b := Bands{
		Upper:  sma + multiplier*sd,
		Middle: sma,
		Lower:  sma - multiplier*sd,
	}
	if sma > 0 {
		b.Bandwidth = (b.Upper - b.Lower) / sma
	}
	return b
}

// Position describes where price sits relative to the bands.
func (b Bands) Position(price float64) string {
	switch {
	case b.Middle == 0:
		return "n/a"
	case price >= b.Upper:
		return "above upper"
	case price <= b.Lower:
		return "below lower"
	case price >= b.Middle:
		return "upper half"
	default:
		return "lower half"
	}
}
