package enrichment

import "crypto-scalper/internal/models"

// ExtractVWAP returns the latest bar's VWAP when it is positive.
func ExtractVWAP(bars []models.Bar) *float64 {
	if len(bars) == 0 {
		return nil
	}
	vw := bars[len(bars)-1].VWAP
	if vw <= 0 {
		return nil
	}
	return &vw
}

// ExtractAllVWAPs maps every symbol with a usable VWAP.
func ExtractAllVWAPs(bars map[models.Symbol][]models.Bar) map[models.Symbol]float64 {
	out := make(map[models.Symbol]float64, len(bars))
	for sym, series := range bars {
		if vw := ExtractVWAP(series); vw != nil {
			out[sym] = *vw
		}
	}
	return out
}
