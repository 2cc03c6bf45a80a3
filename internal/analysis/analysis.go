// Package analysis summarizes the tracked market for regime classification.
package analysis

import (
	"crypto-scalper/internal/analysis/indicators"
	"crypto-scalper/internal/models"
)

// SymbolSummary is the price picture for one instrument.
type SymbolSummary struct {
	Current   float64 `json:"current"`
	ChangePct float64 `json:"change_pct"`
}

// MarketSummary aggregates the inputs a regime classifier works from.
type MarketSummary struct {
	Prices       map[models.Symbol]SymbolSummary `json:"prices"`
	FearGreed    *float64                        `json:"fear_greed"`
	AvgRSI       float64                         `json:"avg_rsi"`
	AvgBandwidth float64                         `json:"avg_bandwidth"`
	FundingRates map[models.Symbol]float64       `json:"funding_rates"`
}

// SummaryParams are the classification indicator settings.
type SummaryParams struct {
	BBPeriod     int
	BBMultiplier float64
	RSIPeriod    int
}

// Summarize computes per-symbol price change over the bar window plus the
// average RSI and Bollinger bandwidth across all symbols that have bars.
func Summarize(symbols []models.Symbol, bars map[models.Symbol][]models.Bar, params SummaryParams) MarketSummary {
	summary := MarketSummary{
		Prices:       make(map[models.Symbol]SymbolSummary),
		FundingRates: make(map[models.Symbol]float64),
	}

	var rsiTotal, bwTotal float64
	var counted int
	for _, sym := range symbols {
		series := bars[sym]
		if len(series) == 0 {
			continue
		}
		closes := models.Closes(series)
		first, last := closes[0], closes[len(closes)-1]

		var change float64
		if first > 0 {
			change = (last - first) / first * 100
		}
		summary.Prices[sym] = SymbolSummary{Current: last, ChangePct: change}

		rsiTotal += indicators.RSI(closes, params.RSIPeriod)
		bwTotal += indicators.BollingerBands(closes, params.BBPeriod, params.BBMultiplier).Bandwidth
		counted++
	}

	if counted > 0 {
		summary.AvgRSI = rsiTotal / float64(counted)
		summary.AvgBandwidth = bwTotal / float64(counted)
	} else {
		summary.AvgRSI = 50
	}
	return summary
}
