package agents

import (
	"fmt"
	"sort"
	"strings"

	"crypto-scalper/internal/analysis"
	"crypto-scalper/internal/models"
)

const sentimentSystem = `You score crypto news sentiment for a short-term trading bot.
Reply with JSON only, shaped exactly like:
{"score": <number between -1.0 and 1.0>, "summary": "<one sentence>"}

Scale:
-1.0 severe bearish news (exchange failure, major hack, regulatory ban)
-0.5 bearish (large holders selling, enforcement actions, FUD)
 0.0 neutral or mixed
+0.5 bullish (adoption, favorable regulation, partnerships)
+1.0 strongly bullish (ETF approval, large institutional buying)`

const regimeSystem = `You classify the current crypto market regime from summary statistics.
Reply with JSON only, shaped exactly like:
{"regime": "<trending-up|trending-down|range-bound|volatile-expansion|volatile-compression>", "confidence": <0.0 to 1.0>, "reasoning": "<two sentences>"}

trending-up: higher highs and higher lows, RSI above 50, positive momentum
trending-down: lower highs and lower lows, RSI below 50, negative momentum
range-bound: price oscillating between support and resistance, RSI near 50
volatile-expansion: Bollinger bandwidth widening with large candles
volatile-compression: Bollinger bandwidth narrowing with small candles, often before a breakout`

const journalSystem = `You keep the trade journal for a crypto scalping bot.
Reply with JSON only, shaped exactly like:
{"analysis": "<two or three sentences on why the trade happened and the market context>"}`

func buildSentimentPrompt(symbol models.Symbol, headlines []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recent %s headlines:\n\n", symbol)
	for i, h := range headlines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	b.WriteString("\nScore the overall sentiment.")
	return b.String()
}

func buildRegimePrompt(s analysis.MarketSummary) string {
	var b strings.Builder
	b.WriteString("Market snapshot\n\nPrices (change over the bar window):\n")
	for _, sym := range sortedSymbols(s.Prices) {
		p := s.Prices[sym]
		fmt.Fprintf(&b, "  %s: $%.2f (%+.2f%%)\n", sym, p.Current, p.ChangePct)
	}

	fg := "N/A"
	if s.FearGreed != nil {
		fg = fmt.Sprintf("%.0f", *s.FearGreed)
	}
	fmt.Fprintf(&b, "\nFear & Greed Index: %s\n", fg)
	fmt.Fprintf(&b, "Average RSI: %.1f\n", s.AvgRSI)
	fmt.Fprintf(&b, "Average Bollinger bandwidth: %.4f\n", s.AvgBandwidth)

	b.WriteString("\nFunding rates:\n")
	if len(s.FundingRates) == 0 {
		b.WriteString("  N/A\n")
	}
	for _, sym := range sortedSymbols(s.FundingRates) {
		fmt.Fprintf(&b, "  %s: %.4f%%\n", sym, s.FundingRates[sym]*100)
	}
	b.WriteString("\nClassify the regime.")
	return b.String()
}

func buildJournalPrompt(req JournalRequest) string {
	return fmt.Sprintf(`Trade executed:
  Symbol: %s
  Side: %s
  Price: $%.2f
  Notional: $%.2f
  Reason: %s
  RSI: %.1f
  BB position: %s
  Fear & Greed: %s
  Sentiment: %s
  Regime: %s
  Funding rate: %s

Write the journal entry.`,
		req.Symbol, strings.ToUpper(string(req.Side)), req.Price, req.Notional, req.Reason,
		req.RSI, req.BBPosition,
		formatOptional(req.FearGreed, "%.0f", 1),
		formatOptional(req.Sentiment, "%.2f", 1),
		regimeName(req.Regime),
		formatOptional(req.FundingRate, "%.4f%%", 100),
	)
}

func formatOptional(v *float64, format string, scale float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v*scale)
}

func regimeName(r *models.Regime) string {
	if r == nil {
		return "N/A"
	}
	return string(*r)
}

func sortedSymbols[V any](m map[models.Symbol]V) []models.Symbol {
	out := make([]models.Symbol, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
