package models

import "time"

// FearGreed is the crypto fear & greed index reading (0-100).
type FearGreed struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Timestamp      time.Time `json:"timestamp"`
}

// FundingRate is a perpetual funding rate keyed by the provider's own symbol.
type FundingRate struct {
	Provider        string    `json:"provider"`
	Symbol          string    `json:"symbol"`
	Rate            float64   `json:"rate"`
	MarkPrice       float64   `json:"mark_price"`
	NextFundingTime time.Time `json:"next_funding_time"`
}

// NewsItem is one headline for an instrument.
type NewsItem struct {
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Symbols   []string  `json:"symbols"`
}

// Regime is a market condition classification.
type Regime string

const (
	RegimeTrendingUp          Regime = "trending-up"
	RegimeTrendingDown        Regime = "trending-down"
	RegimeRangeBound          Regime = "range-bound"
	RegimeVolatileExpansion   Regime = "volatile-expansion"
	RegimeVolatileCompression Regime = "volatile-compression"
)

// Valid reports whether r is one of the known regimes.
func (r Regime) Valid() bool {
	switch r {
	case RegimeTrendingUp, RegimeTrendingDown, RegimeRangeBound,
		RegimeVolatileExpansion, RegimeVolatileCompression:
		return true
	}
	return false
}

// RegimeClassification is the regime with a confidence in [0,1].
type RegimeClassification struct {
	Regime     Regime  `json:"regime"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// SentimentScore is a news sentiment reading in [-1,1].
type SentimentScore struct {
	Symbol            Symbol  `json:"symbol"`
	Score             float64 `json:"score"`
	Summary           string  `json:"summary"`
	HeadlinesAnalyzed int     `json:"headlines_analyzed"`
}

// EnrichmentContext is rebuilt from scratch on every tick. Nil fields mean the
// source was unavailable.
type EnrichmentContext struct {
	FearGreed    *FearGreed            `json:"fear_greed"`
	FundingRates []FundingRate         `json:"funding_rates"`
	Sentiments   map[Symbol]float64    `json:"sentiments"`
	Regime       *RegimeClassification `json:"regime"`
	Timestamp    time.Time             `json:"timestamp"`
}

// FundingRateFor returns the funding rate for symbol in whichever provider's
// symbol format the rates were fetched in.
func (e *EnrichmentContext) FundingRateFor(symbol Symbol) *float64 {
	if e == nil {
		return nil
	}
	return FundingRateFor(e.FundingRates, symbol)
}

// SentimentFor returns the sentiment score for symbol, if analyzed.
func (e *EnrichmentContext) SentimentFor(symbol Symbol) *float64 {
	if e == nil {
		return nil
	}
	if v, ok := e.Sentiments[symbol]; ok {
		return &v
	}
	return nil
}

// FearGreedValue returns the index value, if fetched.
func (e *EnrichmentContext) FearGreedValue() *float64 {
	if e == nil || e.FearGreed == nil {
		return nil
	}
	v := float64(e.FearGreed.Value)
	return &v
}

// FundingRateFor looks symbol up in rates using the provider-specific form.
func FundingRateFor(rates []FundingRate, symbol Symbol) *float64 {
	for _, r := range rates {
		var want string
		switch r.Provider {
		case "hyperliquid":
			want = symbol.Hyperliquid()
		case "bybit":
			want = symbol.Bybit()
		default:
			want = symbol.Binance()
		}
		if r.Symbol == want {
			rate := r.Rate
			return &rate
		}
	}
	return nil
}

// SignalModifiers are the clamped per-tick adjustments to base scalp parameters.
type SignalModifiers struct {
	PositionSizeMultiplier float64 `json:"position_size_multiplier"`
	TakeProfitPct          float64 `json:"take_profit_pct"`
	StopLossPct            float64 `json:"stop_loss_pct"`
}

// JournalEntry is an LLM-written note about an executed trade.
type JournalEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Symbol        Symbol    `json:"symbol"`
	Side          OrderSide `json:"side"`
	Price         float64   `json:"price"`
	Notional      float64   `json:"notional"`
	Reason        string    `json:"reason"`
	MarketContext string    `json:"market_context"`
	Analysis      string    `json:"analysis"`
	Regime        *Regime   `json:"regime"`
	Sentiment     *float64  `json:"sentiment"`
	FearGreed     *float64  `json:"fear_greed"`
}
