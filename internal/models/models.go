// Package models provides domain models for the scalping engine.
package models

import (
	"time"
)

// Bar is one OHLCV candle for a single time bucket, as returned by the data API.
type Bar struct {
	Timestamp  time.Time `json:"t"`
	Open       float64   `json:"o"`
	High       float64   `json:"h"`
	Low        float64   `json:"l"`
	Close      float64   `json:"c"`
	Volume     float64   `json:"v"`
	TradeCount int64     `json:"n"`
	VWAP       float64   `json:"vw"`
}

// Closes extracts close prices from bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts volumes from bars.
func Volumes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// QuoteSnapshot holds the best bid/ask for one instrument at fetch time.
type QuoteSnapshot struct {
	Symbol    Symbol    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Spread    float64   `json:"spread"`
	MidPrice  float64   `json:"mid_price"`
	Timestamp time.Time `json:"timestamp"`
}

// NewQuoteSnapshot derives spread and mid price from a bid/ask pair.
func NewQuoteSnapshot(symbol Symbol, bid, ask float64, ts time.Time) QuoteSnapshot {
	return QuoteSnapshot{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Spread:    ask - bid,
		MidPrice:  (bid + ask) / 2,
		Timestamp: ts,
	}
}

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderRequest is a market order sized either by notional or by quantity.
type OrderRequest struct {
	Symbol   Symbol
	Side     OrderSide
	Notional float64
	Qty      float64
}

// OrderFill is the broker's answer to an order. FilledQty and FilledAvgPrice are
// nil while the order is unfilled or pending.
type OrderFill struct {
	OrderID        string
	Status         string
	FilledQty      *float64
	FilledAvgPrice *float64
}

// Filled reports whether both the fill quantity and price are known.
func (f *OrderFill) Filled() bool {
	return f != nil && f.FilledQty != nil && f.FilledAvgPrice != nil && *f.FilledQty > 0
}

// Account holds the broker account summary.
type Account struct {
	Equity float64
	Cash   float64
}

// BrokerPosition is a position as reported by the broker.
type BrokerPosition struct {
	Symbol       Symbol  `json:"symbol"`
	Qty          float64 `json:"qty"`
	MarketValue  float64 `json:"market_value"`
	CurrentPrice float64 `json:"current_price"`
}
