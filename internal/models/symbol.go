package models

import "strings"

// Symbol is a tradable crypto pair in slash form, e.g. "BTC/USD".
type Symbol string

var alpacaSymbols = map[Symbol]string{
	"BTC/USD":  "BTCUSD",
	"ETH/USD":  "ETHUSD",
	"SOL/USD":  "SOLUSD",
	"DOGE/USD": "DOGEUSD",
	"LINK/USD": "LINKUSD",
}

var binanceSymbols = map[Symbol]string{
	"BTC/USD":  "BTCUSDT",
	"ETH/USD":  "ETHUSDT",
	"SOL/USD":  "SOLUSDT",
	"DOGE/USD": "DOGEUSDT",
	"LINK/USD": "LINKUSDT",
}

var hyperliquidSymbols = map[Symbol]string{
	"BTC/USD":  "BTC",
	"ETH/USD":  "ETH",
	"SOL/USD":  "SOL",
	"DOGE/USD": "DOGE",
	"LINK/USD": "LINK",
}

// String returns the slash form.
func (s Symbol) String() string {
	return string(s)
}

// Base returns the base asset, e.g. "BTC".
func (s Symbol) Base() string {
	base, _, _ := strings.Cut(string(s), "/")
	return base
}

// Alpaca returns the Alpaca trading form ("BTCUSD").
func (s Symbol) Alpaca() string {
	if v, ok := alpacaSymbols[s]; ok {
		return v
	}
	return strings.ReplaceAll(string(s), "/", "")
}

// Binance returns the Binance USDT-margined perpetual form ("BTCUSDT").
func (s Symbol) Binance() string {
	if v, ok := binanceSymbols[s]; ok {
		return v
	}
	return strings.Replace(string(s), "/USD", "USDT", 1)
}

// Bybit returns the Bybit linear perpetual form, identical to Binance's.
func (s Symbol) Bybit() string {
	return s.Binance()
}

// Hyperliquid returns the Hyperliquid coin name ("BTC").
func (s Symbol) Hyperliquid() string {
	if v, ok := hyperliquidSymbols[s]; ok {
		return v
	}
	return s.Base()
}

// SymbolFromAlpaca maps an Alpaca position symbol back to slash form. Alpaca
// returns both "BTCUSD" and "BTC/USD" depending on the endpoint. Anything that
// is not a USD pair is unknown.
func SymbolFromAlpaca(alpaca string) (Symbol, bool) {
	if strings.Contains(alpaca, "/") {
		return Symbol(alpaca), true
	}
	for sym, v := range alpacaSymbols {
		if v == alpaca {
			return sym, true
		}
	}
	if base, ok := strings.CutSuffix(alpaca, "USD"); ok && base != "" {
		return Symbol(base + "/USD"), true
	}
	return "", false
}
