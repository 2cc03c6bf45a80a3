// Package broker provides brokerage and market data integrations.
package broker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"crypto-scalper/internal/models"
)

// OrderBroker places orders and reports account state.
type OrderBroker interface {
	// PlaceOrder submits a market order. FilledQty/FilledAvgPrice in the
	// result are nil while the order is unfilled or pending.
	PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderFill, error)
	GetAccountEquity(ctx context.Context) (float64, error)
	GetOpenPositions(ctx context.Context) ([]models.BrokerPosition, error)
	LiquidateAll(ctx context.Context) error
}

// PriceFeed serves bars and quotes.
type PriceFeed interface {
	// GetBars tolerates per-symbol failures; a failed symbol maps to an empty slice.
	GetBars(ctx context.Context, symbols []models.Symbol, timeframe string, limit int) (map[models.Symbol][]models.Bar, error)
	GetQuoteSnapshots(ctx context.Context, symbols []models.Symbol) (map[models.Symbol]models.QuoteSnapshot, error)
}

// NewsSource serves recent headlines per symbol.
type NewsSource interface {
	GetNews(ctx context.Context, symbol models.Symbol, limit int) ([]models.NewsItem, error)
}

// TimeframeDuration converts an Alpaca timeframe ("1Min", "15Min", "1Hour",
// "1Day") to its bucket length.
func TimeframeDuration(timeframe string) (time.Duration, error) {
	units := []struct {
		suffix string
		unit   time.Duration
	}{
		{"Min", time.Minute},
		{"T", time.Minute},
		{"Hour", time.Hour},
		{"H", time.Hour},
		{"Day", 24 * time.Hour},
		{"D", 24 * time.Hour},
	}
	for _, u := range units {
		if n, ok := strings.CutSuffix(timeframe, u.suffix); ok {
			count, err := strconv.Atoi(n)
			if err != nil || count <= 0 {
				break
			}
			return time.Duration(count) * u.unit, nil
		}
	}
	return 0, fmt.Errorf("unsupported timeframe: %q", timeframe)
}
