package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/models"
)

type fixedFeed struct {
	mids map[models.Symbol]float64
	err  error
}

func (f *fixedFeed) GetBars(context.Context, []models.Symbol, string, int) (map[models.Symbol][]models.Bar, error) {
	return map[models.Symbol][]models.Bar{}, nil
}

func (f *fixedFeed) GetQuoteSnapshots(_ context.Context, symbols []models.Symbol) (map[models.Symbol]models.QuoteSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[models.Symbol]models.QuoteSnapshot)
	for _, s := range symbols {
		if mid, ok := f.mids[s]; ok {
			out[s] = models.NewQuoteSnapshot(s, mid-0.5, mid+0.5, time.Now())
		}
	}
	return out, nil
}

func TestPaperBroker_BuySellRoundTrip(t *testing.T) {
	feed := &fixedFeed{mids: map[models.Symbol]float64{"BTC/USD": 100}}
	p := NewPaperBroker(PaperBrokerConfig{Feed: feed, InitialCash: 1000})
	ctx := context.Background()

	fill, err := p.PlaceOrder(ctx, models.OrderRequest{Symbol: "BTC/USD", Side: models.OrderSideBuy, Notional: 250})
	require.NoError(t, err)
	require.True(t, fill.Filled())
	assert.InDelta(t, 2.5, *fill.FilledQty, 1e-12)
	assert.InDelta(t, 100, *fill.FilledAvgPrice, 1e-12)
	assert.InDelta(t, 750, p.Cash(), 1e-9)

	feed.mids["BTC/USD"] = 110
	equity, err := p.GetAccountEquity(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 750+2.5*110, equity, 1e-9)

	_, err = p.PlaceOrder(ctx, models.OrderRequest{Symbol: "BTC/USD", Side: models.OrderSideSell, Qty: 2.5})
	require.NoError(t, err)
	assert.InDelta(t, 1025, p.Cash(), 1e-9)

	positions, err := p.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestPaperBroker_InsufficientFunds(t *testing.T) {
	feed := &fixedFeed{mids: map[models.Symbol]float64{"ETH/USD": 3000}}
	p := NewPaperBroker(PaperBrokerConfig{Feed: feed, InitialCash: 100})

	_, err := p.PlaceOrder(context.Background(), models.OrderRequest{Symbol: "ETH/USD", Side: models.OrderSideBuy, Notional: 500})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientFunds))
	assert.InDelta(t, 100, p.Cash(), 1e-12)
}

func TestPaperBroker_SellWithoutPosition(t *testing.T) {
	feed := &fixedFeed{mids: map[models.Symbol]float64{"ETH/USD": 3000}}
	p := NewPaperBroker(PaperBrokerConfig{Feed: feed})

	_, err := p.PlaceOrder(context.Background(), models.OrderRequest{Symbol: "ETH/USD", Side: models.OrderSideSell, Qty: 1})
	assert.True(t, errors.Is(err, apperrors.ErrPositionNotFound))
}

func TestPaperBroker_LiquidateAll(t *testing.T) {
	feed := &fixedFeed{mids: map[models.Symbol]float64{"BTC/USD": 100, "ETH/USD": 50}}
	p := NewPaperBroker(PaperBrokerConfig{Feed: feed, InitialCash: 1000})
	ctx := context.Background()

	_, err := p.PlaceOrder(ctx, models.OrderRequest{Symbol: "BTC/USD", Side: models.OrderSideBuy, Notional: 100})
	require.NoError(t, err)
	_, err = p.PlaceOrder(ctx, models.OrderRequest{Symbol: "ETH/USD", Side: models.OrderSideBuy, Notional: 100})
	require.NoError(t, err)

	require.NoError(t, p.LiquidateAll(ctx))
	positions, _ := p.GetOpenPositions(ctx)
	assert.Empty(t, positions)
	assert.InDelta(t, 1000, p.Cash(), 1e-9)
}

// Feature: crypto-scalper, Property 10: Paper equity is conserved at a constant price
func TestProperty_PaperEquityConserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("buying then selling at one price leaves equity unchanged", prop.ForAll(
		func(price, notional float64) bool {
			feed := &fixedFeed{mids: map[models.Symbol]float64{"SOL/USD": price}}
			p := NewPaperBroker(PaperBrokerConfig{Feed: feed, InitialCash: 10000})
			ctx := context.Background()

			fill, err := p.PlaceOrder(ctx, models.OrderRequest{Symbol: "SOL/USD", Side: models.OrderSideBuy, Notional: notional})
			if err != nil {
				return false
			}
			mid, _ := p.GetAccountEquity(ctx)
			if _, err := p.PlaceOrder(ctx, models.OrderRequest{Symbol: "SOL/USD", Side: models.OrderSideSell, Qty: *fill.FilledQty}); err != nil {
				return false
			}
			end, _ := p.GetAccountEquity(ctx)
			return abs(mid-10000) < 1e-6 && abs(end-10000) < 1e-6
		},
		gen.Float64Range(1, 100000),
		gen.Float64Range(1, 9000),
	))

	properties.TestingRun(t)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
