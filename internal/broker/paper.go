package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/models"
)

// PaperBroker simulates fills at the live quote mid price. Market data comes
// from a real PriceFeed.
type PaperBroker struct {
	feed PriceFeed

	cash      float64
	positions map[models.Symbol]*paperPosition
	marks     map[models.Symbol]float64

	mu sync.Mutex
}

type paperPosition struct {
	qty      float64
	avgPrice float64
}

// PaperBrokerConfig holds configuration for paper broker.
type PaperBrokerConfig struct {
	Feed        PriceFeed
	InitialCash float64
}

// NewPaperBroker creates a new paper trading broker.
func NewPaperBroker(cfg PaperBrokerConfig) *PaperBroker {
	cash := cfg.InitialCash
	if cash == 0 {
		cash = 10000
	}
	return &PaperBroker{
		feed:      cfg.Feed,
		cash:      cash,
		positions: make(map[models.Symbol]*paperPosition),
		marks:     make(map[models.Symbol]float64),
	}
}

// PlaceOrder fills the order immediately at the current mid price.
func (p *PaperBroker) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderFill, error) {
	price, err := p.midPrice(ctx, req.Symbol)
	if err != nil {
		return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "no price", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	qty := req.Qty
	if req.Notional > 0 {
		qty = req.Notional / price
	}
	if qty <= 0 {
		return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "order has neither notional nor qty", nil)
	}
	value := qty * price

	switch req.Side {
	case models.OrderSideBuy:
		if value > p.cash {
			return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side),
				fmt.Sprintf("need %.2f, have %.2f", value, p.cash), apperrors.ErrInsufficientFunds)
		}
		p.cash -= value
		pos, ok := p.positions[req.Symbol]
		if !ok {
			pos = &paperPosition{}
			p.positions[req.Symbol] = pos
		}
		pos.avgPrice = (pos.avgPrice*pos.qty + value) / (pos.qty + qty)
		pos.qty += qty
	case models.OrderSideSell:
		pos, ok := p.positions[req.Symbol]
		if !ok || pos.qty <= 0 {
			return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "no position", apperrors.ErrPositionNotFound)
		}
		if qty > pos.qty {
			qty = pos.qty
			value = qty * price
		}
		p.cash += value
		pos.qty -= qty
		if pos.qty <= 1e-12 {
			delete(p.positions, req.Symbol)
		}
	default:
		return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "unknown side", nil)
	}
	p.marks[req.Symbol] = price

	return &models.OrderFill{
		OrderID:        "paper-" + uuid.NewString(),
		Status:         "filled",
		FilledQty:      &qty,
		FilledAvgPrice: &price,
	}, nil
}

// GetAccountEquity returns cash plus held positions marked at the last known price.
func (p *PaperBroker) GetAccountEquity(ctx context.Context) (float64, error) {
	p.refreshMarks(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	equity := p.cash
	for sym, pos := range p.positions {
		mark := p.marks[sym]
		if mark == 0 {
			mark = pos.avgPrice
		}
		equity += pos.qty * mark
	}
	return equity, nil
}

// GetOpenPositions returns the simulated positions.
func (p *PaperBroker) GetOpenPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	p.refreshMarks(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.BrokerPosition, 0, len(p.positions))
	for sym, pos := range p.positions {
		mark := p.marks[sym]
		if mark == 0 {
			mark = pos.avgPrice
		}
		out = append(out, models.BrokerPosition{
			Symbol:       sym,
			Qty:          pos.qty,
			MarketValue:  pos.qty * mark,
			CurrentPrice: mark,
		})
	}
	return out, nil
}

// LiquidateAll sells every simulated position at its last mark.
func (p *PaperBroker) LiquidateAll(ctx context.Context) error {
	p.refreshMarks(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	for sym, pos := range p.positions {
		mark := p.marks[sym]
		if mark == 0 {
			mark = pos.avgPrice
		}
		p.cash += pos.qty * mark
		delete(p.positions, sym)
	}
	return nil
}

// Cash returns the simulated free cash.
func (p *PaperBroker) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

func (p *PaperBroker) midPrice(ctx context.Context, symbol models.Symbol) (float64, error) {
	if p.feed == nil {
		return 0, fmt.Errorf("no price feed configured")
	}
	quotes, err := p.feed.GetQuoteSnapshots(ctx, []models.Symbol{symbol})
	if err != nil {
		return 0, err
	}
	q, ok := quotes[symbol]
	if !ok || q.MidPrice <= 0 {
		return 0, apperrors.NewDataError("paper", symbol.String(), "no quote", apperrors.ErrInsufficientData)
	}
	return q.MidPrice, nil
}

// refreshMarks updates marks for held symbols. Failures keep the old marks.
func (p *PaperBroker) refreshMarks(ctx context.Context) {
	p.mu.Lock()
	held := make([]models.Symbol, 0, len(p.positions))
	for sym := range p.positions {
		held = append(held, sym)
	}
	p.mu.Unlock()

	if len(held) == 0 || p.feed == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	quotes, err := p.feed.GetQuoteSnapshots(ctx, held)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for sym, q := range quotes {
		if q.MidPrice > 0 {
			p.marks[sym] = q.MidPrice
		}
	}
}

var _ OrderBroker = (*PaperBroker)(nil)
