package engine

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"crypto-scalper/internal/agents"
	"crypto-scalper/internal/analysis/indicators"
	"crypto-scalper/internal/enrichment"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/store"
	"crypto-scalper/internal/trading"
)

// Signal snapshot actions.
const (
	ActionHold    = "hold"
	ActionBuy     = "buy"
	ActionSell    = "sell"
	ActionBlocked = "blocked"
	ActionSkipped = "skipped"
	ActionPending = "pending"
	ActionFailed  = "failed"
)

// score rates every symbol that has both bars and a quote this tick.
func (e *Engine) score(m *market) map[models.Symbol]models.ScalpSignal {
	signals := make(map[models.Symbol]models.ScalpSignal, len(e.symbols))
	for _, sym := range e.tradedSymbols() {
		bars := m.bars[sym]
		quote, ok := m.quotes[sym]
		if len(bars) == 0 || !ok {
			e.log.Warn().
				Str("symbol", sym.String()).
				Int("bars", len(bars)).
				Bool("quote", ok).
				Msg("Missing market data, skipping symbol")
			continue
		}
		signals[sym] = e.scorer.GenerateSignal(sym, bars, quote, enrichment.ExtractVWAP(bars))
	}
	return signals
}

// tradedSymbols is the configured list followed by any symbol that still has an
// open scalp but is no longer configured.
func (e *Engine) tradedSymbols() []models.Symbol {
	out := append([]models.Symbol(nil), e.symbols...)
	seen := make(map[models.Symbol]bool, len(out))
	for _, s := range out {
		seen[s] = true
	}
	var extra []models.Symbol
	for _, pos := range e.state.OpenScalps {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			extra = append(extra, pos.Symbol)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// exitPhase evaluates open scalps in symbol order, then entry order, and
// returns the symbols that were exited. A symbol without a signal this tick can
// still exit on timeout.
func (e *Engine) exitPhase(ctx context.Context, m *market, signals map[models.Symbol]models.ScalpSignal, ec *models.EnrichmentContext) map[models.Symbol]bool {
	st := e.state
	exited := make(map[models.Symbol]bool)
	held := heldQty(m.positions)

	for _, sym := range e.tradedSymbols() {
		open := st.OpenScalpsFor(sym)
		if len(open) == 0 {
			continue
		}

		sig, ok := signals[sym]
		if ok {
			e.gate.UpdateHighWaterMark(st, sym, sig.Price)
			if e.gate.CheckTrailingStop(st, sym, sig.Price) {
				e.log.Debug().
					Str("symbol", sym.String()).
					Float64("price", sig.Price).
					Float64("high_water_mark", st.HighWaterMarks[sym]).
					Msg("Trailing stop drawdown reached")
			}
		}

		for _, pos := range open {
			var (
				reason models.ExitReason
				hit    bool
				price  float64
			)
			if ok {
				price = sig.Price
				reason, hit = trading.CheckScalpExit(pos, price, sig.Score, st.Now(), e.cfg.Scalp.ExitReversalThreshold)
			} else if !st.Now().Before(pos.MaxHoldUntil) {
				price = fallbackExitPrice(pos, m)
				reason, hit = models.ExitTimeout, true
			}
			if !hit {
				continue
			}

			qty, sellable := sellQty(pos, held)
			if !sellable {
				e.log.Warn().
					Str("symbol", sym.String()).
					Str("scalp_id", pos.ID).
					Float64("qty", pos.Qty).
					Msg("Broker holds nothing left to sell for scalp, keeping position")
				continue
			}
			d := trading.ExitDecision{Position: pos, Reason: reason, Qty: qty, Price: price, Score: sig.Score, At: st.Now()}
			if e.executeExit(ctx, d, m.bars[sym], ec) {
				exited[sym] = true
				if _, listed := held[sym]; listed {
					held[sym] -= qty
				}
			}
		}

		if len(st.OpenScalpsFor(sym)) == 0 {
			e.gate.ClearHighWaterMark(st, sym)
		}
	}
	return exited
}

// heldQty indexes the broker's open positions by symbol.
func heldQty(positions []models.BrokerPosition) map[models.Symbol]float64 {
	held := make(map[models.Symbol]float64, len(positions))
	for _, p := range positions {
		held[p.Symbol] += p.Qty
	}
	return held
}

// sellQty caps the scalp's quantity at what the broker still holds for the
// symbol. Fees taken in the base asset leave the broker with slightly less
// than the recorded fill. Symbols the broker did not list are sold in full.
func sellQty(pos models.ScalpPosition, held map[models.Symbol]float64) (float64, bool) {
	avail, listed := held[pos.Symbol]
	if !listed {
		return pos.Qty, true
	}
	if avail <= 0 {
		return 0, false
	}
	return math.Min(pos.Qty, avail), true
}

// fallbackExitPrice prices a timeout exit for a symbol that could not be
// scored: the quote mid, then the last close, then the entry fill.
func fallbackExitPrice(pos models.ScalpPosition, m *market) float64 {
	if q, ok := m.quotes[pos.Symbol]; ok && q.MidPrice > 0 {
		return q.MidPrice
	}
	if bars := m.bars[pos.Symbol]; len(bars) > 0 && bars[len(bars)-1].Close > 0 {
		return bars[len(bars)-1].Close
	}
	return pos.EntryPrice
}

// executeExit sells d.Qty and closes the scalp. On an order failure the
// position is kept and retried next tick.
func (e *Engine) executeExit(ctx context.Context, d trading.ExitDecision, bars []models.Bar, ec *models.EnrichmentContext) bool {
	st := e.state
	pos := d.Position
	log := logging.WithSymbol(e.log, pos.Symbol.String())

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Broker)
	fill, err := e.deps.Broker.PlaceOrder(cctx, models.OrderRequest{
		Symbol: pos.Symbol,
		Side:   models.OrderSideSell,
		Qty:    d.Qty,
	})
	cancel()
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(pos.Symbol.String(), string(models.OrderSideSell), "error").Inc()
		log.Error().Err(err).Str("reason", string(d.Reason)).Str("scalp_id", pos.ID).Msg("Exit order failed, keeping position")
		return false
	}
	metrics.OrdersTotal.WithLabelValues(pos.Symbol.String(), string(models.OrderSideSell), "ok").Inc()

	exitPrice := d.Price
	if fill.Filled() {
		exitPrice = *fill.FilledAvgPrice
	}

	closed, err := st.CloseScalp(pos.ID, exitPrice, d.Reason)
	if err != nil {
		log.Error().Err(err).Str("scalp_id", pos.ID).Msg("Exited scalp missing from state")
		return false
	}

	st.RecordTrade(models.TradeEntry{
		Timestamp: closed.ExitTime,
		Symbol:    pos.Symbol,
		Side:      models.OrderSideSell,
		Qty:       d.Qty,
		Notional:  d.Qty * exitPrice,
		Price:     exitPrice,
		Reason:    string(d.Reason),
	})
	metrics.ExitsTotal.WithLabelValues(string(d.Reason)).Inc()
	logging.LogExit(log, pos.Symbol.String(), string(d.Reason), closed.PnL, closed.PnLPct,
		closed.ExitTime.Sub(closed.EntryTime))

	e.submitJournal(e.journalRequest(pos.Symbol, models.OrderSideSell, exitPrice, d.Qty*exitPrice, string(d.Reason), bars, ec, closed.ExitTime))
	return true
}

// entryPhase builds one snapshot per symbol in configured order and opens new
// scalps for long signals that pass the gate. Symbols exited this tick do not
// re-enter.
func (e *Engine) entryPhase(ctx context.Context, m *market, signals map[models.Symbol]models.ScalpSignal, ec *models.EnrichmentContext, exited map[models.Symbol]bool) []models.SignalSnapshot {
	snapshots := make([]models.SignalSnapshot, 0, len(e.symbols))

	for _, sym := range e.symbols {
		sig, ok := signals[sym]
		if !ok {
			continue
		}
		snap := models.SignalSnapshot{
			Symbol:     sym,
			Price:      sig.Price,
			Score:      sig.Score,
			Direction:  sig.Direction,
			Indicators: sig.Indicators,
			Action:     ActionHold,
			Timestamp:  sig.Timestamp,
		}

		switch {
		case exited[sym]:
			snap.Action = ActionSell
		case sig.Direction == models.DirectionLong:
			snap.Action = e.tryEntry(ctx, sig, m, ec)
		}

		e.log.Debug().
			Str("symbol", sym.String()).
			Float64("score", sig.Score).
			Float64("price", sig.Price).
			Str("action", snap.Action).
			Msg("Signal")
		snapshots = append(snapshots, snap)
	}

	return snapshots
}

// tryEntry gates, sizes and places a long entry and reports the resulting
// snapshot action.
func (e *Engine) tryEntry(ctx context.Context, sig models.ScalpSignal, m *market, ec *models.EnrichmentContext) string {
	st := e.state
	sym := sig.Symbol
	log := logging.WithSymbol(e.log, sym.String())

	if err := e.gate.CheckEntry(st, sym); err != nil {
		var riskErr *apperrors.RiskError
		if errors.As(err, &riskErr) {
			log.Debug().Str("rule", riskErr.Rule).Msg(riskErr.Message)
		}
		return ActionBlocked
	}

	mods := trading.CalculateScalpModifiers(e.cfg.Scalp, e.cfg.Modifiers, trading.ModifierInputFor(ec, sym))
	notional := trading.CalculateScalpSize(m.equity, sig.Score, mods.PositionSizeMultiplier, e.cfg.Scalp, e.cfg.Risk)
	if notional <= 0 {
		log.Debug().Float64("score", sig.Score).Msg("Entry below minimum notional")
		return ActionSkipped
	}

	d := trading.EntryDecision{Symbol: sym, Notional: notional, Price: sig.Price, Score: sig.Score, Modifiers: mods}

	fill, err := e.placeEntry(ctx, d)
	switch {
	case errors.Is(err, apperrors.ErrOrderNotFilled):
		log.Warn().Err(err).Msg("Entry order not filled, no position opened")
		return ActionPending
	case err != nil:
		log.Error().Err(err).Float64("notional", d.Notional).Msg("Entry order failed")
		return ActionFailed
	}

	fillPrice := *fill.FilledAvgPrice
	qty := *fill.FilledQty
	pos := st.OpenScalp(store.OpenParams{
		Symbol:        sym,
		FillPrice:     fillPrice,
		Qty:           qty,
		Notional:      d.Notional,
		Score:         d.Score,
		TakeProfitPct: mods.TakeProfitPct,
		StopLossPct:   mods.StopLossPct,
		MaxHold:       e.cfg.Scalp.MaxHold,
	})
	st.RecordTrade(models.TradeEntry{
		Timestamp: pos.EntryTime,
		Symbol:    sym,
		Side:      models.OrderSideBuy,
		Qty:       qty,
		Notional:  d.Notional,
		Price:     fillPrice,
		Reason:    "scalp entry",
	})
	e.gate.UpdateHighWaterMark(st, sym, fillPrice)
	logging.LogOrder(log, sym.String(), string(models.OrderSideBuy), d.Notional, qty, fillPrice)

	e.submitJournal(e.journalRequest(sym, models.OrderSideBuy, fillPrice, d.Notional, "scalp entry", m.bars[sym], ec, pos.EntryTime))
	return ActionBuy
}

// placeEntry submits the notional buy. An accepted order that has not filled
// yet is reported as ErrOrderNotFilled.
func (e *Engine) placeEntry(ctx context.Context, d trading.EntryDecision) (*models.OrderFill, error) {
	sym := d.Symbol.String()
	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Broker)
	defer cancel()
	fill, err := e.deps.Broker.PlaceOrder(cctx, models.OrderRequest{
		Symbol:   d.Symbol,
		Side:     models.OrderSideBuy,
		Notional: d.Notional,
	})
	if err != nil {
		metrics.OrdersTotal.WithLabelValues(sym, string(models.OrderSideBuy), "error").Inc()
		return nil, err
	}
	if !fill.Filled() {
		metrics.OrdersTotal.WithLabelValues(sym, string(models.OrderSideBuy), "pending").Inc()
		return nil, apperrors.Wrapf(apperrors.ErrOrderNotFilled, "order %s status %s", fill.OrderID, fill.Status)
	}
	metrics.OrdersTotal.WithLabelValues(sym, string(models.OrderSideBuy), "ok").Inc()
	return fill, nil
}

func (e *Engine) submitJournal(req agents.JournalRequest) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.Submit(req); err != nil {
		e.log.Warn().Err(err).Str("symbol", req.Symbol.String()).Msg("Journal entry dropped")
	}
}

func (e *Engine) journalRequest(sym models.Symbol, side models.OrderSide, price, notional float64, reason string,
	bars []models.Bar, ec *models.EnrichmentContext, at time.Time) agents.JournalRequest {
	closes := models.Closes(bars)
	sc := e.cfg.Scalp
	req := agents.JournalRequest{
		Symbol:      sym,
		Side:        side,
		Price:       price,
		Notional:    notional,
		Reason:      reason,
		RSI:         indicators.RSI(closes, sc.RSIPeriod),
		BBPosition:  indicators.BollingerBands(closes, sc.BBPeriod, sc.BBMultiplier).Position(price),
		FearGreed:   ec.FearGreedValue(),
		Sentiment:   ec.SentimentFor(sym),
		FundingRate: ec.FundingRateFor(sym),
		At:          at.UTC(),
	}
	if ec != nil && ec.Regime != nil {
		regime := ec.Regime.Regime
		req.Regime = &regime
	}
	return req
}
