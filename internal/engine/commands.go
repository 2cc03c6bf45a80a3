package engine

import (
	"context"

	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/store"
)

// applyCommands drains queued control commands in submission order. A failed
// drain is logged and retried on the next tick.
func (e *Engine) applyCommands(ctx context.Context) {
	if e.deps.Commands == nil {
		return
	}
	cmds, err := e.deps.Commands.Drain(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("Failed to drain control commands")
		return
	}

	for _, cmd := range cmds {
		log := e.log.With().Int64("command_id", cmd.ID).Str("command", string(cmd.Kind)).Logger()
		switch cmd.Kind {
		case store.CommandPause:
			e.state.SetPaused(true)
			log.Info().Msg("Entries paused")
		case store.CommandResume:
			e.state.SetPaused(false)
			log.Info().Msg("Entries resumed")
		case store.CommandLiquidate:
			e.liquidate(ctx)
		default:
			log.Warn().Msg("Ignoring unknown command")
		}
	}
}

// liquidate closes every position at the broker, records the tracked scalps as
// manual exits and pauses entries. When the broker call fails the scalps stay
// open but the pause still applies.
func (e *Engine) liquidate(ctx context.Context) {
	st := e.state
	st.SetPaused(true)

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Broker)
	err := e.deps.Broker.LiquidateAll(cctx)
	cancel()
	if err != nil {
		e.log.Error().Err(err).Msg("Liquidation failed")
		return
	}
	e.log.Warn().Int("open_scalps", len(st.OpenScalps)).Msg("Liquidation submitted, entries paused")

	if len(st.OpenScalps) == 0 {
		return
	}

	quotes := e.liquidationQuotes(ctx)
	open := append([]models.ScalpPosition(nil), st.OpenScalps...)
	for _, pos := range open {
		price := pos.EntryPrice
		if q, ok := quotes[pos.Symbol]; ok && q.MidPrice > 0 {
			price = q.MidPrice
		}
		closed, err := st.CloseScalp(pos.ID, price, models.ExitManual)
		if err != nil {
			continue
		}
		st.RecordTrade(models.TradeEntry{
			Timestamp: closed.ExitTime,
			Symbol:    closed.Symbol,
			Side:      models.OrderSideSell,
			Qty:       closed.Qty,
			Notional:  closed.Qty * price,
			Price:     price,
			Reason:    string(models.ExitManual),
		})
		e.gate.ClearHighWaterMark(st, closed.Symbol)
		metrics.ExitsTotal.WithLabelValues(string(models.ExitManual)).Inc()
	}
}

// liquidationQuotes prices the scalps being closed. Without quotes the entry
// price is used.
func (e *Engine) liquidationQuotes(ctx context.Context) map[models.Symbol]models.QuoteSnapshot {
	seen := make(map[models.Symbol]bool)
	var symbols []models.Symbol
	for _, pos := range e.state.OpenScalps {
		if !seen[pos.Symbol] {
			seen[pos.Symbol] = true
			symbols = append(symbols, pos.Symbol)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.Data)
	defer cancel()
	quotes, err := e.deps.Feed.GetQuoteSnapshots(cctx, symbols)
	if err != nil {
		e.log.Warn().Err(err).Msg("No quotes for liquidation, using entry prices")
		return nil
	}
	return quotes
}
