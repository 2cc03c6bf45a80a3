// Package engine runs the scalp loop: one tick fetches market data, refreshes
// enrichment, manages exits and entries, and persists the state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"crypto-scalper/internal/agents"
	"crypto-scalper/internal/analysis/scoring"
	"crypto-scalper/internal/broker"
	"crypto-scalper/internal/config"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/resilience"
	"crypto-scalper/internal/store"
	"crypto-scalper/internal/trading"
)

// Enricher builds the per-tick enrichment context. It never fails.
type Enricher interface {
	Collect(ctx context.Context, bars map[models.Symbol][]models.Bar) *models.EnrichmentContext
}

// TradeJournal writes journal entries in the background.
type TradeJournal interface {
	Start(ctx context.Context)
	Submit(req agents.JournalRequest) error
	Drain() []models.JournalEntry
	Close()
}

// Deps are the engine's collaborators. Commands, Enricher, Journal and
// Breakers are optional.
type Deps struct {
	Broker   broker.OrderBroker
	Feed     broker.PriceFeed
	Store    store.StateStore
	Commands store.CommandQueue
	Enricher Enricher
	Journal  TradeJournal
	Breakers func() []resilience.Stats
	Now      func() time.Time
}

// Engine owns the State. Tick is the only code path that mutates it.
type Engine struct {
	cfg     *config.Config
	deps    Deps
	symbols []models.Symbol
	scorer  *scoring.SignalScorer
	gate    *trading.RiskGate
	log     zerolog.Logger

	state   *store.State
	ticking atomic.Bool

	mu     sync.RWMutex
	status Status
}

// market is the foundational data every tick needs.
type market struct {
	equity    float64
	positions []models.BrokerPosition
	bars      map[models.Symbol][]models.Bar
	quotes    map[models.Symbol]models.QuoteSnapshot
}

// New loads the persisted state and returns an engine ready to tick.
func New(ctx context.Context, cfg *config.Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if deps.Broker == nil || deps.Feed == nil || deps.Store == nil {
		return nil, fmt.Errorf("engine: broker, feed and store are required: %w", apperrors.ErrConfigInvalid)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	st, err := deps.Store.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading state")
	}
	st.Configure(StateLimits(cfg.Risk), deps.Now)

	e := &Engine{
		cfg:     cfg,
		deps:    deps,
		symbols: symbolsOf(cfg),
		scorer:  scoring.NewSignalScorerWithClock(ScorerParams(cfg.Scalp), deps.Now),
		gate:    trading.NewRiskGate(cfg.Risk),
		log:     logging.WithComponent(logger, "engine"),
		state:   st,
	}
	e.publish()
	return e, nil
}

// StateLimits maps the configured history caps.
func StateLimits(r config.RiskConfig) store.Limits {
	return store.Limits{
		ClosedHistory: r.ClosedHistoryLimit,
		TradeLog:      r.TradeLogLimit,
		Journal:       r.JournalLimit,
	}
}

// ScorerParams maps the scalp config onto scorer parameters.
func ScorerParams(s config.ScalpConfig) scoring.Params {
	return scoring.Params{
		EntryThreshold:        s.EntryThreshold,
		EMAFast:               s.EMAFast,
		EMASlow:               s.EMASlow,
		RSIPeriod:             s.RSIPeriod,
		ROCPeriod:             s.ROCPeriod,
		VolumeAvgPeriod:       s.VolumeAvgPeriod,
		VolumeSpikeMultiplier: s.VolumeSpikeMultiplier,
		Weights: scoring.IndicatorWeights{
			EMACross:      s.Weights.EMACross,
			RSI:           s.Weights.RSI,
			ROC:           s.Weights.ROC,
			VolumeSpike:   s.Weights.VolumeSpike,
			VWAPDeviation: s.Weights.VWAPDeviation,
			Spread:        s.Weights.Spread,
		},
	}
}

// Start launches background workers. Run calls it; callers of Tick alone must
// call it themselves and Shutdown afterwards.
func (e *Engine) Start(ctx context.Context) {
	if e.deps.Journal != nil {
		e.deps.Journal.Start(ctx)
	}
}

// Run ticks immediately and then on every loop interval until ctx is done.
// Ticks run on this goroutine, so they never overlap and an overrun delays the
// next tick.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)
	e.log.Info().
		Dur("interval", e.cfg.Scalp.LoopInterval).
		Int("symbols", len(e.symbols)).
		Str("mode", e.cfg.Bot.Mode).
		Msg("Scalp loop started")

	e.runTick(ctx)

	ticker := time.NewTicker(e.cfg.Scalp.LoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("Scalp loop stopping")
			return e.Shutdown(context.WithoutCancel(ctx))
		case <-ticker.C:
			e.runTick(ctx)
		}
	}
}

func (e *Engine) runTick(ctx context.Context) {
	if err := e.Tick(ctx); err != nil && ctx.Err() == nil {
		e.log.Error().Err(err).Msg("Tick failed")
	}
}

// Shutdown waits for queued journal entries, folds them into the state and
// saves it.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.deps.Journal != nil {
		e.deps.Journal.Close()
		e.state.AppendJournal(e.deps.Journal.Drain()...)
	}
	err := e.save(ctx)
	e.publish()
	return err
}

// Tick runs one iteration of the loop. It returns ErrTickInProgress when
// another tick is still running.
func (e *Engine) Tick(ctx context.Context) (err error) {
	if !e.ticking.CompareAndSwap(false, true) {
		return apperrors.ErrTickInProgress
	}
	defer e.ticking.Store(false)

	start := time.Now()
	defer func() { metrics.ObserveTick(start, err) }()
	defer e.publish()

	st := e.state
	e.applyCommands(ctx)

	m, err := e.fetchMarket(ctx)
	if err != nil {
		st.MarkTick(err)
		if saveErr := e.save(ctx); saveErr != nil {
			e.log.Error().Err(saveErr).Msg("Failed to save state after tick error")
		}
		return err
	}

	st.LastEquity = m.equity
	if st.InitialCapital <= 0 {
		st.InitialCapital = m.equity
		e.log.Info().Float64("equity", m.equity).Msg("Initial capital recorded")
	}
	e.reconcile(m.positions)

	if e.gate.TripDailyLoss(st, m.equity) {
		e.log.Warn().
			Float64("equity", m.equity).
			Float64("initial_capital", st.InitialCapital).
			Time("paused_until", *st.PausedUntil).
			Msg("Daily loss limit breached, entries paused")
	}

	ec := e.enrich(ctx, m.bars)
	signals := e.score(m)

	exited := e.exitPhase(ctx, m, signals, ec)
	snapshots := e.entryPhase(ctx, m, signals, ec, exited)

	if e.deps.Journal != nil {
		st.AppendJournal(e.deps.Journal.Drain()...)
	}

	st.Signals = snapshots
	st.Enrichment = ec
	metrics.OpenScalps.Set(float64(len(st.OpenScalps)))
	metrics.Equity.Set(m.equity)

	st.MarkTick(nil)
	if err := e.save(ctx); err != nil {
		st.LastError = err.Error()
		return err
	}
	return nil
}

// fetchMarket loads the foundational data for the tick. Bars and quotes cover
// every traded symbol so that scalps on symbols dropped from the config can
// still exit.
func (e *Engine) fetchMarket(ctx context.Context) (*market, error) {
	m := &market{}
	symbols := e.tradedSymbols()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, e.cfg.Timeouts.Broker)
		defer cancel()
		eq, err := e.deps.Broker.GetAccountEquity(cctx)
		if err != nil {
			return apperrors.Wrap(err, "account equity")
		}
		m.equity = eq
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, e.cfg.Timeouts.Broker)
		defer cancel()
		positions, err := e.deps.Broker.GetOpenPositions(cctx)
		if err != nil {
			return apperrors.Wrap(err, "open positions")
		}
		m.positions = positions
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, e.cfg.Timeouts.Data)
		defer cancel()
		bars, err := e.deps.Feed.GetBars(cctx, symbols, e.cfg.Scalp.BarsTimeframe, e.cfg.Scalp.BarsLimit)
		if err != nil {
			return apperrors.Wrap(err, "bars")
		}
		m.bars = bars
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, e.cfg.Timeouts.Data)
		defer cancel()
		quotes, err := e.deps.Feed.GetQuoteSnapshots(cctx, symbols)
		if err != nil {
			return apperrors.Wrap(err, "quotes")
		}
		m.quotes = quotes
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

// reconcile warns about tracked scalps the broker no longer reports. It does
// not touch the state.
func (e *Engine) reconcile(positions []models.BrokerPosition) {
	held := make(map[models.Symbol]float64, len(positions))
	for _, p := range positions {
		held[p.Symbol] += p.Qty
	}
	for _, pos := range e.state.OpenScalps {
		if held[pos.Symbol] <= 0 {
			e.log.Warn().
				Str("symbol", pos.Symbol.String()).
				Str("scalp_id", pos.ID).
				Msg("Open scalp has no matching broker position")
		}
	}
}

func (e *Engine) enrich(ctx context.Context, bars map[models.Symbol][]models.Bar) *models.EnrichmentContext {
	if e.deps.Enricher == nil {
		return &models.EnrichmentContext{Timestamp: e.deps.Now().UTC()}
	}
	return e.deps.Enricher.Collect(ctx, bars)
}

func (e *Engine) save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Timeouts.Broker)
	defer cancel()
	if err := e.deps.Store.Save(ctx, e.state); err != nil {
		return apperrors.Wrapf(err, "saving state (%d open scalps)", len(e.state.OpenScalps))
	}
	return nil
}
