package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"crypto-scalper/internal/agents"
	"crypto-scalper/internal/analysis"
	"crypto-scalper/internal/broker"
	"crypto-scalper/internal/config"
	"crypto-scalper/internal/enrichment"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/resilience"
	"crypto-scalper/internal/store"
)

// Runtime is a fully wired engine with the resources it owns.
type Runtime struct {
	Engine *Engine
	Store  *store.SQLiteStore
	stream *broker.QuoteStream
}

// DatabasePath returns the SQLite file under the data directory.
func DatabasePath(cfg *config.Config) string {
	return filepath.Join(cfg.Bot.DataDir, "scalper.db")
}

// OpenStore opens the state database, creating the data directory if needed.
func OpenStore(cfg *config.Config) (*store.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.Bot.DataDir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, "creating data dir %s", cfg.Bot.DataDir)
	}
	return store.NewSQLiteStore(DatabasePath(cfg))
}

// Build wires the broker, feeds, enrichment, LLM providers and store from cfg.
func Build(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	logger := logging.FromContext(ctx)
	if !cfg.IsPaperMode() && !cfg.HasAlpacaCredentials() {
		return nil, fmt.Errorf("live mode requires Alpaca credentials: %w", apperrors.ErrConfigInvalid)
	}

	creds := cfg.Credentials.Alpaca
	alpaca := broker.NewAlpacaClient(broker.AlpacaConfig{
		KeyID:      creds.KeyID,
		SecretKey:  creds.SecretKey,
		TradingURL: cfg.Data.AlpacaTradingURL,
		DataURL:    cfg.Data.AlpacaDataURL,
		Timeout:    cfg.Timeouts.Broker,
	}, logger)

	rt := &Runtime{}

	var feed broker.PriceFeed = alpaca
	if cfg.Data.StreamEnabled {
		rt.stream = broker.NewQuoteStream(cfg.Data.AlpacaStreamURL, creds.KeyID, creds.SecretKey, symbolsOf(cfg), logger)
		feed = broker.NewStreamingFeed(alpaca, rt.stream, cfg.Data.MaxQuoteAge)
	}

	var orders broker.OrderBroker = alpaca
	if cfg.IsPaperMode() {
		orders = broker.NewPaperBroker(broker.PaperBrokerConfig{Feed: feed, InitialCash: cfg.Data.PaperCash})
	}

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	rt.Store = st

	var llm agents.LLMClient
	if cfg.LLMAvailable() {
		llm = agents.NewOpenAIClient(cfg.Credentials.OpenAI.APIKey, cfg.LLM.BaseURL, cfg.LLM.FastModel, cfg.LLM.BalancedModel)
	}

	breakers := resilience.NewBreakers(resilience.BreakerConfig{
		TripAfter: cfg.Data.BreakerFailures,
		Cooldown:  cfg.Data.BreakerCooldown,
	}, nil)
	httpClient := enrichment.NewHTTPClient(cfg.Timeouts.Enrichment, cfg.Data.RateLimit, logger)
	funding := enrichment.NewFundingResolver([]enrichment.FundingProvider{
		&enrichment.BinanceFunding{Client: httpClient, BaseURL: cfg.Data.BinanceURL},
		&enrichment.BybitFunding{Client: httpClient, BaseURL: cfg.Data.BybitURL},
		&enrichment.HyperliquidFunding{Client: httpClient, BaseURL: cfg.Data.HyperliquidURL},
	}, breakers, cfg.Data.FundingTTL, cfg.Timeouts.Enrichment, logger)

	collector := enrichment.NewCollector(enrichment.CollectorConfig{
		Symbols:   symbolsOf(cfg),
		FearGreed: enrichment.NewFearGreedFetcher(httpClient, cfg.Data.FearGreedURL, cfg.Data.FearGreedTTL, logger),
		Funding:   funding,
		News:      enrichment.NewNewsFetcher(alpaca, cfg.Data.NewsLimit, cfg.Data.NewsTTL, logger),
		Regime:    agents.NewRegimeClassifier(llm, cfg.LLM.RegimeTTL, cfg.Timeouts.LLM, logger),
		Sentiment: agents.NewSentimentAnalyzer(llm, cfg.LLM.SentimentTTL, cfg.Timeouts.LLM, logger),
		Summary: analysis.SummaryParams{
			BBPeriod:     cfg.Scalp.BBPeriod,
			BBMultiplier: cfg.Scalp.BBMultiplier,
			RSIPeriod:    cfg.Scalp.RSIClassifyPeriod,
		},
	}, logger)

	deps := Deps{
		Broker:   orders,
		Feed:     feed,
		Store:    st,
		Commands: st,
		Enricher: collector,
		Breakers: funding.Breakers,
	}
	if cfg.LLM.JournalEnabled {
		deps.Journal = agents.NewJournaler(llm, cfg.LLM.JournalQueue, cfg.Timeouts.LLM, logger)
	}

	eng, err := New(ctx, cfg, deps, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	rt.Engine = eng
	return rt, nil
}

// Run runs the quote stream, when enabled, alongside the engine loop until ctx
// is done.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.stream != nil {
		g.Go(func() error {
			err := r.stream.Run(gctx)
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("quote stream: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		return r.Engine.Run(gctx)
	})
	return g.Wait()
}

// Close releases the store.
func (r *Runtime) Close() error {
	return r.Store.Close()
}

func symbolsOf(cfg *config.Config) []models.Symbol {
	out := make([]models.Symbol, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		out[i] = models.Symbol(s)
	}
	return out
}
