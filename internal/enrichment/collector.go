package enrichment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"crypto-scalper/internal/analysis"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
)

// FearGreedSource yields the current index reading.
type FearGreedSource interface {
	Fetch(ctx context.Context) (*models.FearGreed, error)
}

// FundingSource yields funding rates; an empty result means unavailable.
type FundingSource interface {
	Resolve(ctx context.Context, symbols []models.Symbol) []models.FundingRate
}

// HeadlineSource yields recent news per symbol.
type HeadlineSource interface {
	FetchAll(ctx context.Context, symbols []models.Symbol) map[models.Symbol][]models.NewsItem
}

// RegimeClassifier labels the overall market.
type RegimeClassifier interface {
	ClassifyRegime(ctx context.Context, summary analysis.MarketSummary) (*models.RegimeClassification, error)
}

// SentimentAnalyzer scores headlines for one symbol. A nil score with a nil
// error means there was nothing to analyze.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, symbol models.Symbol, headlines []string) (*models.SentimentScore, error)
}

// CollectorConfig wires the sources. Any source may be nil.
type CollectorConfig struct {
	Symbols   []models.Symbol
	FearGreed FearGreedSource
	Funding   FundingSource
	News      HeadlineSource
	Regime    RegimeClassifier
	Sentiment SentimentAnalyzer
	Summary   analysis.SummaryParams
	Now       func() time.Time
}

// Collector assembles one EnrichmentContext per tick.
type Collector struct {
	cfg CollectorConfig
	log zerolog.Logger
}

// NewCollector creates a collector.
func NewCollector(cfg CollectorConfig, logger zerolog.Logger) *Collector {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Collector{cfg: cfg, log: logging.WithComponent(logger, "enrichment")}
}

// Collect runs fear-greed, funding and news+sentiment concurrently, then
// classifies the regime once fear-greed and funding are in. It never fails;
// missing sources leave nil or empty fields. There is no deadline for the
// whole pass: each source bounds its own calls, so a slow provider cannot
// eat the budget of the ones after it.
func (c *Collector) Collect(ctx context.Context, bars map[models.Symbol][]models.Bar) *models.EnrichmentContext {
	ec := &models.EnrichmentContext{
		FundingRates: []models.FundingRate{},
		Sentiments:   make(map[models.Symbol]float64),
		Timestamp:    c.cfg.Now(),
	}

	var newsWG conc.WaitGroup
	newsWG.Go(func() {
		ec.Sentiments = c.collectSentiment(ctx)
	})

	var baseWG conc.WaitGroup
	baseWG.Go(func() {
		ec.FearGreed = c.fetchFearGreed(ctx)
	})
	baseWG.Go(func() {
		if c.cfg.Funding != nil {
			ec.FundingRates = c.cfg.Funding.Resolve(ctx, c.cfg.Symbols)
		}
	})
	if r := baseWG.WaitAndRecover(); r != nil {
		c.log.Error().Str("panic", r.String()).Msg("Enrichment fetch panicked")
	}

	ec.Regime = c.classifyRegime(ctx, bars, ec)

	if r := newsWG.WaitAndRecover(); r != nil {
		c.log.Error().Str("panic", r.String()).Msg("Sentiment collection panicked")
	}

	c.log.Debug().
		Bool("fear_greed", ec.FearGreed != nil).
		Int("funding_rates", len(ec.FundingRates)).
		Int("sentiments", len(ec.Sentiments)).
		Bool("regime", ec.Regime != nil).
		Msg("Enrichment collected")
	return ec
}

func (c *Collector) fetchFearGreed(ctx context.Context) *models.FearGreed {
	if c.cfg.FearGreed == nil {
		return nil
	}
	fg, err := c.cfg.FearGreed.Fetch(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch fear & greed index")
		metrics.EnrichmentFailures.WithLabelValues("fear_greed").Inc()
		return nil
	}
	return fg
}

func (c *Collector) collectSentiment(ctx context.Context) map[models.Symbol]float64 {
	out := make(map[models.Symbol]float64)
	if c.cfg.News == nil || c.cfg.Sentiment == nil {
		return out
	}

	news := c.cfg.News.FetchAll(ctx, c.cfg.Symbols)

	var mu sync.Mutex
	var wg conc.WaitGroup
	for _, sym := range c.cfg.Symbols {
		sym := sym
		headlines := Headlines(news[sym])
		if len(headlines) == 0 {
			continue
		}
		wg.Go(func() {
			score, err := c.cfg.Sentiment.AnalyzeSentiment(ctx, sym, headlines)
			if err != nil {
				if !errors.Is(err, apperrors.ErrLLMDisabled) {
					c.log.Warn().Err(err).Str("symbol", sym.String()).Msg("Sentiment analysis failed")
					metrics.EnrichmentFailures.WithLabelValues("sentiment").Inc()
				}
				return
			}
			if score == nil {
				return
			}
			mu.Lock()
			out[sym] = score.Score
			mu.Unlock()
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		c.log.Error().Str("panic", r.String()).Msg("Sentiment analysis panicked")
	}
	return out
}

func (c *Collector) classifyRegime(ctx context.Context, bars map[models.Symbol][]models.Bar, ec *models.EnrichmentContext) *models.RegimeClassification {
	if c.cfg.Regime == nil {
		return nil
	}

	summary := analysis.Summarize(c.cfg.Symbols, bars, c.cfg.Summary)
	summary.FearGreed = ec.FearGreedValue()
	for _, sym := range c.cfg.Symbols {
		if rate := models.FundingRateFor(ec.FundingRates, sym); rate != nil {
			summary.FundingRates[sym] = *rate
		}
	}

	regime, err := c.cfg.Regime.ClassifyRegime(ctx, summary)
	if err != nil {
		if !errors.Is(err, apperrors.ErrLLMDisabled) {
			c.log.Warn().Err(err).Msg("Regime classification failed")
			metrics.EnrichmentFailures.WithLabelValues("regime").Inc()
		}
		return nil
	}
	return regime
}
