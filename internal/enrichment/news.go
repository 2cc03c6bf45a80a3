package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"crypto-scalper/internal/broker"
	"crypto-scalper/internal/cache"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
)

// NewsFetcher fetches headlines per symbol with a per-symbol cache.
type NewsFetcher struct {
	source broker.NewsSource
	limit  int
	cache  *cache.TTLCache[models.Symbol, []models.NewsItem]
	log    zerolog.Logger
}

// NewNewsFetcher creates a fetcher returning up to limit items per symbol.
func NewNewsFetcher(source broker.NewsSource, limit int, ttl time.Duration, logger zerolog.Logger) *NewsFetcher {
	return &NewsFetcher{
		source: source,
		limit:  limit,
		cache:  cache.New[models.Symbol, []models.NewsItem](ttl),
		log:    logging.WithComponent(logger, "news"),
	}
}

// FetchAll fetches every symbol in parallel. A failed symbol maps to an empty
// list.
func (n *NewsFetcher) FetchAll(ctx context.Context, symbols []models.Symbol) map[models.Symbol][]models.NewsItem {
	var (
		mu sync.Mutex
		wg conc.WaitGroup
	)
	out := make(map[models.Symbol][]models.NewsItem, len(symbols))

	for _, sym := range symbols {
		sym := sym
		wg.Go(func() {
			items := n.fetch(ctx, sym)
			mu.Lock()
			out[sym] = items
			mu.Unlock()
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		n.log.Error().Str("panic", r.String()).Msg("News fetch panicked")
	}

	total := 0
	for _, items := range out {
		total += len(items)
	}
	n.log.Debug().Int("headlines", total).Int("symbols", len(symbols)).Msg("News fetched")
	return out
}

func (n *NewsFetcher) fetch(ctx context.Context, symbol models.Symbol) []models.NewsItem {
	if items, ok := n.cache.Get(symbol); ok {
		return items
	}
	items, err := n.source.GetNews(ctx, symbol, n.limit)
	if err != nil {
		n.log.Warn().Err(err).Str("symbol", symbol.String()).Msg("Failed to fetch news")
		metrics.EnrichmentFailures.WithLabelValues("news").Inc()
		return []models.NewsItem{}
	}
	n.cache.Set(symbol, items)
	return items
}

// Headlines extracts headline text.
func Headlines(items []models.NewsItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Headline
	}
	return out
}
