package enrichment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-scalper/internal/analysis"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/models"
)

func TestFearGreedFetcher_ParsesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/fng/", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"data":[{"value":"22","value_classification":"Extreme Fear","timestamp":"1714550400"}]}`))
	}))
	defer srv.Close()

	f := NewFearGreedFetcher(testHTTP(), srv.URL, time.Minute, zerolog.Nop())
	fg, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 22, fg.Value)
	assert.Equal(t, "Extreme Fear", fg.Classification)
	assert.Equal(t, time.Unix(1714550400, 0).UTC(), fg.Timestamp)

	_, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFearGreedFetcher_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	_, err := NewFearGreedFetcher(testHTTP(), srv.URL, time.Minute, zerolog.Nop()).Fetch(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
}

type stubNews struct {
	items map[models.Symbol][]models.NewsItem
	fail  map[models.Symbol]bool
	calls atomic.Int32
}

func (s *stubNews) GetNews(_ context.Context, symbol models.Symbol, _ int) ([]models.NewsItem, error) {
	s.calls.Add(1)
	if s.fail[symbol] {
		return nil, errors.New("news down")
	}
	return s.items[symbol], nil
}

func TestNewsFetcher_PartialFailure(t *testing.T) {
	src := &stubNews{
		items: map[models.Symbol][]models.NewsItem{"BTC/USD": {{Headline: "ETF inflows"}}},
		fail:  map[models.Symbol]bool{"ETH/USD": true},
	}
	n := NewNewsFetcher(src, 10, time.Minute, zerolog.Nop())

	got := n.FetchAll(context.Background(), []models.Symbol{"BTC/USD", "ETH/USD"})
	assert.Equal(t, []string{"ETF inflows"}, Headlines(got["BTC/USD"]))
	assert.NotNil(t, got["ETH/USD"])
	assert.Empty(t, got["ETH/USD"])

	n.FetchAll(context.Background(), []models.Symbol{"BTC/USD", "ETH/USD"})
	// BTC is cached; ETH failed and is retried on the next tick.
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestExtractVWAP(t *testing.T) {
	assert.Nil(t, ExtractVWAP(nil))
	assert.Nil(t, ExtractVWAP([]models.Bar{{VWAP: 10}, {VWAP: 0}}))

	vw := ExtractVWAP([]models.Bar{{VWAP: 0}, {VWAP: 101.5}})
	require.NotNil(t, vw)
	assert.Equal(t, 101.5, *vw)

	all := ExtractAllVWAPs(map[models.Symbol][]models.Bar{
		"BTC/USD": {{VWAP: 5}},
		"ETH/USD": {},
	})
	assert.Equal(t, map[models.Symbol]float64{"BTC/USD": 5}, all)
}

type stubFearGreed struct {
	fg  *models.FearGreed
	err error
}

func (s stubFearGreed) Fetch(context.Context) (*models.FearGreed, error) { return s.fg, s.err }

type stubFunding []models.FundingRate

func (s stubFunding) Resolve(context.Context, []models.Symbol) []models.FundingRate { return s }

type stubHeadlines map[models.Symbol][]models.NewsItem

func (s stubHeadlines) FetchAll(context.Context, []models.Symbol) map[models.Symbol][]models.NewsItem {
	return s
}

type stubRegime struct {
	got    analysis.MarketSummary
	result *models.RegimeClassification
	err    error
}

func (s *stubRegime) ClassifyRegime(_ context.Context, summary analysis.MarketSummary) (*models.RegimeClassification, error) {
	s.got = summary
	return s.result, s.err
}

type stubSentiment map[models.Symbol]float64

func (s stubSentiment) AnalyzeSentiment(_ context.Context, sym models.Symbol, headlines []string) (*models.SentimentScore, error) {
	v, ok := s[sym]
	if !ok {
		return nil, errors.New("llm error")
	}
	return &models.SentimentScore{Symbol: sym, Score: v, HeadlinesAnalyzed: len(headlines)}, nil
}

func flatBars(n int, price float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Close: price, Volume: 1}
	}
	return bars
}

func TestCollector_AssemblesContext(t *testing.T) {
	regime := &stubRegime{result: &models.RegimeClassification{Regime: models.RegimeRangeBound, Confidence: 0.6}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCollector(CollectorConfig{
		Symbols:   []models.Symbol{"BTC/USD", "ETH/USD", "SOL/USD"},
		FearGreed: stubFearGreed{fg: &models.FearGreed{Value: 40}},
		Funding:   stubFunding{{Provider: "binance", Symbol: "BTCUSDT", Rate: 0.0002}},
		News: stubHeadlines{
			"BTC/USD": {{Headline: "up"}},
			"ETH/USD": {{Headline: "down"}},
		},
		Regime:    regime,
		Sentiment: stubSentiment{"BTC/USD": 0.5},
		Summary:   analysis.SummaryParams{BBPeriod: 20, BBMultiplier: 1.3, RSIPeriod: 14},
		Now:       func() time.Time { return now },
	}, zerolog.Nop())

	ec := c.Collect(context.Background(), map[models.Symbol][]models.Bar{"BTC/USD": flatBars(30, 100)})

	require.NotNil(t, ec.FearGreed)
	assert.Equal(t, 40, ec.FearGreed.Value)
	assert.Len(t, ec.FundingRates, 1)
	assert.Equal(t, map[models.Symbol]float64{"BTC/USD": 0.5}, ec.Sentiments)
	require.NotNil(t, ec.Regime)
	assert.Equal(t, models.RegimeRangeBound, ec.Regime.Regime)
	assert.Equal(t, now, ec.Timestamp)

	require.NotNil(t, regime.got.FearGreed)
	assert.Equal(t, 40.0, *regime.got.FearGreed)
	assert.Equal(t, 0.0002, regime.got.FundingRates["BTC/USD"])
	assert.Equal(t, 50.0, regime.got.AvgRSI)
}

func TestCollector_FailuresDegrade(t *testing.T) {
	c := NewCollector(CollectorConfig{
		Symbols:   []models.Symbol{"BTC/USD"},
		FearGreed: stubFearGreed{err: errors.New("down")},
		Funding:   stubFunding{},
		News:      stubHeadlines{"BTC/USD": {{Headline: "x"}}},
		Regime:    &stubRegime{err: apperrors.ErrLLMDisabled},
		Sentiment: stubSentiment{},
	}, zerolog.Nop())

	ec := c.Collect(context.Background(), nil)
	assert.Nil(t, ec.FearGreed)
	assert.Empty(t, ec.FundingRates)
	assert.Empty(t, ec.Sentiments)
	assert.Nil(t, ec.Regime)
}

// barrierSentiment answers only once every expected symbol is being scored
// at the same time.
type barrierSentiment struct {
	expected int32
	started  atomic.Int32
	all      chan struct{}
}

func (b *barrierSentiment) AnalyzeSentiment(ctx context.Context, sym models.Symbol, headlines []string) (*models.SentimentScore, error) {
	if b.started.Add(1) == b.expected {
		close(b.all)
	}
	select {
	case <-b.all:
		return &models.SentimentScore{Symbol: sym, Score: 0.2}, nil
	case <-time.After(2 * time.Second):
		return nil, errors.New("scored alone")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCollector_ScoresSymbolsConcurrently(t *testing.T) {
	symbols := []models.Symbol{"BTC/USD", "ETH/USD", "SOL/USD"}
	news := stubHeadlines{}
	for _, s := range symbols {
		news[s] = []models.NewsItem{{Headline: string(s) + " headline"}}
	}
	c := NewCollector(CollectorConfig{
		Symbols:   symbols,
		News:      news,
		Sentiment: &barrierSentiment{expected: int32(len(symbols)), all: make(chan struct{})},
	}, zerolog.Nop())

	ec := c.Collect(context.Background(), nil)
	assert.Len(t, ec.Sentiments, 3)
}

func TestCollector_NilSources(t *testing.T) {
	ec := NewCollector(CollectorConfig{Symbols: []models.Symbol{"BTC/USD"}}, zerolog.Nop()).Collect(context.Background(), nil)
	require.NotNil(t, ec)
	assert.Nil(t, ec.FearGreed)
	assert.NotNil(t, ec.FundingRates)
	assert.NotNil(t, ec.Sentiments)
}

func TestHTTPClient_RateLimiterPerHost(t *testing.T) {
	c := NewHTTPClient(time.Second, 2, zerolog.Nop())
	a := c.limiter("a.example")
	assert.Same(t, a, c.limiter("a.example"))
	assert.NotSame(t, a, c.limiter("b.example"))
	assert.Equal(t, 2, a.Burst())

	unlimited := NewHTTPClient(time.Second, 0, zerolog.Nop()).limiter("x")
	assert.True(t, unlimited.Allow())
	assert.True(t, unlimited.Allow())
}
