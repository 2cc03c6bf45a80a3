package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-scalper/internal/models"
	"crypto-scalper/internal/resilience"
)

var tracked = []models.Symbol{"BTC/USD", "ETH/USD", "SOL/USD", "DOGE/USD", "LINK/USD"}

func testHTTP() *HTTPClient {
	return NewHTTPClient(2*time.Second, 0, zerolog.Nop())
}

func deadURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

const bybitThree = `{"retCode":0,"retMsg":"OK","result":{"list":[
	{"symbol":"BTCUSDT","fundingRate":"0.0001","markPrice":"67000","nextFundingTime":"1714560000000"},
	{"symbol":"ETHUSDT","fundingRate":"-0.0002","markPrice":"3100","nextFundingTime":"1714560000000"},
	{"symbol":"SOLUSDT","fundingRate":"0.00005","markPrice":"140","nextFundingTime":"1714560000000"},
	{"symbol":"XRPUSDT","fundingRate":"0.0003","markPrice":"0.5","nextFundingTime":"1714560000000"}
]}}`

func TestFundingResolver_FallsBackAndCachesSecondProvider(t *testing.T) {
	var bybitHits atomic.Int32
	bybit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bybitHits.Add(1)
		assert.Equal(t, "/v5/market/tickers", r.URL.Path)
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		w.Write([]byte(bybitThree))
	}))
	defer bybit.Close()

	client := testHTTP()
	resolver := NewFundingResolver([]FundingProvider{
		&BinanceFunding{Client: client, BaseURL: deadURL(t)},
		&BybitFunding{Client: client, BaseURL: bybit.URL},
	}, resilience.NewBreakers(resilience.DefaultBreakerConfig(), nil), time.Minute, 0, zerolog.Nop())

	rates := resolver.Resolve(context.Background(), tracked)
	require.Len(t, rates, 3)
	for _, r := range rates {
		assert.Equal(t, "bybit", r.Provider)
	}

	again := resolver.Resolve(context.Background(), tracked)
	assert.Equal(t, rates, again)
	assert.Equal(t, int32(1), bybitHits.Load())

	eth := models.FundingRateFor(again, "ETH/USD")
	require.NotNil(t, eth)
	assert.InDelta(t, -0.0002, *eth, 1e-12)
	assert.Nil(t, models.FundingRateFor(again, "DOGE/USD"))
}

func TestFundingResolver_AllFailReturnsEmpty(t *testing.T) {
	client := testHTTP()
	resolver := NewFundingResolver([]FundingProvider{
		&BinanceFunding{Client: client, BaseURL: deadURL(t)},
		&BybitFunding{Client: client, BaseURL: deadURL(t)},
	}, resilience.NewBreakers(resilience.DefaultBreakerConfig(), nil), time.Minute, 0, zerolog.Nop())

	rates := resolver.Resolve(context.Background(), tracked)
	assert.NotNil(t, rates)
	assert.Empty(t, rates)
}

func TestFundingResolver_EmptyResultFallsThrough(t *testing.T) {
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"XRPUSDT","markPrice":"0.5","lastFundingRate":"0.0001","nextFundingTime":0}]`))
	}))
	defer binance.Close()
	bybit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bybitThree))
	}))
	defer bybit.Close()

	client := testHTTP()
	resolver := NewFundingResolver([]FundingProvider{
		&BinanceFunding{Client: client, BaseURL: binance.URL},
		&BybitFunding{Client: client, BaseURL: bybit.URL},
	}, resilience.NewBreakers(resilience.DefaultBreakerConfig(), nil), time.Minute, 0, zerolog.Nop())

	rates := resolver.Resolve(context.Background(), tracked)
	require.Len(t, rates, 3)
	assert.Equal(t, "bybit", rates[0].Provider)
}

func TestFundingResolver_OpenBreakerSkipsProvider(t *testing.T) {
	var binanceHits atomic.Int32
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		binanceHits.Add(1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer binance.Close()
	bybit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bybitThree))
	}))
	defer bybit.Close()

	client := testHTTP()
	registry := resilience.NewBreakers(resilience.BreakerConfig{TripAfter: 1, Cooldown: time.Hour}, nil)
	providers := []FundingProvider{
		&BinanceFunding{Client: client, BaseURL: binance.URL},
		&BybitFunding{Client: client, BaseURL: bybit.URL},
	}

	// A zero TTL forces every call through the providers.
	resolver := NewFundingResolver(providers, registry, 0, 0, zerolog.Nop())
	resolver.Resolve(context.Background(), tracked)
	resolver.Resolve(context.Background(), tracked)

	assert.Equal(t, int32(1), binanceHits.Load())
	stats := resolver.Breakers()
	require.Len(t, stats, 2)
	assert.Equal(t, "binance", stats[0].Provider)
	assert.Equal(t, resilience.StateTripped, stats[0].State)
}

func TestFundingResolver_HangingPrimaryLeavesFallbackHealthy(t *testing.T) {
	release := make(chan struct{})
	binance := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer binance.Close()
	defer close(release)
	bybit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(bybitThree))
	}))
	defer bybit.Close()

	// The HTTP client would wait far longer than one attempt is allowed to.
	client := NewHTTPClient(30*time.Second, 0, zerolog.Nop())
	breakers := resilience.NewBreakers(resilience.BreakerConfig{TripAfter: 1, Cooldown: time.Hour}, nil)
	resolver := NewFundingResolver([]FundingProvider{
		&BinanceFunding{Client: client, BaseURL: binance.URL},
		&BybitFunding{Client: client, BaseURL: bybit.URL},
	}, breakers, time.Minute, 300*time.Millisecond, zerolog.Nop())

	start := time.Now()
	rates := resolver.Resolve(context.Background(), tracked)
	assert.Less(t, time.Since(start), 5*time.Second)

	require.Len(t, rates, 3)
	assert.Equal(t, "bybit", rates[0].Provider)

	stats := resolver.Breakers()
	require.Len(t, stats, 2)
	assert.Equal(t, resilience.StateTripped, stats[0].State)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, "bybit", stats[1].Provider)
	assert.Equal(t, resilience.StateHealthy, stats[1].State)
	assert.Zero(t, stats[1].Failures)
}

func TestFundingResolver_AbandonedTickDoesNotBenchProviders(t *testing.T) {
	var hits atomic.Int32
	bybit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(bybitThree))
	}))
	defer bybit.Close()

	breakers := resilience.NewBreakers(resilience.BreakerConfig{TripAfter: 1, Cooldown: time.Hour}, nil)
	resolver := NewFundingResolver([]FundingProvider{
		&BybitFunding{Client: testHTTP(), BaseURL: bybit.URL},
	}, breakers, time.Minute, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, resolver.Resolve(ctx, tracked))
	assert.Zero(t, hits.Load())

	rates := resolver.Resolve(context.Background(), tracked)
	assert.Len(t, rates, 3)
	assert.Equal(t, resilience.StateHealthy, breakers.For("bybit").State())
}

func TestBinanceFunding_Parses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fapi/v1/premiumIndex", r.URL.Path)
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","markPrice":"67000.5","lastFundingRate":"0.00010000","nextFundingTime":1714560000000},
			{"symbol":"ADAUSDT","markPrice":"0.4","lastFundingRate":"0.0001","nextFundingTime":1714560000000}
		]`))
	}))
	defer srv.Close()

	rates, err := (&BinanceFunding{Client: testHTTP(), BaseURL: srv.URL}).FetchFundingRates(context.Background(), tracked)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, "BTCUSDT", rates[0].Symbol)
	assert.InDelta(t, 0.0001, rates[0].Rate, 1e-12)
	assert.Equal(t, time.UnixMilli(1714560000000).UTC(), rates[0].NextFundingTime)
}

func TestHyperliquidFunding_ScalesHourlyRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)
		w.Write([]byte(`[
			{"universe":[{"name":"BTC"},{"name":"ETH"},{"name":"PEPE"}]},
			[{"funding":"0.0000125","markPx":"67000"},{"funding":"-0.00001","markPx":"3100"},{"funding":"0.0001","markPx":"0.00001"}]
		]`))
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 12, 34, 0, 0, time.UTC)
	h := &HyperliquidFunding{Client: testHTTP(), BaseURL: srv.URL, Now: func() time.Time { return now }}
	rates, err := h.FetchFundingRates(context.Background(), tracked)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, "BTC", rates[0].Symbol)
	assert.InDelta(t, 0.0001, rates[0].Rate, 1e-12)
	assert.Equal(t, time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC), rates[0].NextFundingTime)

	btc := models.FundingRateFor(rates, "BTC/USD")
	require.NotNil(t, btc)
}

func TestBybitFunding_RetCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10001,"retMsg":"bad request","result":{"list":[]}}`))
	}))
	defer srv.Close()

	_, err := (&BybitFunding{Client: testHTTP(), BaseURL: srv.URL}).FetchFundingRates(context.Background(), tracked)
	assert.ErrorContains(t, err, "10001")
}
