package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-scalper/internal/cache"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
	"crypto-scalper/internal/resilience"
)

const fundingKey = "funding"

// FundingProvider fetches perpetual funding rates for the tracked symbols.
// Rates carry the provider's own symbol form.
type FundingProvider interface {
	Name() string
	FetchFundingRates(ctx context.Context, symbols []models.Symbol) ([]models.FundingRate, error)
}

// FundingResolver tries providers in order and caches the first non-empty
// result. Each provider sits behind its own circuit breaker.
type FundingResolver struct {
	providers []FundingProvider
	breakers  *resilience.Breakers
	attempt   time.Duration
	cache     *cache.TTLCache[string, []models.FundingRate]
	log       zerolog.Logger
}

// NewFundingResolver creates a resolver over providers in priority order.
// Each provider attempt gets its own attempt budget; zero leaves it to the
// HTTP client.
func NewFundingResolver(providers []FundingProvider, breakers *resilience.Breakers, ttl, attempt time.Duration, logger zerolog.Logger) *FundingResolver {
	return &FundingResolver{
		providers: providers,
		breakers:  breakers,
		attempt:   attempt,
		cache:     cache.New[string, []models.FundingRate](ttl),
		log:       logging.WithComponent(logger, "funding"),
	}
}

// Resolve returns cached rates or walks the providers. When all providers fail
// the result is empty, never an error.
func (r *FundingResolver) Resolve(ctx context.Context, symbols []models.Symbol) []models.FundingRate {
	if rates, ok := r.cache.Get(fundingKey); ok {
		return rates
	}

	for _, p := range r.providers {
		p := p
		rates, err := resilience.Guard(r.breakers.For(p.Name()), ctx,
			func(ctx context.Context) ([]models.FundingRate, error) {
				if r.attempt > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, r.attempt)
					defer cancel()
				}
				rates, err := p.FetchFundingRates(ctx, symbols)
				if err == nil && len(rates) == 0 {
					err = apperrors.ErrNoFundingData
				}
				return rates, err
			})
		if err != nil {
			if ctx.Err() != nil {
				r.log.Warn().Err(err).Msg("Funding lookup abandoned")
				return []models.FundingRate{}
			}
			r.log.Warn().Err(err).Str("provider", p.Name()).Msg("Funding provider failed")
			metrics.EnrichmentFailures.WithLabelValues("funding_" + p.Name()).Inc()
			continue
		}

		r.cache.Set(fundingKey, rates)
		r.log.Info().Str("provider", p.Name()).Int("symbols", len(rates)).Msg("Funding rates fetched")
		return rates
	}

	r.log.Warn().Msg("All funding providers failed")
	return []models.FundingRate{}
}

// Breakers exposes the provider breaker statistics.
func (r *FundingResolver) Breakers() []resilience.Stats {
	return r.breakers.Snapshot()
}

// BinanceFunding reads USDT-margined premium index data.
type BinanceFunding struct {
	Client  *HTTPClient
	BaseURL string
}

func (b *BinanceFunding) Name() string { return "binance" }

type binancePremiumIndex struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

func (b *BinanceFunding) FetchFundingRates(ctx context.Context, symbols []models.Symbol) ([]models.FundingRate, error) {
	var items []binancePremiumIndex
	if err := b.Client.GetJSON(ctx, strings.TrimRight(b.BaseURL, "/")+"/fapi/v1/premiumIndex", &items); err != nil {
		return nil, err
	}

	wanted := wantedSymbols(symbols, models.Symbol.Binance)
	var rates []models.FundingRate
	for _, item := range items {
		if !wanted[item.Symbol] {
			continue
		}
		rate, err := strconv.ParseFloat(item.LastFundingRate, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(item.MarkPrice, 64)
		rates = append(rates, models.FundingRate{
			Provider:        b.Name(),
			Symbol:          item.Symbol,
			Rate:            rate,
			MarkPrice:       mark,
			NextFundingTime: time.UnixMilli(item.NextFundingTime).UTC(),
		})
	}
	return rates, nil
}

// BybitFunding reads linear perpetual tickers.
type BybitFunding struct {
	Client  *HTTPClient
	BaseURL string
}

func (b *BybitFunding) Name() string { return "bybit" }

type bybitTickers struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol          string `json:"symbol"`
			FundingRate     string `json:"fundingRate"`
			MarkPrice       string `json:"markPrice"`
			NextFundingTime string `json:"nextFundingTime"`
		} `json:"list"`
	} `json:"result"`
}

func (b *BybitFunding) FetchFundingRates(ctx context.Context, symbols []models.Symbol) ([]models.FundingRate, error) {
	var resp bybitTickers
	if err := b.Client.GetJSON(ctx, strings.TrimRight(b.BaseURL, "/")+"/v5/market/tickers?category=linear", &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, apperrors.NewDataError(b.Name(), "", fmt.Sprintf("retCode %d: %s", resp.RetCode, resp.RetMsg), apperrors.ErrProviderUnavailable)
	}

	wanted := wantedSymbols(symbols, models.Symbol.Bybit)
	var rates []models.FundingRate
	for _, item := range resp.Result.List {
		if !wanted[item.Symbol] {
			continue
		}
		rate, err := strconv.ParseFloat(item.FundingRate, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(item.MarkPrice, 64)
		next, _ := strconv.ParseInt(item.NextFundingTime, 10, 64)
		rates = append(rates, models.FundingRate{
			Provider:        b.Name(),
			Symbol:          item.Symbol,
			Rate:            rate,
			MarkPrice:       mark,
			NextFundingTime: time.UnixMilli(next).UTC(),
		})
	}
	return rates, nil
}

// HyperliquidFunding reads asset contexts from the Hyperliquid info endpoint.
// Hyperliquid funds hourly; rates are scaled to the 8h interval the other
// providers report.
type HyperliquidFunding struct {
	Client  *HTTPClient
	BaseURL string
	Now     func() time.Time
}

func (h *HyperliquidFunding) Name() string { return "hyperliquid" }

type hyperliquidMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type hyperliquidAssetCtx struct {
	Funding string `json:"funding"`
	MarkPx  string `json:"markPx"`
}

func (h *HyperliquidFunding) FetchFundingRates(ctx context.Context, symbols []models.Symbol) ([]models.FundingRate, error) {
	var raw []json.RawMessage
	body := map[string]string{"type": "metaAndAssetCtxs"}
	if err := h.Client.PostJSON(ctx, strings.TrimRight(h.BaseURL, "/")+"/info", body, &raw); err != nil {
		return nil, err
	}
	if len(raw) != 2 {
		return nil, apperrors.NewDataError(h.Name(), "", fmt.Sprintf("expected 2 elements, got %d", len(raw)), apperrors.ErrInsufficientData)
	}

	var meta hyperliquidMeta
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return nil, apperrors.NewDataError(h.Name(), "", "decoding meta", err)
	}
	var ctxs []hyperliquidAssetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, apperrors.NewDataError(h.Name(), "", "decoding asset contexts", err)
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	nextHour := now().UTC().Truncate(time.Hour).Add(time.Hour)

	wanted := wantedSymbols(symbols, models.Symbol.Hyperliquid)
	var rates []models.FundingRate
	for i, asset := range meta.Universe {
		if i >= len(ctxs) || !wanted[asset.Name] {
			continue
		}
		hourly, err := strconv.ParseFloat(ctxs[i].Funding, 64)
		if err != nil {
			continue
		}
		mark, _ := strconv.ParseFloat(ctxs[i].MarkPx, 64)
		rates = append(rates, models.FundingRate{
			Provider:        h.Name(),
			Symbol:          asset.Name,
			Rate:            hourly * 8,
			MarkPrice:       mark,
			NextFundingTime: nextHour,
		})
	}
	return rates, nil
}

func wantedSymbols(symbols []models.Symbol, form func(models.Symbol) string) map[string]bool {
	out := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		out[form(s)] = true
	}
	return out
}
