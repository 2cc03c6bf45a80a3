package enrichment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"crypto-scalper/internal/cache"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
)

const fearGreedKey = "fng"

// FearGreedFetcher reads the alternative.me crypto fear & greed index.
type FearGreedFetcher struct {
	client  *HTTPClient
	baseURL string
	cache   *cache.TTLCache[string, models.FearGreed]
	log     zerolog.Logger
}

// NewFearGreedFetcher creates a fetcher that caches the reading for ttl.
func NewFearGreedFetcher(client *HTTPClient, baseURL string, ttl time.Duration, logger zerolog.Logger) *FearGreedFetcher {
	return &FearGreedFetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache.New[string, models.FearGreed](ttl),
		log:     logging.WithComponent(logger, "fear_greed"),
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
}

// Fetch returns the latest index reading.
func (f *FearGreedFetcher) Fetch(ctx context.Context) (*models.FearGreed, error) {
	if v, ok := f.cache.Get(fearGreedKey); ok {
		return &v, nil
	}

	var resp fngResponse
	if err := f.client.GetJSON(ctx, f.baseURL+"/fng/?limit=1", &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewDataError("fear_greed", "", "empty response", apperrors.ErrInsufficientData)
	}

	item := resp.Data[0]
	value, err := strconv.Atoi(item.Value)
	if err != nil {
		return nil, apperrors.NewDataError("fear_greed", "", "invalid value "+item.Value, err)
	}
	var ts time.Time
	if secs, err := strconv.ParseInt(item.Timestamp, 10, 64); err == nil {
		ts = time.Unix(secs, 0).UTC()
	}

	fg := models.FearGreed{Value: value, Classification: item.Classification, Timestamp: ts}
	f.cache.Set(fearGreedKey, fg)
	f.log.Info().Int("value", fg.Value).Str("classification", fg.Classification).Msg("Fear & greed fetched")
	return &fg, nil
}
