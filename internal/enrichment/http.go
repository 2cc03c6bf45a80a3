// Package enrichment fetches the optional market context that adjusts scalp
// sizing and targets: fear & greed, perpetual funding, news and LLM outputs.
// Every fetcher degrades to nil or empty on failure.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
)

// HTTPClient is a JSON client for public APIs with a per-host rate limit.
type HTTPClient struct {
	http   *http.Client
	rps    float64
	logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPClient creates a client with the given timeout and per-host
// requests-per-second limit. rps <= 0 disables limiting.
func NewHTTPClient(timeout time.Duration, rps float64, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		http:     &http.Client{Timeout: timeout},
		rps:      rps,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// GetJSON decodes the response of a GET into out.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, out)
}

// PostJSON sends body as JSON and decodes the response into out.
func (c *HTTPClient) PostJSON(ctx context.Context, rawURL string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, rawURL, body, out)
}

func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body, out interface{}) (err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}

	if err := c.limiter(u.Host).Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, method, u.Host+u.Path, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewDataError(u.Host, "", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewDataError(u.Host, "", fmt.Sprintf("status %d: %s", resp.StatusCode, snippet), apperrors.ErrProviderUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewDataError(u.Host, "", "decoding response", err)
	}
	return nil
}

func (c *HTTPClient) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.limiters[host]; ok {
		return l
	}
	limit := rate.Inf
	burst := 1
	if c.rps > 0 {
		limit = rate.Limit(c.rps)
		if int(c.rps) > burst {
			burst = int(c.rps)
		}
	}
	l := rate.NewLimiter(limit, burst)
	c.limiters[host] = l
	return l
}
