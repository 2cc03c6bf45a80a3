package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
)

// AlpacaConfig holds configuration for the Alpaca REST client.
type AlpacaConfig struct {
	KeyID      string
	SecretKey  string
	TradingURL string
	DataURL    string
	Timeout    time.Duration
}

// AlpacaClient talks to the Alpaca trading and market data REST APIs.
type AlpacaClient struct {
	cfg    AlpacaConfig
	http   *http.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewAlpacaClient creates a new Alpaca client.
func NewAlpacaClient(cfg AlpacaConfig, logger zerolog.Logger) *AlpacaClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AlpacaClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logging.WithComponent(logger, "alpaca"),
		now:    time.Now,
	}
}

type alpacaAccount struct {
	Equity      string `json:"equity"`
	Cash        string `json:"cash"`
	BuyingPower string `json:"buying_power"`
	Status      string `json:"status"`
}

type alpacaPosition struct {
	Symbol       string `json:"symbol"`
	Qty          string `json:"qty"`
	MarketValue  string `json:"market_value"`
	CurrentPrice string `json:"current_price"`
}

type alpacaOrder struct {
	ID             string  `json:"id"`
	Status         string  `json:"status"`
	FilledQty      *string `json:"filled_qty"`
	FilledAvgPrice *string `json:"filled_avg_price"`
}

type alpacaOrderRequest struct {
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	Notional    string `json:"notional,omitempty"`
	Qty         string `json:"qty,omitempty"`
}

type alpacaBarsResponse struct {
	Bars          map[string][]models.Bar `json:"bars"`
	NextPageToken *string                 `json:"next_page_token"`
}

type alpacaQuote struct {
	Bid       float64   `json:"bp"`
	Ask       float64   `json:"ap"`
	Timestamp time.Time `json:"t"`
}

type alpacaQuotesResponse struct {
	Quotes map[string]alpacaQuote `json:"quotes"`
}

type alpacaNewsResponse struct {
	News []struct {
		Headline  string    `json:"headline"`
		Summary   string    `json:"summary"`
		Source    string    `json:"source"`
		CreatedAt time.Time `json:"created_at"`
		Symbols   []string  `json:"symbols"`
	} `json:"news"`
}

// GetAccount fetches the account summary.
func (c *AlpacaClient) GetAccount(ctx context.Context) (*models.Account, error) {
	var acct alpacaAccount
	if err := c.do(ctx, http.MethodGet, c.cfg.TradingURL, "/v2/account", nil, &acct); err != nil {
		return nil, err
	}
	equity, err := parseDecimal(acct.Equity)
	if err != nil {
		return nil, fmt.Errorf("parsing equity: %w", err)
	}
	cash, err := parseDecimal(acct.Cash)
	if err != nil {
		return nil, fmt.Errorf("parsing cash: %w", err)
	}
	return &models.Account{Equity: equity, Cash: cash}, nil
}

// GetAccountEquity returns the account equity in USD.
func (c *AlpacaClient) GetAccountEquity(ctx context.Context) (float64, error) {
	acct, err := c.GetAccount(ctx)
	if err != nil {
		return 0, err
	}
	return acct.Equity, nil
}

// GetOpenPositions lists open positions mapped back to slash-form symbols.
// Positions in symbols that are not USD pairs are skipped.
func (c *AlpacaClient) GetOpenPositions(ctx context.Context) ([]models.BrokerPosition, error) {
	var raw []alpacaPosition
	if err := c.do(ctx, http.MethodGet, c.cfg.TradingURL, "/v2/positions", nil, &raw); err != nil {
		return nil, err
	}

	positions := make([]models.BrokerPosition, 0, len(raw))
	for _, p := range raw {
		symbol, ok := models.SymbolFromAlpaca(p.Symbol)
		if !ok {
			c.logger.Debug().Str("symbol", p.Symbol).Msg("Skipping position in untracked symbol")
			continue
		}
		qty, err := parseDecimal(p.Qty)
		if err != nil {
			return nil, fmt.Errorf("parsing qty for %s: %w", p.Symbol, err)
		}
		value, _ := parseDecimal(p.MarketValue)
		price, _ := parseDecimal(p.CurrentPrice)
		positions = append(positions, models.BrokerPosition{
			Symbol:       symbol,
			Qty:          qty,
			MarketValue:  value,
			CurrentPrice: price,
		})
	}
	return positions, nil
}

// PlaceOrder submits a GTC market order sized by notional, or by quantity when
// no notional is given.
func (c *AlpacaClient) PlaceOrder(ctx context.Context, req models.OrderRequest) (*models.OrderFill, error) {
	body := alpacaOrderRequest{
		Symbol:      req.Symbol.String(),
		Side:        string(req.Side),
		Type:        "market",
		TimeInForce: "gtc",
	}
	switch {
	case req.Notional > 0:
		body.Notional = decimal.NewFromFloat(req.Notional).StringFixed(2)
	case req.Qty > 0:
		body.Qty = decimal.NewFromFloat(req.Qty).Truncate(9).String()
	default:
		return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "order has neither notional nor qty", nil)
	}

	var order alpacaOrder
	if err := c.do(ctx, http.MethodPost, c.cfg.TradingURL, "/v2/orders", body, &order); err != nil {
		return nil, apperrors.NewOrderError(req.Symbol.String(), string(req.Side), "submit failed", err)
	}

	fill := &models.OrderFill{OrderID: order.ID, Status: order.Status}
	if order.FilledQty != nil {
		if v, err := parseDecimal(*order.FilledQty); err == nil && v > 0 {
			fill.FilledQty = &v
		}
	}
	if order.FilledAvgPrice != nil {
		if v, err := parseDecimal(*order.FilledAvgPrice); err == nil && v > 0 {
			fill.FilledAvgPrice = &v
		}
	}
	return fill, nil
}

// LiquidateAll closes every open position.
func (c *AlpacaClient) LiquidateAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.cfg.TradingURL, "/v2/positions", nil, nil)
}

// GetBars fetches recent bars for each symbol concurrently. A symbol whose
// request fails maps to an empty slice; an error is returned only when every
// symbol failed.
func (c *AlpacaClient) GetBars(ctx context.Context, symbols []models.Symbol, timeframe string, limit int) (map[models.Symbol][]models.Bar, error) {
	bucket, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}
	start := c.now().Add(-time.Duration(limit) * bucket).UTC().Format(time.RFC3339)

	var (
		mu       sync.Mutex
		wg       conc.WaitGroup
		lastErr  error
		failures int
	)
	results := make(map[models.Symbol][]models.Bar, len(symbols))

	for _, symbol := range symbols {
		symbol := symbol
		wg.Go(func() {
			q := url.Values{}
			q.Set("symbols", symbol.String())
			q.Set("timeframe", timeframe)
			q.Set("limit", strconv.Itoa(limit))
			q.Set("start", start)

			var resp alpacaBarsResponse
			err := c.do(ctx, http.MethodGet, c.cfg.DataURL, "/v1beta3/crypto/us/bars?"+q.Encode(), nil, &resp)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol.String()).Msg("Failed to fetch bars")
				results[symbol] = []models.Bar{}
				lastErr = err
				failures++
				return
			}
			results[symbol] = resp.Bars[symbol.String()]
		})
	}
	wg.Wait()

	if len(symbols) > 0 && failures == len(symbols) {
		return nil, apperrors.NewDataError("alpaca", "", "bars unavailable for every symbol", lastErr)
	}
	return results, nil
}

// GetQuoteSnapshots fetches the latest quote for all symbols in one request.
func (c *AlpacaClient) GetQuoteSnapshots(ctx context.Context, symbols []models.Symbol) (map[models.Symbol]models.QuoteSnapshot, error) {
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.String()
	}
	q := url.Values{}
	q.Set("symbols", joinComma(names))

	var resp alpacaQuotesResponse
	if err := c.do(ctx, http.MethodGet, c.cfg.DataURL, "/v1beta3/crypto/us/latest/quotes?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[models.Symbol]models.QuoteSnapshot, len(resp.Quotes))
	for name, quote := range resp.Quotes {
		symbol := models.Symbol(name)
		out[symbol] = models.NewQuoteSnapshot(symbol, quote.Bid, quote.Ask, quote.Timestamp)
	}
	return out, nil
}

// GetNews fetches the most recent headlines for symbol.
func (c *AlpacaClient) GetNews(ctx context.Context, symbol models.Symbol, limit int) ([]models.NewsItem, error) {
	q := url.Values{}
	q.Set("symbols", symbol.String())
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "desc")

	var resp alpacaNewsResponse
	if err := c.do(ctx, http.MethodGet, c.cfg.DataURL, "/v1beta1/news?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	items := make([]models.NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		items = append(items, models.NewsItem{
			Headline:  n.Headline,
			Summary:   n.Summary,
			Source:    n.Source,
			CreatedAt: n.CreatedAt,
			Symbols:   n.Symbols,
		})
	}
	return items, nil
}

// do performs an authenticated request. Non-2xx responses become a
// *BrokerError carrying the status and body; 204 leaves out untouched.
func (c *AlpacaClient) do(ctx context.Context, method, base, path string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, method, path, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.cfg.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewBrokerError(0, method+" "+path, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.NewBrokerError(resp.StatusCode, method+" "+path, string(data), nil)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func parseDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

func joinComma(items []string) string {
	var buf bytes.Buffer
	for i, s := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(s)
	}
	return buf.String()
}

var (
	_ OrderBroker = (*AlpacaClient)(nil)
	_ PriceFeed   = (*AlpacaClient)(nil)
	_ NewsSource  = (*AlpacaClient)(nil)
)
