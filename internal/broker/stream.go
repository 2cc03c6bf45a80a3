package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/metrics"
	"crypto-scalper/internal/models"
)

// QuoteStream keeps the latest quote per symbol from the Alpaca crypto
// websocket, reconnecting with backoff until its context ends.
type QuoteStream struct {
	url     string
	keyID   string
	secret  string
	symbols []models.Symbol
	log     zerolog.Logger

	mu     sync.RWMutex
	latest map[models.Symbol]streamQuote
}

type streamQuote struct {
	snap     models.QuoteSnapshot
	received time.Time
}

type streamMessage struct {
	Type      string    `json:"T"`
	Msg       string    `json:"msg"`
	Code      int       `json:"code"`
	Symbol    string    `json:"S"`
	Bid       float64   `json:"bp"`
	Ask       float64   `json:"ap"`
	Timestamp time.Time `json:"t"`
}

// NewQuoteStream creates a stream for symbols. Call Run to connect.
func NewQuoteStream(url, keyID, secret string, symbols []models.Symbol, logger zerolog.Logger) *QuoteStream {
	return &QuoteStream{
		url:     url,
		keyID:   keyID,
		secret:  secret,
		symbols: symbols,
		log:     logging.WithComponent(logger, "quote_stream"),
		latest:  make(map[models.Symbol]streamQuote),
	}
}

// Latest returns the most recent quote for symbol and when it arrived.
func (s *QuoteStream) Latest(symbol models.Symbol) (models.QuoteSnapshot, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.latest[symbol]
	return q.snap, q.received, ok
}

// Run consumes the stream until ctx is done.
func (s *QuoteStream) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		return fmt.Errorf("quote stream requires at least one symbol")
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Warn().Err(err).Dur("backoff", backoff).Msg("quote stream disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
	}
}

func (s *QuoteStream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Unblock ReadMessage when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	if err := conn.WriteJSON(map[string]string{"action": "auth", "key": s.keyID, "secret": s.secret}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}
	names := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		names[i] = sym.String()
	}
	if err := conn.WriteJSON(map[string]interface{}{"action": "subscribe", "quotes": names}); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}

	s.log.Info().Strs("symbols", names).Msg("connected quote stream")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	var writeMu sync.Mutex
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				err := conn.WriteMessage(websocket.PingMessage, nil)
				writeMu.Unlock()
				if err != nil {
					s.log.Warn().Err(err).Msg("quote stream ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var batch []streamMessage
		if err := json.Unmarshal(message, &batch); err != nil {
			s.log.Warn().Err(err).Msg("failed to decode stream message")
			continue
		}
		if err := s.handle(batch, time.Now()); err != nil {
			return err
		}
	}
}

// handle applies one decoded batch. Server-side errors end the connection.
func (s *QuoteStream) handle(batch []streamMessage, received time.Time) error {
	for _, m := range batch {
		switch m.Type {
		case "q":
			if m.Bid <= 0 || m.Ask <= 0 {
				continue
			}
			sym := models.Symbol(m.Symbol)
			s.mu.Lock()
			s.latest[sym] = streamQuote{
				snap:     models.NewQuoteSnapshot(sym, m.Bid, m.Ask, m.Timestamp),
				received: received,
			}
			s.mu.Unlock()
			metrics.StreamQuotes.WithLabelValues(m.Symbol).Inc()
		case "error":
			return fmt.Errorf("stream error %d: %s", m.Code, m.Msg)
		case "success", "subscription":
			s.log.Debug().Str("type", m.Type).Str("msg", m.Msg).Msg("stream control message")
		}
	}
	return nil
}

// StreamingFeed serves quotes from a QuoteStream when they are fresh and falls
// back to REST for the rest. Bars always come from REST.
type StreamingFeed struct {
	rest   PriceFeed
	stream *QuoteStream
	maxAge time.Duration
	now    func() time.Time
}

// NewStreamingFeed wraps rest with stream-sourced quotes no older than maxAge.
func NewStreamingFeed(rest PriceFeed, stream *QuoteStream, maxAge time.Duration) *StreamingFeed {
	return &StreamingFeed{rest: rest, stream: stream, maxAge: maxAge, now: time.Now}
}

// GetBars delegates to the REST feed.
func (f *StreamingFeed) GetBars(ctx context.Context, symbols []models.Symbol, timeframe string, limit int) (map[models.Symbol][]models.Bar, error) {
	return f.rest.GetBars(ctx, symbols, timeframe, limit)
}

// GetQuoteSnapshots returns fresh streamed quotes, fetching stale or missing
// symbols over REST in one call.
func (f *StreamingFeed) GetQuoteSnapshots(ctx context.Context, symbols []models.Symbol) (map[models.Symbol]models.QuoteSnapshot, error) {
	out := make(map[models.Symbol]models.QuoteSnapshot, len(symbols))
	var missing []models.Symbol
	now := f.now()
	for _, sym := range symbols {
		snap, received, ok := f.stream.Latest(sym)
		if ok && now.Sub(received) <= f.maxAge {
			out[sym] = snap
			continue
		}
		missing = append(missing, sym)
	}
	if len(missing) == 0 {
		return out, nil
	}

	rest, err := f.rest.GetQuoteSnapshots(ctx, missing)
	if err != nil {
		if len(out) > 0 {
			return out, nil
		}
		return nil, err
	}
	for sym, q := range rest {
		out[sym] = q
	}
	return out, nil
}

var _ PriceFeed = (*StreamingFeed)(nil)
