package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-scalper/internal/models"
)

func TestQuoteStream_HandleQuotes(t *testing.T) {
	s := NewQuoteStream("wss://example", "k", "s", []models.Symbol{"BTC/USD"}, zerolog.Nop())
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := s.handle([]streamMessage{
		{Type: "success", Msg: "authenticated"},
		{Type: "q", Symbol: "BTC/USD", Bid: 99, Ask: 101, Timestamp: at},
		{Type: "q", Symbol: "ETH/USD", Bid: 0, Ask: 10},
	}, at)
	require.NoError(t, err)

	snap, received, ok := s.Latest("BTC/USD")
	require.True(t, ok)
	assert.Equal(t, at, received)
	assert.InDelta(t, 100, snap.MidPrice, 1e-12)

	_, _, ok = s.Latest("ETH/USD")
	assert.False(t, ok)
}

func TestQuoteStream_ErrorMessageEndsConnection(t *testing.T) {
	s := NewQuoteStream("wss://example", "k", "s", []models.Symbol{"BTC/USD"}, zerolog.Nop())
	err := s.handle([]streamMessage{{Type: "error", Code: 402, Msg: "auth failed"}}, time.Now())
	assert.ErrorContains(t, err, "auth failed")
}

func TestStreamingFeed_FreshQuotesSkipREST(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewQuoteStream("wss://example", "k", "s", []models.Symbol{"BTC/USD", "ETH/USD"}, zerolog.Nop())
	require.NoError(t, s.handle([]streamMessage{
		{Type: "q", Symbol: "BTC/USD", Bid: 99, Ask: 101},
	}, now.Add(-2*time.Second)))
	require.NoError(t, s.handle([]streamMessage{
		{Type: "q", Symbol: "ETH/USD", Bid: 9, Ask: 11},
	}, now.Add(-time.Minute)))

	rest := &fixedFeed{mids: map[models.Symbol]float64{"BTC/USD": 500, "ETH/USD": 20}}
	f := NewStreamingFeed(rest, s, 10*time.Second)
	f.now = func() time.Time { return now }

	quotes, err := f.GetQuoteSnapshots(context.Background(), []models.Symbol{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	assert.InDelta(t, 100, quotes["BTC/USD"].MidPrice, 1e-12)
	assert.InDelta(t, 20, quotes["ETH/USD"].MidPrice, 1e-12)
}

func TestStreamingFeed_RESTFailureKeepsStreamed(t *testing.T) {
	now := time.Now()
	s := NewQuoteStream("wss://example", "k", "s", []models.Symbol{"BTC/USD", "ETH/USD"}, zerolog.Nop())
	require.NoError(t, s.handle([]streamMessage{{Type: "q", Symbol: "BTC/USD", Bid: 99, Ask: 101}}, now))

	f := NewStreamingFeed(&fixedFeed{err: errors.New("down")}, s, 10*time.Second)
	f.now = func() time.Time { return now }

	quotes, err := f.GetQuoteSnapshots(context.Background(), []models.Symbol{"BTC/USD", "ETH/USD"})
	require.NoError(t, err)
	assert.Len(t, quotes, 1)

	_, err = f.GetQuoteSnapshots(context.Background(), []models.Symbol{"ETH/USD"})
	assert.Error(t, err)
}
