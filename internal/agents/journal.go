package agents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
)

// UnavailableAnalysis is recorded when the model could not be reached.
const UnavailableAnalysis = "LLM analysis unavailable"

// JournalRequest describes an executed trade.
type JournalRequest struct {
	Symbol      models.Symbol
	Side        models.OrderSide
	Price       float64
	Notional    float64
	Reason      string
	RSI         float64
	BBPosition  string
	FearGreed   *float64
	Sentiment   *float64
	FundingRate *float64
	Regime      *models.Regime
	At          time.Time
}

// Journaler writes journal entries on a single background worker. Finished
// entries are collected with Drain so the caller stays the only writer of
// its state.
type Journaler struct {
	llm     LLMClient
	timeout time.Duration
	log     zerolog.Logger

	queue chan JournalRequest
	wg    sync.WaitGroup

	mu     sync.Mutex
	done   []models.JournalEntry
	closed bool
}

// NewJournaler creates a journaler with a bounded queue. A nil llm records
// UnavailableAnalysis for every entry.
func NewJournaler(llm LLMClient, queueSize int, timeout time.Duration, logger zerolog.Logger) *Journaler {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Journaler{
		llm:     llm,
		timeout: timeout,
		log:     logging.WithComponent(logger, "journal"),
		queue:   make(chan JournalRequest, queueSize),
	}
}

// Start launches the worker. Requests still queued when ctx ends are written
// with the fallback analysis.
func (j *Journaler) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for req := range j.queue {
			entry := j.write(ctx, req)
			j.mu.Lock()
			j.done = append(j.done, entry)
			j.mu.Unlock()
		}
	}()
}

// Submit enqueues req without blocking.
func (j *Journaler) Submit(req JournalRequest) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return fmt.Errorf("journal closed: %w", apperrors.ErrQueueFull)
	}
	select {
	case j.queue <- req:
		return nil
	default:
		j.log.Warn().Str("symbol", req.Symbol.String()).Msg("Journal queue full, dropping entry")
		return apperrors.ErrQueueFull
	}
}

// Drain returns and clears the finished entries.
func (j *Journaler) Drain() []models.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := j.done
	j.done = nil
	return out
}

// Close stops accepting requests and waits for the queue to empty.
func (j *Journaler) Close() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()
	j.wg.Wait()
}

type journalReply struct {
	Analysis string `json:"analysis"`
}

func (j *Journaler) write(ctx context.Context, req JournalRequest) models.JournalEntry {
	analysis := UnavailableAnalysis
	if j.llm != nil && ctx.Err() == nil {
		callCtx := ctx
		var cancel context.CancelFunc = func() {}
		if j.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, j.timeout)
		}
		var reply journalReply
		err := CompleteJSON(callCtx, j.llm, TierFast, journalSystem, buildJournalPrompt(req), &reply)
		cancel()
		if err != nil {
			j.log.Warn().Err(err).Str("symbol", req.Symbol.String()).Msg("Journal generation failed")
		} else if reply.Analysis != "" {
			analysis = reply.Analysis
		}
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}
	return models.JournalEntry{
		ID:            uuid.NewString(),
		Timestamp:     at,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Price:         req.Price,
		Notional:      req.Notional,
		Reason:        req.Reason,
		MarketContext: fmt.Sprintf("RSI: %.1f, BB: %s, F&G: %s", req.RSI, req.BBPosition, formatOptional(req.FearGreed, "%.0f", 1)),
		Analysis:      analysis,
		Regime:        req.Regime,
		Sentiment:     req.Sentiment,
		FearGreed:     req.FearGreed,
	}
}
