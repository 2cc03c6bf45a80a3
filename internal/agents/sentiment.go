package agents

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"crypto-scalper/internal/cache"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
)

// SentimentAnalyzer scores headlines per symbol with the fast model.
type SentimentAnalyzer struct {
	llm     LLMClient
	cache   *cache.TTLCache[models.Symbol, models.SentimentScore]
	timeout time.Duration
	log     zerolog.Logger
}

// NewSentimentAnalyzer creates an analyzer. A nil llm disables it.
func NewSentimentAnalyzer(llm LLMClient, ttl, timeout time.Duration, logger zerolog.Logger) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		llm:     llm,
		cache:   cache.New[models.Symbol, models.SentimentScore](ttl),
		timeout: timeout,
		log:     logging.WithComponent(logger, "sentiment"),
	}
}

type sentimentReply struct {
	Score   float64 `json:"score"`
	Summary string  `json:"summary"`
}

// AnalyzeSentiment returns nil without calling the model when there are no
// headlines.
func (s *SentimentAnalyzer) AnalyzeSentiment(ctx context.Context, symbol models.Symbol, headlines []string) (*models.SentimentScore, error) {
	if len(headlines) == 0 {
		return nil, nil
	}
	if s == nil || s.llm == nil {
		return nil, apperrors.ErrLLMDisabled
	}
	if v, ok := s.cache.Get(symbol); ok {
		return &v, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var reply sentimentReply
	if err := CompleteJSON(ctx, s.llm, TierFast, sentimentSystem, buildSentimentPrompt(symbol, headlines), &reply); err != nil {
		return nil, err
	}

	score := models.SentimentScore{
		Symbol:            symbol,
		Score:             math.Max(-1, math.Min(1, reply.Score)),
		Summary:           reply.Summary,
		HeadlinesAnalyzed: len(headlines),
	}
	s.cache.Set(symbol, score)
	s.log.Info().Str("symbol", symbol.String()).Float64("score", score.Score).Msg("Sentiment analyzed")
	return &score, nil
}
