package agents

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"crypto-scalper/internal/analysis"
	"crypto-scalper/internal/cache"
	apperrors "crypto-scalper/internal/errors"
	"crypto-scalper/internal/logging"
	"crypto-scalper/internal/models"
)

const regimeKey = "regime"

// RegimeClassifier asks the balanced model for the market regime and caches
// the answer process-wide.
type RegimeClassifier struct {
	llm     LLMClient
	cache   *cache.TTLCache[string, models.RegimeClassification]
	timeout time.Duration
	log     zerolog.Logger
}

// NewRegimeClassifier creates a classifier. A nil llm disables it.
func NewRegimeClassifier(llm LLMClient, ttl, timeout time.Duration, logger zerolog.Logger) *RegimeClassifier {
	return &RegimeClassifier{
		llm:     llm,
		cache:   cache.New[string, models.RegimeClassification](ttl),
		timeout: timeout,
		log:     logging.WithComponent(logger, "regime"),
	}
}

type regimeReply struct {
	Regime     string  `json:"regime"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ClassifyRegime returns the cached or freshly classified regime.
func (r *RegimeClassifier) ClassifyRegime(ctx context.Context, summary analysis.MarketSummary) (*models.RegimeClassification, error) {
	if r == nil || r.llm == nil {
		return nil, apperrors.ErrLLMDisabled
	}
	if v, ok := r.cache.Get(regimeKey); ok {
		return &v, nil
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var reply regimeReply
	if err := CompleteJSON(ctx, r.llm, TierBalanced, regimeSystem, buildRegimePrompt(summary), &reply); err != nil {
		return nil, err
	}

	regime := models.Regime(reply.Regime)
	if !regime.Valid() {
		return nil, fmt.Errorf("regime %q: %w", reply.Regime, apperrors.ErrInvalidLLMResponse)
	}

	rc := models.RegimeClassification{
		Regime:     regime,
		Confidence: math.Max(0, math.Min(1, reply.Confidence)),
		Reasoning:  reply.Reasoning,
	}
	r.cache.Set(regimeKey, rc)
	r.log.Info().Str("regime", string(rc.Regime)).Float64("confidence", rc.Confidence).Msg("Regime classified")
	return &rc, nil
}
