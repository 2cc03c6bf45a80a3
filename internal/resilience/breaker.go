// Package resilience keeps the funding waterfall away from providers that
// keep failing.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "crypto-scalper/internal/errors"
)

// BreakerState is the health of one upstream provider.
type BreakerState string

const (
	StateHealthy BreakerState = "healthy"
	StateTripped BreakerState = "tripped"
	// StateProbing lets one trial call through after the cooldown.
	StateProbing BreakerState = "probing"
)

// BreakerConfig controls when a provider is benched and for how long.
type BreakerConfig struct {
	TripAfter int
	Cooldown  time.Duration
}

// DefaultBreakerConfig benches a provider for five minutes after three
// consecutive failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{TripAfter: 3, Cooldown: 5 * time.Minute}
}

// ErrProviderSkipped is returned instead of calling a benched provider.
var ErrProviderSkipped = fmt.Errorf("%w: cooling down after repeated failures", apperrors.ErrProviderUnavailable)

// Breaker tracks the failure streak of a single provider.
type Breaker struct {
	provider string
	cfg      BreakerConfig
	now      func() time.Time

	mu        sync.Mutex
	state     BreakerState
	streak    int
	skipUntil time.Time
	lastErr   string

	calls    int64
	failures int64
	skipped  int64
}

// NewBreaker returns a healthy breaker for provider. A nil now uses the wall clock.
func NewBreaker(provider string, cfg BreakerConfig, now func() time.Time) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{provider: provider, cfg: cfg, now: now, state: StateHealthy}
}

// Guard calls fn unless the provider is benched. Only failures that happen
// while ctx is still live count against the provider: a caller that gave up
// is not the provider's fault. fn should bound its own attempt.
func Guard[T any](b *Breaker, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if !b.admit() {
		return zero, ErrProviderSkipped
	}

	v, err := fn(ctx)
	if cerr := ctx.Err(); cerr != nil {
		b.release()
		if err == nil {
			err = cerr
		}
		return zero, err
	}
	b.record(err)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateTripped {
		if b.now().Before(b.skipUntil) {
			b.skipped++
			return false
		}
		b.state = StateProbing
	}
	b.calls++
	return true
}

// release undoes admit for a call whose outcome says nothing about the
// provider. A trial call goes back to tripped with its old deadline, so the next
// call tries again.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls--
	if b.state == StateProbing {
		b.state = StateTripped
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.state = StateHealthy
		b.streak = 0
		b.lastErr = ""
		return
	}

	b.failures++
	b.streak++
	b.lastErr = err.Error()
	// A failed trial call re-benches at once.
	if b.state == StateProbing || b.streak >= b.cfg.TripAfter {
		b.state = StateTripped
		b.skipUntil = b.now().Add(b.cfg.Cooldown)
	}
}

// State returns the stored state. A tripped breaker whose cooldown has passed
// stays tripped until the next call tries it.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is the reporting view of a breaker.
type Stats struct {
	Provider  string       `json:"provider"`
	State     BreakerState `json:"state"`
	Calls     int64        `json:"calls"`
	Failures  int64        `json:"failures"`
	Skipped   int64        `json:"skipped"`
	Streak    int          `json:"streak"`
	SkipUntil *time.Time   `json:"skip_until,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// Stats snapshots the counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Stats{
		Provider:  b.provider,
		State:     b.state,
		Calls:     b.calls,
		Failures:  b.failures,
		Skipped:   b.skipped,
		Streak:    b.streak,
		LastError: b.lastErr,
	}
	if b.state == StateTripped {
		t := b.skipUntil
		s.SkipUntil = &t
	}
	return s
}
