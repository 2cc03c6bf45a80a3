package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crypto-scalper/internal/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock { return &fakeClock{t: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)} }

var errBoom = errors.New("boom")

func fail(b *Breaker) error {
	_, err := Guard(b, context.Background(), func(context.Context) (int, error) { return 0, errBoom })
	return err
}

func pass(b *Breaker) error {
	_, err := Guard(b, context.Background(), func(context.Context) (int, error) { return 1, nil })
	return err
}

func TestBreaker_BenchesAfterStreak(t *testing.T) {
	clock := newClock()
	b := NewBreaker("binance", BreakerConfig{TripAfter: 3, Cooldown: time.Minute}, clock.Now)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, fail(b), errBoom)
	}
	assert.Equal(t, StateTripped, b.State())

	calls := 0
	_, err := Guard(b, context.Background(), func(context.Context) (int, error) { calls++; return 0, nil })
	assert.ErrorIs(t, err, ErrProviderSkipped)
	assert.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
	assert.Zero(t, calls)

	clock.Advance(time.Minute)
	require.NoError(t, pass(b))
	assert.Equal(t, StateHealthy, b.State())
	assert.Nil(t, b.Stats().SkipUntil)
}

func TestBreaker_FailedProbeRebenches(t *testing.T) {
	clock := newClock()
	b := NewBreaker("bybit", BreakerConfig{TripAfter: 2, Cooldown: time.Minute}, clock.Now)

	_ = fail(b)
	_ = fail(b)
	clock.Advance(2 * time.Minute)
	_ = fail(b)
	assert.Equal(t, StateTripped, b.State())
	assert.ErrorIs(t, pass(b), ErrProviderSkipped)

	stats := b.Stats()
	assert.Equal(t, int64(3), stats.Calls)
	assert.Equal(t, int64(3), stats.Failures)
	assert.Equal(t, int64(1), stats.Skipped)
	assert.Equal(t, "boom", stats.LastError)
	require.NotNil(t, stats.SkipUntil)
	assert.Equal(t, clock.Now().Add(time.Minute), *stats.SkipUntil)
}

func TestBreaker_SuccessClearsStreak(t *testing.T) {
	b := NewBreaker("hyperliquid", BreakerConfig{TripAfter: 2, Cooldown: time.Minute}, nil)

	_ = fail(b)
	_ = pass(b)
	_ = fail(b)
	assert.Equal(t, StateHealthy, b.State())
	assert.Equal(t, 1, b.Stats().Streak)
}

func TestBreaker_DoneCallerIsNotAProviderFailure(t *testing.T) {
	b := NewBreaker("bybit", BreakerConfig{TripAfter: 1, Cooldown: time.Minute}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Guard(b, ctx, func(context.Context) (int, error) { called = true; return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, StateHealthy, b.State())
	assert.Zero(t, b.Stats().Calls)
}

func TestBreaker_CallerGivingUpMidCallIsNotCounted(t *testing.T) {
	b := NewBreaker("bybit", BreakerConfig{TripAfter: 1, Cooldown: time.Minute}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := Guard(b, ctx, func(ctx context.Context) (int, error) {
		cancel()
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHealthy, b.State())
	assert.Zero(t, b.Stats().Failures)
}

func TestBreaker_AttemptTimeoutCountsAsFailure(t *testing.T) {
	b := NewBreaker("binance", BreakerConfig{TripAfter: 1, Cooldown: time.Minute}, nil)

	_, err := Guard(b, context.Background(), func(ctx context.Context) (int, error) {
		actx, cancel := context.WithTimeout(ctx, time.Millisecond)
		defer cancel()
		<-actx.Done()
		return 0, actx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateTripped, b.State())
}

func TestBreakers_OnePerProvider(t *testing.T) {
	set := NewBreakers(DefaultBreakerConfig(), nil)
	assert.Same(t, set.For("binance"), set.For("binance"))
	set.For("bybit")

	for i := 0; i < 3; i++ {
		_ = fail(set.For("binance"))
	}

	stats := set.Snapshot()
	require.Len(t, stats, 2)
	assert.Equal(t, "binance", stats[0].Provider)
	assert.Equal(t, StateTripped, stats[0].State)
	assert.Equal(t, StateHealthy, stats[1].State)
}

// Feature: crypto-scalper, Property 11: A benched provider is never called before its cooldown
func TestProperty_BenchedProviderSkippedUntilCooldown(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("calls within cooldown are skipped", prop.ForAll(
		func(tripAfter int, elapsedSec int) bool {
			clock := newClock()
			b := NewBreaker("p", BreakerConfig{TripAfter: tripAfter, Cooldown: 5 * time.Minute}, clock.Now)
			for i := 0; i < tripAfter; i++ {
				_ = fail(b)
			}
			clock.Advance(time.Duration(elapsedSec) * time.Second)

			called := false
			_, err := Guard(b, context.Background(), func(context.Context) (int, error) { called = true; return 0, nil })
			if elapsedSec < 300 {
				return errors.Is(err, ErrProviderSkipped) && !called
			}
			return err == nil && called
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 600),
	))

	properties.TestingRun(t)
}
