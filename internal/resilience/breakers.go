package resilience

import (
	"sort"
	"sync"
	"time"
)

// Breakers hands out one Breaker per provider name, all sharing a config.
type Breakers struct {
	cfg BreakerConfig
	now func() time.Time

	mu     sync.Mutex
	byName map[string]*Breaker
}

// NewBreakers creates an empty set. A nil now uses the wall clock.
func NewBreakers(cfg BreakerConfig, now func() time.Time) *Breakers {
	return &Breakers{cfg: cfg, now: now, byName: make(map[string]*Breaker)}
}

// For returns the breaker for provider, creating it on first use.
func (s *Breakers) For(provider string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byName[provider]
	if !ok {
		b = NewBreaker(provider, s.cfg, s.now)
		s.byName[provider] = b
	}
	return b
}

// Snapshot returns stats for every provider seen so far, sorted by name.
func (s *Breakers) Snapshot() []Stats {
	s.mu.Lock()
	list := make([]*Breaker, 0, len(s.byName))
	for _, b := range s.byName {
		list = append(list, b)
	}
	s.mu.Unlock()

	stats := make([]Stats, 0, len(list))
	for _, b := range list {
		stats = append(stats, b.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Provider < stats[j].Provider })
	return stats
}
