package engine

import (
	"time"

	"crypto-scalper/internal/models"
	"crypto-scalper/internal/resilience"
	"crypto-scalper/internal/store"
)

// Status is a read-only view of the engine state.
type Status struct {
	Mode           string                    `json:"mode"`
	StartedAt      time.Time                 `json:"started_at"`
	InitialCapital float64                   `json:"initial_capital"`
	Equity         float64                   `json:"equity"`
	Paused         bool                      `json:"paused"`
	PausedUntil    *time.Time                `json:"paused_until,omitempty"`
	OpenScalps     []models.ScalpPosition    `json:"open_scalps"`
	Signals        []models.SignalSnapshot   `json:"signals"`
	Enrichment     *models.EnrichmentContext `json:"enrichment,omitempty"`
	DailyCount     int                       `json:"daily_count"`
	Metrics        models.ScalpMetrics       `json:"metrics"`
	LastTickAt     *time.Time                `json:"last_tick_at,omitempty"`
	LastError      string                    `json:"last_error,omitempty"`
	Breakers       []resilience.Stats        `json:"breakers,omitempty"`
}

// EntriesBlocked reports whether the manual or daily-loss pause is in effect
// at now.
func (s Status) EntriesBlocked(now time.Time) bool {
	return s.Paused || (s.PausedUntil != nil && now.Before(*s.PausedUntil))
}

// BuildStatus derives a Status from a state. Slices are copied so the result
// stays valid while the state keeps changing.
func BuildStatus(mode string, st *store.State, breakers []resilience.Stats) Status {
	s := Status{
		Mode:           mode,
		StartedAt:      st.StartedAt,
		InitialCapital: st.InitialCapital,
		Equity:         st.LastEquity,
		Paused:         st.Paused,
		OpenScalps:     append([]models.ScalpPosition(nil), st.OpenScalps...),
		Signals:        append([]models.SignalSnapshot(nil), st.Signals...),
		Enrichment:     st.Enrichment,
		DailyCount:     st.DailyScalpCount(),
		Metrics:        st.Metrics(),
		LastError:      st.LastError,
		Breakers:       breakers,
	}
	if st.PausedUntil != nil {
		t := *st.PausedUntil
		s.PausedUntil = &t
	}
	if st.LastTickAt != nil {
		t := *st.LastTickAt
		s.LastTickAt = &t
	}
	return s
}

// Status returns the view captured at the end of the last tick.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) publish() {
	var breakers []resilience.Stats
	if e.deps.Breakers != nil {
		breakers = e.deps.Breakers()
	}
	s := BuildStatus(e.cfg.Bot.Mode, e.state, breakers)
	e.mu.Lock()
	e.status = s
	e.mu.Unlock()
}
