package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv := Serve(":0")
	defer srv.Close()

	ObserveTick(time.Now(), nil)
	ObserveTick(time.Now(), errors.New("boom"))
	ExitsTotal.WithLabelValues("take-profit").Inc()
	EnrichmentFailures.WithLabelValues("fear-greed").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{
		"scalper_ticks_total":               false,
		"scalper_exits_total":               false,
		"scalper_enrichment_failures_total": false,
		"scalper_tick_duration_seconds":     false,
	}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s metric not found", name)
		}
	}
}
