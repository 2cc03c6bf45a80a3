// Package metrics exposes Prometheus instruments for the scalping engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_ticks_total", Help: "Engine ticks by result"},
		[]string{"result"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side", "result"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_exits_total", Help: "Closed scalps by exit reason"},
		[]string{"reason"},
	)
	EnrichmentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_enrichment_failures_total", Help: "Enrichment fetch failures by source"},
		[]string{"source"},
	)
	StreamQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scalper_stream_quotes_total", Help: "Quotes received over the websocket stream"},
		[]string{"symbol"},
	)
	OpenScalps = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "scalper_open_scalps", Help: "Currently open scalps"},
	)
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "scalper_equity", Help: "Account equity at the last tick"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scalper_tick_duration_seconds",
			Help:    "Wall time of one engine tick",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, ExitsTotal, EnrichmentFailures, StreamQuotes, OpenScalps, Equity, TickDuration)
}

// ObserveTick records a tick's duration and result ("ok" or "error").
func ObserveTick(start time.Time, err error) {
	TickDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		TicksTotal.WithLabelValues("error").Inc()
		return
	}
	TicksTotal.WithLabelValues("ok").Inc()
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
