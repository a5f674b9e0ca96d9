package devserver

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects dev server instrumentation on a private registry.
type Metrics struct {
	registry      *prom.Registry
	buildOutcome  *prom.CounterVec
	buildDuration prom.Histogram
	reloadClients prom.Gauge
	broadcasts    prom.Counter
}

// NewMetrics constructs and registers all dev server metrics.
func NewMetrics() *Metrics {
	m := &Metrics{registry: prom.NewRegistry()}
	m.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "pageforge",
		Name:      "builds_total",
		Help:      "Build passes by outcome",
	}, []string{"result"})
	m.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "pageforge",
		Name:      "build_duration_seconds",
		Help:      "Total build pass duration",
		Buckets:   prom.DefBuckets,
	})
	m.reloadClients = prom.NewGauge(prom.GaugeOpts{
		Namespace: "pageforge",
		Name:      "reload_clients",
		Help:      "Currently connected live-reload clients",
	})
	m.broadcasts = prom.NewCounter(prom.CounterOpts{
		Namespace: "pageforge",
		Name:      "reload_broadcasts_total",
		Help:      "Reload events broadcast to clients",
	})
	m.registry.MustRegister(m.buildOutcome, m.buildDuration, m.reloadClients, m.broadcasts)
	return m
}

func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.buildOutcome.WithLabelValues(result).Inc()
	if err == nil {
		m.buildDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetReloadClients(n int) {
	if m != nil {
		m.reloadClients.Set(float64(n))
	}
}

func (m *Metrics) IncBroadcasts() {
	if m != nil {
		m.broadcasts.Inc()
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
