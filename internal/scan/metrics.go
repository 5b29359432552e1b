package scan

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombor/cleanscan/internal/waste"
)

// Metrics records scan activity. A nil *Metrics records nothing.
type Metrics struct {
	scans     *prometheus.CounterVec
	items     *prometheus.CounterVec
	locations *prometheus.CounterVec
	stale     prometheus.Counter
	latency   *prometheus.HistogramVec
}

// NewMetrics creates the scan metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cleanscan_scans_total",
				Help: "Total number of scans by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cleanscan_items_total",
				Help: "Total number of classified items by category",
			},
			[]string{"category"},
		),
		locations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cleanscan_locations_total",
				Help: "Location resolutions by source",
			},
			[]string{"source"},
		),
		stale: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cleanscan_stale_responses_total",
				Help: "Scan outcomes dropped because a newer scan superseded them",
			},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cleanscan_classify_duration_seconds",
				Help:    "Classification call latency",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
			},
			[]string{"provider"},
		),
	}
	reg.MustRegister(m.scans, m.items, m.locations, m.stale, m.latency)
	return m
}

func (m *Metrics) observeScan(provider string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(waste.KindOf(err))
	}
	m.scans.WithLabelValues(provider, outcome).Inc()
	m.latency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) observeItems(items []waste.Item) {
	if m == nil {
		return
	}
	for _, item := range items {
		m.items.WithLabelValues(string(item.Category)).Inc()
	}
}

func (m *Metrics) observeLocation(source string) {
	if m == nil {
		return
	}
	m.locations.WithLabelValues(source).Inc()
}

// ObserveStale counts an outcome dropped by a Session
func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
