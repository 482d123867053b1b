package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CyclesTotal counts loop iterations by outcome: ok, fetch_failed, fault.
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttlebridge_cycles_total",
			Help: "Total number of reporting cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// PhaseDuration records how long each cycle phase takes.
	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shuttlebridge_phase_duration_seconds",
			Help:    "Duration of reporting cycle phases.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"}, // refresh_stops, fetch_locations, dispatch
	)

	// ReportsTotal counts per-vehicle dispatch results.
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttlebridge_reports_total",
			Help: "Total number of telemetry reports by result.",
		},
		[]string{"result"}, // sent, rejected, failed, skipped
	)

	// PushLatency records the regulator round trip including retries.
	PushLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shuttlebridge_push_latency_seconds",
			Help:    "Latency of telemetry pushes to the regulator.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheEntries exposes the size of the in-memory caches.
	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shuttlebridge_cache_entries",
			Help: "Number of entries held by each cache.",
		},
		[]string{"cache"}, // roster, stops, snapshots
	)

	// AlertsTotal counts alerts by result: sent, failed, suppressed or dropped.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shuttlebridge_alerts_total",
			Help: "Total number of fault alerts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(PhaseDuration)
	prometheus.MustRegister(ReportsTotal)
	prometheus.MustRegister(PushLatency)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(AlertsTotal)
}
