// Package metrics defines and registers all custom Prometheus metrics for
// the dispatch service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics self-register with the default Prometheus registry via promauto;
// the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dispatch"

// ── Synchronizer metrics ──────────────────────────────────────────────────────

// RefreshTotal counts completed refresh cycles.
// Labels:
//   - trigger: what started the cycle ("initial", "poll", "realtime", "manual")
//   - outcome: "ok" or "error"
var RefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Total number of technician refresh cycles, by trigger and outcome.",
	},
	[]string{"trigger", "outcome"},
)

// RefreshDuration measures how long one full refresh cycle takes, including
// the per-technician location/job fan-out.
var RefreshDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Duration of a full technician refresh cycle.",
		Buckets:   prometheus.DefBuckets,
	},
)

// TechniciansTracked reports how many technicians the last completed refresh
// cycle produced snapshots for.
var TechniciansTracked = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "technicians_tracked",
		Help:      "Number of technicians in the current snapshot collection.",
	},
)

// ── Routing metrics ───────────────────────────────────────────────────────────

// RoutesOptimizedTotal counts route optimization runs.
// Label:
//   - source: "single" (one technician) or "fleet"
var RoutesOptimizedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "routes_optimized_total",
		Help:      "Total number of route optimizations performed, by source.",
	},
	[]string{"source"},
)

// AssignmentSuggestionsTotal counts assignment advisor runs.
// Label:
//   - outcome: "suggested" or "none" (no qualifying candidate)
var AssignmentSuggestionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignment_suggestions_total",
		Help:      "Total number of assignment suggestions computed, by outcome.",
	},
	[]string{"outcome"},
)

// ── Ingest metrics ────────────────────────────────────────────────────────────

// SamplesIngestedTotal counts location samples accepted for processing.
var SamplesIngestedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "samples_ingested_total",
		Help:      "Total number of location samples enqueued for ingestion.",
	},
)

// IngestQueueDepth tracks the current number of samples waiting in each
// ingest worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var IngestQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ingest_queue_depth",
		Help:      "Current number of location samples pending in each ingest worker channel.",
	},
	[]string{"worker_id"},
)
