// Package observability exposes Prometheus metrics for ingestion and
// aggregation.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datahub",
		Subsystem: "ingest",
		Name:      "records_total",
		Help:      "Records processed per connector, partitioned by outcome (added, skipped, malformed).",
	}, []string{"connector", "outcome"})

	lastSyncGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "datahub",
		Subsystem: "sync",
		Name:      "last_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful sync per connector.",
	}, []string{"connector"})

	aggregationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "datahub",
		Subsystem: "dedupe",
		Name:      "aggregation_duration_seconds",
		Help:      "Time spent resolving priority buckets per metric type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"metric_type"})
)

func init() {
	prometheus.MustRegister(recordsIngested, lastSyncGauge, aggregationDuration)
}

// RecordIngested bumps the per-connector tally for one of the three ingestion
// outcomes.
func RecordIngested(connector, outcome string, n int) {
	if n <= 0 {
		return
	}
	recordsIngested.WithLabelValues(connector, outcome).Add(float64(n))
}

// RecordSyncCompleted moves the last-sync watermark for a connector.
func RecordSyncCompleted(connector string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastSyncGauge.WithLabelValues(connector).Set(float64(ts.Unix()))
}

// ObserveAggregation records elapsed time for one aggregation call; intended
// as `defer ObserveAggregation(metric, time.Now())`.
func ObserveAggregation(metricType string, start time.Time) {
	aggregationDuration.WithLabelValues(metricType).Observe(time.Since(start).Seconds())
}
