// Package metrics records per-run reconciliation metrics. A run is a batch
// job that exits before any scrape, so metrics live on a private registry and
// are pushed to a Prometheus Pushgateway at the end of the run.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ekaya-inc/plantsync/pkg/models"
)

// Recorder holds the run metrics.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	recordsTotal  *prometheus.CounterVec
	reasonsTotal  *prometheus.CounterVec
	rowsQueued    *prometheus.GaugeVec
	runDuration   prometheus.Histogram
	lastSuccessTS prometheus.Gauge
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantsync_runs_total",
				Help: "Reconciliation runs by final status",
			},
			[]string{"status"}, // success, no_data, failure
		),
		recordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantsync_records_total",
				Help: "Incoming telemetry records by validation outcome",
			},
			[]string{"outcome"}, // accepted, rejected
		),
		reasonsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantsync_record_reasons_total",
				Help: "Dropped record-level decisions by reason",
			},
			[]string{"reason"},
		),
		rowsQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "plantsync_rows_queued",
				Help: "Rows queued for writing in the last run, by table",
			},
			[]string{"table"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "plantsync_run_duration_seconds",
				Help:    "Wall-clock duration of a reconciliation run",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		lastSuccessTS: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "plantsync_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(report *models.RunReport) {
	r.runsTotal.WithLabelValues(string(report.Status)).Inc()
	r.recordsTotal.WithLabelValues("accepted").Add(float64(report.Accepted))
	r.recordsTotal.WithLabelValues("rejected").Add(float64(report.Rejected))
	for reason, n := range report.Reasons {
		r.reasonsTotal.WithLabelValues(string(reason)).Add(float64(n))
	}

	q := report.Queued
	r.rowsQueued.WithLabelValues("regions").Set(float64(q.Regions))
	r.rowsQueued.WithLabelValues("origins").Set(float64(q.Locations))
	r.rowsQueued.WithLabelValues("plant_species").Set(float64(q.Species))
	r.rowsQueued.WithLabelValues("botanists").Set(float64(q.Botanists))
	r.rowsQueued.WithLabelValues("plants").Set(float64(q.Plants))
	r.rowsQueued.WithLabelValues("recordings").Set(float64(q.Recordings))
	r.rowsQueued.WithLabelValues("plant_updates").Set(float64(q.PlantUpdates))

	r.runDuration.Observe(report.Duration.Seconds())
	if report.Status != models.RunStatusFailure {
		r.lastSuccessTS.Set(float64(report.Started.Add(report.Duration).Unix()))
	}
}

// Push sends the current metrics to a Pushgateway, replacing the job's
// previous group.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
