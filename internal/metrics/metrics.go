package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tidyfin/internal/identification"
	"tidyfin/internal/organizer"
)

const namespace = "tidyfin"

// Metrics records catalog traffic and organize results. It satisfies
// identification.LookupObserver and organizer.Observer.
type Metrics struct {
	CatalogRequests        *prometheus.CounterVec
	CatalogRequestDuration *prometheus.HistogramVec
	PlannedFiles           *prometheus.CounterVec
	Outcomes               *prometheus.CounterVec
	LastRunTimestamp       prometheus.Gauge
	LastRunDuration        prometheus.Gauge
	LastRunErrors          prometheus.Gauge
}

var (
	_ identification.LookupObserver = (*Metrics)(nil)
	_ organizer.Observer            = (*Metrics)(nil)
)

// New creates and registers the metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "requests_total",
			Help:      "Catalog requests sent, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		CatalogRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "request_duration_seconds",
			Help:      "Duration of catalog requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		PlannedFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan",
			Name:      "files_total",
			Help:      "Files planned, by media type and action.",
		}, []string{"media_type", "action"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "organize",
			Name:      "outcomes_total",
			Help:      "Executed file outcomes, by media type and status.",
		}, []string{"media_type", "status"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "organize",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last executed run finished.",
		}),
		LastRunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "organize",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last executed run.",
		}),
		LastRunErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "organize",
			Name:      "last_run_errors",
			Help:      "Files that failed in the last executed run.",
		}),
	}

	reg.MustRegister(
		m.CatalogRequests,
		m.CatalogRequestDuration,
		m.PlannedFiles,
		m.Outcomes,
		m.LastRunTimestamp,
		m.LastRunDuration,
		m.LastRunErrors,
	)
	return m
}

// ObserveLookup counts one catalog request.
func (m *Metrics) ObserveLookup(operation, outcome string, elapsed time.Duration) {
	operation = labelValue(operation)
	m.CatalogRequests.WithLabelValues(operation, labelValue(outcome)).Inc()
	m.CatalogRequestDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObservePlan counts every planned entry.
func (m *Metrics) ObservePlan(plan *organizer.Plan) {
	if plan == nil {
		return
	}
	for _, entry := range plan.Entries {
		m.PlannedFiles.WithLabelValues(entry.MediaType.String(), string(entry.Action)).Inc()
	}
}

// ObserveReport records an executed run. Dry runs are ignored.
func (m *Metrics) ObserveReport(report *organizer.Report) {
	if report == nil || report.DryRun {
		return
	}
	for _, outcome := range report.Outcomes {
		m.Outcomes.WithLabelValues(outcome.Entry.MediaType.String(), string(outcome.Status)).Inc()
	}
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	m.LastRunTimestamp.Set(float64(finished.Unix()))
	if !report.StartedAt.IsZero() && finished.After(report.StartedAt) {
		m.LastRunDuration.Set(finished.Sub(report.StartedAt).Seconds())
	} else {
		m.LastRunDuration.Set(0)
	}
	m.LastRunErrors.Set(float64(report.Summary.Errors))
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func labelValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
