package agent

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/source"
)

// Metrics holds tokmon's Prometheus collectors on a private registry. The
// agent is not a server, so the registry is exported as a node_exporter
// textfile after each run.
type Metrics struct {
	registry *prometheus.Registry

	costUSD      *prometheus.GaugeVec
	tokens       *prometheus.GaugeVec
	sourceUp     *prometheus.GaugeVec
	unpriced     prometheus.Gauge
	lastCapture  prometheus.Gauge
	cyclesTotal  *prometheus.CounterVec
	markerUnixTs *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		costUSD: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokmon_estimated_cost_usd",
				Help: "Estimated cost in USD of the latest snapshot, by source",
			},
			[]string{"source"},
		),
		tokens: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokmon_tokens",
				Help: "Token counts of the latest snapshot, by source and category",
			},
			[]string{"source", "category"},
		),
		sourceUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokmon_source_up",
				Help: "Whether the source answered during the last collection (1) or not (0)",
			},
			[]string{"source"},
		),
		unpriced: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tokmon_unpriced_models",
			Help: "Models in the latest snapshot with no pricing entry",
		}),
		lastCapture: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tokmon_last_capture_timestamp_seconds",
			Help: "Unix time of the latest snapshot capture",
		}),
		cyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokmon_cycles_total",
				Help: "Scheduled cycles run, by job and status",
			},
			[]string{"job", "status"},
		),
		markerUnixTs: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokmon_schedule_last_run_timestamp_seconds",
				Help: "Unix time (midnight UTC) of each job's last successful date",
			},
			[]string{"job"},
		),
	}
	m.registry.MustRegister(
		m.costUSD, m.tokens, m.sourceUp, m.unpriced,
		m.lastCapture, m.cyclesTotal, m.markerUnixTs,
	)
	return m
}

// ObserveCollection records which sources answered.
func (m *Metrics) ObserveCollection(statuses []source.Status) {
	for _, st := range statuses {
		up := 0.0
		if st.OK {
			up = 1
		}
		m.sourceUp.WithLabelValues(string(st.Source)).Set(up)
	}
}

// ObserveSnapshot records the totals of a captured snapshot.
func (m *Metrics) ObserveSnapshot(snap models.Snapshot) {
	for id, rec := range snap.Usage.Sources {
		src := string(id)
		m.tokens.WithLabelValues(src, "input").Set(float64(rec.Tokens.Input))
		m.tokens.WithLabelValues(src, "output").Set(float64(rec.Tokens.Output))
		m.tokens.WithLabelValues(src, "cache_read").Set(float64(rec.Tokens.CacheRead))
		m.tokens.WithLabelValues(src, "cache_write").Set(float64(rec.Tokens.CacheWrite))
	}
	for id, c := range snap.Cost.BySource {
		m.costUSD.WithLabelValues(string(id)).Set(c)
	}
	m.unpriced.Set(float64(len(snap.Cost.Unpriced)))
	m.lastCapture.Set(float64(snap.CapturedAt.Unix()))
}

// ObserveCycle counts one cycle outcome.
func (m *Metrics) ObserveCycle(job string, status models.CycleStatus) {
	m.cyclesTotal.WithLabelValues(job, string(status)).Inc()
}

// ObserveMarker records a job's schedule marker.
func (m *Metrics) ObserveMarker(job string, date models.Date) {
	m.markerUnixTs.WithLabelValues(job).Set(float64(date.In(time.UTC).Unix()))
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
