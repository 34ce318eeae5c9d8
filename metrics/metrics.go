// Package metrics exposes load measurements as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records step and run measurements. It satisfies the
// orchestrator's Observer.
type Collector struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRunSuccess  prometheus.Gauge
	lastRunTime     prometheus.Gauge
	stepDuration    *prometheus.HistogramVec
	stepErrors      *prometheus.CounterVec
	tableRows       *prometheus.GaugeVec
	unresolvedRefs  *prometheus.GaugeVec
	qualityFailures *prometheus.GaugeVec
}

// NewCollector registers the warehouse metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warehouse_load_runs_total",
			Help: "Total number of warehouse loads by final status",
		}, []string{"status"}),

		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "warehouse_load_duration_seconds",
			Help:    "Duration of full warehouse loads",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		lastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_last_load_success",
			Help: "1 if the most recent load succeeded, 0 otherwise",
		}),

		lastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Name: "warehouse_last_load_timestamp_seconds",
			Help: "Unix time the most recent load finished",
		}),

		stepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "warehouse_step_duration_seconds",
			Help:    "Duration of each truncate-and-load step",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "table"}),

		stepErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "warehouse_step_errors_total",
			Help: "Total number of failed load steps",
		}, []string{"stage", "table"}),

		tableRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warehouse_table_rows",
			Help: "Rows written to each table by the most recent load",
		}, []string{"stage", "table"}),

		unresolvedRefs: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warehouse_unresolved_references",
			Help: "Sales lines whose reference did not resolve in the most recent load",
		}, []string{"reference"}),

		qualityFailures: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "warehouse_quality_check_failed",
			Help: "1 if the named quality check failed in the most recent load",
		}, []string{"check"}),
	}
}

func (c *Collector) ObserveStep(stage, table string, rows int64, d time.Duration, err error) {
	c.stepDuration.WithLabelValues(stage, table).Observe(d.Seconds())
	if err != nil {
		c.stepErrors.WithLabelValues(stage, table).Inc()
		return
	}
	c.tableRows.WithLabelValues(stage, table).Set(float64(rows))
}

func (c *Collector) ObserveRun(status string, d time.Duration) {
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(d.Seconds())
	c.lastRunTime.SetToCurrentTime()
	if status == "succeeded" {
		c.lastRunSuccess.Set(1)
	} else {
		c.lastRunSuccess.Set(0)
	}
}

func (c *Collector) ObserveUnresolved(reference string, n int) {
	c.unresolvedRefs.WithLabelValues(reference).Set(float64(n))
}

func (c *Collector) ObserveCheck(name string, passed bool) {
	v := 0.0
	if !passed {
		v = 1
	}
	c.qualityFailures.WithLabelValues(name).Set(v)
}
