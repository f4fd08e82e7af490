// Package metrics provides Prometheus collectors for merge runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Stennix/tilemerge/internal/merge"
)

// MergeMetrics contains Prometheus metrics describing merge runs
type MergeMetrics struct {
	registry *prometheus.Registry

	tilesLoaded      prometheus.Gauge
	detectionsLoaded prometheus.Gauge
	detectionsKept   prometheus.Gauge
	mergesTotal      *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	lastRunTimestamp prometheus.Gauge

	// collectors is a slice of all collectors for easier iteration
	collectors []prometheus.Collector
}

// NewMergeMetrics creates and registers merge metrics
func NewMergeMetrics(registry *prometheus.Registry) (*MergeMetrics, error) {
	m := &MergeMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MergeMetrics) initMetrics() {
	m.tilesLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "tiles_loaded",
		Help:      "Number of tile documents read by the last run",
	})

	m.detectionsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "detections_loaded",
		Help:      "Number of detections read by the last run",
	})

	m.detectionsKept = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "detections_kept",
		Help:      "Number of detections surviving the last run",
	})

	m.mergesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "merges_total",
			Help:      "Total number of duplicate detections removed",
		},
		[]string{"orientation", "label"},
	)

	m.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "phase_duration_seconds",
			Help:      "Time spent in each phase of a run",
			Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
		},
		[]string{"phase"},
	)

	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	m.collectors = []prometheus.Collector{
		m.tilesLoaded,
		m.detectionsLoaded,
		m.detectionsKept,
		m.mergesTotal,
		m.phaseDuration,
		m.lastRunTimestamp,
	}
}

// Describe implements the Collector interface
func (m *MergeMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *MergeMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordLoad records how many tiles and detections were read.
func (m *MergeMetrics) RecordLoad(tiles, detections int) {
	m.tilesLoaded.Set(float64(tiles))
	m.detectionsLoaded.Set(float64(detections))
}

// RecordResult records the outcome of a merge pass.
func (m *MergeMetrics) RecordResult(res *merge.Result) {
	m.detectionsKept.Set(float64(res.Summary.DetectionsKept))
	for _, ev := range res.Events {
		m.mergesTotal.WithLabelValues(string(ev.Orientation()), ev.Label).Inc()
	}
}

// ObservePhase records the duration of one phase.
func (m *MergeMetrics) ObservePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// MarkFinished sets the last run timestamp.
func (m *MergeMetrics) MarkFinished(t time.Time) {
	m.lastRunTimestamp.Set(float64(t.Unix()))
}
