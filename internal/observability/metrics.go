// Package observability exports run metrics in Prometheus formats. Merge
// runs are short lived, so metrics are written to a node_exporter textfile or
// pushed to a Pushgateway instead of being served.
package observability

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
	"github.com/Stennix/tilemerge/internal/observability/metrics"
)

// JobName is the Pushgateway job label.
const JobName = "tilemerge"

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	client   push.HTTPDoer
	Merge    *metrics.MergeMetrics
}

// Option configures Metrics.
type Option func(*Metrics)

// WithHTTPClient sets the client used by Push instead of http.DefaultClient.
func WithHTTPClient(c push.HTTPDoer) Option {
	return func(m *Metrics) { m.client = c }
}

// NewMetrics creates a private registry with every collector registered.
func NewMetrics(opts ...Option) (*Metrics, error) {
	registry := prometheus.NewRegistry()

	mergeMetrics, err := metrics.NewMergeMetrics(registry)
	if err != nil {
		return nil, errors.New(err).
			Component("metrics").
			Category(errors.CategorySystem).
			Context("collector", "merge").
			Build()
	}

	m := &Metrics{registry: registry, Merge: mergeMetrics}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Registry returns the registry, for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically so a collector never reads a partial file.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FileError(err, path)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("metrics").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	GetLogger().Debug("metrics textfile written", logger.String("path", path))
	return nil
}

// Push sends every metric to the Pushgateway at url, grouped by run id.
func (m *Metrics) Push(url, runID string) error {
	pusher := push.New(url, JobName).
		Gatherer(m.registry).
		Grouping("run_id", runID)
	if m.client != nil {
		pusher = pusher.Client(m.client)
	}
	if err := pusher.Push(); err != nil {
		return errors.New(err).
			Component("metrics").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	GetLogger().Debug("metrics pushed", logger.String("url", url), logger.String("run_id", runID))
	return nil
}
