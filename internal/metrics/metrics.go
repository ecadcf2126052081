// Package metrics collects per-invocation counters for encode and decode runs
// and writes them to a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeEmpty   = "empty"
)

// Metrics holds the collectors for a single process. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	FramesProbed      prometheus.Counter
	RevealMisses      prometheus.Counter
	FragmentsEmbedded prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidsteg_operations_total",
				Help: "Encode and decode runs by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidsteg_operation_duration_seconds",
				Help:    "Wall time of encode and decode runs",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			},
			[]string{"operation"},
		),
		FramesProbed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidsteg_frames_probed_total",
			Help: "Frames inspected for hidden fragments during decode",
		}),
		RevealMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidsteg_reveal_misses_total",
			Help: "Probed frames that carried no fragment",
		}),
		FragmentsEmbedded: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidsteg_fragments_embedded_total",
			Help: "Ciphertext fragments hidden in frames during encode",
		}),
	}
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation records the outcome and duration of a run.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// FrameProbed records one decode probe.
func (m *Metrics) FrameProbed(found bool) {
	if m == nil {
		return
	}
	m.FramesProbed.Inc()
	if !found {
		m.RevealMisses.Inc()
	}
}

// AddFragments records fragments hidden during encode.
func (m *Metrics) AddFragments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FragmentsEmbedded.Add(float64(n))
}

// WriteTextfile writes the current values in text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
