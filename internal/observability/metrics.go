package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation describes one finished codec call.
type Operation struct {
	Name     string
	Format   string
	Bytes    int
	Duration time.Duration
	Err      error
}

// CodecMetrics counts codec calls and the size of the documents they
// handled.
type CodecMetrics struct {
	operations *prometheus.CounterVec
	sizes      *prometheus.HistogramVec
	duration   *prometheus.HistogramVec
}

// NewCodecMetrics builds the codec collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewCodecMetrics(reg prometheus.Registerer) (*CodecMetrics, error) {
	m := &CodecMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kbinxml",
				Subsystem: "codec",
				Name:      "operations_total",
				Help:      "Total codec operations.",
			},
			[]string{"op", "format", "result"},
		),
		sizes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kbinxml",
				Subsystem: "codec",
				Name:      "bytes",
				Help:      "Size of encoded documents handled by the codec.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"op", "format"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kbinxml",
				Subsystem: "codec",
				Name:      "duration_seconds",
				Help:      "Codec operation duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "format"},
		),
	}
	if reg != nil {
		for _, c := range m.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *CodecMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.operations, m.sizes, m.duration}
}

// Record is safe on a nil receiver.
func (m *CodecMetrics) Record(op Operation) {
	if m == nil {
		return
	}
	result := "ok"
	if op.Err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(op.Name, op.Format, result).Inc()
	m.duration.WithLabelValues(op.Name, op.Format).Observe(op.Duration.Seconds())
	if op.Err == nil {
		m.sizes.WithLabelValues(op.Name, op.Format).Observe(float64(op.Bytes))
	}
}
