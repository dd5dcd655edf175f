package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/glizzus/opus2mp3/internal/bufpool"
)

const namespace = "opus2mp3"

// Metrics holds all Prometheus metrics
type Metrics struct {
	Conversions        *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	InputBytes         prometheus.Histogram
	OutputBytes        prometheus.Histogram

	reg prometheus.Registerer
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of conversions by strategy and outcome",
			},
			[]string{"strategy", "outcome"}, // outcome: ok or an error kind
		),
		ConversionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "conversion_duration_seconds",
				Help:      "Time spent converting one payload",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"strategy"},
		),
		InputBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_bytes",
			Help:      "Size of Opus payloads received",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KB to 16MB
		}),
		OutputBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "output_bytes",
			Help:      "Size of MP3 payloads produced",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		reg: reg,
	}
}

// WatchPool exports the number of checked out buffers of pool.
func (m *Metrics) WatchPool(pool *bufpool.Pool) {
	promauto.With(m.reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "buffer_pool_in_use",
		Help:      "Number of PCM buffers currently checked out",
	}, func() float64 {
		return float64(pool.InUse())
	})
}

// ObserveConversion records one finished conversion.
func (m *Metrics) ObserveConversion(strategy, outcome string, elapsed time.Duration, inBytes, outBytes int) {
	m.Conversions.WithLabelValues(strategy, outcome).Inc()
	m.ConversionDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.InputBytes.Observe(float64(inBytes))
	if outBytes > 0 {
		m.OutputBytes.Observe(float64(outBytes))
	}
}
