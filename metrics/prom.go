package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder records events in Prometheus metrics.
type PromRecorder struct {
	created *prometheus.CounterVec
	batches *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// NewPromRecorder registers metrics on the default Prometheus registerer.
func NewPromRecorder() (*PromRecorder, error) {
	return NewPromRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromRecorderWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromRecorderWithRegistry(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datapipe_datasets_created_total",
		Help: "Number of datasets built from configuration",
	}, []string{"type"})
	batches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datapipe_batches_total",
		Help: "Number of batches handed to the consumer",
	}, []string{"phase"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datapipe_batch_load_seconds",
		Help:    "Time spent reading and collating one batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	var err error
	if created, err = register(reg, created); err != nil {
		return nil, err
	}
	if batches, err = register(reg, batches); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	return &PromRecorder{created: created, batches: batches, latency: latency}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// DatasetCreated increments the per-type creation counter.
func (r *PromRecorder) DatasetCreated(datasetType string) {
	r.created.WithLabelValues(datasetType).Inc()
}

// BatchLoaded counts the batch and observes its load time.
func (r *PromRecorder) BatchLoaded(phase string, d time.Duration) {
	r.batches.WithLabelValues(phase).Inc()
	r.latency.WithLabelValues(phase).Observe(d.Seconds())
}
