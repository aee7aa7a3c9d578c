package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-monitors/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	WaitBuckets []float64
}

// defaultWaitBuckets spans sub-millisecond hand-offs up to multi-second stalls.
var defaultWaitBuckets = prom.ExponentialBuckets(0.0005, 4, 9)

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	waitSeconds        *prom.HistogramVec
	cancellationsTotal *prom.CounterVec
	transitionsTotal   *prom.CounterVec
	occupancy          *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "monitors"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.WaitBuckets
	if len(buckets) == 0 {
		buckets = defaultWaitBuckets
	}

	waitVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "wait_seconds",
		Help:      "Time spent blocked on a monitor condition before proceeding.",
		Buckets:   buckets,
	}, []string{"component", "op"})
	cancelVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Total number of blocked operations abandoned through their context.",
	}, []string{"component", "op"})
	transitionVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of actor state transitions.",
	}, []string{"component", "state"})
	occupancyVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "occupancy",
		Help:      "Current fill level of a monitor.",
	}, []string{"component"})

	var err error
	if waitVec, err = registerCollector(reg, waitVec); err != nil {
		return nil, err
	}
	if cancelVec, err = registerCollector(reg, cancelVec); err != nil {
		return nil, err
	}
	if transitionVec, err = registerCollector(reg, transitionVec); err != nil {
		return nil, err
	}
	if occupancyVec, err = registerCollector(reg, occupancyVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		waitSeconds:        waitVec,
		cancellationsTotal: cancelVec,
		transitionsTotal:   transitionVec,
		occupancy:          occupancyVec,
	}, nil
}

// RecordWait records how long an operation was blocked.
func (m *MetricsExporter) RecordWait(component string, op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.waitSeconds.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(op, "unknown")).Observe(duration.Seconds())
}

// RecordCancellation records an abandoned wait.
func (m *MetricsExporter) RecordCancellation(component string, op string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(op, "unknown")).Inc()
}

// RecordTransition records a state change.
func (m *MetricsExporter) RecordTransition(component string, state string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(normalizeLabel(component, "unknown"), normalizeLabel(state, "unknown")).Inc()
}

// RecordOccupancy records the current fill level.
func (m *MetricsExporter) RecordOccupancy(component string, n int) {
	if m == nil {
		return
	}
	m.occupancy.WithLabelValues(normalizeLabel(component, "unknown")).Set(float64(n))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
