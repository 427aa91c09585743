package occupancy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the sampling pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	CyclesTotal      *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	ErrorsTotal      *prometheus.CounterVec
	SamplesStored    prometheus.Counter
	CurrentOccupancy prometheus.Gauge
	CurrentCapacity  prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	cycles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolwatch_cycles_total",
			Help: "Total sampling cycles by result.",
		},
		[]string{"result"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "poolwatch_fetch_duration_seconds",
			Help:    "Latency of source page fetches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poolwatch_errors_total",
			Help: "Total pipeline errors by type.",
		},
		[]string{"error_type"},
	)
	samplesStored := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "poolwatch_samples_stored_total",
			Help: "Total samples persisted to the store.",
		},
	)
	currentOccupancy := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolwatch_occupancy_current",
			Help: "Most recently sampled pool occupancy.",
		},
	)
	currentCapacity := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "poolwatch_capacity_current",
			Help: "Most recently sampled pool capacity, when reported.",
		},
	)

	registry.MustRegister(cycles, fetchDuration, errorsTotal, samplesStored, currentOccupancy, currentCapacity)

	return &Metrics{
		Registry:         registry,
		CyclesTotal:      cycles,
		FetchDuration:    fetchDuration,
		ErrorsTotal:      errorsTotal,
		SamplesStored:    samplesStored,
		CurrentOccupancy: currentOccupancy,
		CurrentCapacity:  currentCapacity,
	}
}

// CycleSucceeded records a completed cycle and the reading it stored.
func (m *Metrics) CycleSucceeded(sample Sample) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues("success").Inc()
	m.SamplesStored.Inc()
	m.CurrentOccupancy.Set(float64(sample.Occupancy))
	if sample.Capacity != nil {
		m.CurrentCapacity.Set(float64(*sample.Capacity))
	}
}

// CycleFailed records a failed cycle with its error type label.
func (m *Metrics) CycleFailed(errType string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues("failure").Inc()
	m.ErrorsTotal.WithLabelValues(errType).Inc()
}

// CycleSkipped records a cycle that did not run (duplicate reading or
// outside the polling window).
func (m *Metrics) CycleSkipped(reason string) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(reason).Inc()
}

// ObserveFetch records the duration of one fetch attempt.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}
