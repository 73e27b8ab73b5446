package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Conversion result labels.
const (
	ResultOK = "ok"
)

// EngineCollector bundles Prometheus metrics for the conversion engine.
type EngineCollector struct {
	gatherer prometheus.Gatherer

	Conversions        *prometheus.CounterVec
	ConversionDuration *prometheus.HistogramVec
	GeodeticIterations prometheus.Histogram
	DatumsLoaded       prometheus.Gauge
	DatumsSkipped      prometheus.Counter
	LifecycleEvents    *prometheus.CounterVec
}

// NewEngineCollector registers engine metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registering twice against the same registry reuses the existing collectors.
func NewEngineCollector(reg prometheus.Registerer, namespace string) (*EngineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	conversions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_total",
		Help:      "Total number of coordinate conversions, labeled by operation and result.",
	}, []string{"op", "result"}), "conversions_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "conversion_duration_seconds",
		Help:      "Coordinate conversion latency in seconds.",
		Buckets:   []float64{1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 1e-4, 1e-3},
	}, []string{"op"}), "conversion_duration_seconds")
	if err != nil {
		return nil, err
	}

	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geodetic_iterations",
		Help:      "Iterations used by the ellipsoidal geodetic inversion.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5, 7, 10, 20},
	}), "geodetic_iterations")
	if err != nil {
		return nil, err
	}

	loaded, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "datums_loaded",
		Help:      "Number of datums in the active registry snapshot.",
	}), "datums_loaded")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "datum_entries_skipped_total",
		Help:      "Datum entries or files skipped while loading because they were malformed or duplicated.",
	}), "datum_entries_skipped_total")
	if err != nil {
		return nil, err
	}

	lifecycle, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lifecycle_events_total",
		Help:      "Initialize, reload and teardown calls, labeled by event and result.",
	}, []string{"event", "result"}), "lifecycle_events_total")
	if err != nil {
		return nil, err
	}

	return &EngineCollector{
		gatherer:           gatherer,
		Conversions:        conversions,
		ConversionDuration: durations,
		GeodeticIterations: iterations,
		DatumsLoaded:       loaded,
		DatumsSkipped:      skipped,
		LifecycleEvents:    lifecycle,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EngineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveConversion records one conversion outcome and its latency.
func (c *EngineCollector) ObserveConversion(op, result string, elapsed time.Duration) {
	if c == nil {
		return
	}
	if c.Conversions != nil {
		c.Conversions.WithLabelValues(op, result).Inc()
	}
	if c.ConversionDuration != nil {
		c.ConversionDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
}

// ObserveIterations records how many iterations one inversion took.
func (c *EngineCollector) ObserveIterations(n int) {
	if c == nil || c.GeodeticIterations == nil {
		return
	}
	c.GeodeticIterations.Observe(float64(n))
}

// SetDatumsLoaded sets the size of the active registry.
func (c *EngineCollector) SetDatumsLoaded(n int) {
	if c == nil || c.DatumsLoaded == nil {
		return
	}
	c.DatumsLoaded.Set(float64(n))
}

// AddSkippedDatums counts entries dropped during a load.
func (c *EngineCollector) AddSkippedDatums(n int) {
	if c == nil || c.DatumsSkipped == nil || n <= 0 {
		return
	}
	c.DatumsSkipped.Add(float64(n))
}

// ObserveLifecycle counts a lifecycle call.
func (c *EngineCollector) ObserveLifecycle(event, result string) {
	if c == nil || c.LifecycleEvents == nil {
		return
	}
	c.LifecycleEvents.WithLabelValues(event, result).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
