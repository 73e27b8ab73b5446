package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineCollectorRecordsConversions(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg, "cootrans")
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	collector.ObserveConversion("XyzToLatLonAltitude", ResultOK, 3*time.Microsecond)
	collector.ObserveConversion("XyzToLatLonAltitude", "unknown_planet", time.Microsecond)
	collector.ObserveIterations(2)

	if got := testutil.ToFloat64(collector.Conversions.WithLabelValues("XyzToLatLonAltitude", ResultOK)); got != 1 {
		t.Fatalf("conversions_total ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Conversions.WithLabelValues("XyzToLatLonAltitude", "unknown_planet")); got != 1 {
		t.Fatalf("conversions_total unknown_planet = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "cootrans_conversion_duration_seconds", map[string]string{
		"op": "XyzToLatLonAltitude",
	}); count != 2 {
		t.Fatalf("conversion_duration_seconds sample_count = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "cootrans_geodetic_iterations", nil); count != 1 {
		t.Fatalf("geodetic_iterations sample_count = %d, want 1", count)
	}
}

func TestEngineCollectorGaugesAndCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewEngineCollector(reg, "cootrans")
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	collector.SetDatumsLoaded(9)
	collector.AddSkippedDatums(2)
	collector.AddSkippedDatums(0)
	collector.ObserveLifecycle("initialize", ResultOK)

	if got := testutil.ToFloat64(collector.DatumsLoaded); got != 9 {
		t.Fatalf("datums_loaded = %v, want 9", got)
	}
	if got := testutil.ToFloat64(collector.DatumsSkipped); got != 2 {
		t.Fatalf("datum_entries_skipped_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.LifecycleEvents.WithLabelValues("initialize", ResultOK)); got != 1 {
		t.Fatalf("lifecycle_events_total = %v, want 1", got)
	}
}

func TestEngineCollectorReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngineCollector(reg, "cootrans")
	if err != nil {
		t.Fatalf("first NewEngineCollector: %v", err)
	}
	second, err := NewEngineCollector(reg, "cootrans")
	if err != nil {
		t.Fatalf("second NewEngineCollector: %v", err)
	}

	first.SetDatumsLoaded(4)
	if got := testutil.ToFloat64(second.DatumsLoaded); got != 4 {
		t.Fatalf("second collector should share gauge, got %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *EngineCollector
	c.ObserveConversion("op", ResultOK, time.Millisecond)
	c.ObserveIterations(1)
	c.SetDatumsLoaded(1)
	c.AddSkippedDatums(1)
	c.ObserveLifecycle("teardown", ResultOK)
	if c.Gatherer() != nil {
		t.Fatalf("nil collector should have nil gatherer")
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
