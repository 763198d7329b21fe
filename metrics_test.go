package sessiongate

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricTokenIssued)

	if got := m.Value(MetricTokenIssued); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricTokenIssued)
	m.Inc(MetricTokenIssued)
	m.Inc(MetricTokenIssued)

	if got := m.Value(MetricTokenIssued); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricTokenIssued)
	m.Observe(MetricValidateLatency, time.Millisecond)
	if m.Value(MetricTokenIssued) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics should record nothing")
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricValidateSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricValidateSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		100 * time.Microsecond,
		400 * time.Microsecond,
		900 * time.Microsecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		8 * time.Millisecond,
		30 * time.Millisecond,
		200 * time.Millisecond,
	}

	for _, d := range observations {
		m.Observe(MetricValidateLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricTokenIssued, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricTokenIssued]; ok {
		t.Fatal("counter ids must not grow histograms")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricTokenIssued)
	m.Inc(MetricValidateExpired)
	m.Inc(MetricValidateExpired)
	m.Observe(MetricValidateLatency, 200*time.Microsecond)

	snap := m.Snapshot()

	if snap.Counters[MetricTokenIssued] != 1 {
		t.Fatalf("expected MetricTokenIssued=1 got %d", snap.Counters[MetricTokenIssued])
	}
	if snap.Counters[MetricValidateExpired] != 2 {
		t.Fatalf("expected MetricValidateExpired=2 got %d", snap.Counters[MetricValidateExpired])
	}
	if _, ok := snap.Counters[MetricValidateLatency]; ok {
		t.Fatal("latency must not appear as a counter")
	}
	if snap.Histograms[MetricValidateLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricValidateLatency][0])
	}
}

func TestEngineRecordsValidateLatency(t *testing.T) {
	engine, _, _ := newTestEngine(t, func(c *Config) {
		c.Metrics.EnableLatencyHistograms = true
	})
	ctx := ipContext("10.0.3.1")

	issued, err := engine.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := engine.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	var total uint64
	for _, v := range engine.MetricsSnapshot().Histograms[MetricValidateLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
}
