package goAuthClient

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	m.Observe(MetricRenewalLatency, time.Millisecond)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricRenewalStarted)
	m.Observe(MetricRenewalLatency, time.Second)
	if m.Value(MetricRenewalStarted) != 0 || m.Enabled() || m.LatencyEnabled() {
		t.Fatal("nil metrics must be inert")
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
				m.Inc(MetricRenewalJoined)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRenewalJoined); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsAdd(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Add(MetricRequestAuthorized, 5)
	m.Add(MetricRequestAuthorized, 0)
	m.Add(metricIDCount, 3)
	if got := m.Value(MetricRequestAuthorized); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricsHistogramBuckets(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		25 * time.Millisecond,
		40 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		500 * time.Millisecond,
		900 * time.Millisecond,
		3 * time.Second,
	} {
		m.Observe(MetricRenewalLatency, d)
	}
	// Only the renewal latency metric has a histogram.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRenewalLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Counters[MetricRenewalLatency]; ok {
		t.Fatal("histogram id must not appear among counters")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("expected a single histogram, got %d", len(snap.Histograms))
	}
}

func TestMetricsHistogramDisabledByDefault(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRenewalLatency, time.Millisecond)
	if _, ok := m.Snapshot().Histograms[MetricRenewalLatency]; ok {
		t.Fatal("histogram should be absent without EnableLatencyHistograms")
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRequestAuthorized)
		}
	})
}
