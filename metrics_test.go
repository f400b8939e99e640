package tokenguard

import (
	"sync"
	"testing"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics produced a populated snapshot")
	}
}

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricReplayDetected)

	if got := m.Value(MetricLoginSuccess); got != 2 {
		t.Fatalf("MetricLoginSuccess = %d, want 2", got)
	}

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 2 || snap.Counters[MetricReplayDetected] != 1 {
		t.Fatalf("snapshot = %+v", snap.Counters)
	}
	if snap.Counters[MetricLoginFailure] != 0 {
		t.Fatalf("untouched counter = %d", snap.Counters[MetricLoginFailure])
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricRefreshSuccess); got != workers*perWorker {
		t.Fatalf("MetricRefreshSuccess = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricsNilAndOutOfRange(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics returned nonzero")
	}
	if m.Enabled() {
		t.Fatal("nil metrics enabled")
	}

	real := NewMetrics(MetricsConfig{Enabled: true})
	real.Inc(metricIDCount + 5)
	if real.Value(metricIDCount+5) != 0 {
		t.Fatal("out-of-range metric incremented")
	}
}
