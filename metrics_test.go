package donorauth

import (
	"sync"
	"testing"
)

func TestMetricsIncAndSnapshot(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	m.Inc(MetricVerificationSend)
	m.Inc(MetricVerificationSend)
	m.Inc(MetricLoginSuccess)

	snap := m.Snapshot()
	if snap.Counters[MetricVerificationSend] != 2 {
		t.Fatalf("send counter = %d, want 2", snap.Counters[MetricVerificationSend])
	}
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login counter = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLogout] != 0 {
		t.Fatalf("untouched counter = %d, want 0", snap.Counters[MetricLogout])
	}
}

func TestMetricsDisabledIsNoOp(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	if m.Enabled() {
		t.Fatal("zero config must disable metrics")
	}
	m.Inc(MetricVerificationSend)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot carries counters: %v", snap.Counters)
	}
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	if m.Enabled() {
		t.Fatal("nil metrics reports enabled")
	}
	m.Inc(MetricLoginSuccess)
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("nil snapshot carries counters: %v", snap.Counters)
	}
}

func TestMetricsOutOfRangeIDIgnored(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount)
	m.Inc(metricIDCount + 100)
	snap := m.Snapshot()
	for id, v := range snap.Counters {
		if v != 0 {
			t.Fatalf("counter %s = %d after out-of-range increments", id, v)
		}
	}
}

func TestMetricsConcurrentInc(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 8
	const perWorker = 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricVerificationConfirm)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricVerificationConfirm]; got != workers*perWorker {
		t.Fatalf("counter = %d, want %d", got, workers*perWorker)
	}
}

func TestMetricIDNames(t *testing.T) {
	seen := map[string]MetricID{}
	for id := MetricID(0); id < metricIDCount; id++ {
		name := id.String()
		if name == "" {
			t.Fatalf("metric %d has no name", id)
		}
		if prev, dup := seen[name]; dup {
			t.Fatalf("metrics %d and %d share the name %q", prev, id, name)
		}
		seen[name] = id
	}
}
