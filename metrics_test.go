package authkit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMetricsCountEngineOutcomes(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := engine.Register(ctx, "alice", "correct-horse"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate register: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad login: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login: %v", err)
	}

	snapshot := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess:   1,
		MetricRegisterDuplicate: 1,
		MetricLoginFailure:      1,
		MetricLoginSuccess:      1,
		MetricSessionCreated:    1,
	}
	for id, want := range expect {
		if got := snapshot.Counters[id]; got != want {
			t.Fatalf("counter %d: want %d, got %d", id, want, got)
		}
	}
}

func TestMetricsDisabledIgnoresWrites(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not record")
	}
	if m.Enabled() {
		t.Fatal("Enabled must report false")
	}
}

func TestMetricsConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const workers = 16
	const perWorker = 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Inc(MetricTOTPSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricTOTPSuccess); got != workers*perWorker {
		t.Fatalf("want %d increments, got %d", workers*perWorker, got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	m.Observe(MetricValidateLatency, 2*time.Millisecond)
	m.Observe(MetricValidateLatency, 40*time.Millisecond)
	m.Observe(MetricValidateLatency, time.Second)
	// Non-histogram ids are ignored.
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snapshot := m.Snapshot()
	buckets, ok := snapshot.Histograms[MetricValidateLatency]
	if !ok {
		t.Fatal("latency histogram missing from snapshot")
	}
	if buckets[0] != 1 || buckets[3] != 1 || buckets[7] != 1 {
		t.Fatalf("unexpected bucket distribution: %v", buckets)
	}
	if _, ok := snapshot.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("only validate latency carries a histogram")
	}
}
