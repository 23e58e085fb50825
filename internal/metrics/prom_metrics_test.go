package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPromMetrics(reg)

	m.IncCounter(SamplesReceived, 3)
	if got := testutil.ToFloat64(m.counters[SamplesReceived]); got != 3 {
		t.Fatalf("expected received counter 3, got %f", got)
	}

	m.IncCounter(FetchFailures, 1)
	m.IncCounter(ParseFailures, 2)
	if got := testutil.ToFloat64(m.counters[ParseFailures]); got != 2 {
		t.Fatalf("expected parse failure counter 2, got %f", got)
	}

	m.SetGauge(Cores, 8)
	if got := testutil.ToFloat64(m.gauges[Cores]); got != 8 {
		t.Fatalf("expected cores gauge 8, got %f", got)
	}

	m.ObserveLatency(PollLatency, 0.02)
	h := m.histos[PollLatency].(prometheus.Collector)
	if n := testutil.CollectAndCount(h); n != 1 {
		t.Fatalf("expected latency histogram to be collected once, got %d", n)
	}

	// unknown names are ignored
	m.IncCounter("nope", 1)
	m.SetGauge("nope", 1)
	m.ObserveLatency("nope", 1)

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 metrics registered, got %d", n)
	}
}
