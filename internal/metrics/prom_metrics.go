package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	SamplesReceived = "cpuload_samples_received_total"
	FetchFailures   = "cpuload_fetch_failures_total"
	ParseFailures   = "cpuload_parse_failures_total"
	StreamDrops     = "cpuload_stream_disconnects_total"
	Renders         = "cpuload_renders_total"
	Cores           = "cpuload_cores"
	ConnectionState = "cpuload_connection_state"
	PollLatency     = "cpuload_poll_latency_seconds"
)

// Recorder is what sources and views report to.
type Recorder interface {
	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)
	SetGauge(name string, v float64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64)     {}
func (Nop) ObserveLatency(string, float64) {}
func (Nop) SetGauge(string, float64)       {}

// PromMetrics is a Recorder backed by prometheus collectors.
type PromMetrics struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromMetrics creates the collectors and registers them with reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: SamplesReceived,
		Help: "Samples successfully parsed from the poll or push source.",
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: FetchFailures,
		Help: "Poll requests that failed or returned a non-200 status.",
	})
	parseFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ParseFailures,
		Help: "Payloads that were not a JSON array of numbers.",
	})
	drops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: StreamDrops,
		Help: "Streaming connections lost or refused.",
	})
	renders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: Renders,
		Help: "Trees handed to the sink.",
	})
	cores := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: Cores,
		Help: "Number of bars in the currently displayed tree.",
	})
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ConnectionState,
		Help: "Active source state (0 connecting, 1 open, 2 closed, 3 errored).",
	})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PollLatency,
		Help:    "Round trip of one poll request including body parse.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(received, fetchFailures, parseFailures, drops, renders, cores, state, latency)

	return &PromMetrics{
		counters: map[string]prometheus.Counter{
			SamplesReceived: received,
			FetchFailures:   fetchFailures,
			ParseFailures:   parseFailures,
			StreamDrops:     drops,
			Renders:         renders,
		},
		gauges: map[string]prometheus.Gauge{
			Cores:           cores,
			ConnectionState: state,
		},
		histos: map[string]prometheus.Observer{
			PollLatency: latency,
		},
	}
}

func (p *PromMetrics) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromMetrics) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromMetrics) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}
