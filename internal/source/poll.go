package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cpuload-view/internal/logging"
	"cpuload-view/internal/metrics"
)

// DefaultPollInterval matches the rendering poll loop of the browser widget.
const DefaultPollInterval = 200 * time.Millisecond

// PollerConfig configures a Poller.
type PollerConfig struct {
	URL      string
	Interval time.Duration
	// Client defaults to a client without timeout.
	Client   *http.Client
	Recorder metrics.Recorder
	OnState  StateFunc
}

// Poller fetches the current sample from a JSON endpoint on a fixed interval.
type Poller struct {
	runner
	url      string
	interval time.Duration
	client   *http.Client
}

// NewPoller creates a Poller. It does nothing until Start.
func NewPoller(cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	p := &Poller{url: cfg.URL, interval: interval, client: client}
	p.runner.state = Closed
	p.runner.onState = cfg.OnState
	p.runner.recorder = recorderOrNop(cfg.Recorder)
	return p
}

// Strategy implements Source.
func (p *Poller) Strategy() string { return "poll" }

// Start begins polling. The first request is issued immediately.
func (p *Poller) Start(ctx context.Context, onSample SampleFunc, onError ErrorFunc) error {
	return p.launch(ctx, func(ctx context.Context) {
		p.loop(ctx, onSample, onError)
	})
}

// Stop cancels the loop and any in-flight request.
func (p *Poller) Stop() { p.stop() }

func (p *Poller) loop(ctx context.Context, onSample SampleFunc, onError ErrorFunc) {
	log := logging.FromContext(ctx).With("strategy", "poll", "url", p.url)
	log.Debug("polling started", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.poll(ctx, onSample, onError)
		select {
		case <-ctx.Done():
			log.Debug("polling stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context, onSample SampleFunc, onError ErrorFunc) {
	start := time.Now()
	payload, err := p.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.recorder.IncCounter(metrics.FetchFailures, 1)
		p.setState(Errored)
		onError(err)
		return
	}
	if !p.deliver(payload, onSample, onError) {
		p.setState(Errored)
		return
	}
	p.recorder.ObserveLatency(metrics.PollLatency, time.Since(start).Seconds())
	p.setState(Open)
}

func (p *Poller) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, p.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: p.url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, p.url, err)
	}
	return body, nil
}
