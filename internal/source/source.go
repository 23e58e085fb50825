// Data-source adapters delivering CPU load samples to a single consumer
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cpuload-view/internal/metrics"
	"cpuload-view/internal/sample"
)

// ErrFetch is wrapped by every FetchError.
var ErrFetch = errors.New("fetch failed")

// ErrAlreadyStarted is returned when Start is called on a running source.
var ErrAlreadyStarted = errors.New("source already started")

// FetchError reports a poll response with a status other than 200.
type FetchError struct {
	URL    string
	Status int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return ErrFetch }

// State is the connection state of a source.
type State int

const (
	Connecting State = iota
	Open
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SampleFunc receives every successfully parsed sample.
type SampleFunc func(sample.Sample)

// ErrorFunc receives fetch, parse and transport failures.
type ErrorFunc func(error)

// StateFunc is notified on every state transition.
type StateFunc func(State)

// Source is a pull or push adapter. Start returns immediately; Stop blocks
// until the adapter can no longer call onSample or onError.
type Source interface {
	Start(ctx context.Context, onSample SampleFunc, onError ErrorFunc) error
	Stop()
	State() State
	Strategy() string
}

// runner holds the lifecycle shared by Poller and Streamer.
type runner struct {
	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	done     chan struct{}
	onState  StateFunc
	recorder metrics.Recorder
}

func (r *runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *runner) setState(s State) {
	r.mu.Lock()
	changed := r.state != s
	r.state = s
	fn := r.onState
	r.mu.Unlock()
	r.recorder.SetGauge(metrics.ConnectionState, float64(s))
	if changed && fn != nil {
		fn(s)
	}
}

// launch starts loop on its own goroutine unless one is already running.
func (r *runner) launch(ctx context.Context, loop func(ctx context.Context)) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	r.setState(Connecting)
	go func() {
		defer close(done)
		loop(ctx)
	}()
	return nil
}

func (r *runner) stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.setState(Closed)
}

// deliver parses a payload and routes the outcome to the right callback.
func (r *runner) deliver(payload []byte, onSample SampleFunc, onError ErrorFunc) bool {
	s, err := sample.Parse(payload)
	if err != nil {
		r.recorder.IncCounter(metrics.ParseFailures, 1)
		onError(err)
		return false
	}
	r.recorder.IncCounter(metrics.SamplesReceived, 1)
	onSample(s)
	return true
}

func recorderOrNop(r metrics.Recorder) metrics.Recorder {
	if r == nil {
		return metrics.Nop{}
	}
	return r
}
