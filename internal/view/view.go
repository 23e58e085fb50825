// Live-updating CPU load view driven by a pull or push source
package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cpuload-view/internal/logging"
	"cpuload-view/internal/metrics"
	"cpuload-view/internal/sample"
	"cpuload-view/internal/source"
)

// Sink is the display surface a view writes to. Render replaces whatever the
// sink showed before.
type Sink interface {
	Render(Tree) error
}

// StateSink is implemented by sinks that display the source connection state.
type StateSink interface {
	SetState(strategy string, st source.State)
}

// ErrorSink is implemented by sinks that display the last failure.
type ErrorSink interface {
	SetError(error)
}

// Option configures a LiveLoadView.
type Option func(*LiveLoadView)

// WithErrorHandler registers fn for every fetch, parse, transport or sink failure.
func WithErrorHandler(fn func(error)) Option {
	return func(v *LiveLoadView) { v.onError = fn }
}

// WithLogger sets the logger; slog.Default() otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(v *LiveLoadView) { v.log = l }
}

// WithRecorder reports render metrics to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(v *LiveLoadView) { v.recorder = r }
}

// LiveLoadView renders the most recent sample through its sink. At most one
// source feeds it at a time.
type LiveLoadView struct {
	id       string
	sink     Sink
	onError  func(error)
	log      *slog.Logger
	recorder metrics.Recorder

	renderMu sync.Mutex
	updated  time.Time
	cores    int

	srcMu  sync.Mutex
	active source.Source
}

// New creates a view writing to sink.
func New(sink Sink, opts ...Option) *LiveLoadView {
	v := &LiveLoadView{
		id:       uuid.New().String(),
		sink:     sink,
		log:      slog.Default(),
		recorder: metrics.Nop{},
	}
	for _, o := range opts {
		o(v)
	}
	v.log = v.log.With("view", v.id)
	return v
}

// ID identifies this view instance.
func (v *LiveLoadView) ID() string { return v.id }

// Render replaces the displayed tree with the one built from s.
func (v *LiveLoadView) Render(s sample.Sample) error {
	tree := Build(s)
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	if err := v.sink.Render(tree); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	v.updated = time.Now()
	v.cores = len(tree.Bars)
	v.recorder.IncCounter(metrics.Renders, 1)
	v.recorder.SetGauge(metrics.Cores, float64(len(tree.Bars)))
	return nil
}

// LastRender reports when the sink last accepted a tree and how many bars it had.
func (v *LiveLoadView) LastRender() (time.Time, int) {
	v.renderMu.Lock()
	defer v.renderMu.Unlock()
	return v.updated, v.cores
}

// Use stops the active source and starts src feeding this view.
func (v *LiveLoadView) Use(ctx context.Context, src source.Source) error {
	v.srcMu.Lock()
	defer v.srcMu.Unlock()
	if v.active != nil {
		v.active.Stop()
		v.active = nil
	}
	ctx = logging.NewContext(ctx, v.log)
	if err := src.Start(ctx, v.onSample, v.handleError); err != nil {
		return fmt.Errorf("start %s source: %w", src.Strategy(), err)
	}
	v.active = src
	v.log.Info("source started", "strategy", src.Strategy())
	return nil
}

// Active returns the source currently feeding the view, or nil.
func (v *LiveLoadView) Active() source.Source {
	v.srcMu.Lock()
	defer v.srcMu.Unlock()
	return v.active
}

// Stop stops the active source.
func (v *LiveLoadView) Stop() {
	v.srcMu.Lock()
	defer v.srcMu.Unlock()
	if v.active == nil {
		return
	}
	v.active.Stop()
	v.log.Info("source stopped", "strategy", v.active.Strategy())
	v.active = nil
}

// StateChanged forwards a source state transition to the sink.
func (v *LiveLoadView) StateChanged(strategy string, st source.State) {
	v.log.Debug("source state", "strategy", strategy, "state", st)
	if ss, ok := v.sink.(StateSink); ok {
		ss.SetState(strategy, st)
	}
}

func (v *LiveLoadView) onSample(s sample.Sample) {
	if err := v.Render(s); err != nil {
		v.handleError(err)
	}
}

func (v *LiveLoadView) handleError(err error) {
	v.log.Error("update failed", "err", err)
	if es, ok := v.sink.(ErrorSink); ok {
		es.SetError(err)
	}
	if v.onError != nil {
		v.onError(err)
	}
}
