package view

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cpuload-view/internal/sample"
	"cpuload-view/internal/source"
)

func TestBuildBars(t *testing.T) {
	s := sample.Sample{12.5, 87.0, 0, 150, 33.333, 12.125, 0.125, 50.625, -12.125, 1.005, math.Copysign(0, -1)}
	tree := Build(s)
	if tree.Title != Title {
		t.Fatalf("expected title %q, got %q", Title, tree.Title)
	}
	if len(tree.Bars) != len(s) {
		t.Fatalf("expected %d bars, got %d", len(s), len(tree.Bars))
	}
	want := []struct{ width, label string }{
		{"12.5%", "12.50% usage"},
		{"87%", "87.00% usage"},
		{"0%", "0.00% usage"},
		{"150%", "150.00% usage"},
		{"33.333%", "33.33% usage"},
		{"12.125%", "12.13% usage"},
		{"0.125%", "0.13% usage"},
		{"50.625%", "50.63% usage"},
		{"-12.125%", "-12.13% usage"},
		{"1.005%", "1.00% usage"},
		{"0%", "0.00% usage"},
	}
	for i, w := range want {
		b := tree.Bars[i]
		if b.Core != i || b.Value != s[i] {
			t.Fatalf("bar %d: unexpected core/value %+v", i, b)
		}
		if b.Width != w.width || b.Label != w.label {
			t.Fatalf("bar %d: expected %q/%q, got %q/%q", i, w.width, w.label, b.Width, b.Label)
		}
	}
}

func TestRenderEmptySample(t *testing.T) {
	surface := NewSurface()
	v := New(surface)
	if err := v.Render(sample.Sample{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	tree, ok := surface.Snapshot()
	if !ok {
		t.Fatalf("expected surface to be rendered")
	}
	if tree.Title != Title || len(tree.Bars) != 0 {
		t.Fatalf("expected title without bars, got %+v", tree)
	}
}

func TestRenderReplacesPreviousTree(t *testing.T) {
	surface := NewSurface()
	v := New(surface)
	if err := v.Render(sample.Sample{1, 2, 3, 4}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := v.Render(sample.Sample{9}); err != nil {
		t.Fatalf("render: %v", err)
	}
	tree, _ := surface.Snapshot()
	if len(tree.Bars) != 1 || tree.Bars[0].Value != 9 {
		t.Fatalf("expected only the second sample, got %+v", tree.Bars)
	}
	at, cores := v.LastRender()
	if at.IsZero() || cores != 1 {
		t.Fatalf("unexpected last render %v/%d", at, cores)
	}
}

func TestRenderIdempotent(t *testing.T) {
	surface := NewSurface()
	v := New(surface)
	s := sample.Sample{10, 20}
	_ = v.Render(s)
	first, _ := surface.Snapshot()
	_ = v.Render(s)
	second, _ := surface.Snapshot()
	if len(first.Bars) != len(second.Bars) {
		t.Fatalf("expected identical trees, got %d and %d bars", len(first.Bars), len(second.Bars))
	}
	for i := range first.Bars {
		if first.Bars[i] != second.Bars[i] {
			t.Fatalf("bar %d differs: %+v vs %+v", i, first.Bars[i], second.Bars[i])
		}
	}
}

type failingSink struct{}

func (failingSink) Render(Tree) error { return errors.New("disk full") }

func TestRenderSinkFailure(t *testing.T) {
	v := New(failingSink{})
	if err := v.Render(sample.Sample{1}); err == nil {
		t.Fatalf("expected sink error")
	}
	if at, _ := v.LastRender(); !at.IsZero() {
		t.Fatalf("failed render must not count as an update")
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollFailureKeepsPreviousView(t *testing.T) {
	var mu sync.Mutex
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`[12.5, 87.0]`))
		}
	}))
	defer srv.Close()

	errs := make(chan error, 16)
	surface := NewSurface()
	v := New(surface, WithErrorHandler(func(err error) {
		select {
		case errs <- err:
		default:
		}
	}))
	p := source.NewPoller(source.PollerConfig{URL: srv.URL + source.DefaultPollPath, Interval: 20 * time.Millisecond})
	if err := v.Use(context.Background(), p); err != nil {
		t.Fatalf("use: %v", err)
	}
	defer v.Stop()
	waitFor(t, func() bool { _, ok := surface.Snapshot(); return ok })

	mu.Lock()
	status = http.StatusInternalServerError
	mu.Unlock()

	select {
	case err := <-errs:
		var fe *source.FetchError
		if !errors.As(err, &fe) || fe.Status != http.StatusInternalServerError {
			t.Fatalf("expected FetchError 500, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected fetch failure")
	}
	tree, _ := surface.Snapshot()
	if len(tree.Bars) != 2 || tree.Bars[0].Width != "12.5%" {
		t.Fatalf("view changed after failure: %+v", tree)
	}
	if !errors.Is(surface.LastError(), source.ErrFetch) {
		t.Fatalf("expected surface to record the failure, got %v", surface.LastError())
	}
}

func TestStreamMessageRendersBars(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(`[12.5, 87.0]`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url, err := source.StreamURL(srv.URL+"/page", source.DefaultStreamPath)
	if err != nil {
		t.Fatalf("StreamURL: %v", err)
	}
	surface := NewSurface()
	v := New(surface)
	s := source.NewStreamer(source.StreamerConfig{URL: url, OnState: func(st source.State) { v.StateChanged("push", st) }})
	if err := v.Use(context.Background(), s); err != nil {
		t.Fatalf("use: %v", err)
	}
	defer v.Stop()
	waitFor(t, func() bool { _, ok := surface.Snapshot(); return ok })

	tree, _ := surface.Snapshot()
	if len(tree.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(tree.Bars))
	}
	if tree.Bars[0].Width != "12.5%" || tree.Bars[1].Width != "87%" {
		t.Fatalf("unexpected widths %q %q", tree.Bars[0].Width, tree.Bars[1].Width)
	}
	if tree.Bars[0].Label != "12.50% usage" || tree.Bars[1].Label != "87.00% usage" {
		t.Fatalf("unexpected labels %q %q", tree.Bars[0].Label, tree.Bars[1].Label)
	}
	if strategy, st := surface.State(); strategy != "push" || st != source.Open {
		t.Fatalf("expected push/open, got %s/%v", strategy, st)
	}
}

type fakeSource struct {
	mu       sync.Mutex
	started  int
	stopped  int
	onSample source.SampleFunc
	fail     error
}

func (f *fakeSource) Start(_ context.Context, onSample source.SampleFunc, _ source.ErrorFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.started++
	f.onSample = onSample
	return nil
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeSource) State() source.State { return source.Open }
func (f *fakeSource) Strategy() string    { return "fake" }

func TestUseSwitchesSources(t *testing.T) {
	v := New(NewSurface())
	a, b := &fakeSource{}, &fakeSource{}
	if err := v.Use(context.Background(), a); err != nil {
		t.Fatalf("use a: %v", err)
	}
	if err := v.Use(context.Background(), b); err != nil {
		t.Fatalf("use b: %v", err)
	}
	if a.started != 1 || a.stopped != 1 {
		t.Fatalf("expected first source started and stopped once, got %d/%d", a.started, a.stopped)
	}
	if v.Active() != b {
		t.Fatalf("expected second source active")
	}
	v.Stop()
	if b.stopped != 1 || v.Active() != nil {
		t.Fatalf("expected second source stopped")
	}
	v.Stop()
}

func TestUseStartFailure(t *testing.T) {
	v := New(NewSurface())
	if err := v.Use(context.Background(), &fakeSource{fail: source.ErrAlreadyStarted}); !errors.Is(err, source.ErrAlreadyStarted) {
		t.Fatalf("expected start error, got %v", err)
	}
	if v.Active() != nil {
		t.Fatalf("failed source must not become active")
	}
}
