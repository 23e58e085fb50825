package view

import (
	"sync"

	"cpuload-view/internal/source"
)

// Surface keeps the latest tree in memory. The status server reads from it and
// tests use it as the display root.
type Surface struct {
	mu       sync.RWMutex
	tree     Tree
	rendered bool
	strategy string
	state    source.State
	lastErr  error
}

// NewSurface returns an empty surface showing nothing.
func NewSurface() *Surface {
	return &Surface{state: source.Closed}
}

// Render implements Sink.
func (s *Surface) Render(t Tree) error {
	bars := make([]Bar, len(t.Bars))
	copy(bars, t.Bars)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = Tree{Title: t.Title, Bars: bars}
	s.rendered = true
	return nil
}

// SetState implements StateSink.
func (s *Surface) SetState(strategy string, st source.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy = strategy
	s.state = st
}

// SetError implements ErrorSink.
func (s *Surface) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// Snapshot returns a copy of the displayed tree; ok is false before the first render.
func (s *Surface) Snapshot() (t Tree, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars := make([]Bar, len(s.tree.Bars))
	copy(bars, s.tree.Bars)
	return Tree{Title: s.tree.Title, Bars: bars}, s.rendered
}

// State returns the last reported source strategy and state.
func (s *Surface) State() (string, source.State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.strategy, s.state
}

// LastError returns the most recent failure, if any.
func (s *Surface) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
