package view

import "cpuload-view/internal/source"

// MultiSink fans a tree out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a MultiSink. Nil sinks are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	ms := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			ms.sinks = append(ms.sinks, s)
		}
	}
	return ms
}

// Render sends the tree to every sink, stopping at the first error.
func (ms *MultiSink) Render(t Tree) error {
	for _, s := range ms.sinks {
		if err := s.Render(t); err != nil {
			return err
		}
	}
	return nil
}

// SetState forwards to every sink that displays state.
func (ms *MultiSink) SetState(strategy string, st source.State) {
	for _, s := range ms.sinks {
		if ss, ok := s.(StateSink); ok {
			ss.SetState(strategy, st)
		}
	}
}

// SetError forwards to every sink that displays errors.
func (ms *MultiSink) SetError(err error) {
	for _, s := range ms.sinks {
		if es, ok := s.(ErrorSink); ok {
			es.SetError(err)
		}
	}
}
