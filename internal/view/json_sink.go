package view

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONSink writes each tree as one JSON object per line.
type JSONSink struct {
	out io.Writer
}

// NewJSONSink creates a JSONSink writing to w, or os.Stdout when w is nil.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{out: w}
}

// Render implements Sink.
func (s *JSONSink) Render(t Tree) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

// DumpSink prints the raw sample as indented JSON, one document per render.
type DumpSink struct {
	out io.Writer
}

// NewDumpSink creates a DumpSink writing to w, or os.Stdout when w is nil.
func NewDumpSink(w io.Writer) *DumpSink {
	if w == nil {
		w = os.Stdout
	}
	return &DumpSink{out: w}
}

// Render implements Sink.
func (s *DumpSink) Render(t Tree) error {
	data, err := json.MarshalIndent(t.Values(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}
