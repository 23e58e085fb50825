// Per-core CPU load samples and their JSON wire form
package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrParse is wrapped by every ParseError.
var ErrParse = errors.New("malformed sample")

// Sample is one reading of per-core CPU load percentages. Index = core number.
// Values are kept as received; nothing is clamped.
type Sample []float64

// ParseError reports a payload that is not a JSON array of numbers.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sample %q: %v", e.Payload, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

const maxQuotedPayload = 64

// Parse decodes a JSON array of numbers. null, non-arrays and arrays holding
// anything other than numbers are rejected.
func Parse(data []byte) (Sample, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, newParseError(data, errors.New("expected a JSON array"))
	}
	var raw []*float64
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, newParseError(data, err)
	}
	s := make(Sample, len(raw))
	for i, v := range raw {
		if v == nil {
			return nil, newParseError(data, fmt.Errorf("element %d is null", i))
		}
		s[i] = *v
	}
	return s, nil
}

func newParseError(data []byte, err error) *ParseError {
	p := string(data)
	if len(p) > maxQuotedPayload {
		cut := maxQuotedPayload
		for cut > 0 && !utf8.RuneStart(p[cut]) {
			cut--
		}
		p = p[:cut] + "..."
	}
	return &ParseError{Payload: p, Err: err}
}
