// Package stream turns a chunked NDJSON generation body back into text deltas.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	app_errors "jude-e/backend/internal/errors"
)

// State is the reassembler's position in the stream.
type State int

const (
	// AwaitingData means no partial line is buffered.
	AwaitingData State = iota
	// HavePartialLine means bytes after the last newline are buffered.
	HavePartialLine
	// Done means Close was called; further input is ignored.
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingData:
		return "awaiting_data"
	case HavePartialLine:
		return "have_partial_line"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is the subset of an Ollama /api/generate line the reassembler reads.
type Frame struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	// Error is set when the backend fails after the stream has started.
	Error string `json:"error,omitempty"`
}

// MalformedFunc is told about every non-blank line that could not be decoded.
type MalformedFunc func(line []byte, err error)

// Reassembler splits incoming chunks on '\n' at the byte level and decodes
// complete lines only, so a UTF-8 sequence cut between two chunks is rejoined
// before it is decoded. Not safe for concurrent use.
type Reassembler struct {
	buf         []byte
	state       State
	dropped     int
	onMalformed MalformedFunc
	upstreamErr error
}

type Option func(*Reassembler)

// WithMalformedHook installs fn to observe dropped lines.
func WithMalformedHook(fn MalformedFunc) Option {
	return func(r *Reassembler) { r.onMalformed = fn }
}

func NewReassembler(opts ...Option) *Reassembler {
	r := &Reassembler{state: AwaitingData}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Reassembler) State() State { return r.state }

// Dropped returns how many malformed lines have been skipped.
func (r *Reassembler) Dropped() int { return r.dropped }

// Err returns the first in-band error frame seen, wrapped as
// ErrGenerationFailed, or nil.
func (r *Reassembler) Err() error { return r.upstreamErr }

// Feed consumes one chunk and returns the deltas of every line it completed,
// in order. After Close it returns nil.
func (r *Reassembler) Feed(chunk []byte) []string {
	if r.state == Done {
		return nil
	}
	r.buf = append(r.buf, chunk...)

	var deltas []string
	start := 0
	for {
		idx := bytes.IndexByte(r.buf[start:], '\n')
		if idx < 0 {
			break
		}
		if delta, ok := r.decodeLine(r.buf[start : start+idx]); ok {
			deltas = append(deltas, delta)
		}
		start += idx + 1
	}
	r.buf = append(r.buf[:0], r.buf[start:]...)

	if len(r.buf) > 0 {
		r.state = HavePartialLine
	} else {
		r.state = AwaitingData
	}
	return deltas
}

// Close decodes whatever tail is still buffered and moves to Done.
func (r *Reassembler) Close() []string {
	if r.state == Done {
		return nil
	}
	var deltas []string
	if delta, ok := r.decodeLine(r.buf); ok {
		deltas = append(deltas, delta)
	}
	r.buf = nil
	r.state = Done
	return deltas
}

func (r *Reassembler) decodeLine(line []byte) (string, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", false
	}
	var frame Frame
	if err := json.Unmarshal(line, &frame); err != nil {
		r.dropped++
		if r.onMalformed != nil {
			r.onMalformed(line, fmt.Errorf("%w: %v", app_errors.ErrMalformedFrame, err))
		}
		return "", false
	}
	if frame.Error != "" {
		if r.upstreamErr == nil {
			r.upstreamErr = fmt.Errorf("%w: %s", app_errors.ErrGenerationFailed, frame.Error)
		}
		return "", false
	}
	if frame.Response == "" {
		return "", false
	}
	return frame.Response, true
}

const readSize = 4096

// Deltas reads body to the end and yields each text delta as it is decoded.
// The sequence is single-use. It stops early when ctx is done; body should be
// bound to the same ctx so a blocked read is released too. A read error other
// than io.EOF, or an in-band error frame, is yielded once as the final element.
func Deltas(ctx context.Context, body io.Reader, opts ...Option) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		r := NewReassembler(opts...)
		buf := make([]byte, readSize)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			n, err := body.Read(buf)
			if n > 0 {
				for _, delta := range r.Feed(buf[:n]) {
					if !yield(delta, nil) {
						return
					}
				}
				if err := r.Err(); err != nil {
					yield("", err)
					return
				}
			}
			if errors.Is(err, io.EOF) {
				for _, delta := range r.Close() {
					if !yield(delta, nil) {
						return
					}
				}
				if err := r.Err(); err != nil {
					yield("", err)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
