package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"jude-e/backend/internal/observability"
	"jude-e/backend/internal/stream"
)

const relayBufferSize = 4096

// relay copies body to w, flushing after every read so each upstream chunk
// reaches the client as soon as it arrives. It returns the bytes written and
// the error that stopped the copy, if any.
func relay(w http.ResponseWriter, body io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, relayBufferSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// frameWatcher decodes the relayed NDJSON on the side. It counts malformed
// lines and remembers the first in-band error frame; the relayed bytes are
// never altered.
type frameWatcher struct {
	reassembler *stream.Reassembler
}

func newFrameWatcher(turnID string, metrics *observability.Metrics) *frameWatcher {
	return &frameWatcher{
		reassembler: stream.NewReassembler(stream.WithMalformedHook(func(line []byte, err error) {
			metrics.MalformedFrame()
			slog.Debug("Relayed a malformed stream line", "turn_id", turnID, "bytes", len(line), "error", err)
		})),
	}
}

func (f *frameWatcher) Write(p []byte) (int, error) {
	f.reassembler.Feed(p)
	return len(p), nil
}

// Close flushes the buffered tail and returns the in-band error, if any.
func (f *frameWatcher) Close() error {
	f.reassembler.Close()
	return f.reassembler.Err()
}
