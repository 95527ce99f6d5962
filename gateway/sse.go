package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var errStreamingUnsupported = errors.New("gateway: response writer cannot stream")

// lineBreaks folds every SSE line terminator to "\n".
var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// sseWriter writes text/event-stream events and implements report.Sink.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	return &sseWriter{w: w, flusher: f}, nil
}

func (s *sseWriter) start() {
	if s.started {
		return
	}
	s.started = true
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// event writes one event. Each line of data becomes its own data field so
// newlines survive the SSE framing.
func (s *sseWriter) event(name, data string) error {
	s.start()
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", name)
	for _, line := range strings.Split(lineBreaks.Replace(data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Chunk relays a fragment of the document.
func (s *sseWriter) Chunk(text string) error { return s.event("chunk", text) }

// Reset tells the client to discard fragments relayed so far.
func (s *sseWriter) Reset() error { return s.event("reset", "") }
