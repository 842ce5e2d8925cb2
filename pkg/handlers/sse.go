package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSEDone is the sentinel record terminating an event stream; no further
// events follow it.
const SSEDone = "[DONE]"

// SSEWriter streams server-sent events over an HTTP response. Each event is
// flushed immediately so callers observe progress as it happens.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares the response for an event stream. It returns an
// error if the underlying writer does not support flushing.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one event as a JSON data record.
func (s *SSEWriter) Send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return s.write(string(payload))
}

// Done writes the stream-terminating sentinel.
func (s *SSEWriter) Done() error {
	return s.write(SSEDone)
}

func (s *SSEWriter) write(data string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
