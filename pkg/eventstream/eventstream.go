// Package eventstream implements the blank-line-delimited event-stream
// framing used by the chat endpoints: each frame carries an optional
// "event:" name (default "message") and one or more "data:" lines whose
// values are joined with newlines.
package eventstream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEvent is the event name assumed when a frame has no event line.
const DefaultEvent = "message"

// Frame is one decoded unit of an event stream.
type Frame struct {
	Event string
	Data  string
}

// Decoder reads frames from a stream incrementally. Partial frames are
// buffered until their terminating blank line (or EOF) arrives, so frames
// are always yielded in arrival order.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a decoder over an open stream body.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next complete frame. It returns io.EOF when the stream
// ends cleanly; any other error reflects the underlying transport.
func (d *Decoder) Next() (*Frame, error) {
	var (
		event     string
		dataLines []string
		sawField  bool
	)

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			if err == io.EOF && sawField {
				// Stream ended mid-frame; deliver what we have.
				return buildFrame(event, dataLines), nil
			}
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !sawField {
				continue
			}
			return buildFrame(event, dataLines), nil
		}

		// Comment lines start with a colon and carry no payload.
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			event = value
			sawField = true
		case "data":
			dataLines = append(dataLines, value)
			sawField = true
		default:
			// Unknown fields (id, retry, ...) are tolerated and skipped.
		}
	}
}

func buildFrame(event string, dataLines []string) *Frame {
	if event == "" {
		event = DefaultEvent
	}
	return &Frame{
		Event: event,
		Data:  strings.Join(dataLines, "\n"),
	}
}

func splitField(line string) (string, string) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return name, strings.TrimPrefix(value, " ")
}

// Writer emits frames over an HTTP response, flushing after each one so
// clients observe tokens as they are produced.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares a response for streaming and returns a frame writer.
// It fails when the underlying connection cannot be flushed incrementally.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w, flusher: flusher}, nil
}

// WriteEvent marshals data as JSON and writes it as a single frame.
func (w *Writer) WriteEvent(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}
