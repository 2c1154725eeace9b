// Package chatstream is the client side of the streaming chat endpoint:
// it opens a chat request, decodes the event-stream reply frame by frame,
// and drives a live transcript with last-writer-wins cancellation.
package chatstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/pkg/eventstream"
)

const doneSentinel = "[DONE]"

// contentKeys is the lookup order for incremental text inside a frame
// payload; the first present non-empty value wins.
var contentKeys = []string{"content", "delta", "token", "text", "message"}

// ClientMeta is the grounding context sent with each chat turn.
type ClientMeta struct {
	ResultExplanation *entities.ExplainPayload `json:"resultExplanation,omitempty"`
	ResultSetSummary  string                   `json:"resultSetSummary,omitempty"`
	Filters           map[string]string        `json:"filters,omitempty"`
}

// Request is one outbound chat turn.
type Request struct {
	ConversationID string     `json:"conversationId,omitempty"`
	Message        string     `json:"message"`
	ClientMeta     ClientMeta `json:"clientMeta"`
}

// Handler receives decoded stream events in arrival order. Any callback
// may be nil.
type Handler struct {
	OnStart func(payload string)
	OnDelta func(token string)
	OnError func(message string)
	OnDone  func(payload string)
}

// Client talks to the chat-stream endpoint.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  zerolog.Logger
}

// NewClient creates a chat-stream client for the given API base URL.
func NewClient(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No overall timeout: a stream stays open as long as tokens flow.
		// Cancellation happens through the request context.
		httpc:  &http.Client{Timeout: 0},
		logger: logger.With().Str("component", "chatstream_client").Logger(),
	}
}

// NewClientWithHTTPClient creates a client with a custom transport,
// used by tests.
func NewClientWithHTTPClient(baseURL string, httpc *http.Client, logger zerolog.Logger) *Client {
	c := NewClient(baseURL, logger)
	c.httpc = httpc
	return c
}

// Stream sends one chat turn and dispatches decoded frames to the
// handler until the stream ends. A non-stream response is surfaced
// verbatim through OnDelta; that path is degraded but not an error.
func (c *Client) Stream(ctx context.Context, req Request, h Handler) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	started := time.Now()
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || !isEventStream(resp.Header.Get("Content-Type")) {
		// Degraded path: whatever came back is the assistant message.
		text, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("failed to read chat response: %w", readErr)
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("content_type", resp.Header.Get("Content-Type")).
			Msg("chat endpoint returned a non-stream response")
		if h.OnDelta != nil && len(text) > 0 {
			h.OnDelta(string(text))
		}
		return nil
	}

	decoder := eventstream.NewDecoder(resp.Body)
	frames := 0
	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("chat stream interrupted: %w", err)
		}
		frames++
		c.dispatch(frame, h)
	}

	c.logger.Debug().Int("frames", frames).Dur("elapsed", time.Since(started)).Msg("chat stream completed")
	return nil
}

// dispatch routes one frame. Error frames never terminate parsing, and
// unrecognized event names still contribute text when their payload has
// a content-like field.
func (c *Client) dispatch(frame *eventstream.Frame, h Handler) {
	switch frame.Event {
	case "start":
		if h.OnStart != nil {
			h.OnStart(frame.Data)
		}
	case "done":
		if h.OnDone != nil {
			h.OnDone(frame.Data)
		}
	case "error":
		if h.OnError != nil {
			h.OnError(errorMessage(frame.Data))
		}
	default:
		if token, ok := extractContent(frame.Data); ok && h.OnDelta != nil {
			h.OnDelta(token)
		}
	}
}

// extractContent pulls incremental text out of a frame payload. Payloads
// that fail to parse as JSON are literal tokens, except the end-of-stream
// sentinel which is a no-op.
func extractContent(data string) (string, bool) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		trimmed := strings.TrimSpace(data)
		if trimmed == "" || trimmed == doneSentinel {
			return "", false
		}
		return data, true
	}

	for _, key := range contentKeys {
		if value, ok := payload[key].(string); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

func errorMessage(data string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if data == "" {
		return "stream error"
	}
	return data
}

func isEventStream(contentType string) bool {
	return strings.Contains(contentType, "text/event-stream")
}
