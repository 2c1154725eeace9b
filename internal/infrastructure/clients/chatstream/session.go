package chatstream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// State is where a session's current stream is in its lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Session owns one chat surface: its transcript, its grounding context,
// and at most one in-flight stream. Sending while a stream is open
// cancels the old one first; text the old stream already produced stays
// in the transcript, but nothing further from it is appended.
type Session struct {
	client *Client
	logger zerolog.Logger

	mu             sync.Mutex
	state          State
	cancel         context.CancelFunc
	generation     int
	transcript     []entities.TranscriptEntry
	conversationID string
	grounding      ClientMeta
}

// NewSession creates an idle session over the given client.
func NewSession(client *Client, logger zerolog.Logger) *Session {
	return &Session{
		client: client,
		logger: logger.With().Str("component", "chat_session").Logger(),
		state:  StateIdle,
	}
}

// SetGrounding replaces the context sent with subsequent messages.
func (s *Session) SetGrounding(meta ClientMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grounding = meta
}

// Send submits one user message and blocks until its stream finishes,
// is cancelled, or fails. It cancels any stream already in flight.
func (s *Session) Send(ctx context.Context, message string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.generation++
	gen := s.generation
	s.state = StateSending

	s.transcript = append(s.transcript,
		entities.TranscriptEntry{Role: entities.RoleUser, Text: message},
		entities.TranscriptEntry{Role: entities.RoleAssistant},
	)
	req := Request{
		ConversationID: s.conversationID,
		Message:        message,
		ClientMeta:     s.grounding,
	}
	s.mu.Unlock()

	err := s.client.Stream(streamCtx, req, Handler{
		OnStart: func(payload string) { s.onStart(gen, payload) },
		OnDelta: func(token string) { s.appendText(gen, token) },
		OnError: func(message string) { s.appendText(gen, " [error: "+message+"]") },
		OnDone:  func(string) {},
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// A newer Send took over; this stream's outcome no longer matters.
		return nil
	}
	if err != nil {
		if streamCtx.Err() != nil {
			s.state = StateCancelled
			return nil
		}
		s.state = StateFailed
		s.appendTextLocked(" [error: connection lost]")
		s.logger.Warn().Err(err).Msg("chat stream failed")
		return err
	}
	s.state = StateCompleted
	s.cancel = nil
	return nil
}

// Cancel aborts the in-flight stream, if any. Text already received
// stays in the transcript.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.state = StateCancelled
	}
}

// State reports the current stream lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []entities.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ConversationID returns the server-assigned conversation id, once known.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) onStart(gen int, payload string) {
	var data struct {
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil || data.ConversationID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.conversationID = data.ConversationID
	s.state = StateStreaming
}

// appendText adds incremental text to the open assistant message unless
// the stream that produced it has been superseded.
func (s *Session) appendText(gen int, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if s.state == StateSending {
		s.state = StateStreaming
	}
	s.appendTextLocked(text)
}

func (s *Session) appendTextLocked(text string) {
	if len(s.transcript) == 0 {
		return
	}
	last := &s.transcript[len(s.transcript)-1]
	if last.Role != entities.RoleAssistant {
		return
	}
	last.Text += text
}
