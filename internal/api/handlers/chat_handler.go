package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/application/services"
	"github.com/aroundme/aroundme/pkg/eventstream"
)

// ChatHandler streams grounded chat replies over Server-Sent Events and
// serves conversation history.
type ChatHandler struct {
	chat     *services.ChatService
	sessions *services.SessionStore
	logger   zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat *services.ChatService, sessions *services.SessionStore, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		sessions: sessions,
		logger:   logger.With().Str("component", "chat_handler").Logger(),
	}
}

type chatStreamBody struct {
	services.ChatStreamRequest
	SessionID string `json:"sessionId,omitempty"`
}

// StreamChat handles POST /api/chat/stream
//
// The response is an event stream: one start event, zero or more delta
// events, then either done or error. An error event ends the reply but
// not the conversation.
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	var body chatStreamBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Message == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	// When the client sends no grounding context, fall back to the
	// session's last explained place so follow-up questions still have
	// something concrete to answer from.
	if body.ClientMeta.ResultExplanation == nil {
		session := h.sessions.Get(sessionID(r, body.SessionID))
		body.ClientMeta.ResultExplanation = session.LastExplain()
	}

	sw, err := eventstream.NewWriter(w)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events := services.ChatStreamEvents{
		OnStart: func(conversationID, userMsgID string) {
			sw.WriteEvent("start", map[string]string{
				"conversationId": conversationID,
				"userMsgId":      userMsgID,
			})
		},
		OnDelta: func(token string) {
			sw.WriteEvent("delta", map[string]string{"delta": token})
		},
		OnDone: func(assistantMsgID string) {
			sw.WriteEvent("done", map[string]string{"assistantMsgId": assistantMsgID})
		},
		OnError: func(message string) {
			sw.WriteEvent("error", map[string]string{"message": message})
		},
	}

	if err := h.chat.Stream(r.Context(), body.ChatStreamRequest, events); err != nil {
		// Validation failures happen before any event is written, so a
		// plain JSON error response is still possible here.
		h.logger.Warn().Err(err).Msg("chat stream rejected")
		respondAppError(w, err)
	}
}

// GetHistory handles GET /api/chat/history/{id}?limit=30&before=<unix ms>
//
// Messages come back newest first. When a full page is returned the
// response carries a nextCursor for the page before it.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")
	if conversationID == "" {
		respondWithError(w, http.StatusBadRequest, "conversation ID is required")
		return
	}

	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "before must be a unix millisecond timestamp")
			return
		}
		t := time.UnixMilli(ms)
		before = &t
	}

	messages, err := h.chat.History(r.Context(), conversationID, limit, before)
	if err != nil {
		respondAppError(w, err)
		return
	}

	payload := map[string]interface{}{
		"messages": messages,
	}
	if len(messages) == limit || (limit > 30 && len(messages) == 30) {
		oldest := messages[len(messages)-1]
		payload["nextCursor"] = oldest.CreatedAt.UnixMilli()
	}

	respondWithJSON(w, http.StatusOK, payload)
}
