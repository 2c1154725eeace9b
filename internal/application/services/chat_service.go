package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/providers"
	"github.com/aroundme/aroundme/internal/domain/repositories"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
	"github.com/aroundme/aroundme/pkg/pii"
)

const historyWindow = 10

// ChatClientMeta is the grounding context a client sends with each chat
// message. Every field is optional.
type ChatClientMeta struct {
	ResultExplanation *entities.ExplainPayload `json:"resultExplanation,omitempty"`
	ResultSetSummary  string                   `json:"resultSetSummary,omitempty"`
	Filters           map[string]string        `json:"filters,omitempty"`
}

// ChatStreamRequest is one inbound chat turn.
type ChatStreamRequest struct {
	ConversationID string         `json:"conversationId,omitempty"`
	Message        string         `json:"message"`
	ClientMeta     ChatClientMeta `json:"clientMeta"`
}

// ChatStreamEvents receives the lifecycle callbacks of one streamed
// reply, in order: OnStart once, OnDelta per token, then OnDone or
// OnError.
type ChatStreamEvents struct {
	OnStart func(conversationID, userMsgID string)
	OnDelta func(token string)
	OnDone  func(assistantMsgID string)
	OnError func(message string)
}

// ChatService runs the grounded chat pipeline: it persists the scrubbed
// user turn, streams a model reply constrained to the supplied context,
// and persists the assistant turn on completion.
type ChatService struct {
	streamer providers.ChatStreamer
	convos   repositories.ConversationRepository
	logger   zerolog.Logger
}

// NewChatService wires the chat pipeline. The repository may be nil, in
// which case turns are not persisted but streaming still works.
func NewChatService(streamer providers.ChatStreamer, convos repositories.ConversationRepository, logger zerolog.Logger) *ChatService {
	return &ChatService{
		streamer: streamer,
		convos:   convos,
		logger:   logger.With().Str("component", "chat_service").Logger(),
	}
}

// Stream handles one chat turn. Transport errors inside the stream are
// reported through events.OnError; only request validation fails hard.
func (s *ChatService) Stream(ctx context.Context, req ChatStreamRequest, events ChatStreamEvents) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return apperrors.NewValidationError("message is required")
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
		s.createConversation(ctx, conversationID, message)
	}

	userMsg := &entities.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           entities.RoleUser,
		Text:           pii.ScrubText(message),
		CreatedAt:      time.Now().UTC(),
	}
	if meta, err := json.Marshal(req.ClientMeta); err == nil && string(meta) != "{}" {
		userMsg.ContentJSON = meta
	}
	s.persist(ctx, userMsg)

	if events.OnStart != nil {
		events.OnStart(conversationID, userMsg.ID)
	}

	system := buildSystemPrompt(req.ClientMeta)
	history := s.recentHistory(ctx, conversationID, message)

	reply, err := s.streamer.StreamReply(ctx, system, history, func(token string) {
		if events.OnDelta != nil {
			events.OnDelta(token)
		}
	})
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversationID).Msg("chat stream failed")
		if events.OnError != nil {
			events.OnError("The assistant is unavailable right now. Please try again.")
		}
		return nil
	}

	assistantMsg := &entities.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		ParentID:       &userMsg.ID,
		Role:           entities.RoleAssistant,
		Text:           reply,
		CreatedAt:      time.Now().UTC(),
	}
	s.persist(ctx, assistantMsg)

	if events.OnDone != nil {
		events.OnDone(assistantMsg.ID)
	}
	return nil
}

// History returns up to limit messages newest first, with an optional
// creation-time cursor for paging further back.
func (s *ChatService) History(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*entities.Message, error) {
	if s.convos == nil {
		return nil, apperrors.NewInternalError("conversation store unavailable", nil)
	}
	if limit <= 0 || limit > 30 {
		limit = 30
	}
	return s.convos.ListMessages(ctx, conversationID, limit, before)
}

func (s *ChatService) createConversation(ctx context.Context, id, firstMessage string) {
	if s.convos == nil {
		return
	}
	title := firstMessage
	if runes := []rune(title); len(runes) > 60 {
		title = string(runes[:60])
	}
	now := time.Now().UTC()
	conv := &entities.Conversation{ID: id, Title: title, CreatedAt: now, UpdatedAt: now}
	if err := s.convos.CreateConversation(ctx, conv); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Msg("failed to create conversation")
	}
}

func (s *ChatService) persist(ctx context.Context, msg *entities.Message) {
	if s.convos == nil {
		return
	}
	if err := s.convos.AddMessage(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("failed to persist chat message")
	}
}

// recentHistory loads the last few persisted turns oldest first and
// appends the current user message.
func (s *ChatService) recentHistory(ctx context.Context, conversationID, message string) []entities.TranscriptEntry {
	var history []entities.TranscriptEntry

	if s.convos != nil {
		msgs, err := s.convos.ListMessages(ctx, conversationID, historyWindow, nil)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to load chat history")
		} else {
			for i := len(msgs) - 1; i >= 0; i-- {
				history = append(history, entities.TranscriptEntry{Role: msgs[i].Role, Text: msgs[i].Text})
			}
		}
	}

	// The current turn was already persisted; make sure it terminates the
	// prompt exactly once.
	if len(history) == 0 || history[len(history)-1].Text != pii.ScrubText(message) {
		history = append(history, entities.TranscriptEntry{Role: entities.RoleUser, Text: message})
	}
	return history
}

// buildSystemPrompt grounds the model in the client's current result
// context and forbids answers that stray outside it.
func buildSystemPrompt(meta ChatClientMeta) string {
	var b strings.Builder
	b.WriteString("You are a local-search assistant. Answer only from the context below. ")
	b.WriteString("If the context does not contain the answer, say you do not know. ")
	b.WriteString("Never invent ratings, prices, or distances.\n")

	if meta.ResultExplanation != nil {
		if data, err := json.Marshal(meta.ResultExplanation); err == nil {
			fmt.Fprintf(&b, "\nFocused place:\n%s\n", data)
		}
	}
	if meta.ResultSetSummary != "" {
		fmt.Fprintf(&b, "\nCurrent results:\n%s\n", meta.ResultSetSummary)
	}
	if len(meta.Filters) > 0 {
		b.WriteString("\nActive filters:\n")
		for k, v := range meta.Filters {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	return b.String()
}
