package repositories

import (
	"context"
	"time"

	"github.com/aroundme/aroundme/internal/domain/entities"
)

// ConversationRepository persists chat conversations and their messages.
// The chat pipeline only appends; reads serve the history endpoint.
type ConversationRepository interface {
	// CreateConversation stores a new conversation.
	CreateConversation(ctx context.Context, conv *entities.Conversation) error

	// GetConversation fetches a conversation by id.
	GetConversation(ctx context.Context, id string) (*entities.Conversation, error)

	// AddMessage appends a message to its conversation.
	AddMessage(ctx context.Context, msg *entities.Message) error

	// ListMessages returns up to limit messages newest first, optionally
	// only those created strictly before the given cursor.
	ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*entities.Message, error)
}
