package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/aroundme/aroundme/internal/domain/entities"
	"github.com/aroundme/aroundme/internal/domain/repositories"
	"github.com/aroundme/aroundme/internal/infrastructure/clients/postgres"
	apperrors "github.com/aroundme/aroundme/pkg/errors"
)

// ConversationAdapter implements conversation persistence in Postgres.
type ConversationAdapter struct {
	sqlDB *sql.DB
	db    *goqu.Database
}

// NewConversationAdapter creates a new conversation adapter.
func NewConversationAdapter(client *postgres.Client) repositories.ConversationRepository {
	return NewConversationAdapterWithDB(client.DB())
}

// NewConversationAdapterWithDB creates an adapter over an existing
// connection, used by tests.
func NewConversationAdapterWithDB(db *sql.DB) *ConversationAdapter {
	return &ConversationAdapter{
		sqlDB: db,
		db:    goqu.New("postgres", db),
	}
}

func (a *ConversationAdapter) exec(ctx context.Context, query string, args []interface{}) (sql.Result, error) {
	return a.sqlDB.ExecContext(ctx, query, args...)
}

func (a *ConversationAdapter) queryRows(ctx context.Context, query string, args []interface{}) (*sql.Rows, error) {
	return a.sqlDB.QueryContext(ctx, query, args...)
}

// CreateConversation inserts a conversation row.
func (a *ConversationAdapter) CreateConversation(ctx context.Context, conv *entities.Conversation) error {
	if conv == nil {
		return apperrors.NewInternalError("conversation is nil", nil)
	}

	record := goqu.Record{
		"id":         conv.ID,
		"title":      sql.NullString{String: conv.Title, Valid: conv.Title != ""},
		"created_at": conv.CreatedAt,
		"updated_at": conv.UpdatedAt,
	}

	query, args, err := a.db.Insert("conversations").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build conversation insert query", err)
	}

	if _, err := a.exec(ctx, query, args); err != nil {
		return apperrors.NewInternalError("failed to create conversation", err)
	}
	return nil
}

// GetConversation fetches a conversation by id.
func (a *ConversationAdapter) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	query, args, err := a.db.From("conversations").
		Select("id", "title", "created_at", "updated_at").
		Where(goqu.C("id").Eq(id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build conversation select query", err)
	}

	rows, err := a.queryRows(ctx, query, args)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query conversation", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, apperrors.NewNotFoundError("conversation not found")
	}

	var conv entities.Conversation
	var title sql.NullString
	if err := rows.Scan(&conv.ID, &title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, apperrors.NewInternalError("failed to scan conversation", err)
	}
	conv.Title = title.String
	return &conv, nil
}

// AddMessage appends a message to its conversation.
func (a *ConversationAdapter) AddMessage(ctx context.Context, msg *entities.Message) error {
	if msg == nil {
		return apperrors.NewInternalError("message is nil", nil)
	}

	var parentID sql.NullString
	if msg.ParentID != nil {
		parentID = sql.NullString{String: *msg.ParentID, Valid: true}
	}
	var contentJSON sql.NullString
	if len(msg.ContentJSON) > 0 {
		contentJSON = sql.NullString{String: string(msg.ContentJSON), Valid: true}
	}

	record := goqu.Record{
		"id":              msg.ID,
		"conversation_id": msg.ConversationID,
		"parent_id":       parentID,
		"role":            string(msg.Role),
		"text":            msg.Text,
		"content_json":    contentJSON,
		"created_at":      msg.CreatedAt,
	}

	query, args, err := a.db.Insert("messages").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build message insert query", err)
	}

	if _, err := a.exec(ctx, query, args); err != nil {
		return apperrors.NewInternalError("failed to add message", err)
	}
	return nil
}

// ListMessages returns messages newest first, optionally created before
// the cursor.
func (a *ConversationAdapter) ListMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]*entities.Message, error) {
	if limit <= 0 {
		limit = 30
	}

	q := a.db.From("messages").
		Select("id", "conversation_id", "parent_id", "role", "text", "content_json", "created_at").
		Where(goqu.C("conversation_id").Eq(conversationID))
	if before != nil {
		q = q.Where(goqu.C("created_at").Lt(*before))
	}
	q = q.Order(goqu.C("created_at").Desc()).Limit(uint(limit))

	query, args, err := q.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build message list query", err)
	}

	rows, err := a.queryRows(ctx, query, args)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query messages", err)
	}
	defer rows.Close()

	var messages []*entities.Message
	for rows.Next() {
		var msg entities.Message
		var parentID, contentJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &parentID, &msg.Role, &msg.Text, &contentJSON, &msg.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan message", err)
		}
		if parentID.Valid {
			msg.ParentID = &parentID.String
		}
		if contentJSON.Valid {
			msg.ContentJSON = []byte(contentJSON.String)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read messages", err)
	}

	return messages, nil
}
