package repo

import (
	"context"
	"time"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// InsertMessage writes the canonical copy of m, keyed by conversation.
func InsertMessage(ctx context.Context, ex Executor, m *domain.Message) error {
	return ex.Exec(ctx, stmtInsertMessage,
		m.ConversationID, m.CreatedAt, m.ID, m.SenderID, m.ReceiverID, m.Content)
}

// InsertMessageMirror writes userID's copy of m into messages_by_user.
func InsertMessageMirror(ctx context.Context, ex Executor, userID string, m *domain.Message) error {
	return ex.Exec(ctx, stmtInsertMessageByUser,
		userID, m.ConversationID, m.CreatedAt, m.ID, m.SenderID, m.ReceiverID, m.Content)
}

// GetMessageMirror reads userID's copy of the message identified by
// (conversationID, createdAt, messageID).
func GetMessageMirror(ctx context.Context, ex Executor, userID string, conversationID int64, createdAt time.Time, messageID string) (*domain.Message, error) {
	rows, err := ex.Query(ctx, stmtSelectMessageCopies, userID, conversationID, createdAt, messageID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	m := MessageFromRow(rows[0])
	return &m, nil
}

// MessageFromRow shapes a messages or messages_by_user row. ReadAt is never
// stored and is always nil.
func MessageFromRow(r store.Row) domain.Message {
	return domain.Message{
		ID:             r.String("message_id"),
		ConversationID: r.Int64("conversation_id"),
		SenderID:       r.String("sender_id"),
		ReceiverID:     r.String("receiver_id"),
		Content:        r.String("content"),
		CreatedAt:      r.Time("timestamp"),
	}
}

// ConversationMessagesQuery pages a conversation's messages, newest first.
func ConversationMessagesQuery(conversationID int64) PageQuery {
	return PageQuery{
		Count: stmtCountConversationMessages,
		Data:  stmtSelectConversationMessages,
		Args:  []any{conversationID},
	}
}

// MessagesBeforeQuery pages a conversation's messages strictly older than
// before, newest first. The CQL rendition needs a filtering scan.
func MessagesBeforeQuery(conversationID int64, before time.Time) PageQuery {
	return PageQuery{
		Count: stmtCountMessagesBefore,
		Data:  stmtSelectMessagesBefore,
		Args:  []any{conversationID, before},
	}
}

// UserMessagesQuery pages the messages_by_user partition of userID.
func UserMessagesQuery(userID string) PageQuery {
	return PageQuery{
		Count: stmtCountUserMessages,
		Data:  stmtSelectUserMessages,
		Args:  []any{userID},
	}
}
