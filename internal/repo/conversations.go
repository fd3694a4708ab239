package repo

import (
	"context"
	"sort"
	"time"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// GetConversation reads the canonical conversation row.
func GetConversation(ctx context.Context, ex Executor, id int64) (*domain.Conversation, error) {
	rows, err := ex.Query(ctx, stmtSelectConversation, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	c := ConversationFromRow(rows[0])
	return &c, nil
}

// InsertConversation writes a new canonical row without content unless the
// id already exists, and reports whether it did.
func InsertConversation(ctx context.Context, ex Executor, c *domain.Conversation) (bool, error) {
	return ex.Apply(ctx, stmtInsertConversation, c.ID, c.User1ID, c.User2ID, c.CreatedAt, c.LastMessageAt)
}

// UpdateConversationSummary sets the denormalized newest-message fields.
func UpdateConversationSummary(ctx context.Context, ex Executor, id int64, at time.Time, content string) error {
	return ex.Exec(ctx, stmtUpdateSummary, at, content, id)
}

// FindConversationsByUsers scans conversations stored with exactly
// (user1, user2) in that order, lowest id first.
func FindConversationsByUsers(ctx context.Context, ex Executor, user1, user2 string) ([]domain.Conversation, error) {
	rows, err := ex.Query(ctx, stmtFindConversationByUsers, user1, user2)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(rows))
	for _, r := range rows {
		out = append(out, ConversationFromRow(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountConversations counts the canonical table. Full scan on Cassandra.
func CountConversations(ctx context.Context, ex Executor) (int64, error) {
	return count(ctx, ex, stmtCountConversations)
}

// InsertConversationMirror writes s into conversations_by_user.
func InsertConversationMirror(ctx context.Context, ex Executor, s domain.ConversationSummary) error {
	return ex.Exec(ctx, stmtInsertMirror, s.UserID, s.ID, s.OtherUserID, s.LastMessageAt, s.LastMessageContent)
}

// DeleteConversationMirror removes userID's mirror row keyed by the given
// last_message_at. Deleting an absent row is not an error.
func DeleteConversationMirror(ctx context.Context, ex Executor, userID string, lastMessageAt time.Time, conversationID int64) error {
	return ex.Exec(ctx, stmtDeleteMirror, userID, lastMessageAt, conversationID)
}

// ConversationMirrorKeys returns the last_message_at of every mirror row
// userID holds for conversationID. More than one row means an earlier
// refresh stopped between its delete and insert.
func ConversationMirrorKeys(ctx context.Context, ex Executor, userID string, conversationID int64) ([]time.Time, error) {
	rows, err := ex.Query(ctx, stmtSelectMirrorKeys, userID, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Time("last_message_at"))
	}
	return out, nil
}

// UserConversationsQuery pages userID's conversations, most recent first.
func UserConversationsQuery(userID string) PageQuery {
	return PageQuery{
		Count: stmtCountUserConversations,
		Data:  stmtSelectUserConversations,
		Args:  []any{userID},
	}
}

// ConversationFromRow shapes a canonical conversations row.
func ConversationFromRow(r store.Row) domain.Conversation {
	return domain.Conversation{
		ID:                 r.Int64("conversation_id"),
		User1ID:            r.String("user1_id"),
		User2ID:            r.String("user2_id"),
		CreatedAt:          r.Time("created_at"),
		LastMessageAt:      r.Time("last_message_at"),
		LastMessageContent: r.StringPtr("last_message_content"),
	}
}

// SummaryFromRow shapes a conversations_by_user row.
func SummaryFromRow(r store.Row) domain.ConversationSummary {
	return domain.ConversationSummary{
		ID:                 r.Int64("conversation_id"),
		UserID:             r.String("user_id"),
		OtherUserID:        r.String("other_user_id"),
		LastMessageAt:      r.Time("last_message_at"),
		LastMessageContent: r.StringPtr("last_message_content"),
	}
}
