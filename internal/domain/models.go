// Package domain defines the public result shapes returned by the messaging
// data layer (users, conversations, messages and the paginated envelope).
// These shapes are decoupled from storage column names; the physical row
// models for each denormalized view live in rows.go.
package domain

import "time"

// User is a messaging participant. Only LastLogin changes after creation.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

// Conversation is the canonical record for an unordered pair of users.
//
// Fields:
//   - ID: integer identifier assigned by the resolver's sequence.
//   - User1ID / User2ID: the pair as first stored (order carries no meaning).
//   - CreatedAt: creation time.
//   - LastMessageAt / LastMessageContent: denormalized cache of the newest
//     message; content is nil until the first message lands.
type Conversation struct {
	ID                 int64     `json:"id"`
	User1ID            string    `json:"user1_id"`
	User2ID            string    `json:"user2_id"`
	CreatedAt          time.Time `json:"created_at"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessageContent *string   `json:"last_message_content"`
}

// Has reports whether userID is one of the conversation's participants.
func (c *Conversation) Has(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// ConversationSummary is one user's view of a conversation, shaped from the
// conversations-by-user mirror.
type ConversationSummary struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	OtherUserID        string    `json:"other_user_id"`
	LastMessageAt      time.Time `json:"last_message_at"`
	LastMessageContent *string   `json:"last_message_content"`
}

// Conversation shapes the summary as a conversation owned by UserID. The
// creation time is not mirrored and stays zero.
func (s ConversationSummary) Conversation() Conversation {
	return Conversation{
		ID:                 s.ID,
		User1ID:            s.UserID,
		User2ID:            s.OtherUserID,
		LastMessageAt:      s.LastMessageAt,
		LastMessageContent: s.LastMessageContent,
	}
}

// Message is a single immutable direct message. ReadAt is always nil on the
// write path; no delivery or read acknowledgement is tracked.
type Message struct {
	ID             string     `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	ReceiverID     string     `json:"receiver_id"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
	ReadAt         *time.Time `json:"read_at"`
}

// Page is the paginated envelope returned by every list operation.
// Data is never nil so it always encodes as a JSON array.
type Page[T any] struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Data  []T   `json:"data"`
}
