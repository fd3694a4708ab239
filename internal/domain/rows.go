package domain

// The row models below describe the physical views for the embedded SQLite
// dialect and are consumed by schema.MigrateSQLite. Timestamps are stored
// as unix milliseconds so ORDER BY matches the wide-column clustering order.
// The Cassandra tables with the same names and keys are created by CQL in
// package schema.

// UserRow is the users table.
type UserRow struct {
	UserID    string `gorm:"column:user_id;type:TEXT;primaryKey"`
	Username  string `gorm:"column:username;type:TEXT;index"`
	CreatedAt int64  `gorm:"column:created_at;type:INTEGER"`
	LastLogin *int64 `gorm:"column:last_login;type:INTEGER"`
}

// TableName implements the GORM tabler interface.
func (UserRow) TableName() string { return "users" }

// MessageRow is the canonical messages table, partitioned by conversation.
type MessageRow struct {
	ConversationID int64  `gorm:"column:conversation_id;type:INTEGER;primaryKey;autoIncrement:false"`
	Timestamp      int64  `gorm:"column:timestamp;type:INTEGER;primaryKey;autoIncrement:false"`
	MessageID      string `gorm:"column:message_id;type:TEXT;primaryKey"`
	SenderID       string `gorm:"column:sender_id;type:TEXT;not null"`
	ReceiverID     string `gorm:"column:receiver_id;type:TEXT;not null"`
	Content        string `gorm:"column:content;type:TEXT;not null"`
}

// TableName implements the GORM tabler interface.
func (MessageRow) TableName() string { return "messages" }

// MessageByUserRow mirrors a message once per participant.
type MessageByUserRow struct {
	UserID         string `gorm:"column:user_id;type:TEXT;primaryKey"`
	ConversationID int64  `gorm:"column:conversation_id;type:INTEGER;primaryKey;autoIncrement:false"`
	Timestamp      int64  `gorm:"column:timestamp;type:INTEGER;primaryKey;autoIncrement:false"`
	MessageID      string `gorm:"column:message_id;type:TEXT;primaryKey"`
	SenderID       string `gorm:"column:sender_id;type:TEXT;not null"`
	ReceiverID     string `gorm:"column:receiver_id;type:TEXT;not null"`
	Content        string `gorm:"column:content;type:TEXT;not null"`
}

// TableName implements the GORM tabler interface.
func (MessageByUserRow) TableName() string { return "messages_by_user" }

// ConversationRow is the canonical conversations table.
type ConversationRow struct {
	ConversationID     int64   `gorm:"column:conversation_id;type:INTEGER;primaryKey;autoIncrement:false"`
	User1ID            string  `gorm:"column:user1_id;type:TEXT;not null;index:idx_conversation_pair,priority:1"`
	User2ID            string  `gorm:"column:user2_id;type:TEXT;not null;index:idx_conversation_pair,priority:2"`
	CreatedAt          int64   `gorm:"column:created_at;type:INTEGER"`
	LastMessageAt      int64   `gorm:"column:last_message_at;type:INTEGER"`
	LastMessageContent *string `gorm:"column:last_message_content;type:TEXT"`
}

// TableName implements the GORM tabler interface.
func (ConversationRow) TableName() string { return "conversations" }

// ConversationByUserRow is one participant's summary of a conversation.
type ConversationByUserRow struct {
	UserID             string  `gorm:"column:user_id;type:TEXT;primaryKey"`
	LastMessageAt      int64   `gorm:"column:last_message_at;type:INTEGER;primaryKey;autoIncrement:false"`
	ConversationID     int64   `gorm:"column:conversation_id;type:INTEGER;primaryKey;autoIncrement:false"`
	OtherUserID        string  `gorm:"column:other_user_id;type:TEXT;not null"`
	LastMessageContent *string `gorm:"column:last_message_content;type:TEXT"`
}

// TableName implements the GORM tabler interface.
func (ConversationByUserRow) TableName() string { return "conversations_by_user" }

// ConversationByPairRow claims an unordered user pair for one conversation.
type ConversationByPairRow struct {
	PairKey        string `gorm:"column:pair_key;type:TEXT;primaryKey"`
	ConversationID int64  `gorm:"column:conversation_id;type:INTEGER;not null"`
	User1ID        string `gorm:"column:user1_id;type:TEXT;not null"`
	User2ID        string `gorm:"column:user2_id;type:TEXT;not null"`
	CreatedAt      int64  `gorm:"column:created_at;type:INTEGER"`
}

// TableName implements the GORM tabler interface.
func (ConversationByPairRow) TableName() string { return "conversations_by_pair" }

// SequenceRow backs compare-and-set identifier allocation.
type SequenceRow struct {
	Name   string `gorm:"column:name;type:TEXT;primaryKey"`
	NextID int64  `gorm:"column:next_id;type:INTEGER;not null"`
}

// TableName implements the GORM tabler interface.
func (SequenceRow) TableName() string { return "id_sequences" }

// AllRows lists every row model in creation order.
func AllRows() []any {
	return []any{
		&UserRow{},
		&MessageRow{},
		&MessageByUserRow{},
		&ConversationRow{},
		&ConversationByUserRow{},
		&ConversationByPairRow{},
		&SequenceRow{},
	}
}
