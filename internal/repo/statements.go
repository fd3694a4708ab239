package repo

import "github.com/tbourn/go-messenger-store/internal/store"

// Statement catalog. CQL renditions rely on each table's clustering order;
// SQL renditions spell the same order out with ORDER BY. CQL inserts are
// upserts of the named columns only, which SQLite expresses with INSERT OR
// REPLACE (all columns named) or ON CONFLICT DO UPDATE. Conditional CQL
// writes map to INSERT OR IGNORE or a guarded UPDATE so Apply reports the
// same outcome on both.

const (
	messageCols      = "conversation_id, timestamp, message_id, sender_id, receiver_id, content"
	conversationCols = "conversation_id, user1_id, user2_id, created_at, last_message_at, last_message_content"
	mirrorCols       = "user_id, conversation_id, other_user_id, last_message_at, last_message_content"
	pairCols         = "pair_key, conversation_id, user1_id, user2_id, created_at"
)

// Messages.
var (
	stmtInsertMessage = store.Statement{
		Name: "insert_message",
		CQL:  "INSERT INTO messages (" + messageCols + ") VALUES (?, ?, ?, ?, ?, ?)",
		SQL:  "INSERT OR REPLACE INTO messages (" + messageCols + ") VALUES (?, ?, ?, ?, ?, ?)",
	}
	stmtInsertMessageByUser = store.Statement{
		Name: "insert_message_by_user",
		CQL:  "INSERT INTO messages_by_user (user_id, " + messageCols + ") VALUES (?, ?, ?, ?, ?, ?, ?)",
		SQL:  "INSERT OR REPLACE INTO messages_by_user (user_id, " + messageCols + ") VALUES (?, ?, ?, ?, ?, ?, ?)",
	}
	stmtCountConversationMessages = store.Statement{
		Name: "count_conversation_messages",
		CQL:  "SELECT COUNT(*) AS total FROM messages WHERE conversation_id = ?",
		SQL:  "SELECT COUNT(*) AS total FROM messages WHERE conversation_id = ?",
	}
	stmtSelectConversationMessages = store.Statement{
		Name: "select_conversation_messages",
		CQL:  "SELECT " + messageCols + " FROM messages WHERE conversation_id = ? LIMIT ?",
		SQL:  "SELECT " + messageCols + " FROM messages WHERE conversation_id = ? ORDER BY timestamp DESC, message_id ASC LIMIT ?",
	}
	stmtCountMessagesBefore = store.Statement{
		Name: "count_messages_before",
		CQL:  "SELECT COUNT(*) AS total FROM messages WHERE conversation_id = ? AND timestamp < ? ALLOW FILTERING",
		SQL:  "SELECT COUNT(*) AS total FROM messages WHERE conversation_id = ? AND timestamp < ?",
	}
	stmtSelectMessagesBefore = store.Statement{
		Name: "select_messages_before",
		CQL:  "SELECT " + messageCols + " FROM messages WHERE conversation_id = ? AND timestamp < ? LIMIT ? ALLOW FILTERING",
		SQL:  "SELECT " + messageCols + " FROM messages WHERE conversation_id = ? AND timestamp < ? ORDER BY timestamp DESC, message_id ASC LIMIT ?",
	}
	stmtCountUserMessages = store.Statement{
		Name: "count_user_messages",
		CQL:  "SELECT COUNT(*) AS total FROM messages_by_user WHERE user_id = ?",
		SQL:  "SELECT COUNT(*) AS total FROM messages_by_user WHERE user_id = ?",
	}
	stmtSelectUserMessages = store.Statement{
		Name: "select_user_messages",
		CQL:  "SELECT " + messageCols + " FROM messages_by_user WHERE user_id = ? LIMIT ?",
		SQL:  "SELECT " + messageCols + " FROM messages_by_user WHERE user_id = ? ORDER BY conversation_id ASC, timestamp DESC, message_id ASC LIMIT ?",
	}
	stmtSelectMessageCopies = store.Statement{
		Name: "select_message_by_user_copy",
		CQL:  "SELECT " + messageCols + " FROM messages_by_user WHERE user_id = ? AND conversation_id = ? AND timestamp = ? AND message_id = ?",
		SQL:  "SELECT " + messageCols + " FROM messages_by_user WHERE user_id = ? AND conversation_id = ? AND timestamp = ? AND message_id = ?",
	}
)

// Conversations.
var (
	stmtSelectConversation = store.Statement{
		Name: "select_conversation",
		CQL:  "SELECT " + conversationCols + " FROM conversations WHERE conversation_id = ?",
		SQL:  "SELECT " + conversationCols + " FROM conversations WHERE conversation_id = ?",
	}
	stmtInsertConversation = store.Statement{
		Name: "insert_conversation",
		CQL:  "INSERT INTO conversations (conversation_id, user1_id, user2_id, created_at, last_message_at) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS",
		SQL:  "INSERT OR IGNORE INTO conversations (conversation_id, user1_id, user2_id, created_at, last_message_at) VALUES (?, ?, ?, ?, ?)",
	}
	stmtUpdateSummary = store.Statement{
		Name: "update_conversation_summary",
		CQL:  "UPDATE conversations SET last_message_at = ?, last_message_content = ? WHERE conversation_id = ?",
		SQL:  "UPDATE conversations SET last_message_at = ?, last_message_content = ? WHERE conversation_id = ?",
	}
	stmtFindConversationByUsers = store.Statement{
		Name: "find_conversation_by_users",
		CQL:  "SELECT " + conversationCols + " FROM conversations WHERE user1_id = ? AND user2_id = ? ALLOW FILTERING",
		SQL:  "SELECT " + conversationCols + " FROM conversations WHERE user1_id = ? AND user2_id = ? ORDER BY conversation_id ASC",
	}
	stmtCountConversations = store.Statement{
		Name: "count_conversations",
		CQL:  "SELECT COUNT(*) AS total FROM conversations",
		SQL:  "SELECT COUNT(*) AS total FROM conversations",
	}
)

// Conversations by user.
var (
	stmtInsertMirror = store.Statement{
		Name: "insert_conversation_by_user",
		CQL:  "INSERT INTO conversations_by_user (" + mirrorCols + ") VALUES (?, ?, ?, ?, ?)",
		SQL:  "INSERT OR REPLACE INTO conversations_by_user (" + mirrorCols + ") VALUES (?, ?, ?, ?, ?)",
	}
	stmtDeleteMirror = store.Statement{
		Name: "delete_conversation_by_user",
		CQL:  "DELETE FROM conversations_by_user WHERE user_id = ? AND last_message_at = ? AND conversation_id = ?",
		SQL:  "DELETE FROM conversations_by_user WHERE user_id = ? AND last_message_at = ? AND conversation_id = ?",
	}
	stmtSelectMirrorKeys = store.Statement{
		Name: "select_conversation_by_user_keys",
		CQL:  "SELECT last_message_at FROM conversations_by_user WHERE user_id = ? AND conversation_id = ? ALLOW FILTERING",
		SQL:  "SELECT last_message_at FROM conversations_by_user WHERE user_id = ? AND conversation_id = ?",
	}
	stmtCountUserConversations = store.Statement{
		Name: "count_user_conversations",
		CQL:  "SELECT COUNT(*) AS total FROM conversations_by_user WHERE user_id = ?",
		SQL:  "SELECT COUNT(*) AS total FROM conversations_by_user WHERE user_id = ?",
	}
	stmtSelectUserConversations = store.Statement{
		Name: "select_user_conversations",
		CQL:  "SELECT " + mirrorCols + " FROM conversations_by_user WHERE user_id = ? LIMIT ?",
		SQL:  "SELECT " + mirrorCols + " FROM conversations_by_user WHERE user_id = ? ORDER BY last_message_at DESC, conversation_id ASC LIMIT ?",
	}
)

// Pair claims and id sequences.
var (
	stmtSelectPair = store.Statement{
		Name: "select_conversation_by_pair",
		CQL:  "SELECT " + pairCols + " FROM conversations_by_pair WHERE pair_key = ?",
		SQL:  "SELECT " + pairCols + " FROM conversations_by_pair WHERE pair_key = ?",
	}
	stmtClaimPair = store.Statement{
		Name: "claim_conversation_pair",
		CQL:  "INSERT INTO conversations_by_pair (" + pairCols + ") VALUES (?, ?, ?, ?, ?) IF NOT EXISTS",
		SQL:  "INSERT OR IGNORE INTO conversations_by_pair (" + pairCols + ") VALUES (?, ?, ?, ?, ?)",
	}
	stmtSelectSequence = store.Statement{
		Name: "select_sequence",
		CQL:  "SELECT next_id FROM id_sequences WHERE name = ?",
		SQL:  "SELECT next_id FROM id_sequences WHERE name = ?",
	}
	stmtInitSequence = store.Statement{
		Name: "init_sequence",
		CQL:  "INSERT INTO id_sequences (name, next_id) VALUES (?, ?) IF NOT EXISTS",
		SQL:  "INSERT OR IGNORE INTO id_sequences (name, next_id) VALUES (?, ?)",
	}
	stmtAdvanceSequence = store.Statement{
		Name: "advance_sequence",
		CQL:  "UPDATE id_sequences SET next_id = ? WHERE name = ? IF next_id = ?",
		SQL:  "UPDATE id_sequences SET next_id = ? WHERE name = ? AND next_id = ?",
	}
)

// Users.
var (
	stmtInsertUser = store.Statement{
		Name: "insert_user",
		CQL:  "INSERT INTO users (user_id, username, created_at) VALUES (?, ?, ?)",
		SQL: "INSERT INTO users (user_id, username, created_at) VALUES (?, ?, ?) " +
			"ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, created_at = excluded.created_at",
	}
	stmtSelectUser = store.Statement{
		Name: "select_user",
		CQL:  "SELECT user_id, username, created_at, last_login FROM users WHERE user_id = ?",
		SQL:  "SELECT user_id, username, created_at, last_login FROM users WHERE user_id = ?",
	}
	stmtTouchLastLogin = store.Statement{
		Name: "touch_last_login",
		CQL:  "UPDATE users SET last_login = ? WHERE user_id = ?",
		SQL:  "UPDATE users SET last_login = ? WHERE user_id = ?",
	}
)
