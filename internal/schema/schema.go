// Package schema creates the keyspace and tables the messaging data layer
// reads and writes. It runs once at deployment time and is not on the hot
// path; the data layer itself never creates or migrates tables.
//
// Cassandra tables are created with CQL through a store.Gateway. The
// embedded SQLite store uses GORM AutoMigrate over the row models in
// package domain, which carry the same names and composite keys.
package schema

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// RequiredTables lists every table the data layer expects to exist.
var RequiredTables = []string{
	"users",
	"messages",
	"messages_by_user",
	"conversations",
	"conversations_by_user",
	"conversations_by_pair",
	"id_sequences",
}

// ErrInvalidKeyspace is returned for keyspace names CQL would reject.
var ErrInvalidKeyspace = errors.New("invalid keyspace name")

// Keyspace and table names cannot be bound as parameters, so they are
// validated and formatted into the statement text.
var keyspaceRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// ValidKeyspace reports whether name is usable as an unquoted keyspace.
func ValidKeyspace(name string) bool { return keyspaceRE.MatchString(name) }

// tableDefs holds the CQL column/key body of each table, in creation order.
var tableDefs = []struct {
	name string
	body string
}{
	{"users", `(
	user_id uuid,
	username text,
	created_at timestamp,
	last_login timestamp,
	PRIMARY KEY (user_id)
)`},
	{"messages", `(
	conversation_id int,
	timestamp timestamp,
	message_id uuid,
	sender_id uuid,
	receiver_id uuid,
	content text,
	PRIMARY KEY (conversation_id, timestamp, message_id)
) WITH CLUSTERING ORDER BY (timestamp DESC, message_id ASC)`},
	{"messages_by_user", `(
	user_id uuid,
	conversation_id int,
	timestamp timestamp,
	message_id uuid,
	sender_id uuid,
	receiver_id uuid,
	content text,
	PRIMARY KEY ((user_id), conversation_id, timestamp, message_id)
) WITH CLUSTERING ORDER BY (conversation_id ASC, timestamp DESC, message_id ASC)`},
	{"conversations", `(
	conversation_id int,
	user1_id uuid,
	user2_id uuid,
	created_at timestamp,
	last_message_at timestamp,
	last_message_content text,
	PRIMARY KEY (conversation_id)
)`},
	{"conversations_by_user", `(
	user_id uuid,
	conversation_id int,
	other_user_id uuid,
	last_message_at timestamp,
	last_message_content text,
	PRIMARY KEY (user_id, last_message_at, conversation_id)
) WITH CLUSTERING ORDER BY (last_message_at DESC, conversation_id ASC)`},
	{"conversations_by_pair", `(
	pair_key text,
	conversation_id int,
	user1_id uuid,
	user2_id uuid,
	created_at timestamp,
	PRIMARY KEY (pair_key)
)`},
	{"id_sequences", `(
	name text,
	next_id bigint,
	PRIMARY KEY (name)
)`},
}

// KeyspaceStatement returns the CREATE KEYSPACE statement for keyspace.
func KeyspaceStatement(keyspace string, replicationFactor int) (store.Statement, error) {
	if !ValidKeyspace(keyspace) {
		return store.Statement{}, fmt.Errorf("%w: %q", ErrInvalidKeyspace, keyspace)
	}
	if replicationFactor < 1 {
		replicationFactor = 1
	}
	return store.Statement{
		Name: "create_keyspace",
		CQL: fmt.Sprintf(
			"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
			keyspace, replicationFactor),
	}, nil
}

// TableStatements returns one CREATE TABLE IF NOT EXISTS statement per
// required table, qualified with keyspace.
func TableStatements(keyspace string) ([]store.Statement, error) {
	if !ValidKeyspace(keyspace) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKeyspace, keyspace)
	}
	out := make([]store.Statement, 0, len(tableDefs))
	for _, t := range tableDefs {
		out = append(out, store.Statement{
			Name: "create_table_" + t.name,
			CQL:  fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s %s", keyspace, t.name, t.body),
		})
	}
	return out, nil
}

// Bootstrap creates the keyspace and every table through g, which must be
// a CQL gateway. The session does not need to be bound to keyspace.
func Bootstrap(ctx context.Context, g *store.Gateway, keyspace string, replicationFactor int) error {
	if g.Dialect() != store.CQL {
		return fmt.Errorf("schema bootstrap needs a %s gateway, got %s", store.CQL, g.Dialect())
	}
	ks, err := KeyspaceStatement(keyspace, replicationFactor)
	if err != nil {
		return err
	}
	tables, err := TableStatements(keyspace)
	if err != nil {
		return err
	}
	for _, st := range append([]store.Statement{ks}, tables...) {
		if err := g.Exec(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// MigrateSQLite creates every table in the embedded store.
func MigrateSQLite(db *gorm.DB) error {
	return db.AutoMigrate(domain.AllRows()...)
}

var listTables = store.Statement{
	Name: "list_tables",
	CQL:  "SELECT table_name FROM system_schema.tables WHERE keyspace_name = ?",
	SQL:  "SELECT name AS table_name FROM sqlite_master WHERE type = ?",
}

// Check returns the required tables that do not exist, sorted by name.
// keyspace is ignored by the SQLite dialect.
func Check(ctx context.Context, g *store.Gateway, keyspace string) ([]string, error) {
	arg := keyspace
	if g.Dialect() == store.SQLite {
		arg = "table"
	}
	rows, err := g.Query(ctx, listTables, arg)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(rows))
	for _, r := range rows {
		have[r.String("table_name")] = true
	}
	var missing []string
	for _, t := range RequiredTables {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
