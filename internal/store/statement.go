// Package store is the Store Gateway: it executes parameterized statements
// against the backing wide-column store and owns the session lifecycle
// (lazy connect, fixed-delay reconnect loop, close).
//
// Two dialects are supported. CQL talks to Cassandra through gocql; SQLite
// runs the same logical statements against an embedded file through GORM,
// which is what local development and the package tests use. Every logical
// statement carries one rendition per dialect so callers never assemble
// statement text at runtime; values are always bound positionally.
package store

// Dialect identifies the statement language a session speaks.
type Dialect string

const (
	// CQL is the Cassandra Query Language dialect.
	CQL Dialect = "cql"
	// SQLite is the embedded SQLite dialect.
	SQLite Dialect = "sqlite"
)

// Statement is a named, constant, parameterized statement.
//
// Name is used for logs, metrics labels and span names, so it must be a
// short stable identifier (e.g. "insert_message"). CQL and SQL hold the
// statement text for each dialect with positional "?" placeholders in the
// same order.
type Statement struct {
	Name string
	CQL  string
	SQL  string
}

// Text returns the statement rendition for the dialect, or "" when the
// statement has none.
func (s Statement) Text(d Dialect) string {
	switch d {
	case CQL:
		return s.CQL
	case SQLite:
		return s.SQL
	default:
		return ""
	}
}
