package store

import (
	"context"
	"fmt"

	"github.com/tbourn/go-messenger-store/internal/config"
)

// FromConfig returns the connector selected by cfg.Driver.
func FromConfig(cfg config.Config) (Connector, error) {
	switch cfg.Driver {
	case config.DriverCassandra:
		return NewCassandraConnector(cfg.Cassandra), nil
	case config.DriverSQLite:
		return SQLiteConnector{Path: cfg.SQLitePath}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// ConnectFunc adapts a function to Connector. Useful for wiring an already
// open session (tests, schema tooling).
type ConnectFunc struct {
	D    Dialect
	Name string
	Fn   func(ctx context.Context) (Session, error)
}

// Dialect implements Connector.
func (c ConnectFunc) Dialect() Dialect { return c.D }

// Target implements Connector.
func (c ConnectFunc) Target() string { return c.Name }

// Connect implements Connector.
func (c ConnectFunc) Connect(ctx context.Context) (Session, error) { return c.Fn(ctx) }
