// Package repo implements the persistence layer for the messaging views.
// Every function here issues one parameterized statement from the catalog
// in statements.go through an Executor; there is no cross-statement
// atomicity and no caching. Callers own the ordering of multi-view writes.
package repo

import (
	"context"
	"errors"

	"github.com/tbourn/go-messenger-store/internal/store"
)

// Executor runs catalog statements. *store.Gateway implements it.
type Executor interface {
	Query(ctx context.Context, st store.Statement, args ...any) ([]store.Row, error)
	Exec(ctx context.Context, st store.Statement, args ...any) error
	Apply(ctx context.Context, st store.Statement, args ...any) (bool, error)
}

// ErrNotFound is returned by point reads that match no row.
var ErrNotFound = errors.New("record not found")

var _ Executor = (*store.Gateway)(nil)
