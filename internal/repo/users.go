package repo

import (
	"context"
	"time"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// InsertUser writes u. LastLogin is left untouched.
func InsertUser(ctx context.Context, ex Executor, u *domain.User) error {
	return ex.Exec(ctx, stmtInsertUser, u.ID, u.Username, u.CreatedAt)
}

// InsertUserStatement returns the statement and arguments InsertUser
// would run, for callers batching writes through Gateway.ExecAsync.
func InsertUserStatement(u *domain.User) (store.Statement, []any) {
	return stmtInsertUser, []any{u.ID, u.Username, u.CreatedAt}
}

// GetUser fetches a user by id.
func GetUser(ctx context.Context, ex Executor, id string) (*domain.User, error) {
	rows, err := ex.Query(ctx, stmtSelectUser, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	r := rows[0]
	return &domain.User{
		ID:        r.String("user_id"),
		Username:  r.String("username"),
		CreatedAt: r.Time("created_at"),
		LastLogin: r.TimePtr("last_login"),
	}, nil
}

// TouchLastLogin sets the only mutable user field.
func TouchLastLogin(ctx context.Context, ex Executor, id string, at time.Time) error {
	return ex.Exec(ctx, stmtTouchLastLogin, at, id)
}
