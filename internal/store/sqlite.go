package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// One connection: PRAGMAs stick and writers never contend for the file lock.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// SQLiteConnector opens the embedded store file.
type SQLiteConnector struct {
	Path string
}

// Dialect implements Connector.
func (c SQLiteConnector) Dialect() Dialect { return SQLite }

// Target implements Connector.
func (c SQLiteConnector) Target() string { return "sqlite:" + c.Path }

// Connect implements Connector.
func (c SQLiteConnector) Connect(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := OpenSQLite(c.Path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteSession(db), nil
}

// SQLiteSession executes statements through GORM's raw SQL API.
type SQLiteSession struct {
	db *gorm.DB
}

// NewSQLiteSession wraps an open GORM handle.
func NewSQLiteSession(db *gorm.DB) *SQLiteSession {
	return &SQLiteSession{db: db}
}

// DB exposes the underlying handle (schema bootstrap and tests).
func (s *SQLiteSession) DB() *gorm.DB { return s.db }

// Query implements Session.
func (s *SQLiteSession) Query(ctx context.Context, stmt string, args []any) ([]Row, error) {
	rows, err := s.db.WithContext(ctx).Raw(stmt, bindSQLite(args)...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Exec implements Session.
func (s *SQLiteSession) Exec(ctx context.Context, stmt string, args []any) error {
	return s.db.WithContext(ctx).Exec(stmt, bindSQLite(args)...).Error
}

// Apply implements Session. Conditional writes are rendered as
// INSERT OR IGNORE / UPDATE ... AND col = ?, so one affected row means the
// condition held.
func (s *SQLiteSession) Apply(ctx context.Context, stmt string, args []any) (bool, error) {
	res := s.db.WithContext(ctx).Exec(stmt, bindSQLite(args)...)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Close implements Session.
func (s *SQLiteSession) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// bindSQLite stores timestamps as unix milliseconds (the wide-column
// store's resolution) and flattens nullable pointers.
func bindSQLite(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case time.Time:
			out[i] = v.UnixMilli()
		case *time.Time:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = v.UnixMilli()
			}
		case *string:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = *v
			}
		default:
			out[i] = a
		}
	}
	return out
}
