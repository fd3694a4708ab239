package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messenger-store/internal/repo"
	"github.com/tbourn/go-messenger-store/internal/schema"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// newTestGateway returns a gateway over a migrated SQLite file.
func newTestGateway(t *testing.T) *store.Gateway {
	t.Helper()

	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), fmt.Sprintf("services_%d.db", time.Now().UnixNano())))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := schema.MigrateSQLite(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	nop := zerolog.Nop()
	g := store.New(store.ConnectFunc{
		D:    store.SQLite,
		Name: "services-test",
		Fn:   func(context.Context) (store.Session, error) { return store.NewSQLiteSession(db), nil },
	}, store.Options{Logger: &nop})
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func newTestServices(ex repo.Executor) (*MessageService, *ConversationService) {
	convs := NewConversationService(ex, repo.DefaultPaging())
	return NewMessageService(ex, convs, repo.DefaultPaging(), 50), convs
}

func newUser() string { return uuid.NewString() }

// scriptedExecutor wraps a real executor and can fail or veto statements
// by name, or run a hook before one executes.
type scriptedExecutor struct {
	repo.Executor

	mu         sync.Mutex
	fail       map[string]error
	notApplied map[string]bool
	before     map[string]func()
	seen       []string
}

func newScripted(inner repo.Executor) *scriptedExecutor {
	return &scriptedExecutor{
		Executor:   inner,
		fail:       map[string]error{},
		notApplied: map[string]bool{},
		before:     map[string]func(){},
	}
}

func (e *scriptedExecutor) intercept(name string) error {
	e.mu.Lock()
	e.seen = append(e.seen, name)
	hook := e.before[name]
	delete(e.before, name)
	err := e.fail[name]
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (e *scriptedExecutor) Query(ctx context.Context, st store.Statement, args ...any) ([]store.Row, error) {
	if err := e.intercept(st.Name); err != nil {
		return nil, err
	}
	return e.Executor.Query(ctx, st, args...)
}

func (e *scriptedExecutor) Exec(ctx context.Context, st store.Statement, args ...any) error {
	if err := e.intercept(st.Name); err != nil {
		return err
	}
	return e.Executor.Exec(ctx, st, args...)
}

func (e *scriptedExecutor) Apply(ctx context.Context, st store.Statement, args ...any) (bool, error) {
	if err := e.intercept(st.Name); err != nil {
		return false, err
	}
	e.mu.Lock()
	veto := e.notApplied[st.Name]
	e.mu.Unlock()
	if veto {
		return false, nil
	}
	return e.Executor.Apply(ctx, st, args...)
}

func (e *scriptedExecutor) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, s := range e.seen {
		if s == name {
			n++
		}
	}
	return n
}
