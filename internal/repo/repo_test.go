package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/schema"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// newRepoGateway returns a gateway over a fresh SQLite file. With migrate
// false the tables are absent so every statement fails.
func newRepoGateway(t *testing.T, migrate bool) *store.Gateway {
	t.Helper()

	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano())))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if migrate {
		if err := schema.MigrateSQLite(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	nop := zerolog.Nop()
	g := store.New(store.ConnectFunc{
		D:    store.SQLite,
		Name: "repo-test",
		Fn:   func(context.Context) (store.Session, error) { return store.NewSQLiteSession(db), nil },
	}, store.Options{Logger: &nop})
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func seedMessage(t *testing.T, g *store.Gateway, convID int64, at time.Time, sender, receiver, content string) domain.Message {
	t.Helper()
	m := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: convID,
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
		CreatedAt:      at.UTC().Truncate(time.Millisecond),
	}
	if err := InsertMessage(context.Background(), g, &m); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	return m
}

func TestInsertMessage_Error_NoTable(t *testing.T) {
	g := newRepoGateway(t, false)
	err := InsertMessage(context.Background(), g, &domain.Message{ID: "m", ConversationID: 1, CreatedAt: time.Now()})
	var se *store.StatementError
	if !errors.As(err, &se) || se.Statement != "insert_message" {
		t.Fatalf("err = %v; want StatementError naming insert_message", err)
	}
}

func TestMessageMirror_RoundTrip(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()
	u1, u2 := uuid.NewString(), uuid.NewString()

	m := seedMessage(t, g, 7, time.Now(), u1, u2, "hello")
	if err := InsertMessageMirror(ctx, g, u2, &m); err != nil {
		t.Fatalf("InsertMessageMirror: %v", err)
	}

	got, err := GetMessageMirror(ctx, g, u2, 7, m.CreatedAt, m.ID)
	if err != nil {
		t.Fatalf("GetMessageMirror: %v", err)
	}
	if got.ID != m.ID || got.Content != m.Content || !got.CreatedAt.Equal(m.CreatedAt) ||
		got.SenderID != u1 || got.ReceiverID != u2 || got.ReadAt != nil {
		t.Fatalf("mirror = %+v; want %+v", *got, m)
	}
	if _, err := GetMessageMirror(ctx, g, u1, 7, m.CreatedAt, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("sender mirror err = %v; want ErrNotFound", err)
	}
}

func TestConversation_InsertGetUpdate(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()

	if _, err := GetConversation(ctx, g, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetConversation on empty table err = %v; want ErrNotFound", err)
	}

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := domain.Conversation{ID: 1, User1ID: "a", User2ID: "b", CreatedAt: now, LastMessageAt: now}
	if ok, err := InsertConversation(ctx, g, &c); err != nil || !ok {
		t.Fatalf("InsertConversation = %v, %v", ok, err)
	}
	got, err := GetConversation(ctx, g, 1)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.LastMessageContent != nil || !got.CreatedAt.Equal(now) || got.User1ID != "a" {
		t.Fatalf("unexpected conversation: %+v", got)
	}

	later := now.Add(time.Minute)
	if err := UpdateConversationSummary(ctx, g, 1, later, "hi"); err != nil {
		t.Fatalf("UpdateConversationSummary: %v", err)
	}
	got, _ = GetConversation(ctx, g, 1)
	if got.LastMessageContent == nil || *got.LastMessageContent != "hi" || !got.LastMessageAt.Equal(later) {
		t.Fatalf("summary not updated: %+v", got)
	}

	// A second insert of the same id is not applied and keeps the summary.
	if ok, err := InsertConversation(ctx, g, &c); err != nil || ok {
		t.Fatalf("re-insert = %v, %v; want not applied", ok, err)
	}
	got, _ = GetConversation(ctx, g, 1)
	if got.LastMessageContent == nil || *got.LastMessageContent != "hi" {
		t.Fatalf("re-insert cleared content: %+v", got)
	}

	n, err := CountConversations(ctx, g)
	if err != nil || n != 1 {
		t.Fatalf("CountConversations = %d, %v; want 1", n, err)
	}
}

func TestFindConversationsByUsers_OrderedPairOnly(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()
	now := time.Now()
	for _, c := range []domain.Conversation{
		{ID: 5, User1ID: "a", User2ID: "b", CreatedAt: now, LastMessageAt: now},
		{ID: 2, User1ID: "a", User2ID: "b", CreatedAt: now, LastMessageAt: now},
		{ID: 3, User1ID: "b", User2ID: "a", CreatedAt: now, LastMessageAt: now},
	} {
		c := c
		if _, err := InsertConversation(ctx, g, &c); err != nil {
			t.Fatalf("InsertConversation: %v", err)
		}
	}

	got, err := FindConversationsByUsers(ctx, g, "a", "b")
	if err != nil {
		t.Fatalf("FindConversationsByUsers: %v", err)
	}
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 5 {
		t.Fatalf("got %+v; want ids [2 5]", got)
	}
	got, _ = FindConversationsByUsers(ctx, g, "b", "a")
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("reverse order got %+v; want id 3", got)
	}
}

func TestConversationMirror_DeleteAndInsert(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	if err := InsertConversationMirror(ctx, g, domain.ConversationSummary{ID: 1, UserID: "u", OtherUserID: "v", LastMessageAt: t0}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := DeleteConversationMirror(ctx, g, "u", t0, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Deleting again is a no-op.
	if err := DeleteConversationMirror(ctx, g, "u", t0, 1); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	content := "latest"
	if err := InsertConversationMirror(ctx, g, domain.ConversationSummary{ID: 1, UserID: "u", OtherUserID: "v", LastMessageAt: t1, LastMessageContent: &content}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	p, err := ReadPage(ctx, g, UserConversationsQuery("u"), DefaultPaging(), 1, 10, SummaryFromRow)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if p.Total != 1 || len(p.Data) != 1 {
		t.Fatalf("page = %+v; want one row", p)
	}
	s := p.Data[0]
	if s.OtherUserID != "v" || !s.LastMessageAt.Equal(t1) || s.LastMessageContent == nil || *s.LastMessageContent != "latest" {
		t.Fatalf("summary = %+v", s)
	}
}

func TestConversationMirrorKeys_ListsEveryRowOfTheConversation(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)

	for _, s := range []domain.ConversationSummary{
		{ID: 1, UserID: "u", OtherUserID: "v", LastMessageAt: t0},
		{ID: 1, UserID: "u", OtherUserID: "v", LastMessageAt: t1},
		{ID: 2, UserID: "u", OtherUserID: "w", LastMessageAt: t0},
		{ID: 1, UserID: "v", OtherUserID: "u", LastMessageAt: t0},
	} {
		if err := InsertConversationMirror(ctx, g, s); err != nil {
			t.Fatalf("insert %+v: %v", s, err)
		}
	}

	keys, err := ConversationMirrorKeys(ctx, g, "u", 1)
	if err != nil {
		t.Fatalf("ConversationMirrorKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("keys = %v; want 2", keys)
	}
	seen := map[int64]bool{}
	for _, k := range keys {
		seen[k.UnixMilli()] = true
	}
	if !seen[t0.UnixMilli()] || !seen[t1.UnixMilli()] {
		t.Fatalf("keys = %v; want %v and %v", keys, t0, t1)
	}

	keys, err = ConversationMirrorKeys(ctx, g, "u", 3)
	if err != nil || len(keys) != 0 {
		t.Fatalf("absent conversation: keys=%v err=%v", keys, err)
	}
}

func TestPairClaim_FirstWins(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()

	if PairKey("b", "a") != PairKey("a", "b") || PairKey("a", "b") != "a:b" {
		t.Fatalf("PairKey not canonical")
	}
	key := PairKey("a", "b")
	if _, err := GetPair(ctx, g, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetPair err = %v; want ErrNotFound", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	won, err := ClaimPair(ctx, g, PairClaim{Key: key, ConversationID: 1, User1ID: "a", User2ID: "b", CreatedAt: now})
	if err != nil || !won {
		t.Fatalf("first claim = %v, %v; want true", won, err)
	}
	won, err = ClaimPair(ctx, g, PairClaim{Key: key, ConversationID: 2, User1ID: "b", User2ID: "a", CreatedAt: now})
	if err != nil || won {
		t.Fatalf("second claim = %v, %v; want false", won, err)
	}
	p, err := GetPair(ctx, g, key)
	if err != nil || p.ConversationID != 1 || !p.CreatedAt.Equal(now) {
		t.Fatalf("GetPair = %+v, %v", p, err)
	}
}

func TestSequence_CompareAndSet(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()

	if _, ok, err := ReadSequence(ctx, g, "conversations"); err != nil || ok {
		t.Fatalf("ReadSequence on empty = ok %v err %v", ok, err)
	}
	if ok, err := InitSequence(ctx, g, "conversations", 4); err != nil || !ok {
		t.Fatalf("InitSequence = %v, %v", ok, err)
	}
	if ok, _ := InitSequence(ctx, g, "conversations", 99); ok {
		t.Fatalf("second InitSequence applied")
	}
	next, ok, err := ReadSequence(ctx, g, "conversations")
	if err != nil || !ok || next != 4 {
		t.Fatalf("ReadSequence = %d %v %v; want 4", next, ok, err)
	}
	if ok, _ := AdvanceSequence(ctx, g, "conversations", 3, 4); ok {
		t.Fatalf("advance with stale expected value applied")
	}
	if ok, err := AdvanceSequence(ctx, g, "conversations", 4, 5); err != nil || !ok {
		t.Fatalf("AdvanceSequence = %v, %v", ok, err)
	}
	next, _, _ = ReadSequence(ctx, g, "conversations")
	if next != 5 {
		t.Fatalf("next = %d; want 5", next)
	}
}

func TestUsers_InsertGetTouch(t *testing.T) {
	g := newRepoGateway(t, true)
	ctx := context.Background()
	created := time.Date(2025, 2, 2, 2, 2, 2, 0, time.UTC)
	u := domain.User{ID: uuid.NewString(), Username: "alice", CreatedAt: created}

	if err := InsertUser(ctx, g, &u); err != nil {
		t.Fatalf("InsertUser: %v", err)
	}
	got, err := GetUser(ctx, g, u.ID)
	if err != nil || got.Username != "alice" || got.LastLogin != nil || !got.CreatedAt.Equal(created) {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}

	login := created.Add(time.Hour)
	if err := TouchLastLogin(ctx, g, u.ID, login); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	// Re-inserting must not clear last_login.
	if err := InsertUser(ctx, g, &u); err != nil {
		t.Fatalf("re-insert: %v", err)
	}
	got, _ = GetUser(ctx, g, u.ID)
	if got.LastLogin == nil || !got.LastLogin.Equal(login) {
		t.Fatalf("LastLogin = %v; want %v", got.LastLogin, login)
	}

	st, args := InsertUserStatement(&u)
	if st.Name != "insert_user" || len(args) != 3 {
		t.Fatalf("InsertUserStatement = %s %v", st.Name, args)
	}
	if _, err := GetUser(ctx, g, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser(missing) err = %v", err)
	}
}
