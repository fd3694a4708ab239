// Package services – MessageService
//
// MessageService owns the message write path and the message reads. A send
// is one logical write fanned out, strictly in order, over the canonical
// messages table, both messages_by_user mirrors, the conversation summary
// and both conversations_by_user rows. The steps are independent statements:
// nothing is rolled back when a later step fails, and the error names the
// failed step together with the steps that were already applied.
//
// Observability: all public methods are OpenTelemetry-instrumented.

package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/repo"
)

// DefaultMaxContentRunes caps message content when MaxContentRunes is unset.
const DefaultMaxContentRunes = 4000

// SendInput is one logical message send. ConversationID 0 resolves (or
// creates) the conversation of the pair first.
type SendInput struct {
	SenderID       string
	ReceiverID     string
	Content        string
	ConversationID int64
}

// MessageService coordinates the message fan-out and message reads.
type MessageService struct {
	Store         repo.Executor
	Conversations *ConversationService
	Paging        repo.Paging

	// MaxContentRunes caps content after normalization; <= 0 uses the default.
	MaxContentRunes int

	// Now and NewID default to time.Now and uuid.NewV7.
	Now   func() time.Time
	NewID func() (uuid.UUID, error)
}

// NewMessageService constructs a MessageService that resolves conversations
// through conversations.
func NewMessageService(ex repo.Executor, conversations *ConversationService, p repo.Paging, maxContentRunes int) *MessageService {
	return &MessageService{
		Store:           ex,
		Conversations:   conversations,
		Paging:          p,
		MaxContentRunes: maxContentRunes,
	}
}

// Send validates in, resolves the conversation when needed and performs the
// fan-out. Every copy carries the same id and created_at, generated here.
// The returned message always has a nil ReadAt.
func (s *MessageService) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("sender.id", in.SenderID),
			attribute.String("receiver.id", in.ReceiverID),
			attribute.Int64("conversation.id", in.ConversationID),
		),
	)
	defer span.End()

	content, err := s.normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	sender, receiver, err := canonicalPair(in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}
	conv, err := s.conversationFor(ctx, sender, receiver, in.ConversationID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	m := &domain.Message{
		ID:             id.String(),
		ConversationID: conv.ID,
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
		CreatedAt:      s.now(),
	}
	span.SetAttributes(
		attribute.String("message.id", m.ID),
		attribute.Int64("conversation.id", conv.ID),
	)

	steps := []struct {
		name string
		run  func() error
	}{
		{StepInsertMessage, func() error { return repo.InsertMessage(ctx, s.Store, m) }},
		{StepMirrorSender, func() error { return repo.InsertMessageMirror(ctx, s.Store, sender, m) }},
		{StepMirrorReceiver, func() error { return repo.InsertMessageMirror(ctx, s.Store, receiver, m) }},
		{StepUpdateSummary, func() error {
			return repo.UpdateConversationSummary(ctx, s.Store, conv.ID, m.CreatedAt, m.Content)
		}},
		{StepRefreshSender, func() error { return s.refreshMirror(ctx, sender, receiver, m) }},
		{StepRefreshRecv, func() error { return s.refreshMirror(ctx, receiver, sender, m) }},
	}
	done := make([]string, 0, len(steps))
	for _, st := range steps {
		if err := st.run(); err != nil {
			fanoutFailures.WithLabelValues(st.name).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, st.name)
			return nil, &FanoutError{Step: st.name, Completed: done, Err: err}
		}
		done = append(done, st.name)
	}
	messagesSent.Inc()

	// Echo the caller's ids rather than the canonical forms.
	m.SenderID, m.ReceiverID = in.SenderID, in.ReceiverID
	return m, nil
}

// ConversationMessages pages a conversation's messages, newest first.
func (s *MessageService) ConversationMessages(ctx context.Context, conversationID int64, page, limit int) (domain.Page[domain.Message], error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ConversationMessages",
		trace.WithAttributes(
			attribute.Int64("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	return repo.ReadPage(ctx, s.Store, repo.ConversationMessagesQuery(conversationID), s.Paging, page, limit, repo.MessageFromRow)
}

// MessagesBefore pages a conversation's messages created strictly before
// before, newest first.
func (s *MessageService) MessagesBefore(ctx context.Context, conversationID int64, before time.Time, page, limit int) (domain.Page[domain.Message], error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "MessagesBefore",
		trace.WithAttributes(
			attribute.Int64("conversation.id", conversationID),
			attribute.String("before", before.UTC().Format(time.RFC3339Nano)),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	return repo.ReadPage(ctx, s.Store, repo.MessagesBeforeQuery(conversationID, before.UTC()), s.Paging, page, limit, repo.MessageFromRow)
}

// UserMessages pages every message userID sent or received, grouped by
// conversation and newest first within each.
func (s *MessageService) UserMessages(ctx context.Context, userID string, page, limit int) (domain.Page[domain.Message], error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "UserMessages",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.Page[domain.Message]{}, ErrInvalidUserID
	}
	return repo.ReadPage(ctx, s.Store, repo.UserMessagesQuery(id.String()), s.Paging, page, limit, repo.MessageFromRow)
}

func (s *MessageService) conversationFor(ctx context.Context, sender, receiver string, id int64) (*domain.Conversation, error) {
	if id == 0 {
		return s.Conversations.ResolveOrCreate(ctx, sender, receiver)
	}
	conv, err := repo.GetConversation(ctx, s.Store, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if !conv.Has(sender) || conv.Other(sender) != receiver {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// refreshMirror replaces userID's conversations_by_user row. The clustering
// key contains last_message_at, so rows are deleted and reinserted rather
// than updated. Every row the user holds for the conversation is deleted,
// including rows left behind by an earlier send that failed mid-refresh.
func (s *MessageService) refreshMirror(ctx context.Context, userID, otherID string, m *domain.Message) error {
	keys, err := repo.ConversationMirrorKeys(ctx, s.Store, userID, m.ConversationID)
	if err != nil {
		return err
	}
	for _, at := range keys {
		if err := repo.DeleteConversationMirror(ctx, s.Store, userID, at, m.ConversationID); err != nil {
			return err
		}
	}
	content := m.Content
	return repo.InsertConversationMirror(ctx, s.Store, domain.ConversationSummary{
		ID:                 m.ConversationID,
		UserID:             userID,
		OtherUserID:        otherID,
		LastMessageAt:      m.CreatedAt,
		LastMessageContent: &content,
	})
}

// normalizeContent trims, NFC-normalizes and length-checks content.
func (s *MessageService) normalizeContent(content string) (string, error) {
	content = norm.NFC.String(strings.TrimSpace(content))
	if content == "" {
		return "", ErrEmptyContent
	}
	limit := s.MaxContentRunes
	if limit <= 0 {
		limit = DefaultMaxContentRunes
	}
	if utf8.RuneCountInString(content) > limit {
		return "", ErrContentTooLong
	}
	return content, nil
}

func (s *MessageService) newID() (uuid.UUID, error) {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewV7()
}

func (s *MessageService) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Millisecond)
}
