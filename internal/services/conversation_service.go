// Package services – ConversationService
//
// ConversationService resolves the single conversation of an unordered user
// pair and serves conversation reads. The store has no uniqueness
// constraint, so ownership of a pair is decided by a conditional insert into
// conversations_by_pair keyed by the canonical pair key, and ids come from a
// compare-and-set sequence instead of counting rows.

package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/repo"
)

const (
	conversationSequence = "conversations"

	// DefaultIDAttempts bounds the compare-and-set loop on the id sequence.
	DefaultIDAttempts = 16
)

// ConversationService provides conversation resolution and reads.
type ConversationService struct {
	// Store executes statements; normally the process-wide *store.Gateway.
	Store repo.Executor
	// Paging bounds UserConversations.
	Paging repo.Paging
	// IDAttempts bounds id allocation; <= 0 means DefaultIDAttempts.
	IDAttempts int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// NewConversationService constructs a ConversationService with default bounds.
func NewConversationService(ex repo.Executor, p repo.Paging) *ConversationService {
	return &ConversationService{Store: ex, Paging: p, IDAttempts: DefaultIDAttempts}
}

// ResolveOrCreate returns the conversation between userA and userB,
// creating it when none exists. (a, b) and (b, a) resolve to the same
// conversation. A newly created conversation echoes the caller's arguments
// in User1ID/User2ID; an existing one is returned with the pair as stored.
func (s *ConversationService) ResolveOrCreate(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ResolveOrCreate",
		trace.WithAttributes(
			attribute.String("user.a", userA),
			attribute.String("user.b", userB),
		),
	)
	defer span.End()

	a, b, err := canonicalPair(userA, userB)
	if err != nil {
		return nil, err
	}
	conv, outcome, err := s.resolve(ctx, repo.PairKey(a, b), a, b)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	conversationResolutions.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int64("conversation.id", conv.ID),
		attribute.String("resolve.outcome", outcome),
	)

	if outcome == resolvedCreated {
		conv.User1ID, conv.User2ID = userA, userB
	}
	return conv, nil
}

func (s *ConversationService) resolve(ctx context.Context, key, userA, userB string) (*domain.Conversation, string, error) {
	// 1. Pair index.
	claim, err := repo.GetPair(ctx, s.Store, key)
	switch {
	case err == nil:
		conv, err := s.fromClaim(ctx, claim)
		return conv, resolvedPair, err
	case !errors.Is(err, repo.ErrNotFound):
		return nil, "", err
	}

	// 2. Rows written before the pair index existed.
	legacy, err := s.findLegacy(ctx, userA, userB)
	if err != nil {
		return nil, "", err
	}
	if legacy != nil {
		won, err := repo.ClaimPair(ctx, s.Store, repo.PairClaim{
			Key:            key,
			ConversationID: legacy.ID,
			User1ID:        legacy.User1ID,
			User2ID:        legacy.User2ID,
			CreatedAt:      legacy.CreatedAt,
		})
		if err != nil {
			return nil, "", err
		}
		if won {
			return legacy, resolvedLegacy, nil
		}
		conv, err := s.reloadClaim(ctx, key)
		return conv, resolvedLost, err
	}

	// 3. Allocate, 4. claim, 5. write the canonical row and its mirrors.
	id, err := s.nextID(ctx)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	claimed, err := repo.ClaimPair(ctx, s.Store, repo.PairClaim{
		Key:            key,
		ConversationID: id,
		User1ID:        userA,
		User2ID:        userB,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, "", err
	}
	if !claimed {
		// Another creator owns the pair; the allocated id is left unused.
		conv, err := s.reloadClaim(ctx, key)
		return conv, resolvedLost, err
	}

	conv := &domain.Conversation{ID: id, User1ID: userA, User2ID: userB, CreatedAt: now, LastMessageAt: now}
	if err := s.materialize(ctx, conv); err != nil {
		return nil, "", err
	}
	return conv, resolvedCreated, nil
}

// GetConversation returns the canonical conversation row.
func (s *ConversationService) GetConversation(ctx context.Context, id int64) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "GetConversation",
		trace.WithAttributes(attribute.Int64("conversation.id", id)),
	)
	defer span.End()

	conv, err := repo.GetConversation(ctx, s.Store, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

// UserConversations pages userID's conversations, most recent first. The
// page is read from the conversations_by_user mirror and each entry is then
// point-read from the canonical table. An entry whose canonical row is
// missing is shaped from the mirror row instead.
func (s *ConversationService) UserConversations(ctx context.Context, userID string, page, limit int) (domain.Page[domain.Conversation], error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "UserConversations",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return domain.Page[domain.Conversation]{}, ErrInvalidUserID
	}
	mirror, err := repo.ReadPage(ctx, s.Store, repo.UserConversationsQuery(id.String()), s.Paging, page, limit, repo.SummaryFromRow)
	if err != nil {
		return domain.Page[domain.Conversation]{}, err
	}

	out := domain.Page[domain.Conversation]{
		Total: mirror.Total,
		Page:  mirror.Page,
		Limit: mirror.Limit,
		Data:  make([]domain.Conversation, 0, len(mirror.Data)),
	}
	for _, sum := range mirror.Data {
		conv, err := repo.GetConversation(ctx, s.Store, sum.ID)
		switch {
		case err == nil:
			out.Data = append(out.Data, *conv)
		case errors.Is(err, repo.ErrNotFound):
			out.Data = append(out.Data, sum.Conversation())
		default:
			span.RecordError(err)
			return domain.Page[domain.Conversation]{}, err
		}
	}
	return out, nil
}

// fromClaim loads the conversation a pair claim points at. A claim whose
// canonical row is missing belongs to a creator that stopped between claim
// and insert; the row is rebuilt from the claim.
func (s *ConversationService) fromClaim(ctx context.Context, claim *repo.PairClaim) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, s.Store, claim.ConversationID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	conv = &domain.Conversation{
		ID:            claim.ConversationID,
		User1ID:       claim.User1ID,
		User2ID:       claim.User2ID,
		CreatedAt:     claim.CreatedAt,
		LastMessageAt: claim.CreatedAt,
	}
	if err := s.materialize(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationService) reloadClaim(ctx context.Context, key string) (*domain.Conversation, error) {
	claim, err := repo.GetPair(ctx, s.Store, key)
	if err != nil {
		return nil, err
	}
	return s.fromClaim(ctx, claim)
}

// materialize inserts the canonical row and, if this call created it, both
// conversations_by_user mirrors. Racing writers insert identical values.
func (s *ConversationService) materialize(ctx context.Context, conv *domain.Conversation) error {
	created, err := repo.InsertConversation(ctx, s.Store, conv)
	if err != nil || !created {
		return err
	}
	for _, u := range []string{conv.User1ID, conv.User2ID} {
		if err := repo.InsertConversationMirror(ctx, s.Store, domain.ConversationSummary{
			ID:            conv.ID,
			UserID:        u,
			OtherUserID:   conv.Other(u),
			LastMessageAt: conv.LastMessageAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

// findLegacy checks both stored orders and returns the lowest id, or nil.
func (s *ConversationService) findLegacy(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	var best *domain.Conversation
	for _, pair := range [][2]string{{userA, userB}, {userB, userA}} {
		found, err := repo.FindConversationsByUsers(ctx, s.Store, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		if len(found) > 0 && (best == nil || found[0].ID < best.ID) {
			c := found[0]
			best = &c
		}
	}
	return best, nil
}

// nextID allocates a conversation id. An uninitialised sequence starts
// after the current row count so ids continue the count-based numbering.
func (s *ConversationService) nextID(ctx context.Context) (int64, error) {
	attempts := s.IDAttempts
	if attempts <= 0 {
		attempts = DefaultIDAttempts
	}
	for i := 0; i < attempts; i++ {
		next, ok, err := repo.ReadSequence(ctx, s.Store, conversationSequence)
		if err != nil {
			return 0, err
		}
		if !ok {
			n, err := repo.CountConversations(ctx, s.Store)
			if err != nil {
				return 0, err
			}
			if _, err := repo.InitSequence(ctx, s.Store, conversationSequence, n+1); err != nil {
				return 0, err
			}
			continue
		}
		won, err := repo.AdvanceSequence(ctx, s.Store, conversationSequence, next, next+1)
		if err != nil {
			return 0, err
		}
		if won {
			return next, nil
		}
	}
	return 0, ErrIDContention
}

func (s *ConversationService) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().UTC().Truncate(time.Millisecond)
}

// canonicalPair parses both ids and returns them in canonical lowercase
// form, which is how the store returns uuid columns.
func canonicalPair(userA, userB string) (string, string, error) {
	a, err := uuid.Parse(userA)
	if err != nil {
		return "", "", ErrInvalidUserID
	}
	b, err := uuid.Parse(userB)
	if err != nil {
		return "", "", ErrInvalidUserID
	}
	if a == b {
		return "", "", ErrSameUser
	}
	return a.String(), b.String(), nil
}
