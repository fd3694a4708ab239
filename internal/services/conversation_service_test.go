package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/repo"
)

func TestResolveOrCreate_RepeatedCallsReturnSameID(t *testing.T) {
	_, convs := newTestServices(newTestGateway(t))
	ctx := context.Background()
	u1, u2 := newUser(), newUser()

	first, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)
	require.Nil(t, first.LastMessageContent)
	require.Equal(t, first.CreatedAt, first.LastMessageAt)

	second, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.CreatedAt.Equal(first.CreatedAt))
}

func TestResolveOrCreate_Symmetric_ReturnsStoredPair(t *testing.T) {
	_, convs := newTestServices(newTestGateway(t))
	ctx := context.Background()
	u1, u2 := newUser(), newUser()

	ab, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	ba, err := convs.ResolveOrCreate(ctx, strings.ToUpper(u2), u1)
	require.NoError(t, err)

	require.Equal(t, ab.ID, ba.ID)
	require.Equal(t, u1, ba.User1ID, "an existing conversation keeps its stored order")
	require.Equal(t, u2, ba.User2ID)

	// A different pair gets the next id and echoes the caller's input.
	u3 := newUser()
	other, err := convs.ResolveOrCreate(ctx, strings.ToUpper(u3), u1)
	require.NoError(t, err)
	require.Equal(t, ab.ID+1, other.ID)
	require.Equal(t, strings.ToUpper(u3), other.User1ID)
	require.Equal(t, u1, other.User2ID)

	stored, err := convs.GetConversation(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, u3, stored.User1ID, "stored ids are canonical")
}

func TestResolveOrCreate_WritesCanonicalRowAndBothMirrors(t *testing.T) {
	g := newTestGateway(t)
	_, convs := newTestServices(g)
	ctx := context.Background()
	u1, u2 := newUser(), newUser()

	conv, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)

	stored, err := convs.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Equal(t, u1, stored.User1ID)
	require.Equal(t, u2, stored.User2ID)

	for _, pair := range [][2]string{{u1, u2}, {u2, u1}} {
		p, err := convs.UserConversations(ctx, pair[0], 1, 20)
		require.NoError(t, err)
		require.EqualValues(t, 1, p.Total)
		require.Equal(t, conv.ID, p.Data[0].ID)
		require.Equal(t, pair[1], p.Data[0].Other(pair[0]))
		require.Nil(t, p.Data[0].LastMessageContent)
	}
}

func TestResolveOrCreate_ValidatesUsers(t *testing.T) {
	_, convs := newTestServices(newTestGateway(t))
	ctx := context.Background()
	u := newUser()

	_, err := convs.ResolveOrCreate(ctx, "not-a-uuid", u)
	require.ErrorIs(t, err, ErrInvalidUserID)
	_, err = convs.ResolveOrCreate(ctx, u, "")
	require.ErrorIs(t, err, ErrInvalidUserID)
	_, err = convs.ResolveOrCreate(ctx, u, strings.ToUpper(u))
	require.ErrorIs(t, err, ErrSameUser)
}

func TestResolveOrCreate_ConcurrentCallersShareOneConversation(t *testing.T) {
	g := newTestGateway(t)
	_, convs := newTestServices(g)
	ctx := context.Background()
	u1, u2 := newUser(), newUser()

	const n = 8
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := u1, u2
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := convs.ResolveOrCreate(ctx, a, b)
			errs[i] = err
			if err == nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	p, err := convs.UserConversations(ctx, u1, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Total)
}

func TestResolveOrCreate_FindsLegacyRowAndBackfillsPair(t *testing.T) {
	g := newTestGateway(t)
	_, convs := newTestServices(g)
	ctx := context.Background()
	u1, u2 := newUser(), newUser()
	created := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	// Stored in reverse order, without a pair claim.
	_, err := repo.InsertConversation(ctx, g, &domain.Conversation{ID: 7, User1ID: u2, User2ID: u1, CreatedAt: created, LastMessageAt: created})
	require.NoError(t, err)

	before := testutil.ToFloat64(conversationResolutions.WithLabelValues(resolvedLegacy))
	conv, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	require.Equal(t, int64(7), conv.ID)
	require.True(t, conv.CreatedAt.Equal(created))
	require.Equal(t, u2, conv.User1ID)
	require.Equal(t, u1, conv.User2ID)
	require.Equal(t, before+1, testutil.ToFloat64(conversationResolutions.WithLabelValues(resolvedLegacy)))

	claim, err := repo.GetPair(ctx, g, repo.PairKey(u1, u2))
	require.NoError(t, err)
	require.Equal(t, int64(7), claim.ConversationID)
}

func TestResolveOrCreate_SequenceContinuesRowCount(t *testing.T) {
	g := newTestGateway(t)
	_, convs := newTestServices(g)
	ctx := context.Background()
	now := time.Now().UTC()

	for id := int64(1); id <= 3; id++ {
		_, err := repo.InsertConversation(ctx, g, &domain.Conversation{ID: id, User1ID: newUser(), User2ID: newUser(), CreatedAt: now, LastMessageAt: now})
		require.NoError(t, err)
	}
	conv, err := convs.ResolveOrCreate(ctx, newUser(), newUser())
	require.NoError(t, err)
	require.Equal(t, int64(4), conv.ID)

	next, ok, err := repo.ReadSequence(ctx, g, conversationSequence)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(5), next)
}

func TestResolveOrCreate_RepairsClaimWithoutCanonicalRow(t *testing.T) {
	g := newTestGateway(t)
	_, convs := newTestServices(g)
	ctx := context.Background()
	u1, u2 := newUser(), newUser()
	claimedAt := time.Date(2025, 3, 3, 3, 3, 3, 0, time.UTC)

	won, err := repo.ClaimPair(ctx, g, repo.PairClaim{Key: repo.PairKey(u1, u2), ConversationID: 12, User1ID: u1, User2ID: u2, CreatedAt: claimedAt})
	require.NoError(t, err)
	require.True(t, won)

	conv, err := convs.ResolveOrCreate(ctx, u2, u1)
	require.NoError(t, err)
	require.Equal(t, int64(12), conv.ID)
	require.Equal(t, u1, conv.User1ID)
	require.Equal(t, u2, conv.User2ID)

	stored, err := convs.GetConversation(ctx, 12)
	require.NoError(t, err)
	require.True(t, stored.LastMessageAt.Equal(claimedAt))

	p, err := convs.UserConversations(ctx, u2, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.Total)
	require.Equal(t, u1, p.Data[0].Other(u2))
	require.True(t, p.Data[0].CreatedAt.Equal(claimedAt))
}

func TestResolveOrCreate_LostClaimReturnsWinner(t *testing.T) {
	g := newTestGateway(t)
	ex := newScripted(g)
	_, convs := newTestServices(ex)
	ctx := context.Background()
	u1, u2 := newUser(), newUser()

	// A competing creator claims the pair between our allocation and claim.
	ex.before["claim_conversation_pair"] = func() {
		_, err := repo.ClaimPair(ctx, g, repo.PairClaim{Key: repo.PairKey(u1, u2), ConversationID: 42, User1ID: u2, User2ID: u1, CreatedAt: time.Now().UTC()})
		require.NoError(t, err)
	}

	conv, err := convs.ResolveOrCreate(ctx, u1, u2)
	require.NoError(t, err)
	require.Equal(t, int64(42), conv.ID)
	require.Equal(t, u2, conv.User1ID, "the winner's stored order is returned")
	require.Equal(t, u1, conv.User2ID)

	_, err = convs.GetConversation(ctx, 1)
	require.ErrorIs(t, err, ErrConversationNotFound, "the allocated id must not be materialized")
}

func TestResolveOrCreate_IDContention(t *testing.T) {
	g := newTestGateway(t)
	ex := newScripted(g)
	ex.notApplied["advance_sequence"] = true
	_, convs := newTestServices(ex)
	convs.IDAttempts = 3

	_, err := convs.ResolveOrCreate(context.Background(), newUser(), newUser())
	require.ErrorIs(t, err, ErrIDContention)
	require.Equal(t, 2, ex.count("advance_sequence"), "first attempt initialises the sequence")
}

func TestResolveOrCreate_StatementErrorPropagates(t *testing.T) {
	ex := newScripted(newTestGateway(t))
	boom := errors.New("store down")
	ex.fail["select_conversation_by_pair"] = boom
	_, convs := newTestServices(ex)

	_, err := convs.ResolveOrCreate(context.Background(), newUser(), newUser())
	require.ErrorIs(t, err, boom)
}

func TestGetConversation_NotFound(t *testing.T) {
	_, convs := newTestServices(newTestGateway(t))
	_, err := convs.GetConversation(context.Background(), 404)
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestUserConversations_InvalidUser(t *testing.T) {
	_, convs := newTestServices(newTestGateway(t))
	_, err := convs.UserConversations(context.Background(), "bob", 1, 20)
	require.ErrorIs(t, err, ErrInvalidUserID)
}
