package repo

import (
	"context"
	"time"
)

// PairClaim records which conversation owns an unordered user pair.
type PairClaim struct {
	Key            string
	ConversationID int64
	User1ID        string
	User2ID        string
	CreatedAt      time.Time
}

// PairKey is the canonical key of the unordered pair {a, b}: both orders
// yield the same key.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// GetPair reads the claim for key.
func GetPair(ctx context.Context, ex Executor, key string) (*PairClaim, error) {
	rows, err := ex.Query(ctx, stmtSelectPair, key)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	r := rows[0]
	return &PairClaim{
		Key:            r.String("pair_key"),
		ConversationID: r.Int64("conversation_id"),
		User1ID:        r.String("user1_id"),
		User2ID:        r.String("user2_id"),
		CreatedAt:      r.Time("created_at"),
	}, nil
}

// ClaimPair inserts p only if its key is unclaimed and reports whether it
// won.
func ClaimPair(ctx context.Context, ex Executor, p PairClaim) (bool, error) {
	return ex.Apply(ctx, stmtClaimPair, p.Key, p.ConversationID, p.User1ID, p.User2ID, p.CreatedAt)
}

// ReadSequence returns the next unallocated id of sequence name. ok is
// false when the sequence has not been initialised.
func ReadSequence(ctx context.Context, ex Executor, name string) (next int64, ok bool, err error) {
	rows, err := ex.Query(ctx, stmtSelectSequence, name)
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].Int64("next_id"), true, nil
}

// InitSequence creates sequence name at next unless it already exists.
func InitSequence(ctx context.Context, ex Executor, name string, next int64) (bool, error) {
	return ex.Apply(ctx, stmtInitSequence, name, next)
}

// AdvanceSequence moves name from expected to next if nobody else has
// moved it first.
func AdvanceSequence(ctx context.Context, ex Executor, name string, expected, next int64) (bool, error) {
	return ex.Apply(ctx, stmtAdvanceSequence, next, name, expected)
}
