// Package seed fills a store with synthetic users, conversations and
// alternating messages for local testing. Conversations and messages go
// through the resolver and the fan-out so seeded data satisfies the same
// invariants as live traffic.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/repo"
	"github.com/tbourn/go-messenger-store/internal/services"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// AsyncExecutor starts writes without waiting for them.
type AsyncExecutor interface {
	ExecAsync(ctx context.Context, st store.Statement, args ...any) *store.Future
}

// Options sizes a run.
type Options struct {
	Users         int
	Conversations int
	MinMessages   int
	MaxMessages   int
	// Rate caps operations per second; 0 means unlimited. One user insert,
	// one conversation resolution or one message send takes one token,
	// whatever number of statements it fans out to.
	Rate float64
	// Seed makes pair selection and content reproducible; 0 picks one.
	Seed uint64
}

// DefaultOptions mirrors the classic fixture size.
func DefaultOptions() Options {
	return Options{Users: 10, Conversations: 15, MinMessages: 5, MaxMessages: 50}
}

// Result lists what a run created.
type Result struct {
	UserIDs         []string `json:"user_ids"`
	ConversationIDs []int64  `json:"conversation_ids"`
	Messages        int      `json:"messages"`
}

// Seeder generates fixture data.
type Seeder struct {
	Async         AsyncExecutor
	Conversations *services.ConversationService
	Messages      *services.MessageService
	Log           zerolog.Logger
}

var contents = []string{
	"Hey, how are you?",
	"What's up?",
	"Can we meet tomorrow?",
	"I'm busy right now",
	"Let's catch up soon",
	"Did you see that movie?",
	"Have you done the assignment?",
	"I'll call you later",
	"Thanks for your help!",
	"Congratulations!",
}

// Run creates opts.Users users, up to opts.Conversations distinct pairs and
// between MinMessages and MaxMessages alternating messages per pair.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := validate(opts); err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	lim := rate.NewLimiter(limit, 1)

	res := &Result{}

	s.Log.Info().Int("users", opts.Users).Msg("creating users")
	now := time.Now().UTC()
	futures := make([]*store.Future, 0, opts.Users)
	for i := 1; i <= opts.Users; i++ {
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
		u := &domain.User{
			ID:        uuid.NewString(),
			Username:  fmt.Sprintf("user%d", i),
			CreatedAt: now.Add(-time.Duration(1+rng.IntN(30)) * 24 * time.Hour).Truncate(time.Millisecond),
		}
		st, args := repo.InsertUserStatement(u)
		futures = append(futures, s.Async.ExecAsync(ctx, st, args...))
		res.UserIDs = append(res.UserIDs, u.ID)
	}
	if err := store.WaitAll(ctx, futures...); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}

	pairs := pickPairs(rng, len(res.UserIDs), opts.Conversations)
	s.Log.Info().Int("conversations", len(pairs)).Msg("creating conversations")
	for _, p := range pairs {
		a, b := res.UserIDs[p[0]], res.UserIDs[p[1]]
		if err := lim.Wait(ctx); err != nil {
			return nil, err
		}
		conv, err := s.Conversations.ResolveOrCreate(ctx, a, b)
		if err != nil {
			return nil, fmt.Errorf("resolve conversation: %w", err)
		}
		res.ConversationIDs = append(res.ConversationIDs, conv.ID)

		n := opts.MinMessages + rng.IntN(opts.MaxMessages-opts.MinMessages+1)
		for i := 0; i < n; i++ {
			sender, receiver := a, b
			if i%2 == 1 {
				sender, receiver = b, a
			}
			if err := lim.Wait(ctx); err != nil {
				return nil, err
			}
			if _, err := s.Messages.Send(ctx, services.SendInput{
				SenderID:       sender,
				ReceiverID:     receiver,
				Content:        contents[rng.IntN(len(contents))],
				ConversationID: conv.ID,
			}); err != nil {
				return nil, fmt.Errorf("send message: %w", err)
			}
			res.Messages++
		}
	}

	s.Log.Info().
		Int("users", len(res.UserIDs)).
		Int("conversations", len(res.ConversationIDs)).
		Int("messages", res.Messages).
		Msg("seed complete")
	return res, nil
}

func validate(o Options) error {
	switch {
	case o.Users < 2:
		return errors.New("seed: need at least 2 users")
	case o.Conversations < 0:
		return errors.New("seed: conversations must be >= 0")
	case o.MinMessages < 0 || o.MaxMessages < o.MinMessages:
		return errors.New("seed: need 0 <= min messages <= max messages")
	case o.Rate < 0:
		return errors.New("seed: rate must be >= 0")
	}
	return nil
}

// pickPairs returns up to want distinct unordered index pairs out of n.
func pickPairs(rng *rand.Rand, n, want int) [][2]int {
	all := make([][2]int, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			all = append(all, [2]int{i, j})
		}
	}
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if want < len(all) {
		all = all[:want]
	}
	for k := range all {
		if rng.IntN(2) == 1 {
			all[k][0], all[k][1] = all[k][1], all[k][0]
		}
	}
	return all
}
