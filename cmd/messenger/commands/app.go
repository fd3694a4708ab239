package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-messenger-store/internal/config"
	"github.com/tbourn/go-messenger-store/internal/repo"
	"github.com/tbourn/go-messenger-store/internal/services"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// app is the composition root shared by the data commands.
type app struct {
	gw            *store.Gateway
	conversations *services.ConversationService
	messages      *services.MessageService
}

func newApp(c config.Config) (*app, error) {
	conn, err := store.FromConfig(c)
	if err != nil {
		return nil, err
	}
	lg := log.Logger
	gw := store.New(conn, store.Options{
		RetryDelay:  c.Reconnect.Delay,
		MaxAttempts: c.Reconnect.MaxAttempts,
		Logger:      &lg,
	})
	gw.Start()
	paging := pagingFrom(c)
	convs := services.NewConversationService(gw, paging)
	return &app{
		gw:            gw,
		conversations: convs,
		messages:      services.NewMessageService(gw, convs, paging, c.MaxContentRunes),
	}, nil
}

func (a *app) Close() {
	if err := a.gw.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
}

func pagingFrom(c config.Config) repo.Paging {
	return repo.Paging{
		DefaultLimit: c.Paging.DefaultPageSize,
		MaxLimit:     c.Paging.MaxPageSize,
		MaxFetch:     c.Paging.MaxFetchRows,
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseConversationID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid conversation id %q", s)
	}
	return id, nil
}
