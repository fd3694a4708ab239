package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/tbourn/go-messenger-store/internal/domain"
	"github.com/tbourn/go-messenger-store/internal/store"
)

// ErrPageTooDeep is returned when page*limit exceeds Paging.MaxFetch.
var ErrPageTooDeep = errors.New("page too deep")

// Default paging bounds.
const (
	DefaultLimit    = 20
	DefaultMaxLimit = 100
	DefaultMaxFetch = 10000
)

// PageQuery pairs a COUNT statement with the data statement of the same
// view. Args bind the partition (and any bound) to both; the data
// statement takes one extra trailing LIMIT argument.
type PageQuery struct {
	Count store.Statement
	Data  store.Statement
	Args  []any
}

// Paging bounds page normalization and over-fetch.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
	// MaxFetch caps page*limit, the rows read to serve one page. 0 disables it.
	MaxFetch int
}

// DefaultPaging returns the default bounds.
func DefaultPaging() Paging {
	return Paging{DefaultLimit: DefaultLimit, MaxLimit: DefaultMaxLimit, MaxFetch: DefaultMaxFetch}
}

// Normalize clamps page to >= 1 and limit into [1, MaxLimit], substituting
// DefaultLimit for non-positive limits.
func (p Paging) Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = p.DefaultLimit
		if limit <= 0 {
			limit = DefaultLimit
		}
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	return page, limit
}

// ReadPage serves page of size limit from a view that only supports LIMIT.
//
// It runs the COUNT statement, then reads the first limit*page rows in the
// view's clustering order and drops the first (page-1)*limit of them. The
// two reads are independent, so total may disagree with the rows returned
// under concurrent writes. Data is never nil.
func ReadPage[T any](ctx context.Context, ex Executor, q PageQuery, p Paging, page, limit int, shape func(store.Row) T) (domain.Page[T], error) {
	page, limit = p.Normalize(page, limit)
	if p.MaxFetch > 0 && page > p.MaxFetch/limit {
		return domain.Page[T]{}, fmt.Errorf("%w: page %d of %d rows exceeds %d fetched rows",
			ErrPageTooDeep, page, limit, p.MaxFetch)
	}
	fetch := limit * page

	total, err := count(ctx, ex, q.Count, q.Args...)
	if err != nil {
		return domain.Page[T]{}, err
	}

	args := make([]any, 0, len(q.Args)+1)
	args = append(args, q.Args...)
	args = append(args, fetch)
	rows, err := ex.Query(ctx, q.Data, args...)
	if err != nil {
		return domain.Page[T]{}, err
	}

	out := domain.Page[T]{Total: total, Page: page, Limit: limit, Data: []T{}}
	skip := (page - 1) * limit
	if skip >= len(rows) {
		return out, nil
	}
	rows = rows[skip:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out.Data = make([]T, 0, len(rows))
	for _, r := range rows {
		out.Data = append(out.Data, shape(r))
	}
	return out, nil
}

func count(ctx context.Context, ex Executor, st store.Statement, args ...any) (int64, error) {
	rows, err := ex.Query(ctx, st, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Int64("total"), nil
}
