package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRetryDelay is the pause between connect attempts.
const DefaultRetryDelay = 5 * time.Second

// Session is a live, driver-level connection. Implementations must be safe
// for concurrent use; the gateway does not serialize statements.
type Session interface {
	// Query runs a read and returns all rows.
	Query(ctx context.Context, stmt string, args []any) ([]Row, error)
	// Exec runs a write.
	Exec(ctx context.Context, stmt string, args []any) error
	// Apply runs a conditional write and reports whether it took effect.
	Apply(ctx context.Context, stmt string, args []any) (bool, error)
	// Close releases the session.
	Close() error
}

// Connector establishes sessions for one dialect.
type Connector interface {
	Dialect() Dialect
	// Target describes the endpoint for logs (e.g. "cassandra:9042/messenger").
	Target() string
	Connect(ctx context.Context) (Session, error)
}

// Options configures a Gateway.
type Options struct {
	// RetryDelay is the fixed pause between connect attempts.
	RetryDelay time.Duration
	// MaxAttempts bounds the connect loop; 0 retries until success.
	MaxAttempts int
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// connectRun is one execution of the connect loop. done is closed when the
// loop ends; err is set before that when it ended without a session.
type connectRun struct {
	done chan struct{}
	err  error
}

// Gateway executes statements through a single process-wide session.
//
// The session is created lazily: the first statement (or Start) launches
// one connect loop and every concurrent caller waits on it. Once a session
// exists, statement failures are returned immediately and never retried.
type Gateway struct {
	conn   Connector
	opts   Options
	log    zerolog.Logger
	tracer trace.Tracer

	ctx    context.Context // cancelled by Close; stops the connect loop
	cancel context.CancelFunc

	mu     sync.Mutex
	sess   Session
	run    *connectRun
	closed bool
}

// New returns a Gateway that is not yet connected.
func New(c Connector, opts Options) *Gateway {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		conn:   c,
		opts:   opts,
		log:    base.With().Str("component", "store").Str("dialect", string(c.Dialect())).Logger(),
		tracer: otel.Tracer("store/Gateway"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Dialect returns the dialect of the underlying connector.
func (g *Gateway) Dialect() Dialect { return g.conn.Dialect() }

// Start launches the connect loop without waiting for it. The composition
// root calls it at boot so the session is usually ready before the first
// statement; calling it is optional.
func (g *Gateway) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startLocked()
}

// Ready reports whether a live session is held.
func (g *Gateway) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sess != nil
}

// Wait blocks until a session is available, the connect loop gives up, or
// ctx is done.
func (g *Gateway) Wait(ctx context.Context) error {
	_, err := g.session(ctx)
	return err
}

// Close stops the connect loop and releases the session. It is idempotent
// and safe to call when never connected.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.cancel()
	sess := g.sess
	g.sess = nil
	g.mu.Unlock()

	if sess == nil {
		return nil
	}
	sessionReady.Set(0)
	err := sess.Close()
	g.log.Info().Msg("store session closed")
	return err
}

func (g *Gateway) startLocked() *connectRun {
	if g.run == nil {
		g.run = &connectRun{done: make(chan struct{})}
		go g.connectLoop(g.run)
	}
	return g.run
}

func (g *Gateway) connectLoop(run *connectRun) {
	defer close(run.done)

	delay := g.opts.RetryDelay
	for attempt := 1; ; attempt++ {
		g.log.Info().Int("attempt", attempt).Str("target", g.conn.Target()).Msg("connecting to store")
		sess, err := g.conn.Connect(g.ctx)
		if err == nil {
			g.mu.Lock()
			if g.closed {
				g.mu.Unlock()
				_ = sess.Close()
				run.err = ErrClosed
				return
			}
			g.sess = sess
			g.mu.Unlock()

			connectAttempts.WithLabelValues("success").Inc()
			sessionReady.Set(1)
			g.log.Info().Int("attempts", attempt).Str("target", g.conn.Target()).Msg("connected to store")
			return
		}

		connectAttempts.WithLabelValues("failure").Inc()
		g.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("store connect failed")

		if g.opts.MaxAttempts > 0 && attempt >= g.opts.MaxAttempts {
			g.finishFailed(run, fmt.Errorf("%w: %d connect attempts: %v", ErrUnavailable, attempt, err))
			return
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-g.ctx.Done():
			t.Stop()
			g.finishFailed(run, ErrClosed)
			return
		}
	}
}

// finishFailed records a loop that ended without a session and clears it so
// the next caller starts a fresh loop.
func (g *Gateway) finishFailed(run *connectRun, err error) {
	g.mu.Lock()
	run.err = err
	if g.run == run {
		g.run = nil
	}
	g.mu.Unlock()
}

func (g *Gateway) session(ctx context.Context) (Session, error) {
	g.mu.Lock()
	if g.sess != nil {
		s := g.sess
		g.mu.Unlock()
		return s, nil
	}
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	run := g.startLocked()
	g.mu.Unlock()

	select {
	case <-run.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if run.err != nil {
		return nil, run.err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sess == nil {
		return nil, ErrClosed
	}
	return g.sess, nil
}

// Query executes a read statement and returns its rows.
func (g *Gateway) Query(ctx context.Context, st Statement, args ...any) ([]Row, error) {
	var rows []Row
	err := g.execute(ctx, st, func(ctx context.Context, s Session, text string) error {
		var err error
		rows, err = s.Query(ctx, text, args)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Exec executes a write statement.
func (g *Gateway) Exec(ctx context.Context, st Statement, args ...any) error {
	return g.execute(ctx, st, func(ctx context.Context, s Session, text string) error {
		return s.Exec(ctx, text, args)
	})
}

// Apply executes a conditional write (IF NOT EXISTS / IF col = ?) and
// reports whether it was applied. A condition that does not hold is not an
// error.
func (g *Gateway) Apply(ctx context.Context, st Statement, args ...any) (bool, error) {
	var applied bool
	err := g.execute(ctx, st, func(ctx context.Context, s Session, text string) error {
		var err error
		applied, err = s.Apply(ctx, text, args)
		return err
	})
	return applied, err
}

// ExecAsync starts a write without waiting for it and returns a handle.
func (g *Gateway) ExecAsync(ctx context.Context, st Statement, args ...any) *Future {
	f := newFuture()
	go func() {
		f.resolve(g.Exec(ctx, st, args...))
	}()
	return f
}

func (g *Gateway) execute(ctx context.Context, st Statement, fn func(context.Context, Session, string) error) error {
	text := st.Text(g.conn.Dialect())
	if text == "" {
		return &StatementError{Statement: st.Name, Err: ErrUnsupported}
	}
	sess, err := g.session(ctx)
	if err != nil {
		return err
	}

	ctx, span := g.tracer.Start(ctx, st.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", string(g.conn.Dialect())),
			attribute.String("db.operation.name", st.Name),
		),
	)
	defer span.End()

	start := time.Now()
	err = fn(ctx, sess, text)
	statementDuration.WithLabelValues(st.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		statementsTotal.WithLabelValues(st.Name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.log.Error().Err(err).Str("statement", st.Name).Msg("statement failed")
		return &StatementError{Statement: st.Name, Err: err}
	}
	statementsTotal.WithLabelValues(st.Name, "ok").Inc()
	return nil
}
