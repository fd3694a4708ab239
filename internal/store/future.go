package store

import "context"

// Future is the handle for a write started with ExecAsync.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Done is closed once the write has completed.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the write completes or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll waits for every future and returns the first error.
func WaitAll(ctx context.Context, fs ...*Future) error {
	var first error
	for _, f := range fs {
		if err := f.Wait(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
