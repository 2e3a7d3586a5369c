package async

import (
	"context"
	"sync"
	"time"
)

// DefaultOpTimeout bounds a single backend round trip.
const DefaultOpTimeout = 10 * time.Second

// Dispatcher fans operations out to worker goroutines. Each operation runs
// with a deadline-bound context; the closure it returns is posted back onto
// the loop, so completions always observe and mutate state from the owning
// goroutine.
type Dispatcher struct {
	base    context.Context
	loop    *Loop
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher constructs a dispatcher whose operation contexts descend from
// base and expire after timeout.
func NewDispatcher(base context.Context, loop *Loop, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &Dispatcher{base: base, loop: loop, timeout: timeout}
}

// Dispatch runs op on its own goroutine and posts the returned completion
// closure back onto the loop.
func (d *Dispatcher) Dispatch(op func(ctx context.Context) func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(d.base, d.timeout)
		defer cancel()
		done := op(ctx)
		if done != nil {
			d.loop.Post(done)
		}
	}()
}

// Wait blocks until every dispatched operation has posted its completion.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
