// Package async provides the single-goroutine execution model the party cache
// relies on: a Loop that owns all state mutations, and a Dispatcher that runs
// network round trips off the loop and posts their completions back onto it.
package async

import (
	"context"

	"github.com/rs/zerolog"
)

// Loop executes posted closures one at a time on the goroutine running Run.
// Everything that touches registry state goes through it, which is what lets
// the rest of the system stay lock-free.
type Loop struct {
	log   *zerolog.Logger
	tasks chan func()
}

// NewLoop constructs a loop with the given task buffer.
func NewLoop(log *zerolog.Logger, buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Loop{log: log, tasks: make(chan func(), buffer)}
}

// Post enqueues fn for execution on the loop goroutine. It blocks when the
// buffer is full, providing backpressure to producers.
func (l *Loop) Post(fn func()) {
	l.tasks <- fn
}

// Call runs fn on the loop goroutine and waits for it to finish. It must not
// be called from the loop goroutine itself; that would deadlock.
func (l *Loop) Call(fn func()) {
	done := make(chan struct{})
	l.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Run executes tasks until ctx is canceled. Tasks already in the buffer when
// cancellation hits are dropped; callers needing delivery guarantees should
// drain through Call before shutdown.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Debug().Msg("task loop running")
	for {
		select {
		case <-ctx.Done():
			l.log.Debug().Int("dropped", len(l.tasks)).Msg("task loop stopped")
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}
