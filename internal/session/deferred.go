package session

import (
	"context"
	"time"
)

// deferred is a delayed task with a cancellation token. done runs exactly
// once, either after fn returns or when Cancel stops the timer first.
type deferred struct {
	timer  *time.Timer
	cancel context.CancelFunc
	done   func()
}

func schedule(delay time.Duration, done func(), fn func(ctx context.Context)) *deferred {
	ctx, cancel := context.WithCancel(context.Background())
	d := &deferred{cancel: cancel, done: done}
	d.timer = time.AfterFunc(delay, func() {
		defer done()
		defer cancel()
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	return d
}

// Cancel prevents a pending run and signals a running one through its context.
func (d *deferred) Cancel() {
	if d == nil {
		return
	}
	d.cancel()
	if d.timer.Stop() {
		d.done()
	}
}
