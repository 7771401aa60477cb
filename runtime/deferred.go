package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"trip-hub/errors"
)

// Deferred runs one-shot background tasks after a fixed delay: the
// silence-triggered experience flush and the delayed help response.
//
// Tasks carry no cancellation handle. Several tasks may be scheduled against
// the same state; each one re-reads shared state at fire time and turns
// itself into a no-op when it has been superseded. Staleness is not an
// error.
type Deferred struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

func NewDeferred(log *slog.Logger) *Deferred {
	return &Deferred{log: log}
}

// After schedules fn to run once the delay elapses. The task is skipped
// entirely when ctx is done first. Panics are recovered so a buggy task
// cannot take the process down.
func (d *Deferred) After(ctx context.Context, delay time.Duration, name string, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Warn("Deferred task panicked", "name", name, "error", errors.ErrWorkerPanic)
			}
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		fn(ctx)
	}()
}

// Wait blocks until every scheduled task has finished or been skipped.
func (d *Deferred) Wait() {
	d.wg.Wait()
}
