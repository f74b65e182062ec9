// Package scheduler runs poll-forever tasks.
package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("scheduler")

// Task is one cycle of a recurring job.
type Task func(ctx context.Context) error

// Loop runs task immediately and then again interval after each run
// completes, until ctx is done. Cycles never overlap. An error or a panic
// ends only the current cycle; the next one is scheduled as usual.
func Loop(ctx context.Context, name string, interval time.Duration, task Task) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debugw("recurring task stopped", "task", name)
			return
		case <-timer.C:
		}

		if err := RunOnce(ctx, task); err != nil && ctx.Err() == nil {
			log.Errorw("recurring task failed, retrying after interval", "task", name, "interval", interval, "err", err)
		}

		timer.Reset(interval)
	}
}

// RunOnce runs a single cycle, converting a panic into an error.
func RunOnce(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("panic in cycle: %v\n%s", r, debug.Stack())
		}
	}()
	return task(ctx)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Go starts Loop on its own goroutine and returns a channel closed when it exits.
func Go(ctx context.Context, name string, interval time.Duration, task Task) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, name, interval, task)
	}()
	return done
}
