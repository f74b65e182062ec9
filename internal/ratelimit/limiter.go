// Package ratelimit throttles calls to a quota-limited upstream API.
//
// A Limiter hands out one permit per interval. Waiters are served in the
// order they called Wait, and no waiter is ever rejected: the only way a
// Wait returns an error is the caller's own context ending.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter
}

// New returns a limiter granting at most one permit per interval.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until the caller may issue one call.
//
// Each call reserves the next free slot under the limiter's lock before
// sleeping, so permits are granted in call order and two callers can never
// share a slot.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// Interval is the minimum spacing between two permits.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
