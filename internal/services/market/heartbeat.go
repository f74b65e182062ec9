package market

import (
	"context"
	"time"

	"csgo-seller/internal/scheduler"
)

// Pinger is the keep-alive call.
type Pinger interface {
	PingPong(ctx context.Context) error
}

// Heartbeat pings the marketplace every interval, starting one interval
// after the call. Failures are logged and otherwise ignored.
func Heartbeat(ctx context.Context, p Pinger, interval time.Duration) {
	if err := scheduler.Sleep(ctx, interval); err != nil {
		return
	}
	scheduler.Loop(ctx, "market-ping", interval, func(ctx context.Context) error {
		if err := p.PingPong(ctx); err != nil {
			log.Warnw("ping pong failed", "err", err)
		}
		return nil
	})
}
