package market

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"csgo-seller/internal/events"
	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
	"csgo-seller/internal/scheduler"
)

// TradeSource fetches the current marketplace trade snapshot.
type TradeSource interface {
	Trades(ctx context.Context) ([]models.Trade, error)
}

// TradePoller turns marketplace trade snapshots into trade events.
type TradePoller struct {
	source      TradeSource
	bus         *events.Bus
	interval    time.Duration
	handleDelay time.Duration
	newCycleID  func() string
}

func NewTradePoller(source TradeSource, bus *events.Bus, interval, handleDelay time.Duration) *TradePoller {
	return &TradePoller{
		source:      source,
		bus:         bus,
		interval:    interval,
		handleDelay: handleDelay,
		newCycleID:  func() string { return uuid.NewString() },
	}
}

// Run polls until ctx is done. A new cycle starts interval after the
// previous one finished, including after a failed fetch.
func (p *TradePoller) Run(ctx context.Context) {
	log.Infow("trade poller started", "interval", p.interval, "handle_delay", p.handleDelay)
	scheduler.Loop(ctx, "market-trades", p.interval, p.PollOnce)
}

// PollOnce runs a single cycle: fetch, announce the snapshot, then hand
// actionable trades to subscribers one at a time in list order.
func (p *TradePoller) PollOnce(ctx context.Context) (err error) {
	defer func() {
		metrics.PollCycles.WithLabelValues("market-trades", metrics.Outcome(err)).Inc()
	}()

	trades, err := p.source.Trades(ctx)
	if err != nil {
		return xerrors.Errorf("cant handle market trades: %w", err)
	}

	cycleID := p.newCycleID()
	ids := make([]string, 0, len(trades))
	for _, t := range trades {
		ids = append(ids, t.ID)
	}
	p.bus.Publish(ctx, events.TradeSnapshot{CycleID: cycleID, TradeIDs: ids})

	var actionable []events.TradeEvent
	for _, trade := range trades {
		dir, ok := models.Classify(trade.Status)
		if !ok {
			log.Debugw("trade not actionable", "trade", trade.ID, "status", trade.Status)
			continue
		}
		actionable = append(actionable, events.TradeEvent{CycleID: cycleID, Direction: dir, Trade: trade})
	}

	// The delay only separates actionable trades.
	for i, ev := range actionable {
		if i > 0 {
			if err := scheduler.Sleep(ctx, p.handleDelay); err != nil {
				return err
			}
		}
		p.bus.Publish(ctx, ev)
	}

	log.Infow("market trades cycle complete", "cycle", cycleID, "trades", len(trades), "actionable", len(actionable))
	return nil
}
