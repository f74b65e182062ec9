// Package events carries normalized poll results from the pollers to the
// reconciler. Payloads are value types; a handler never sees a live
// reference into a poller's state.
package events

import (
	"context"
	"sync"

	"csgo-seller/internal/models"
)

// Event is one of TradeEvent, TradeSnapshot or OfferEvent.
type Event interface {
	eventName() string
}

// TradeEvent is published for every actionable trade in a marketplace
// snapshot. Replays of the same trade in later cycles are expected.
type TradeEvent struct {
	CycleID   string
	Direction models.Direction
	Trade     models.Trade
}

// TradeSnapshot lists every trade id present in one marketplace poll.
// It is published before any TradeEvent of the same cycle.
type TradeSnapshot struct {
	CycleID  string
	TradeIDs []string
}

// OfferEvent is published for every received offer awaiting action.
type OfferEvent struct {
	Offer models.TransportOffer
}

func (TradeEvent) eventName() string    { return "trade" }
func (TradeSnapshot) eventName() string { return "trade-snapshot" }
func (OfferEvent) eventName() string    { return "offer" }

// Name returns a short label for logs and metrics.
func Name(ev Event) string {
	return ev.eventName()
}

// Handler consumes events. Publish blocks until every handler returns, so a
// publisher that processes a batch item by item gets sequential handling.
type Handler func(ctx context.Context, ev Event)

type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for all subsequent events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers ev to every subscriber in registration order on the
// caller's goroutine.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}
