package steam

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/xerrors"

	"csgo-seller/internal/events"
	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
	"csgo-seller/internal/scheduler"
)

// OfferSource fetches the active received offers.
type OfferSource interface {
	ReceivedOffers(ctx context.Context) ([]models.TransportOffer, error)
}

// OfferPoller publishes an OfferEvent for every received offer awaiting
// action. It only observes; it never acts on an offer.
//
// When appID is set, only items from that app and context are kept on the
// published offer.
type OfferPoller struct {
	source    OfferSource
	bus       *events.Bus
	interval  time.Duration
	appID     int
	contextID string
}

func NewOfferPoller(source OfferSource, bus *events.Bus, interval time.Duration, appID, contextID int) *OfferPoller {
	return &OfferPoller{
		source:    source,
		bus:       bus,
		interval:  interval,
		appID:     appID,
		contextID: strconv.Itoa(contextID),
	}
}

func (p *OfferPoller) Run(ctx context.Context) {
	log.Infow("received offers poller started", "interval", p.interval)
	scheduler.Loop(ctx, "steam-offers", p.interval, p.PollOnce)
}

func (p *OfferPoller) PollOnce(ctx context.Context) (err error) {
	defer func() {
		metrics.PollCycles.WithLabelValues("steam-offers", metrics.Outcome(err)).Inc()
	}()

	offers, err := p.source.ReceivedOffers(ctx)
	if err != nil {
		return xerrors.Errorf("cant handle received offers: %w", err)
	}

	for _, offer := range offers {
		if !offer.Awaiting() {
			continue
		}
		offer.Items = p.ownItems(offer.Items)
		metrics.OffersObserved.Inc()
		p.bus.Publish(ctx, events.OfferEvent{Offer: offer})
	}
	return nil
}

func (p *OfferPoller) ownItems(items []models.ItemRef) []models.ItemRef {
	if p.appID == 0 {
		return items
	}
	kept := make([]models.ItemRef, 0, len(items))
	for _, it := range items {
		if it.AppID == p.appID && it.ContextID == p.contextID {
			kept = append(kept, it)
		}
	}
	return kept
}
