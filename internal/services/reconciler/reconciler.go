// Package reconciler is the decision layer between the marketplace and the
// Steam trade-offer transport. It consumes poller events, owns every
// side-effecting call and keeps per-trade progress.
package reconciler

import (
	"context"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/events"
	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
)

var log = logging.Logger("reconciler")

// InboundParty is the fixed party reference used for incoming item requests.
const InboundParty = "1"

// Marketplace is the subset of the marketplace API the reconciler drives.
type Marketplace interface {
	ItemRequest(ctx context.Context, dir models.Direction, party string) (string, error)
	UpdateInventory(ctx context.Context) error
	Inventory(ctx context.Context) ([]models.InventoryItem, error)
	BestBuyOffer(ctx context.Context, classID, instanceID string) (int64, error)
	SetPrice(ctx context.Context, listingID string, price int64) error
}

// Transport accepts trade offers.
type Transport interface {
	AcceptOffer(ctx context.Context, offerID string) error
}

type Reconciler struct {
	market       Marketplace
	transport    Transport
	ledger       *Ledger
	minSalePrice int64

	lastReport atomic.Pointer[models.SellReport]
}

func New(market Marketplace, transport Transport, minSalePrice int64) (*Reconciler, error) {
	ledger, err := NewLedger(DefaultLedgerSize)
	if err != nil {
		return nil, xerrors.Errorf("creating trade ledger: %w", err)
	}
	return &Reconciler{
		market:       market,
		transport:    transport,
		ledger:       ledger,
		minSalePrice: minSalePrice,
	}, nil
}

// Subscribe attaches the reconciler to a bus.
func (r *Reconciler) Subscribe(bus *events.Bus) {
	bus.Subscribe(r.HandleEvent)
}

// HandleEvent dispatches one bus event.
func (r *Reconciler) HandleEvent(ctx context.Context, ev events.Event) {
	switch e := ev.(type) {
	case events.TradeSnapshot:
		r.handleSnapshot(e)
	case events.TradeEvent:
		r.handleTrade(ctx, e)
	case events.OfferEvent:
		r.handleOffer(e)
	default:
		log.Warnw("unknown event", "event", events.Name(ev))
	}
}

func (r *Reconciler) handleSnapshot(ev events.TradeSnapshot) {
	if n := r.ledger.Retain(ev.TradeIDs); n > 0 {
		log.Debugw("forgot trades resolved upstream", "cycle", ev.CycleID, "count", n)
	}
}

// handleTrade drives one trade from DISCOVERED to DONE or FAILED. There is
// no retry: an unresolved trade comes back in the next snapshot.
func (r *Reconciler) handleTrade(ctx context.Context, ev events.TradeEvent) {
	trade := ev.Trade
	logger := log.With("trade", trade.ID, "item", trade.Name, "direction", ev.Direction, "cycle", ev.CycleID)

	if ok, reason := r.ledger.Begin(trade, ev.Direction, ev.CycleID); !ok {
		logger.Infow("skipping trade", "reason", reason)
		return
	}
	r.transition(ev.Direction, models.StateActionRequested)
	logger.Infow("requesting items for trade")

	// A panic ends the cycle; the trade must not stay outstanding forever.
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(trade.ID, ev.Direction, xerrors.Errorf("panic while handling trade: %v", rec))
			panic(rec)
		}
	}()

	party := InboundParty
	if ev.Direction == models.DirectionOut {
		party = trade.BidID
	}

	offerID, err := r.market.ItemRequest(ctx, ev.Direction, party)
	if err != nil {
		logger.Errorw("cant handle item", "err", err)
		r.fail(trade.ID, ev.Direction, err)
		return
	}

	r.ledger.Confirm(trade.ID, offerID)
	r.transition(ev.Direction, models.StateActionConfirmed)

	if err := r.transport.AcceptOffer(ctx, offerID); err != nil {
		logger.Errorw("cant accept trade offer", "offer", offerID, "err", err)
		r.fail(trade.ID, ev.Direction, err)
		return
	}

	r.ledger.Finish(trade.ID, nil)
	r.transition(ev.Direction, models.StateDone)
	logger.Infow("trade offer accepted", "offer", offerID)
}

func (r *Reconciler) fail(tradeID string, dir models.Direction, err error) {
	r.ledger.Finish(tradeID, err)
	r.transition(dir, models.StateFailed)
}

func (r *Reconciler) transition(dir models.Direction, state models.TradeState) {
	metrics.TradeTransitions.WithLabelValues(string(dir), state.String()).Inc()
}

func (r *Reconciler) handleOffer(ev events.OfferEvent) {
	offer := ev.Offer
	if p, ok := r.ledger.TradeForOffer(offer.ID); ok {
		log.Infow("found received offer for marketplace trade",
			"offer", offer.ID, "trade", p.TradeID, "item", p.Name, "state", p.State)
		return
	}
	log.Infow("found received offer", "offer", offer.ID, "items", len(offer.Items))
}

// Progress lists the trades the reconciler currently remembers.
func (r *Reconciler) Progress() []models.TradeProgress {
	return r.ledger.Snapshot()
}

// LastSellReport returns the result of the most recent sell cycle, or nil.
func (r *Reconciler) LastSellReport() *models.SellReport {
	return r.lastReport.Load()
}
