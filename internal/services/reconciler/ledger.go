package reconciler

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"csgo-seller/internal/models"
)

// DefaultLedgerSize bounds how many trade identities are remembered.
const DefaultLedgerSize = 4096

// Ledger records per-trade progress so the same trade is never driven by two
// actions at once, and correlates transport offers with marketplace trades.
type Ledger struct {
	mu     sync.Mutex
	trades *lru.Cache[string, models.TradeProgress]
	offers *lru.Cache[string, string] // offer id -> trade id
	now    func() time.Time
}

func NewLedger(size int) (*Ledger, error) {
	trades, err := lru.New[string, models.TradeProgress](size)
	if err != nil {
		return nil, err
	}
	offers, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Ledger{trades: trades, offers: offers, now: time.Now}, nil
}

// Begin claims the trade for one action in the given cycle. It refuses when
// an action for the trade is still outstanding or the trade was already
// handled in this cycle.
func (l *Ledger) Begin(trade models.Trade, dir models.Direction, cycleID string) (bool, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.trades.Get(trade.ID); ok {
		switch {
		case prev.State == models.StateActionRequested || prev.State == models.StateActionConfirmed:
			return false, "action already outstanding"
		case prev.CycleID == cycleID:
			return false, "already handled in this cycle"
		}
	}

	l.trades.Add(trade.ID, models.TradeProgress{
		TradeID:   trade.ID,
		Name:      trade.Name,
		Direction: dir,
		State:     models.StateActionRequested,
		CycleID:   cycleID,
		UpdatedAt: l.now(),
	})
	return true, ""
}

// Confirm records that the marketplace created transport offer offerID for the trade.
func (l *Ledger) Confirm(tradeID, offerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.trades.Get(tradeID)
	if !ok {
		return
	}
	p.State = models.StateActionConfirmed
	p.OfferID = offerID
	p.UpdatedAt = l.now()
	l.trades.Add(tradeID, p)
	l.offers.Add(offerID, tradeID)
}

// Finish moves the trade to DONE, or to FAILED when cause is non-nil.
func (l *Ledger) Finish(tradeID string, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.trades.Get(tradeID)
	if !ok {
		return
	}
	p.State = models.StateDone
	p.Error = ""
	if cause != nil {
		p.State = models.StateFailed
		p.Error = cause.Error()
	}
	p.UpdatedAt = l.now()
	l.trades.Add(tradeID, p)
}

// Retain forgets every trade that is not in the latest snapshot, except
// trades with an action still in flight. Returns the number forgotten.
func (l *Ledger) Retain(ids []string) int {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	dropped := 0
	for _, id := range l.trades.Keys() {
		if _, ok := keep[id]; ok {
			continue
		}
		p, ok := l.trades.Peek(id)
		if ok && !p.State.Terminal() {
			continue
		}
		l.trades.Remove(id)
		if ok && p.OfferID != "" {
			l.offers.Remove(p.OfferID)
		}
		dropped++
	}
	return dropped
}

// Get returns the progress recorded for a trade.
func (l *Ledger) Get(tradeID string) (models.TradeProgress, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trades.Peek(tradeID)
}

// TradeForOffer returns the marketplace trade that produced a transport offer.
func (l *Ledger) TradeForOffer(offerID string) (models.TradeProgress, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tradeID, ok := l.offers.Peek(offerID)
	if !ok {
		return models.TradeProgress{}, false
	}
	return l.trades.Peek(tradeID)
}

// Snapshot lists all remembered trades, least recently touched first.
func (l *Ledger) Snapshot() []models.TradeProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.trades.Values()
}
