package models

import (
	"fmt"
	"time"
)

// Direction is the side of a marketplace trade from the account's point of view.
type Direction string

const (
	DirectionIn  Direction = "in"  // counterparty is sending the item to me
	DirectionOut Direction = "out" // I must send the item to the counterparty
)

// Marketplace trade status codes (ui_status).
const (
	TradeStatusIncoming = "2"
	TradeStatusOutgoing = "4"
)

// Trade is one entry of a marketplace trade snapshot.
type Trade struct {
	ID         string `json:"ui_id"`
	ClassID    string `json:"i_classid"`
	InstanceID string `json:"i_instanceid"`
	Status     string `json:"ui_status"`
	Name       string `json:"i_name"`
	BidID      string `json:"ui_bid"`
}

// ItemType returns the classid_instanceid key used by the marketplace.
func (t Trade) ItemType() string {
	return t.ClassID + "_" + t.InstanceID
}

// Classify maps a marketplace status code onto a trade direction.
// The second result is false for statuses that are not yet actionable.
func Classify(status string) (Direction, bool) {
	switch status {
	case TradeStatusIncoming:
		return DirectionIn, true
	case TradeStatusOutgoing:
		return DirectionOut, true
	default:
		return "", false
	}
}

// OfferStateActive is the Steam trade offer state meaning "awaiting my action".
const OfferStateActive = 2

// ItemRef references one asset inside a transport offer.
type ItemRef struct {
	AppID      int    `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
}

// TransportOffer is a received Steam trade offer.
type TransportOffer struct {
	ID       string    `json:"tradeofferid"`
	State    int       `json:"trade_offer_state"`
	Message  string    `json:"message"`
	Items    []ItemRef `json:"items"`
	Received time.Time `json:"-"`
}

// Awaiting reports whether the offer still needs an action from this account.
func (o TransportOffer) Awaiting() bool {
	return o.State == OfferStateActive
}

// InventoryItem is an item the marketplace can list on the account's behalf.
type InventoryItem struct {
	ClassID        string `json:"i_classid"`
	InstanceID     string `json:"i_instanceid"`
	ListingID      string `json:"ui_id"`
	MarketHashName string `json:"i_market_hash_name"`
	SellPrice      int64  `json:"sell_price,omitempty"`
}

// ItemType returns the classid_instanceid key used by the marketplace.
func (i InventoryItem) ItemType() string {
	return i.ClassID + "_" + i.InstanceID
}

// TradeState is the normalized lifecycle of a trade regardless of which
// upstream vocabulary produced it.
type TradeState int

const (
	StateDiscovered TradeState = iota
	StateActionRequested
	StateActionConfirmed
	StateDone
	StateFailed
)

func (s TradeState) String() string {
	switch s {
	case StateDiscovered:
		return "DISCOVERED"
	case StateActionRequested:
		return "ACTION_REQUESTED"
	case StateActionConfirmed:
		return "ACTION_CONFIRMED"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("TradeState(%d)", int(s))
	}
}

// MarshalText lets the state render by name in JSON status output.
func (s TradeState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are possible.
func (s TradeState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// TradeProgress is the reconciler's record for one trade identity.
type TradeProgress struct {
	TradeID   string     `json:"trade_id"`
	Name      string     `json:"name"`
	Direction Direction  `json:"direction"`
	State     TradeState `json:"state"`
	CycleID   string     `json:"cycle_id"`
	OfferID   string     `json:"offer_id,omitempty"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SellReport summarises one sell cycle.
type SellReport struct {
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Considered int             `json:"considered"`
	Listed     []InventoryItem `json:"listed"`
	TotalCost  int64           `json:"total_cost"`
}

// Count returns the number of items actually listed.
func (r *SellReport) Count() int {
	return len(r.Listed)
}
