package market

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"csgo-seller/internal/models"
)

// APIError is a well-formed marketplace response reporting failure.
type APIError struct {
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market %s: %s", e.Endpoint, e.Message)
}

// flexString accepts both JSON strings and numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts numbers and numeric strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %q", string(s))
	}
	*f = flexInt(n)
	return nil
}

type statusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type tradeEntry struct {
	ID         flexString `json:"ui_id"`
	ClassID    flexString `json:"i_classid"`
	InstanceID flexString `json:"i_instanceid"`
	Status     flexString `json:"ui_status"`
	Name       string     `json:"i_name"`
	BidID      flexString `json:"ui_bid"`
}

func (t tradeEntry) model() models.Trade {
	return models.Trade{
		ID:         string(t.ID),
		ClassID:    string(t.ClassID),
		InstanceID: string(t.InstanceID),
		Status:     string(t.Status),
		Name:       t.Name,
		BidID:      string(t.BidID),
	}
}

type inventoryResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Data  []struct {
		ListingID      flexString `json:"ui_id"`
		ClassID        flexString `json:"i_classid"`
		InstanceID     flexString `json:"i_instanceid"`
		MarketHashName string     `json:"i_market_hash_name"`
	} `json:"data"`
}

type bestOfferResponse struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	BestOffer flexInt `json:"best_offer"`
}

type setPriceResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Result  flexInt `json:"result"`
}

// failureMessage picks the upstream error text, falling back to the result
// code when the marketplace did not send one.
func (r setPriceResponse) failureMessage() string {
	if r.Error != "" {
		return r.Error
	}
	return fmt.Sprintf("result=%d", int64(r.Result))
}

type itemRequestResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Trade   flexString `json:"trade"`
	Nick    string     `json:"nick"`
	BotID   flexString `json:"botid"`
}
