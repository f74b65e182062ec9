package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
	"csgo-seller/internal/ratelimit"
)

var log = logging.Logger("market")

// Client talks to the market.csgo.com API. Every request waits for a permit
// from the shared limiter first.
type Client struct {
	apiKey  string
	client  *resty.Client
	limiter *ratelimit.Limiter
}

func NewClient(baseURL, apiKey string, limiter *ratelimit.Limiter, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	log.Infow("market client created", "base_url", baseURL)

	return &Client{
		apiKey:  apiKey,
		client:  client,
		limiter: limiter,
	}
}

// get waits for a permit, issues the request and returns the raw body.
func (c *Client) get(ctx context.Context, endpoint, path string) (body []byte, err error) {
	defer func() {
		metrics.MarketCalls.WithLabelValues(endpoint, metrics.Outcome(err)).Inc()
	}()

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, xerrors.Errorf("waiting for %s permit: %w", endpoint, err)
	}
	metrics.RateLimitWait.Observe(time.Since(waitStart).Seconds())

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		Get(path)
	if err != nil {
		return nil, xerrors.Errorf("%s request: %w", endpoint, err)
	}
	if resp.IsError() {
		return nil, xerrors.Errorf("%s: unexpected status %s", endpoint, resp.Status())
	}
	return resp.Body(), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	body, err := c.get(ctx, endpoint, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return xerrors.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// Trades returns the full current trade list.
func (c *Client) Trades(ctx context.Context) ([]models.Trade, error) {
	body, err := c.get(ctx, "Trades", "Trades")
	if err != nil {
		return nil, err
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, xerrors.Errorf("decoding Trades response: %w", err)
		}
		if !status.Success {
			return nil, &APIError{Endpoint: "Trades", Message: status.Error}
		}
		return nil, nil
	}

	var entries []tradeEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, xerrors.Errorf("decoding Trades response: %w", err)
	}
	trades := make([]models.Trade, 0, len(entries))
	for _, e := range entries {
		trades = append(trades, e.model())
	}
	return trades, nil
}

// UpdateInventory asks the marketplace to refresh its copy of the Steam inventory.
func (c *Client) UpdateInventory(ctx context.Context) error {
	var resp statusResponse
	if err := c.getJSON(ctx, "UpdateInventory", "UpdateInventory", &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Endpoint: "UpdateInventory", Message: resp.Error}
	}
	return nil
}

// Inventory returns the items the marketplace can list for this account.
func (c *Client) Inventory(ctx context.Context) ([]models.InventoryItem, error) {
	var resp inventoryResponse
	if err := c.getJSON(ctx, "GetInv", "GetInv", &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, &APIError{Endpoint: "GetInv", Message: resp.Error}
	}

	items := make([]models.InventoryItem, 0, len(resp.Data))
	for _, d := range resp.Data {
		items = append(items, models.InventoryItem{
			ClassID:        string(d.ClassID),
			InstanceID:     string(d.InstanceID),
			ListingID:      string(d.ListingID),
			MarketHashName: d.MarketHashName,
		})
	}
	return items, nil
}

// BestBuyOffer returns the highest competing buy order for an item type.
func (c *Client) BestBuyOffer(ctx context.Context, classID, instanceID string) (int64, error) {
	path := fmt.Sprintf("BestBuyOffer/%s_%s/", url.PathEscape(classID), url.PathEscape(instanceID))

	var resp bestOfferResponse
	if err := c.getJSON(ctx, "BestBuyOffer", path, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, &APIError{Endpoint: "BestBuyOffer", Message: resp.Error}
	}
	return int64(resp.BestOffer), nil
}

// SetPrice lists an inventory item for sale at price (minor units).
func (c *Client) SetPrice(ctx context.Context, listingID string, price int64) error {
	path := fmt.Sprintf("SetPrice/%s/%d/", url.PathEscape(listingID), price)

	var resp setPriceResponse
	if err := c.getJSON(ctx, "SetPrice", path, &resp); err != nil {
		return err
	}
	if !resp.Success || resp.Result != 1 {
		return &APIError{Endpoint: "SetPrice", Message: resp.failureMessage()}
	}
	return nil
}

// ItemRequest asks the marketplace bot to create a Steam trade offer for
// pending trades in the given direction and returns that offer's id.
func (c *Client) ItemRequest(ctx context.Context, dir models.Direction, party string) (string, error) {
	if party == "" {
		party = "1"
	}
	path := fmt.Sprintf("ItemRequest/%s/%s", dir, url.PathEscape(party))

	var resp itemRequestResponse
	if err := c.getJSON(ctx, "ItemRequest", path, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{Endpoint: "ItemRequest", Message: resp.Error}
	}
	if resp.Trade == "" {
		return "", &APIError{Endpoint: "ItemRequest", Message: "response carries no trade offer id"}
	}
	return string(resp.Trade), nil
}

// PingPong keeps the account marked online on the marketplace.
func (c *Client) PingPong(ctx context.Context) error {
	var resp statusResponse
	if err := c.getJSON(ctx, "PingPong", "PingPong", &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Endpoint: "PingPong", Message: resp.Error}
	}
	return nil
}
