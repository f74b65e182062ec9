package steam

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/models"
)

var log = logging.Logger("steam")

const DefaultWebAPIURL = "https://api.steampowered.com"

// SteamService is the trade-offer side: it lists received offers and
// accepts them through the Steam Web API.
type SteamService struct {
	apiKey string
	client *resty.Client
}

type tradeOfferItem struct {
	AppID      int    `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
}

type tradeOffer struct {
	TradeOfferID   string           `json:"tradeofferid"`
	AccountIDOther int64            `json:"accountid_other"`
	Message        string           `json:"message"`
	State          int              `json:"trade_offer_state"`
	ItemsToGive    []tradeOfferItem `json:"items_to_give"`
	ItemsToReceive []tradeOfferItem `json:"items_to_receive"`
	TimeCreated    int64            `json:"time_created"`
}

type tradeOffersResponse struct {
	Response struct {
		TradeOffersReceived []tradeOffer `json:"trade_offers_received"`
	} `json:"response"`
}

func NewSteamService(baseURL, apiKey string, timeout time.Duration) *SteamService {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)

	log.Info("steam service created")

	return &SteamService{
		apiKey: apiKey,
		client: client,
	}
}

// ReceivedOffers returns the currently active offers sent to this account.
func (s *SteamService) ReceivedOffers(ctx context.Context) ([]models.TransportOffer, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":                 s.apiKey,
			"get_received_offers": "1",
			"active_only":         "1",
		}).
		Get("/IEconService/GetTradeOffers/v1/")
	if err != nil {
		return nil, xerrors.Errorf("get trade offers: %w", err)
	}
	if resp.IsError() {
		return nil, xerrors.Errorf("get trade offers: unexpected status %s", resp.Status())
	}

	var body tradeOffersResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, xerrors.Errorf("decoding trade offers: %w", err)
	}

	offers := make([]models.TransportOffer, 0, len(body.Response.TradeOffersReceived))
	for _, o := range body.Response.TradeOffersReceived {
		offer := models.TransportOffer{
			ID:      o.TradeOfferID,
			State:   o.State,
			Message: o.Message,
		}
		if o.TimeCreated > 0 {
			offer.Received = time.Unix(o.TimeCreated, 0)
		}
		for _, it := range append(o.ItemsToGive, o.ItemsToReceive...) {
			offer.Items = append(offer.Items, models.ItemRef{
				AppID:      it.AppID,
				ContextID:  it.ContextID,
				AssetID:    it.AssetID,
				ClassID:    it.ClassID,
				InstanceID: it.InstanceID,
			})
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// AcceptOffer accepts a received trade offer.
func (s *SteamService) AcceptOffer(ctx context.Context, offerID string) error {
	if _, err := strconv.ParseUint(offerID, 10, 64); err != nil {
		return xerrors.Errorf("invalid trade offer id %q", offerID)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":          s.apiKey,
			"tradeofferid": offerID,
		}).
		Post("/IEconService/AcceptTradeOffer/v1/")
	if err != nil {
		return xerrors.Errorf("accept offer %s: %w", offerID, err)
	}
	if resp.IsError() {
		return xerrors.Errorf("accept offer %s: %s - %s", offerID, resp.Status(), string(resp.Body()))
	}
	return nil
}
