package steam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csgo-seller/internal/models"
)

func TestReceivedOffers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/IEconService/GetTradeOffers/v1/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "api-key", q.Get("key"))
		assert.Equal(t, "1", q.Get("get_received_offers"))
		assert.Equal(t, "1", q.Get("active_only"))

		_, _ = w.Write([]byte(`{"response":{"trade_offers_received":[
			{"tradeofferid":"4460000001","accountid_other":12345,"trade_offer_state":2,"time_created":1700000000,
			 "items_to_receive":[{"appid":730,"contextid":"2","assetid":"999","classid":"310","instanceid":"480"}]},
			{"tradeofferid":"4460000002","trade_offer_state":3}
		]}}`))
	}))
	defer srv.Close()

	svc := NewSteamService(srv.URL, "api-key", 5*time.Second)
	offers, err := svc.ReceivedOffers(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 2)

	assert.Equal(t, "4460000001", offers[0].ID)
	assert.True(t, offers[0].Awaiting())
	assert.Equal(t, time.Unix(1700000000, 0), offers[0].Received)
	require.Len(t, offers[0].Items, 1)
	assert.Equal(t, models.ItemRef{AppID: 730, ContextID: "2", AssetID: "999", ClassID: "310", InstanceID: "480"}, offers[0].Items[0])
	assert.False(t, offers[1].Awaiting())
}

func TestReceivedOffersEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))
	defer srv.Close()

	offers, err := NewSteamService(srv.URL, "k", time.Second).ReceivedOffers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestAcceptOffer(t *testing.T) {
	var (
		mu  sync.Mutex
		got string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		id := r.PostForm.Get("tradeofferid")
		mu.Lock()
		got = id
		mu.Unlock()
		if id == "4460000009" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"response":{}}`))
	}))
	defer srv.Close()

	svc := NewSteamService(srv.URL, "k", 5*time.Second)
	ctx := context.Background()

	require.NoError(t, svc.AcceptOffer(ctx, "4460000001"))
	mu.Lock()
	assert.Equal(t, "4460000001", got)
	mu.Unlock()

	err := svc.AcceptOffer(ctx, "4460000009")
	require.ErrorContains(t, err, "403")

	require.Error(t, svc.AcceptOffer(ctx, "not-an-id"))
}
