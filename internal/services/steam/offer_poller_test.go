package steam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csgo-seller/internal/events"
	"csgo-seller/internal/models"
)

type fakeOffers struct {
	mu    sync.Mutex
	calls int
	fail  bool
	list  []models.TransportOffer
}

func (f *fakeOffers) ReceivedOffers(ctx context.Context) ([]models.TransportOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errors.New("session expired")
	}
	return f.list, nil
}

func (f *fakeOffers) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestOfferPollerEmitsAwaitingOffers(t *testing.T) {
	src := &fakeOffers{list: []models.TransportOffer{
		{ID: "1", State: models.OfferStateActive},
		{ID: "2", State: 3},
		{ID: "3", State: models.OfferStateActive},
		{ID: "4", State: 9},
	}}
	bus := events.NewBus()
	var got []string
	bus.Subscribe(func(ctx context.Context, ev events.Event) {
		got = append(got, ev.(events.OfferEvent).Offer.ID)
	})

	require.NoError(t, NewOfferPoller(src, bus, time.Hour, 0, 0).PollOnce(context.Background()))
	assert.Equal(t, []string{"1", "3"}, got)
}

func TestOfferPollerKeepsConfiguredAppItems(t *testing.T) {
	src := &fakeOffers{list: []models.TransportOffer{{
		ID:    "1",
		State: models.OfferStateActive,
		Items: []models.ItemRef{
			{AppID: 730, ContextID: "2", AssetID: "a1"},
			{AppID: 570, ContextID: "2", AssetID: "a2"},
			{AppID: 730, ContextID: "6", AssetID: "a3"},
			{AppID: 730, ContextID: "2", AssetID: "a4"},
		},
	}}}
	bus := events.NewBus()
	var got []models.TransportOffer
	bus.Subscribe(func(ctx context.Context, ev events.Event) {
		got = append(got, ev.(events.OfferEvent).Offer)
	})

	require.NoError(t, NewOfferPoller(src, bus, time.Hour, 730, 2).PollOnce(context.Background()))
	require.Len(t, got, 1)

	var assets []string
	for _, it := range got[0].Items {
		assets = append(assets, it.AssetID)
	}
	assert.Equal(t, []string{"a1", "a4"}, assets)
	assert.Len(t, src.list[0].Items, 4, "source offer must not be modified")
}

func TestOfferPollerFailureIsRetried(t *testing.T) {
	const interval = 40 * time.Millisecond

	src := &fakeOffers{fail: true}
	bus := events.NewBus()
	published := 0
	bus.Subscribe(func(ctx context.Context, ev events.Event) { published++ })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewOfferPoller(src, bus, interval, 730, 2).Run(ctx)
	}()

	time.Sleep(interval + interval/2)
	cancel()
	<-done

	assert.Equal(t, 2, src.Calls())
	assert.Zero(t, published)
}
