// Package seller wires the marketplace, the Steam sessions and the
// reconciler together and runs them until the context is cancelled.
package seller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/api"
	"csgo-seller/internal/config"
	"csgo-seller/internal/events"
	"csgo-seller/internal/ratelimit"
	"csgo-seller/internal/report"
	"csgo-seller/internal/scheduler"
	"csgo-seller/internal/services/market"
	"csgo-seller/internal/services/reconciler"
	"csgo-seller/internal/services/steam"
	"csgo-seller/internal/services/steamauth"
)

var log = logging.Logger("seller")

const shutdownTimeout = 5 * time.Second

type Seller struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Seller {
	return &Seller{cfg: cfg}
}

// Run boots the seller and blocks until ctx is done. Any session failure
// during boot is returned and nothing is polled.
func (s *Seller) Run(ctx context.Context) error {
	cfg := s.cfg
	creds := cfg.Credentials()
	endpoints := steamauth.Endpoints{Store: cfg.SteamStoreURL, Community: cfg.SteamCommunityURL}

	// 1) Steam web session + API key
	web, err := steamauth.NewClient(endpoints, cfg.CallTimeout)
	if err != nil {
		return err
	}
	if err := web.Login(ctx, creds); err != nil {
		return xerrors.Errorf("steam login: %w", err)
	}

	apiKey := cfg.SteamAPIKey
	if apiKey == "" {
		if apiKey, err = web.WebAPIKey(ctx); err != nil {
			return xerrors.Errorf("steam web api key: %w", err)
		}
	}
	transport := steam.NewSteamService(cfg.SteamWebAPIURL, apiKey, cfg.CallTimeout)
	log.Infow("logged on", "account", cfg.AccountName)

	// 2) mobile session; a Steam Guard code is only accepted once per window
	if err := scheduler.Sleep(ctx, cfg.MobileLoginDelay); err != nil {
		return err
	}
	mobileClient, err := steamauth.NewClient(endpoints, cfg.CallTimeout)
	if err != nil {
		return err
	}
	mobile := steamauth.NewMobileSession(mobileClient, creds, steamauth.MobileConfig{
		Attempts:             cfg.MobileLoginAttempts,
		RetryDelay:           cfg.MobileLoginDelay,
		ConfirmationInterval: cfg.ConfirmationInterval,
	})
	if err := mobile.Login(ctx); err != nil {
		return err
	}
	defer mobile.Stop()

	// 3) marketplace + reconciler
	limiter := ratelimit.New(cfg.RateLimitInterval)
	marketClient := market.NewClient(cfg.MarketBaseURL, cfg.MarketAPIKey, limiter, cfg.CallTimeout)

	rec, err := reconciler.New(marketClient, transport, cfg.MinSalePrice)
	if err != nil {
		return err
	}
	bus := events.NewBus()
	rec.Subscribe(bus)

	var wg sync.WaitGroup
	defer wg.Wait()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Port != "" {
		srv := &http.Server{Addr: ":" + cfg.Port, Handler: api.NewRouter(rec)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveStatus(runCtx, srv)
		}()
	}

	// 4) pollers
	tradePoller := market.NewTradePoller(marketClient, bus, cfg.TradesPollInterval, cfg.HandleItemDelay)
	offerPoller := steam.NewOfferPoller(transport, bus, cfg.OffersPollInterval, cfg.AppID, cfg.ContextID)

	for _, run := range []func(context.Context){
		tradePoller.Run,
		offerPoller.Run,
		func(ctx context.Context) { market.Heartbeat(ctx, marketClient, cfg.PingInterval) },
	} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(runCtx)
		}(run)
	}

	// 5) one sell cycle per boot
	if sold, err := rec.SellInventory(runCtx); err != nil {
		log.Errorw("sell cycle failed", "err", err)
	} else if cfg.SellReportPath != "" {
		if err := report.WriteSellReport(cfg.SellReportPath, sold); err != nil {
			log.Errorw("cant write sell report", "path", cfg.SellReportPath, "err", err)
		} else {
			log.Infow("sell report written", "path", cfg.SellReportPath)
		}
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case err := <-mobile.Expired():
			log.Errorw("mobile service logged off", "err", err)
		}
	}
}

func serveStatus(ctx context.Context, srv *http.Server) {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("status server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("status server failed", "err", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("status server shutdown", "err", err)
		}
	}
}
