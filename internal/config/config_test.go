package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("STEAM_ACCOUNT_NAME", "seller")
	t.Setenv("STEAM_PASSWORD", "hunter2")
	t.Setenv("STEAM_SHARED_SECRET", "c2hhcmVk")
	t.Setenv("STEAM_IDENTITY_SECRET", "aWRlbnRpdHk=")
	t.Setenv("MARKET_API_KEY", "market-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMarketBaseURL, cfg.MarketBaseURL)
	assert.Equal(t, int64(100), cfg.MinSalePrice)
	assert.Equal(t, 60*time.Second, cfg.TradesPollInterval)
	assert.Equal(t, 60*time.Second, cfg.OffersPollInterval)
	assert.Equal(t, 60*time.Second, cfg.HandleItemDelay)
	assert.Equal(t, 450*time.Millisecond, cfg.RateLimitInterval)
	assert.Equal(t, 180*time.Second, cfg.PingInterval)
	assert.Equal(t, 3, cfg.MobileLoginAttempts)
	assert.Equal(t, 30*time.Second, cfg.MobileLoginDelay)
	assert.Equal(t, 10*time.Second, cfg.ConfirmationInterval)
	assert.Equal(t, 730, cfg.AppID)
	assert.Equal(t, 2, cfg.ContextID)
	assert.Equal(t, "https://steamcommunity.com", cfg.SteamCommunityURL)
	assert.Equal(t, 30*time.Second, cfg.CallTimeout)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MIN_SALE_PRICE", "250")
	t.Setenv("RATE_LIMIT_INTERVAL", "500")
	t.Setenv("TRADES_POLL_INTERVAL", "2m")
	t.Setenv("MOBILE_LOGIN_ATTEMPTS", "not-a-number")

	cfg := Load()
	assert.Equal(t, int64(250), cfg.MinSalePrice)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimitInterval)
	assert.Equal(t, 2*time.Minute, cfg.TradesPollInterval)
	assert.Equal(t, 3, cfg.MobileLoginAttempts)
}

func TestValidate(t *testing.T) {
	setRequired(t)
	t.Setenv("MARKET_API_KEY", "")
	require.ErrorContains(t, Load().Validate(), "MARKET_API_KEY")

	setRequired(t)
	cfg := Load()
	cfg.RateLimitInterval = 0
	require.ErrorContains(t, cfg.Validate(), "RATE_LIMIT_INTERVAL")

	cfg = Load()
	cfg.MobileLoginAttempts = 0
	require.Error(t, cfg.Validate())
}
