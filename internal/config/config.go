package config

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/xerrors"

	"csgo-seller/internal/models"
)

const DefaultMarketBaseURL = "https://market.csgo.com/api/"

type Config struct {
	// Steam 账号
	AccountName    string
	Password       string
	SharedSecret   string // TOTP
	IdentitySecret string // 手机确认
	SteamAPIKey    string // 为空时登录后自动获取
	AppID          int
	ContextID      int

	// Steam 接口地址（测试时可替换）
	SteamWebAPIURL    string
	SteamStoreURL     string
	SteamCommunityURL string

	// market.csgo.com
	MarketAPIKey  string
	MarketBaseURL string
	MinSalePrice  int64 // 最小出售价格（分）

	// 轮询与限速
	TradesPollInterval   time.Duration
	OffersPollInterval   time.Duration
	HandleItemDelay      time.Duration
	RateLimitInterval    time.Duration
	PingInterval         time.Duration
	CallTimeout          time.Duration
	MobileLoginAttempts  int
	MobileLoginDelay     time.Duration
	ConfirmationInterval time.Duration

	Port           string
	LogLevel       string
	SellReportPath string
}

func Load() *Config {
	return &Config{
		AccountName:    getEnv("STEAM_ACCOUNT_NAME", ""),
		Password:       getEnv("STEAM_PASSWORD", ""),
		SharedSecret:   getEnv("STEAM_SHARED_SECRET", ""),
		IdentitySecret: getEnv("STEAM_IDENTITY_SECRET", ""),
		SteamAPIKey:    getEnv("STEAM_API_KEY", ""),
		AppID:          getEnvInt("STEAM_APP_ID", 730),
		ContextID:      getEnvInt("STEAM_CONTEXT_ID", 2),

		SteamWebAPIURL:    getEnv("STEAM_WEB_API_URL", "https://api.steampowered.com"),
		SteamStoreURL:     getEnv("STEAM_STORE_URL", "https://store.steampowered.com"),
		SteamCommunityURL: getEnv("STEAM_COMMUNITY_URL", "https://steamcommunity.com"),

		MarketAPIKey:  getEnv("MARKET_API_KEY", ""),
		MarketBaseURL: getEnv("MARKET_BASE_URL", DefaultMarketBaseURL),
		MinSalePrice:  int64(getEnvInt("MIN_SALE_PRICE", 100)),

		TradesPollInterval:   getEnvDuration("TRADES_POLL_INTERVAL", 60*time.Second),
		OffersPollInterval:   getEnvDuration("OFFERS_POLL_INTERVAL", 60*time.Second),
		HandleItemDelay:      getEnvDuration("HANDLE_ITEM_DELAY", 60*time.Second),
		RateLimitInterval:    getEnvDuration("RATE_LIMIT_INTERVAL", 450*time.Millisecond),
		PingInterval:         getEnvDuration("PING_INTERVAL", 180*time.Second),
		CallTimeout:          getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		MobileLoginAttempts:  getEnvInt("MOBILE_LOGIN_ATTEMPTS", 3),
		MobileLoginDelay:     getEnvDuration("MOBILE_LOGIN_DELAY", 30*time.Second),
		ConfirmationInterval: getEnvDuration("CONFIRMATION_INTERVAL", 10*time.Second),

		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SellReportPath: getEnv("SELL_REPORT_PATH", ""),
	}
}

// Validate checks that the secrets needed to boot are present and the
// intervals are usable.
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"STEAM_ACCOUNT_NAME", c.AccountName},
		{"STEAM_PASSWORD", c.Password},
		{"STEAM_SHARED_SECRET", c.SharedSecret},
		{"STEAM_IDENTITY_SECRET", c.IdentitySecret},
		{"MARKET_API_KEY", c.MarketAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			return xerrors.Errorf("missing required setting %s", r.name)
		}
	}

	positive := []struct {
		name string
		d    time.Duration
	}{
		{"TRADES_POLL_INTERVAL", c.TradesPollInterval},
		{"OFFERS_POLL_INTERVAL", c.OffersPollInterval},
		{"RATE_LIMIT_INTERVAL", c.RateLimitInterval},
		{"PING_INTERVAL", c.PingInterval},
		{"CONFIRMATION_INTERVAL", c.ConfirmationInterval},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return xerrors.Errorf("%s must be positive, got %s", p.name, p.d)
		}
	}
	if c.HandleItemDelay < 0 || c.MobileLoginDelay < 0 || c.CallTimeout < 0 {
		return xerrors.New("delays and timeouts must not be negative")
	}
	if c.MobileLoginAttempts < 1 {
		return xerrors.Errorf("MOBILE_LOGIN_ATTEMPTS must be at least 1, got %d", c.MobileLoginAttempts)
	}
	return nil
}

// Credentials returns the Steam account settings.
func (c *Config) Credentials() models.SteamCredentials {
	return models.SteamCredentials{
		AccountName:    c.AccountName,
		Password:       c.Password,
		SharedSecret:   c.SharedSecret,
		IdentitySecret: c.IdentitySecret,
		AppID:          c.AppID,
		ContextID:      c.ContextID,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain milliseconds ("450").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
