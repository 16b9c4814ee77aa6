package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr         string
	APIKey           string
	LogLevel         string
	TelegramBotToken string
	RedisURL         string

	CoinGeckoBaseURL     string
	CoinGeckoAPIKey      string
	CoinGeckoTimeoutSecs int
	CoinGeckoRatePerMin  int

	QuotePollSecs     int
	QuoteWatchlist    []string
	QuoteCacheTTLSecs int

	// BridgeOrigins are the browser origins allowed to open wallet WebSockets.
	BridgeOrigins []string

	TracingEnabled bool
	OTLPEndpoint   string

	Wallet *WalletConfig
}

// WalletConfig describes how the browser wallet kit is set up. It is
// built once at startup and handed to the wallet session manager.
type WalletConfig struct {
	AppName           string        `json:"app_name"`
	ClientID          string        `json:"client_id"`
	ProjectID         string        `json:"project_id"`
	Chains            []string      `json:"chains"`
	DisconnectTimeout time.Duration `json:"-"`
}

var defaultChains = []string{"mainnet", "polygon", "optimism", "arbitrum", "base"}

var defaultWatchlist = []string{"ETH", "BTC", "SOL", "IP"}

func Load() *Config {
	cfg := &Config{
		APIKey:           os.Getenv("API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisURL:         strings.TrimSpace(os.Getenv("REDIS_URL")),
		CoinGeckoAPIKey:  strings.TrimSpace(os.Getenv("COINGECKO_API_KEY")),
	}

	cfg.HTTPAddr = strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, quote cache disabled")
	}

	cfg.CoinGeckoBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("COINGECKO_BASE_URL")), "/")
	if cfg.CoinGeckoBaseURL == "" {
		cfg.CoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	}

	cfg.CoinGeckoTimeoutSecs = positiveInt("COINGECKO_TIMEOUT_SECS", 10)
	cfg.CoinGeckoRatePerMin = positiveInt("COINGECKO_RATE_PER_MIN", 8)
	cfg.QuotePollSecs = positiveInt("QUOTE_POLL_SECS", 60)

	cfg.QuoteCacheTTLSecs = 30
	if v := strings.TrimSpace(os.Getenv("QUOTE_CACHE_TTL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.QuoteCacheTTLSecs = n
		}
	}

	cfg.QuoteWatchlist = splitList(os.Getenv("QUOTE_WATCHLIST"), true)
	if len(cfg.QuoteWatchlist) == 0 {
		cfg.QuoteWatchlist = append([]string(nil), defaultWatchlist...)
	}

	cfg.BridgeOrigins = splitList(os.Getenv("WALLET_BRIDGE_ORIGINS"), false)

	cfg.TracingEnabled = !strings.EqualFold(strings.TrimSpace(os.Getenv("TRACING_ENABLED")), "false")
	cfg.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = "localhost:4317"
	}

	cfg.Wallet = &WalletConfig{
		AppName:           strings.TrimSpace(os.Getenv("WALLET_APP_NAME")),
		ClientID:          strings.TrimSpace(os.Getenv("WALLET_CLIENT_ID")),
		ProjectID:         strings.TrimSpace(os.Getenv("WALLET_PROJECT_ID")),
		Chains:            splitList(os.Getenv("WALLET_CHAINS"), false),
		DisconnectTimeout: time.Duration(positiveInt("WALLET_DISCONNECT_TIMEOUT_SECS", 10)) * time.Second,
	}
	if cfg.Wallet.AppName == "" {
		cfg.Wallet.AppName = "Astra IP"
	}
	if len(cfg.Wallet.Chains) == 0 {
		cfg.Wallet.Chains = append([]string(nil), defaultChains...)
	}
	if cfg.Wallet.ClientID == "" {
		log.Println("Warning: WALLET_CLIENT_ID not set")
	}
	if cfg.Wallet.ProjectID == "" {
		log.Println("Warning: WALLET_PROJECT_ID not set")
	}

	return cfg
}

func positiveInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func splitList(raw string, upper bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if upper {
			part = strings.ToUpper(part)
		} else {
			part = strings.ToLower(part)
		}
		out = append(out, part)
	}
	return out
}
