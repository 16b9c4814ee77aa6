package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "REDIS_URL", "COINGECKO_BASE_URL", "COINGECKO_TIMEOUT_SECS",
		"COINGECKO_RATE_PER_MIN", "QUOTE_POLL_SECS", "QUOTE_WATCHLIST", "QUOTE_CACHE_TTL_SECS",
		"WALLET_APP_NAME", "WALLET_CHAINS", "WALLET_DISCONNECT_TIMEOUT_SECS", "LOG_LEVEL",
		"TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "WALLET_BRIDGE_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr, got %s", cfg.HTTPAddr)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("expected empty redis url, got %s", cfg.RedisURL)
	}
	if cfg.CoinGeckoBaseURL != "https://api.coingecko.com/api/v3" {
		t.Fatalf("unexpected base url: %s", cfg.CoinGeckoBaseURL)
	}
	if cfg.CoinGeckoTimeoutSecs != 10 || cfg.CoinGeckoRatePerMin != 8 {
		t.Fatalf("unexpected coingecko defaults: %+v", cfg)
	}
	if cfg.QuotePollSecs != 60 || cfg.QuoteCacheTTLSecs != 30 {
		t.Fatalf("unexpected quote defaults: %+v", cfg)
	}
	if len(cfg.QuoteWatchlist) != 4 || cfg.QuoteWatchlist[3] != "IP" {
		t.Fatalf("unexpected watchlist: %v", cfg.QuoteWatchlist)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected info log level, got %s", cfg.LogLevel)
	}
	if cfg.Wallet == nil || cfg.Wallet.AppName != "Astra IP" || len(cfg.Wallet.Chains) != 5 {
		t.Fatalf("unexpected wallet config: %+v", cfg.Wallet)
	}
	if len(cfg.BridgeOrigins) != 0 {
		t.Fatalf("expected no bridge origins, got %v", cfg.BridgeOrigins)
	}
	if !cfg.TracingEnabled || cfg.OTLPEndpoint != "localhost:4317" {
		t.Fatalf("unexpected tracing defaults: enabled=%v endpoint=%s", cfg.TracingEnabled, cfg.OTLPEndpoint)
	}
	if cfg.Wallet.DisconnectTimeout != 10*time.Second {
		t.Fatalf("expected 10s disconnect timeout, got %v", cfg.Wallet.DisconnectTimeout)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("COINGECKO_BASE_URL", "http://mock/api/v3/")
	t.Setenv("COINGECKO_TIMEOUT_SECS", "3")
	t.Setenv("QUOTE_WATCHLIST", "btc, arb,,op")
	t.Setenv("QUOTE_CACHE_TTL_SECS", "0")
	t.Setenv("WALLET_CHAINS", "Base, Mainnet")
	t.Setenv("WALLET_PROJECT_ID", "proj")
	t.Setenv("TRACING_ENABLED", "FALSE")
	t.Setenv("WALLET_BRIDGE_ORIGINS", "https://App.example, http://localhost:3000")

	cfg := Load()
	if cfg.HTTPAddr != ":9090" || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CoinGeckoBaseURL != "http://mock/api/v3" {
		t.Fatalf("trailing slash should be trimmed, got %s", cfg.CoinGeckoBaseURL)
	}
	if cfg.CoinGeckoTimeoutSecs != 3 {
		t.Fatalf("expected timeout 3, got %d", cfg.CoinGeckoTimeoutSecs)
	}
	if got := cfg.QuoteWatchlist; len(got) != 3 || got[0] != "BTC" || got[1] != "ARB" || got[2] != "OP" {
		t.Fatalf("unexpected watchlist: %v", got)
	}
	if cfg.QuoteCacheTTLSecs != 0 {
		t.Fatalf("zero ttl should be accepted, got %d", cfg.QuoteCacheTTLSecs)
	}
	if got := cfg.Wallet.Chains; len(got) != 2 || got[0] != "base" {
		t.Fatalf("unexpected chains: %v", got)
	}
	if cfg.TracingEnabled {
		t.Fatal("tracing should be disabled")
	}
	if got := cfg.BridgeOrigins; len(got) != 2 || got[0] != "https://app.example" {
		t.Fatalf("unexpected bridge origins: %v", got)
	}
	if cfg.Wallet.ProjectID != "proj" {
		t.Fatalf("unexpected project id: %s", cfg.Wallet.ProjectID)
	}

	t.Setenv("COINGECKO_TIMEOUT_SECS", "bad")
	cfg = Load()
	if cfg.CoinGeckoTimeoutSecs != 10 {
		t.Fatalf("invalid timeout should fall back to default, got %d", cfg.CoinGeckoTimeoutSecs)
	}
}
