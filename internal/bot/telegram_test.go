package bot

import (
	"context"
	"strings"
	"testing"

	"tokenboard/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	if err := StartTelegramBot("", nil, nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestPriceReply(t *testing.T) {
	market := &stubMarket{quote: &domain.TokenQuote{
		SymbolKey: "ETH", PriceUSD: 3000.5, Change24hPct: 2.5, Change24hAbs: 73.18, MarketCapUSD: 1e9,
	}}

	got := priceReply(context.Background(), market, []string{"eth"})
	if !strings.HasPrefix(got, "ETH\nPrice: $3000.50") || !strings.Contains(got, "2.50%") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if market.lastSymbol != "ETH" {
		t.Fatalf("expected normalized symbol, got %q", market.lastSymbol)
	}
}

func TestPriceReplyUnavailable(t *testing.T) {
	got := priceReply(context.Background(), &stubMarket{}, []string{"btc"})
	if got != "Price unavailable for BTC" {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestPriceReplyFlagsUnlistedTicker(t *testing.T) {
	got := priceReply(context.Background(), &stubMarket{}, []string{"doge"})
	if !strings.HasPrefix(got, "Price unavailable for DOGE\nDOGE is not a listed ticker.") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if !strings.Contains(got, "Supported: ETH, BTC") {
		t.Fatalf("expected supported list, got %q", got)
	}
}

func TestRepliesWithoutArgsShowUsage(t *testing.T) {
	for _, reply := range []string{
		priceReply(context.Background(), &stubMarket{}, nil),
		volumeReply(context.Background(), &stubMarket{}, nil),
		chartReply(context.Background(), &stubMarket{}, nil),
	} {
		if !strings.HasPrefix(reply, "Usage:") || !strings.Contains(reply, "IP") {
			t.Fatalf("unexpected usage reply: %q", reply)
		}
	}
}

func TestVolumeReply(t *testing.T) {
	market := &stubMarket{quote: &domain.TokenQuote{SymbolKey: "SOL", PriceUSD: 150, Volume24hUSD: 2e9}}
	got := volumeReply(context.Background(), market, []string{"SOL"})
	if !strings.Contains(got, "Volume: $2000000000") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestChartReply(t *testing.T) {
	market := &stubMarket{history: []domain.PricePoint{
		{TimestampMs: 1, PriceUSD: 100},
		{TimestampMs: 2, PriceUSD: 80},
		{TimestampMs: 3, PriceUSD: 130},
		{TimestampMs: 4, PriceUSD: 110},
	}}

	got := chartReply(context.Background(), market, []string{"btc", "7"})
	want := "BTC last 7d\nOpen: $100.00\nNow: $110.00 (+10.00%)\nLow: $80.00\nHigh: $130.00"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if market.lastDays != 7 {
		t.Fatalf("expected 7 days requested, got %d", market.lastDays)
	}
}

func TestChartReplyDefaultsDaysAndHandlesEmpty(t *testing.T) {
	market := &stubMarket{}
	got := chartReply(context.Background(), market, []string{"OP", "soon"})
	if got != "No price history for OP" {
		t.Fatalf("unexpected reply: %q", got)
	}
	if market.lastDays != 30 {
		t.Fatalf("expected default 30 days, got %d", market.lastDays)
	}
}

type stubMarket struct {
	quote      *domain.TokenQuote
	history    []domain.PricePoint
	lastSymbol string
	lastDays   int
}

func (s *stubMarket) GetTokenPrice(ctx context.Context, symbol string) (*domain.TokenQuote, bool) {
	s.lastSymbol = symbol
	return s.quote, s.quote != nil
}

func (s *stubMarket) GetHistoricalPrices(ctx context.Context, symbol string, days int) []domain.PricePoint {
	s.lastSymbol, s.lastDays = symbol, days
	return s.history
}
