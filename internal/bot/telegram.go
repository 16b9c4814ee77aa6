package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tokenboard/internal/domain"
	"tokenboard/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const replyTimeout = 15 * time.Second

// MarketReader is what the bot commands read from.
type MarketReader interface {
	GetTokenPrice(ctx context.Context, symbol string) (*domain.TokenQuote, bool)
	GetHistoricalPrices(ctx context.Context, symbol string, days int) []domain.PricePoint
}

// StartTelegramBot registers the bot commands and starts long polling in the
// background. It does nothing when token is empty.
func StartTelegramBot(token string, market MarketReader, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if token == "" {
		log.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/price", func(c tele.Context) error {
		return c.Send(withTimeout(func(ctx context.Context) string { return priceReply(ctx, market, c.Args()) }))
	})
	b.Handle("/volume", func(c tele.Context) error {
		return c.Send(withTimeout(func(ctx context.Context) string { return volumeReply(ctx, market, c.Args()) }))
	})
	b.Handle("/chart", func(c tele.Context) error {
		return c.Send(withTimeout(func(ctx context.Context) string { return chartReply(ctx, market, c.Args()) }))
	})

	log.Info("Telegram bot started")
	go b.Start()
	return nil
}

func withTimeout(fn func(ctx context.Context) string) string {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	return fn(ctx)
}

func priceReply(ctx context.Context, market MarketReader, args []string) string {
	if len(args) == 0 {
		return usage("/price ETH")
	}
	symbol := domain.NormalizeSymbol(args[0])
	quote, ok := market.GetTokenPrice(ctx, symbol)
	if !ok {
		return unavailable("Price unavailable", symbol)
	}
	return fmt.Sprintf(
		"%s\nPrice: $%.2f\n24h Change: %.2f%% ($%.2f)\nMarket Cap: $%.0f",
		symbol, quote.PriceUSD, quote.Change24hPct, quote.Change24hAbs, quote.MarketCapUSD,
	)
}

func volumeReply(ctx context.Context, market MarketReader, args []string) string {
	if len(args) == 0 {
		return usage("/volume SOL")
	}
	symbol := domain.NormalizeSymbol(args[0])
	quote, ok := market.GetTokenPrice(ctx, symbol)
	if !ok {
		return unavailable("Volume unavailable", symbol)
	}
	return fmt.Sprintf(
		"%s 24h Trading Volume\nVolume: $%.0f\nPrice: $%.2f\n24h Change: %.2f%%",
		symbol, quote.Volume24hUSD, quote.PriceUSD, quote.Change24hPct,
	)
}

// chartReply summarizes the historical series as first/last/min/max.
func chartReply(ctx context.Context, market MarketReader, args []string) string {
	if len(args) == 0 {
		return usage("/chart BTC 7")
	}
	symbol := domain.NormalizeSymbol(args[0])
	days := service.DefaultHistoryDays
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			days = n
		}
	}

	points := market.GetHistoricalPrices(ctx, symbol, days)
	if len(points) == 0 {
		return unavailable("No price history", symbol)
	}

	first, last := points[0], points[len(points)-1]
	low, high := first.PriceUSD, first.PriceUSD
	for _, p := range points[1:] {
		low = min(low, p.PriceUSD)
		high = max(high, p.PriceUSD)
	}
	change := 0.0
	if first.PriceUSD != 0 {
		change = (last.PriceUSD - first.PriceUSD) / first.PriceUSD * 100
	}
	return fmt.Sprintf(
		"%s last %dd\nOpen: $%.2f\nNow: $%.2f (%+.2f%%)\nLow: $%.2f\nHigh: $%.2f",
		symbol, days, first.PriceUSD, last.PriceUSD, change, low, high,
	)
}

// unavailable explains a miss. Unlisted tickers were looked up by their
// lower-cased name, so the reply points at the supported list.
func unavailable(what, symbol string) string {
	msg := fmt.Sprintf("%s for %s", what, symbol)
	if !domain.IsSupported(symbol) {
		msg += fmt.Sprintf("\n%s is not a listed ticker. Supported: %s", symbol, strings.Join(domain.SupportedSymbols, ", "))
	}
	return msg
}

func usage(example string) string {
	return fmt.Sprintf("Usage: %s\nSupported: %s", example, strings.Join(domain.SupportedSymbols, ", "))
}
