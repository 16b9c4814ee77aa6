package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tokenboard/internal/domain"
	"tokenboard/internal/provider"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultHistoryDays is the window used when a caller passes days <= 0.
const DefaultHistoryDays = 30

const coinImageURLFormat = "https://assets.coingecko.com/coins/images/1/large/%s.png"

// ErrDataUnavailable marks an upstream failure that was absorbed at the
// service boundary. It is only ever logged.
var ErrDataUnavailable = errors.New("market data unavailable")

// PriceProvider is the upstream price API.
type PriceProvider interface {
	FetchSimplePrice(ctx context.Context, id string) (provider.SimplePrice, bool, error)
	FetchMarketChart(ctx context.Context, id string, days int) ([][]float64, error)
	FetchOHLC(ctx context.Context, id string, days int) ([][]float64, error)
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// MarketDataOptions tunes the service. A zero CacheTTL disables the quote cache.
type MarketDataOptions struct {
	RequestTimeout time.Duration
	CacheTTL       time.Duration
}

// MarketDataService normalizes CoinGecko responses into quotes, price
// series and candles. Upstream failures never reach the caller: they are
// logged and surface as an absent quote or an empty series.
type MarketDataService struct {
	tracer   trace.Tracer
	log      *zap.Logger
	provider PriceProvider
	redis    RedisClient
	opts     MarketDataOptions
}

func NewMarketDataService(
	tracer trace.Tracer,
	log *zap.Logger,
	provider PriceProvider,
	redisClient RedisClient,
	opts MarketDataOptions,
) *MarketDataService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketDataService{
		tracer:   tracer,
		log:      log,
		provider: provider,
		redis:    redisClient,
		opts:     opts,
	}
}

// GetTokenPrice returns the current quote for symbol. ok is false when the
// upstream request fails or has no record for the resolved identifier.
func (s *MarketDataService) GetTokenPrice(ctx context.Context, symbol string) (*domain.TokenQuote, bool) {
	ctx, span := s.tracer.Start(ctx, "market-data.get-token-price")
	defer span.End()

	key := domain.NormalizeSymbol(symbol)
	id := domain.ResolveProviderID(symbol)
	span.SetAttributes(attribute.String("symbol", key), attribute.String("coin_id", id))

	if s.cacheEnabled() {
		cached, err := s.getQuoteCache(ctx, key)
		if err != nil {
			s.log.Warn("quote cache read failed", zap.String("symbol", key), zap.Error(err))
		}
		if cached != nil {
			return cached, true
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entry, found, err := s.provider.FetchSimplePrice(ctx, id)
	if err != nil {
		s.unavailable("get-token-price", key, err)
		return nil, false
	}
	if !found {
		s.unavailable("get-token-price", key, fmt.Errorf("no upstream entry for %s", id))
		return nil, false
	}

	quote, ok := quoteFromSimplePrice(key, id, entry)
	if !ok {
		s.unavailable("get-token-price", key, fmt.Errorf("upstream entry for %s has no usd price", id))
		return nil, false
	}

	if s.cacheEnabled() {
		if err := s.setQuoteCache(ctx, quote); err != nil {
			s.log.Warn("quote cache write failed", zap.String("symbol", key), zap.Error(err))
		}
	}
	return quote, true
}

// GetHistoricalPrices returns the price series for the last days days,
// ascending by timestamp as delivered upstream. Failures yield an empty slice.
func (s *MarketDataService) GetHistoricalPrices(ctx context.Context, symbol string, days int) []domain.PricePoint {
	ctx, span := s.tracer.Start(ctx, "market-data.get-historical-prices")
	defer span.End()

	key := domain.NormalizeSymbol(symbol)
	id := domain.ResolveProviderID(symbol)
	days = normalizeDays(days)
	span.SetAttributes(attribute.String("symbol", key), attribute.Int("days", days))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.provider.FetchMarketChart(ctx, id, days)
	if err != nil {
		s.unavailable("get-historical-prices", key, err)
		return []domain.PricePoint{}
	}

	points, err := pricePointsFromChart(raw)
	if err != nil {
		s.unavailable("get-historical-prices", key, err)
		return []domain.PricePoint{}
	}
	return points
}

// GetCandlestickData returns OHLC candles for the last days days. VolumeUSD
// is always zero because the OHLC endpoint carries no volume.
func (s *MarketDataService) GetCandlestickData(ctx context.Context, symbol string, days int) []domain.Candle {
	ctx, span := s.tracer.Start(ctx, "market-data.get-candlestick-data")
	defer span.End()

	key := domain.NormalizeSymbol(symbol)
	id := domain.ResolveProviderID(symbol)
	days = normalizeDays(days)
	span.SetAttributes(attribute.String("symbol", key), attribute.Int("days", days))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	raw, err := s.provider.FetchOHLC(ctx, id, days)
	if err != nil {
		s.unavailable("get-candlestick-data", key, err)
		return []domain.Candle{}
	}

	candles, err := candlesFromOHLC(raw)
	if err != nil {
		s.unavailable("get-candlestick-data", key, err)
		return []domain.Candle{}
	}
	return candles
}

func quoteFromSimplePrice(symbol, id string, entry provider.SimplePrice) (*domain.TokenQuote, bool) {
	price := entry["usd"]
	if price == nil || *price < 0 {
		return nil, false
	}

	changePct := optionalField(entry, "usd_24h_change")
	return &domain.TokenQuote{
		SymbolKey:    symbol,
		ProviderID:   id,
		Name:         id,
		PriceUSD:     *price,
		Change24hAbs: absoluteChange(*price, changePct),
		Change24hPct: changePct,
		MarketCapUSD: optionalField(entry, "usd_market_cap"),
		Volume24hUSD: optionalField(entry, "usd_24h_vol"),
		ImageURL:     fmt.Sprintf(coinImageURLFormat, id),
	}, true
}

// optionalField reads a sub-field that upstream may omit for new listings.
func optionalField(entry provider.SimplePrice, key string) float64 {
	if v := entry[key]; v != nil {
		return *v
	}
	return 0
}

// absoluteChange derives the USD move over 24h from the current price and
// the percentage change reported upstream.
func absoluteChange(price, pct float64) float64 {
	if pct == 0 || pct <= -100 {
		return 0
	}
	previous := price / (1 + pct/100)
	return price - previous
}

func pricePointsFromChart(raw [][]float64) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(raw))
	for i, sample := range raw {
		if len(sample) < 2 {
			return nil, fmt.Errorf("price sample %d has %d values: %w", i, len(sample), provider.ErrMalformedPayload)
		}
		points = append(points, domain.PricePoint{
			TimestampMs: int64(sample[0]),
			PriceUSD:    sample[1],
		})
	}
	return points, nil
}

func candlesFromOHLC(raw [][]float64) ([]domain.Candle, error) {
	candles := make([]domain.Candle, 0, len(raw))
	for i, row := range raw {
		if len(row) < 5 {
			return nil, fmt.Errorf("ohlc row %d has %d values: %w", i, len(row), provider.ErrMalformedPayload)
		}
		candles = append(candles, domain.Candle{
			TimestampMs: int64(row[0]),
			Open:        row[1],
			High:        row[2],
			Low:         row[3],
			Close:       row[4],
			VolumeUSD:   0,
		})
	}
	return candles, nil
}

func normalizeDays(days int) int {
	if days <= 0 {
		return DefaultHistoryDays
	}
	return days
}

func (s *MarketDataService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

func (s *MarketDataService) unavailable(op, symbol string, err error) {
	s.log.Warn("market data unavailable",
		zap.String("op", op),
		zap.String("symbol", symbol),
		zap.Error(fmt.Errorf("%w: %w", ErrDataUnavailable, err)),
	)
}

func (s *MarketDataService) cacheEnabled() bool {
	return s.redis != nil && s.opts.CacheTTL > 0
}

func (s *MarketDataService) setQuoteCache(ctx context.Context, quote *domain.TokenQuote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, "price:"+quote.SymbolKey, data, s.opts.CacheTTL).Err()
}

func (s *MarketDataService) getQuoteCache(ctx context.Context, symbol string) (*domain.TokenQuote, error) {
	data, err := s.redis.Get(ctx, "price:"+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var quote domain.TokenQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}
