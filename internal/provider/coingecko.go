package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// ErrMalformedPayload is returned when the upstream body decodes but lacks
// the expected shape.
var ErrMalformedPayload = errors.New("malformed coingecko payload")

// StatusError reports a non-200 response from CoinGecko.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko API error %d: %s", e.StatusCode, e.Body)
}

// CoinGeckoConfig tunes the HTTP client. Zero values fall back to defaults.
type CoinGeckoConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RatePerMin int
}

// CoinGeckoProvider fetches simple price, market chart and OHLC data from the
// CoinGecko API.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// SimplePrice is one coin's entry in a /simple/price response. Keys are the
// upstream field names (usd, usd_24h_change, usd_market_cap, usd_24h_vol);
// a nil value means the field was sent as null.
type SimplePrice map[string]*float64

// NewCoinGeckoProvider creates a provider with built-in rate limiting.
// The free tier allows roughly 8 requests per minute.
func NewCoinGeckoProvider(tracer trace.Tracer, cfg CoinGeckoConfig) *CoinGeckoProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = coingeckoBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 8
	}
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		tracer:  tracer,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), cfg.RatePerMin),
	}
}

// FetchSimplePrice fetches the USD price, 24h change, market cap and 24h
// volume for one coin. found is false when the payload has no entry for id.
func (p *CoinGeckoProvider) FetchSimplePrice(ctx context.Context, id string) (SimplePrice, bool, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-simple-price")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id))

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	q.Set("include_market_cap", "true")
	q.Set("include_24hr_vol", "true")

	body, err := p.doRequest(ctx, p.baseURL+"/simple/price?"+q.Encode())
	if err != nil {
		return nil, false, fmt.Errorf("fetch simple price for %s: %w", id, err)
	}

	// Response shape: {"ethereum": {"usd": 3000, "usd_24h_change": 1.2, ...}}
	var raw map[string]SimplePrice
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false, fmt.Errorf("parse simple price for %s: %w", id, err)
	}

	entry, ok := raw[id]
	if !ok || entry == nil {
		return nil, false, nil
	}
	return entry, true, nil
}

// FetchMarketChart returns the raw [timestamp_ms, price] samples of the
// market_chart endpoint, in upstream order.
func (p *CoinGeckoProvider) FetchMarketChart(ctx context.Context, id string, days int) ([][]float64, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-market-chart")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id), attribute.Int("days", days))

	u := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%s",
		p.baseURL, url.PathEscape(id), strconv.Itoa(days))

	body, err := p.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", id, err)
	}

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse market chart for %s: %w", id, err)
	}
	if raw.Prices == nil {
		return nil, fmt.Errorf("market chart for %s: missing prices: %w", id, ErrMalformedPayload)
	}
	return raw.Prices, nil
}

// FetchOHLC returns the raw [timestamp_ms, open, high, low, close] tuples of
// the ohlc endpoint, in upstream order.
func (p *CoinGeckoProvider) FetchOHLC(ctx context.Context, id string, days int) ([][]float64, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-ohlc")
	defer span.End()
	span.SetAttributes(attribute.String("coin_id", id), attribute.Int("days", days))

	u := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%s",
		p.baseURL, url.PathEscape(id), strconv.Itoa(days))

	body, err := p.doRequest(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch ohlc for %s: %w", id, err)
	}

	var raw [][]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse ohlc for %s: %w", id, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("ohlc for %s: null payload: %w", id, ErrMalformedPayload)
	}
	return raw, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
