package domain

// Candle represents a single OHLC bar for a token.
//
// VolumeUSD is always zero when the candle comes from the CoinGecko OHLC
// endpoint, which does not report volume. Sources that do report it should
// populate the field.
type Candle struct {
	TimestampMs int64   `json:"timestamp"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	VolumeUSD   float64 `json:"volume"`
}

// PricePoint is one historical price sample.
type PricePoint struct {
	TimestampMs int64   `json:"timestamp"`
	PriceUSD    float64 `json:"price"`
}

// TokenQuote is the current market snapshot for a token.
type TokenQuote struct {
	SymbolKey    string  `json:"symbol"`
	ProviderID   string  `json:"id"`
	Name         string  `json:"name"`
	PriceUSD     float64 `json:"current_price"`
	Change24hAbs float64 `json:"price_change_24h"`
	Change24hPct float64 `json:"price_change_percentage_24h"`
	MarketCapUSD float64 `json:"market_cap"`
	Volume24hUSD float64 `json:"volume_24h"`
	ImageURL     string  `json:"image"`
}
