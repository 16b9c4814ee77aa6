package domain

import "strings"

// ProviderID maps canonical tickers to CoinGecko API identifiers.
var ProviderID = map[string]string{
	"ETH":   "ethereum",
	"BTC":   "bitcoin",
	"SOL":   "solana",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"BNB":   "binancecoin",
	"OP":    "optimism",
	"ARB":   "arbitrum",
	"IP":    StoryIPAliasID,
}

// StoryIPAliasID is what the Story Protocol IP ticker resolves to. IP has
// no CoinGecko listing yet, so it is priced as ETH until one exists.
const StoryIPAliasID = "ethereum"

// SupportedSymbols lists the tickers with an explicit mapping, in display order.
var SupportedSymbols = []string{
	"ETH", "BTC", "SOL", "MATIC", "AVAX",
	"BNB", "OP", "ARB", "IP",
}

// NormalizeSymbol returns the canonical uppercase form of a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ResolveProviderID returns the CoinGecko identifier for a ticker.
// Lookup is case-insensitive. Unknown tickers fall back to their
// lower-cased form as a best-effort identifier.
func ResolveProviderID(symbol string) string {
	if id, ok := ProviderID[NormalizeSymbol(symbol)]; ok {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

// IsSupported reports whether the ticker has an explicit mapping.
func IsSupported(symbol string) bool {
	_, ok := ProviderID[NormalizeSymbol(symbol)]
	return ok
}
