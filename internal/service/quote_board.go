package service

import (
	"context"
	"sync"

	"tokenboard/internal/domain"
)

type QuoteSource interface {
	GetTokenPrice(ctx context.Context, symbol string) (*domain.TokenQuote, bool)
}

// QuoteBoard keeps the latest quote per symbol for long-lived consumers.
// Each refresh is tagged with a per-symbol generation, and a response is
// only stored if no newer refresh for the same symbol was started while it
// was in flight.
type QuoteBoard struct {
	source QuoteSource

	mu     sync.RWMutex
	gen    map[string]uint64
	quotes map[string]domain.TokenQuote
}

func NewQuoteBoard(source QuoteSource) *QuoteBoard {
	return &QuoteBoard{
		source: source,
		gen:    make(map[string]uint64),
		quotes: make(map[string]domain.TokenQuote),
	}
}

// Refresh fetches a fresh quote for symbol. stored reports whether the
// result was written to the board; a stale or absent result is not.
func (b *QuoteBoard) Refresh(ctx context.Context, symbol string) (quote *domain.TokenQuote, stored bool) {
	key := domain.NormalizeSymbol(symbol)

	b.mu.Lock()
	b.gen[key]++
	gen := b.gen[key]
	b.mu.Unlock()

	q, ok := b.source.GetTokenPrice(ctx, key)
	if !ok {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen[key] != gen {
		return q, false
	}
	b.quotes[key] = *q
	return q, true
}

// Latest returns the most recently stored quote for symbol.
func (b *QuoteBoard) Latest(symbol string) (domain.TokenQuote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[domain.NormalizeSymbol(symbol)]
	return q, ok
}

// Snapshot returns a copy of every stored quote keyed by symbol.
func (b *QuoteBoard) Snapshot() map[string]domain.TokenQuote {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]domain.TokenQuote, len(b.quotes))
	for k, v := range b.quotes {
		out[k] = v
	}
	return out
}
