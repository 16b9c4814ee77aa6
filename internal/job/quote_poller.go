package job

import (
	"context"
	"time"

	"tokenboard/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// QuoteRefresher refreshes the latest quote for a symbol.
type QuoteRefresher interface {
	Refresh(ctx context.Context, symbol string) (*domain.TokenQuote, bool)
}

// QuotePoller keeps the quote board warm for a watch list.
type QuotePoller struct {
	tracer       trace.Tracer
	log          *zap.Logger
	board        QuoteRefresher
	watchlist    []string
	pollInterval time.Duration
}

func NewQuotePoller(tracer trace.Tracer, log *zap.Logger, board QuoteRefresher, watchlist []string, pollIntervalSecs int) *QuotePoller {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuotePoller{
		tracer:       tracer,
		log:          log,
		board:        board,
		watchlist:    watchlist,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
	}
}

// Start polls until ctx is cancelled.
func (p *QuotePoller) Start(ctx context.Context) {
	p.log.Info("quote poller starting",
		zap.Strings("watchlist", p.watchlist),
		zap.Duration("interval", p.pollInterval),
	)
	p.pollLoop(ctx, p.refreshWatchlist)
	p.log.Info("quote poller stopped")
}

func (p *QuotePoller) pollLoop(ctx context.Context, fn func(context.Context)) {
	// first pass runs immediately
	fn(ctx)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

func (p *QuotePoller) refreshWatchlist(ctx context.Context) {
	ctx, span := p.tracer.Start(ctx, "quote-poller.refresh")
	defer span.End()

	stored := 0
	for _, symbol := range p.watchlist {
		if ctx.Err() != nil {
			return
		}
		if _, ok := p.board.Refresh(ctx, symbol); ok {
			stored++
		} else {
			p.log.Debug("quote not refreshed", zap.String("symbol", symbol))
		}
	}
	span.SetAttributes(
		attribute.Int("watchlist.size", len(p.watchlist)),
		attribute.Int("quotes.stored", stored),
	)
}
