package handler

import (
	"context"

	"tokenboard/internal/domain"
	"tokenboard/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MarketData is the read side of the market data service.
type MarketData interface {
	GetTokenPrice(ctx context.Context, symbol string) (*domain.TokenQuote, bool)
	GetHistoricalPrices(ctx context.Context, symbol string, days int) []domain.PricePoint
	GetCandlestickData(ctx context.Context, symbol string, days int) []domain.Candle
}

// QuoteSnapshotter exposes the latest polled quotes.
type QuoteSnapshotter interface {
	Snapshot() map[string]domain.TokenQuote
}

// Options carries the access settings for the wallet routes.
type Options struct {
	// APIKey guards wallet intents and the bridge handshake. Empty disables it.
	APIKey string
	// BridgeOrigins lists the browser origins allowed to open WebSockets.
	// Empty means same-origin only.
	BridgeOrigins []string
}

type Handler struct {
	tracer   trace.Tracer
	log      *zap.Logger
	market   MarketData
	quotes   QuoteSnapshotter
	wallet   *wallet.Manager
	bridge   *wallet.BridgeConnector
	apiKey   string
	upgrader websocket.Upgrader
}

func New(
	tracer trace.Tracer,
	log *zap.Logger,
	market MarketData,
	quotes QuoteSnapshotter,
	walletManager *wallet.Manager,
	bridge *wallet.BridgeConnector,
	opts Options,
) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		tracer: tracer,
		log:    log,
		market: market,
		quotes: quotes,
		wallet: walletManager,
		bridge: bridge,
		apiKey: opts.APIKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.BridgeOrigins),
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/prices/:symbol", h.GetPrice)
	api.GET("/prices/:symbol/history", h.GetPriceHistory)
	api.GET("/prices/:symbol/candles", h.GetCandles)
	api.GET("/quotes", h.GetQuotes)

	w := api.Group("/wallet")
	w.GET("/session", h.GetWalletSession)
	w.GET("/config", h.GetWalletConfig)

	intents := w.Group("", APIKeyAuth(h.apiKey))
	intents.POST("/connect", h.ConnectWallet)
	intents.POST("/account", h.OpenAccountModal)
	intents.POST("/chain", h.OpenChainModal)
	intents.POST("/disconnect", h.DisconnectWallet)

	r.GET("/ws/wallet/bridge", BridgeKeyAuth(h.apiKey), h.AttachWalletBridge)
	r.GET("/ws/wallet/session", h.StreamWalletSession)
}
