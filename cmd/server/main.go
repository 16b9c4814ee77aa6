package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenboard/internal/bot"
	"tokenboard/internal/cache"
	"tokenboard/internal/config"
	"tokenboard/internal/handler"
	"tokenboard/internal/job"
	"tokenboard/internal/logger"
	"tokenboard/internal/provider"
	"tokenboard/internal/service"
	"tokenboard/internal/wallet"
	"tokenboard/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	_ "tokenboard/docs"
)

var (
	loadEnvFunc              = godotenv.Load
	loadConfigFunc           = config.Load
	newLoggerFunc            = logger.New
	connectRedisFunc         = cache.Connect
	initTracerFunc           = tracing.InitTracer
	newCoinGeckoProviderFunc = func(tracer trace.Tracer, cfg *config.Config) service.PriceProvider {
		return provider.NewCoinGeckoProvider(tracer, provider.CoinGeckoConfig{
			BaseURL:    cfg.CoinGeckoBaseURL,
			APIKey:     cfg.CoinGeckoAPIKey,
			Timeout:    time.Duration(cfg.CoinGeckoTimeoutSecs) * time.Second,
			RatePerMin: cfg.CoinGeckoRatePerMin,
		})
	}
	newMarketDataServiceFunc = service.NewMarketDataService
	newQuotePollerFunc       = job.NewQuotePoller
	startPollerFunc          = func(p *job.QuotePoller, ctx context.Context) { go p.Start(ctx) }
	startTelegramBotFunc     = bot.StartTelegramBot
	newHandlerFunc           = handler.New
	newRouterFunc            = gin.Default
	setupSignalNotify        = signal.Notify
	waitForSignalFunc        = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc      = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc   = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Tokenboard API
// @version         1.0
// @description     Token market data and wallet session service.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	logg, err := newLoggerFunc(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, tracing.Options{
		Enabled:  cfg.TracingEnabled,
		Endpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logg.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logg.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	// The quote cache is optional; run without it when Redis is unreachable.
	var quoteCache service.RedisClient
	rdb, err := connectRedisFunc(ctx, cfg.RedisURL, logg)
	if err != nil {
		logg.Warn("quote cache disabled", zap.Error(err))
	} else if rdb != nil {
		quoteCache = rdb
		defer rdb.Close()
	}

	cgProvider := newCoinGeckoProviderFunc(tracer, cfg)
	market := newMarketDataServiceFunc(tracer, logg.Named("market"), cgProvider, quoteCache, service.MarketDataOptions{
		RequestTimeout: time.Duration(cfg.CoinGeckoTimeoutSecs) * time.Second,
		CacheTTL:       time.Duration(cfg.QuoteCacheTTLSecs) * time.Second,
	})

	board := service.NewQuoteBoard(market)
	poller := newQuotePollerFunc(tracer, logg.Named("poller"), board, cfg.QuoteWatchlist, cfg.QuotePollSecs)
	startPollerFunc(poller, ctx)

	if err := startTelegramBotFunc(cfg.TelegramBotToken, market, logg.Named("bot")); err != nil {
		logg.Error("telegram bot not started", zap.Error(err))
	}

	bridge := wallet.NewBridgeConnector(logg.Named("wallet-bridge"))
	walletManager := wallet.NewManager(cfg.Wallet, bridge, logg.Named("wallet"))
	defer walletManager.Close()

	h := newHandlerFunc(tracer, logg.Named("http"), market, board, walletManager, bridge, handler.Options{
		APIKey:        cfg.APIKey,
		BridgeOrigins: cfg.BridgeOrigins,
	})

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AddAllowHeaders("X-API-Key")
	r.Use(cors.New(corsCfg))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logg.Fatal("listen failed", zap.Error(err))
		}
	}()
	logg.Info("server listening", zap.String("addr", cfg.HTTPAddr))

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logg.Info("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logg.Info("server exiting")
}
