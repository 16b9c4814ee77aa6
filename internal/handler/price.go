package handler

import (
	"net/http"
	"strconv"

	"tokenboard/internal/domain"
	"tokenboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetPrice godoc
// @Summary      Get current quote for a token
// @Description  Returns price, 24h change, market cap and 24h volume in USD
// @Tags         prices
// @Produce      json
// @Param        symbol  path  string  true  "Token ticker (e.g., ETH, BTC, IP)"
// @Success      200  {object}  domain.TokenQuote
// @Failure      404  {object}  map[string]string
// @Router       /api/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price")
	defer span.End()

	symbol := domain.NormalizeSymbol(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	quote, ok := h.market.GetTokenPrice(ctx, symbol)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "price unavailable"})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// GetPriceHistory godoc
// @Summary      Get historical prices for a token
// @Description  Returns daily price points, oldest first. Empty when data is unavailable.
// @Tags         prices
// @Produce      json
// @Param        symbol  path   string  true   "Token ticker (e.g., ETH, BTC, IP)"
// @Param        days    query  int     false  "Days of history"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/prices/{symbol}/history [get]
func (h *Handler) GetPriceHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-price-history")
	defer span.End()

	symbol := domain.NormalizeSymbol(c.Param("symbol"))
	days := parseDays(c.Query("days"))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", days))

	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"days":   days,
		"prices": h.market.GetHistoricalPrices(ctx, symbol, days),
	})
}

// GetCandles godoc
// @Summary      Get OHLC candles for a token
// @Description  Returns candles, oldest first. Volume is always 0. Empty when data is unavailable.
// @Tags         prices
// @Produce      json
// @Param        symbol  path   string  true   "Token ticker (e.g., ETH, BTC, IP)"
// @Param        days    query  int     false  "Days of candles"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/prices/{symbol}/candles [get]
func (h *Handler) GetCandles(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-candles")
	defer span.End()

	symbol := domain.NormalizeSymbol(c.Param("symbol"))
	days := parseDays(c.Query("days"))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.Int("days", days))

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"days":    days,
		"candles": h.market.GetCandlestickData(ctx, symbol, days),
	})
}

// GetQuotes godoc
// @Summary      Get polled quotes
// @Description  Returns the latest quote the poller stored for each watched token
// @Tags         prices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/quotes [get]
func (h *Handler) GetQuotes(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-quotes")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"quotes": h.quotes.Snapshot()})
}

func parseDays(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return service.DefaultHistoryDays
	}
	return n
}
