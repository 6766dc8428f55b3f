package handlers

import (
	"net/http"
	"strconv"

	"hive-engine-api/internal/models"
	"hive-engine-api/internal/services"

	"github.com/gin-gonic/gin"
)

const defaultDepthPrecision = 4

// MarketHandler handles market data HTTP requests
type MarketHandler struct {
	market services.MarketServiceInterface
}

// NewMarketHandler creates a new MarketHandler instance
func NewMarketHandler(market services.MarketServiceInterface) *MarketHandler {
	return &MarketHandler{market: market}
}

// GetMarketData handles GET /api/market/:symbol
func (h *MarketHandler) GetMarketData(c *gin.Context) {
	symbol := c.Param("symbol")

	snapshot, err := h.market.GetMarketData(c.Request.Context(), symbol)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetOrderBook handles GET /api/market/:symbol/orderbook?depth=n
func (h *MarketHandler) GetOrderBook(c *gin.Context) {
	symbol := c.Param("symbol")

	depth, ok := intQuery(c, "depth", 0)
	if !ok {
		return
	}

	book, err := h.market.GetOrderBook(c.Request.Context(), symbol, depth)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

// GetDepth handles GET /api/market/:symbol/depth?precision=n&depth=n
func (h *MarketHandler) GetDepth(c *gin.Context) {
	symbol := c.Param("symbol")

	depth, ok := intQuery(c, "depth", 0)
	if !ok {
		return
	}
	precision, ok := intQuery(c, "precision", defaultDepthPrecision)
	if !ok {
		return
	}

	agg, err := h.market.GetAggregatedOrderBook(c.Request.Context(), symbol, int32(precision), depth)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, agg)
}

// intQuery parses an optional integer query parameter, writing a
// validation error and returning false on malformed input.
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		models.WriteError(c, models.NewValidationError(models.ErrorCodeInvalidRequest,
			name+" must be an integer"))
		return 0, false
	}
	return parsed, true
}
