package handlers

import (
	"net/http"

	"hive-engine-api/internal/models"
	"hive-engine-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SwapHandler handles swap quote and swap transaction HTTP requests
type SwapHandler struct {
	swap services.SwapServiceInterface
}

// NewSwapHandler creates a new SwapHandler instance
func NewSwapHandler(swap services.SwapServiceInterface) *SwapHandler {
	return &SwapHandler{swap: swap}
}

// SwapQuoteRequest is the POST body for quote and transaction requests
type SwapQuoteRequest struct {
	Amount  string `json:"amount" binding:"required"`
	Account string `json:"account"`
}

// QuoteSwap handles POST /api/swap/quote
func (h *SwapHandler) QuoteSwap(c *gin.Context) {
	_, amount, ok := h.bindQuoteRequest(c)
	if !ok {
		return
	}

	quote, err := h.swap.Quote(c.Request.Context(), amount)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// BuildSwap handles POST /api/swap/build
func (h *SwapHandler) BuildSwap(c *gin.Context) {
	req, amount, ok := h.bindQuoteRequest(c)
	if !ok {
		return
	}
	if req.Account == "" {
		models.WriteError(c, models.NewValidationError(models.ErrorCodeInvalidRequest,
			"account is required to build a swap transaction"))
		return
	}

	legs, quote, err := h.swap.BuildSwapTransaction(c.Request.Context(), req.Account, amount)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quote":      quote,
		"operations": legs,
	})
}

func (h *SwapHandler) bindQuoteRequest(c *gin.Context) (*SwapQuoteRequest, decimal.Decimal, bool) {
	var req SwapQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.WriteError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		))
		return nil, decimal.Zero, false
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		models.WriteError(c, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			"amount must be a decimal number"))
		return nil, decimal.Zero, false
	}
	if !amount.IsPositive() {
		models.WriteError(c, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			"amount must be greater than zero"))
		return nil, decimal.Zero, false
	}

	return &req, amount, true
}
