package handlers

import (
	"net/http"
	"strconv"

	"hive-engine-api/internal/models"
	"hive-engine-api/internal/services"
	"hive-engine-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WalletHandler handles balance, staking and history HTTP requests
type WalletHandler struct {
	tokens    services.TokenServiceInterface
	history   services.HistoryServiceInterface
	portfolio services.PortfolioServiceInterface
}

// NewWalletHandler creates a new WalletHandler instance
func NewWalletHandler(tokens services.TokenServiceInterface, history services.HistoryServiceInterface, portfolio services.PortfolioServiceInterface) *WalletHandler {
	return &WalletHandler{
		tokens:    tokens,
		history:   history,
		portfolio: portfolio,
	}
}

// GetBalance handles GET /api/wallet/:account/balance?symbol=SYM.
// An omitted symbol means the platform token.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	account := c.Param("account")

	balance, err := h.tokens.GetBalance(c.Request.Context(), account, c.Query("symbol"))
	if err != nil {
		logger.GetLogger().WithContext(c.Request.Context()).Warn("Balance request failed",
			zap.String("account", account),
			zap.Error(err),
		)
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// GetStakeInfo handles GET /api/wallet/:account/stake?symbol=SYM
func (h *WalletHandler) GetStakeInfo(c *gin.Context) {
	account := c.Param("account")

	info, err := h.tokens.GetStakeInfo(c.Request.Context(), account, c.Query("symbol"))
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// GetHistory handles GET /api/wallet/:account/history?limit=n
func (h *WalletHandler) GetHistory(c *gin.Context) {
	account := c.Param("account")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			models.WriteError(c, models.NewValidationError(models.ErrorCodeInvalidRequest,
				"limit must be an integer"))
			return
		}
		limit = parsed
	}

	records, err := h.history.GetTransferHistory(c.Request.Context(), account, limit)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":   account,
		"transfers": records,
	})
}

// GetPortfolio handles GET /api/wallet/:account/portfolio
func (h *WalletHandler) GetPortfolio(c *gin.Context) {
	account := c.Param("account")

	portfolio, err := h.portfolio.GetPortfolio(c.Request.Context(), account)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, portfolio)
}

// GetToken handles GET /api/tokens/:symbol
func (h *WalletHandler) GetToken(c *gin.Context) {
	symbol := c.Param("symbol")

	token, err := h.tokens.GetToken(c.Request.Context(), symbol)
	if err != nil {
		models.WriteError(c, err)
		return
	}
	if token == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{
			"code":    "TOKEN_NOT_FOUND",
			"message": "Token not found",
		}})
		return
	}

	c.JSON(http.StatusOK, token)
}
