package handlers

import (
	"net/http"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"
	"hive-engine-api/internal/services"

	"github.com/gin-gonic/gin"
)

// OperationsHandler builds unsigned operation envelopes for the external
// signer. Nothing here touches the chain; every endpoint is pure
// validation plus construction.
type OperationsHandler struct {
	builder *services.OperationBuilder
	staking config.StakingConfig
	swap    config.SwapConfig
}

// NewOperationsHandler creates a new OperationsHandler instance
func NewOperationsHandler(builder *services.OperationBuilder, staking config.StakingConfig, swap config.SwapConfig) *OperationsHandler {
	return &OperationsHandler{
		builder: builder,
		staking: staking,
		swap:    swap,
	}
}

// TransferRequest is the POST body for transfer envelopes
type TransferRequest struct {
	From     string `json:"from" binding:"required"`
	To       string `json:"to" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Memo     string `json:"memo"`
}

// StakeRequest is the POST body for stake envelopes. To defaults to the
// staking account itself.
type StakeRequest struct {
	Account  string `json:"account" binding:"required"`
	To       string `json:"to"`
	Quantity string `json:"quantity" binding:"required"`
}

// UnstakeRequest is the POST body for unstake envelopes
type UnstakeRequest struct {
	Account  string `json:"account" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
}

// CancelUnstakeRequest is the POST body for cancel-unstake envelopes
type CancelUnstakeRequest struct {
	Account string `json:"account" binding:"required"`
	TxID    string `json:"txId" binding:"required"`
}

// DelegationRequest is the POST body for delegate/undelegate envelopes
type DelegationRequest struct {
	Account      string `json:"account" binding:"required"`
	Counterparty string `json:"counterparty" binding:"required"`
	Quantity     string `json:"quantity" binding:"required"`
}

// MarketBuyRequest is the POST body for market-buy envelopes
type MarketBuyRequest struct {
	Account  string `json:"account" binding:"required"`
	Quantity string `json:"quantity" binding:"required"`
	Price    string `json:"price" binding:"required"`
}

// RewardBatchRequest is the POST body for reward-distribution batches
type RewardBatchRequest struct {
	Distributor string                `json:"distributor" binding:"required"`
	Payouts     []models.RewardPayout `json:"payouts" binding:"required"`
	Memo        string                `json:"memo"`
}

func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		models.WriteError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		))
		return false
	}
	return true
}

func (h *OperationsHandler) writeEnvelope(c *gin.Context, env models.OperationEnvelope, err error) {
	if err != nil {
		models.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"operation": env})
}

// Transfer handles POST /api/operations/transfer
func (h *OperationsHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.Transfer(services.TransferParams{
		From:      req.From,
		To:        req.To,
		Symbol:    h.staking.Symbol,
		Quantity:  req.Quantity,
		Precision: h.staking.Precision,
		Memo:      req.Memo,
	})
	h.writeEnvelope(c, env, err)
}

// Stake handles POST /api/operations/stake
func (h *OperationsHandler) Stake(c *gin.Context) {
	var req StakeRequest
	if !bindJSON(c, &req) {
		return
	}

	to := req.To
	if to == "" {
		to = req.Account
	}

	env, err := h.builder.Stake(services.StakeParams{
		Account:   req.Account,
		To:        to,
		Symbol:    h.staking.Symbol,
		Quantity:  req.Quantity,
		Precision: h.staking.Precision,
	})
	h.writeEnvelope(c, env, err)
}

// Unstake handles POST /api/operations/unstake
func (h *OperationsHandler) Unstake(c *gin.Context) {
	var req UnstakeRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.Unstake(services.UnstakeParams{
		Account:   req.Account,
		Symbol:    h.staking.Symbol,
		Quantity:  req.Quantity,
		Precision: h.staking.Precision,
	})
	h.writeEnvelope(c, env, err)
}

// CancelUnstake handles POST /api/operations/cancel-unstake
func (h *OperationsHandler) CancelUnstake(c *gin.Context) {
	var req CancelUnstakeRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.CancelUnstake(services.CancelUnstakeParams{
		Account: req.Account,
		TxID:    req.TxID,
	})
	h.writeEnvelope(c, env, err)
}

// Delegate handles POST /api/operations/delegate
func (h *OperationsHandler) Delegate(c *gin.Context) {
	var req DelegationRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.Delegate(services.DelegationParams{
		Account:   req.Account,
		To:        req.Counterparty,
		Symbol:    h.staking.Symbol,
		Quantity:  req.Quantity,
		Precision: h.staking.Precision,
	})
	h.writeEnvelope(c, env, err)
}

// Undelegate handles POST /api/operations/undelegate
func (h *OperationsHandler) Undelegate(c *gin.Context) {
	var req DelegationRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.Undelegate(services.UndelegationParams{
		Account:   req.Account,
		From:      req.Counterparty,
		Symbol:    h.staking.Symbol,
		Quantity:  req.Quantity,
		Precision: h.staking.Precision,
	})
	h.writeEnvelope(c, env, err)
}

// MarketBuy handles POST /api/operations/market-buy
func (h *OperationsHandler) MarketBuy(c *gin.Context) {
	var req MarketBuyRequest
	if !bindJSON(c, &req) {
		return
	}

	env, err := h.builder.MarketBuy(services.MarketBuyParams{
		Account:        req.Account,
		Symbol:         h.staking.Symbol,
		Quantity:       req.Quantity,
		Price:          req.Price,
		TokenPrecision: h.staking.Precision,
		PricePrecision: h.swap.InputPrecision,
	})
	h.writeEnvelope(c, env, err)
}

// RewardBatch handles POST /api/operations/rewards
func (h *OperationsHandler) RewardBatch(c *gin.Context) {
	var req RewardBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	envelopes, err := h.builder.BuildRewardBatch(req.Distributor, h.staking.Symbol, h.staking.Precision, req.Payouts, req.Memo)
	if err != nil {
		models.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"operations": envelopes,
		"count":      len(envelopes),
	})
}
