package services

import (
	"fmt"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"github.com/shopspring/decimal"
)

// Sidechain contracts and actions used by the builder
const (
	contractTokens = "tokens"
	contractMarket = "market"

	actionTransfer      = "transfer"
	actionStake         = "stake"
	actionUnstake       = "unstake"
	actionCancelUnstake = "cancelUnstake"
	actionDelegate      = "delegate"
	actionUndelegate    = "undelegate"
	actionBuy           = "buy"
)

// OperationBuilder constructs validated, unsigned operation envelopes.
// Building has no side effects; only the external signer's broadcast is
// side-effecting. A validation failure stops construction before any
// envelope is produced.
type OperationBuilder struct{}

// NewOperationBuilder creates an OperationBuilder
func NewOperationBuilder() *OperationBuilder {
	return &OperationBuilder{}
}

// TransferParams describe a token transfer
type TransferParams struct {
	From      string
	To        string
	Symbol    string
	Quantity  string
	Precision int32
	Memo      string
}

// StakeParams describe staking tokens to an account
type StakeParams struct {
	Account   string
	To        string
	Symbol    string
	Quantity  string
	Precision int32
}

// UnstakeParams describe starting an unstake cooldown
type UnstakeParams struct {
	Account   string
	Symbol    string
	Quantity  string
	Precision int32
}

// CancelUnstakeParams describe cancelling a pending unstake
type CancelUnstakeParams struct {
	Account string
	TxID    string
}

// DelegationParams describe delegating stake to another account
type DelegationParams struct {
	Account   string
	To        string
	Symbol    string
	Quantity  string
	Precision int32
}

// UndelegationParams describe revoking a delegation
type UndelegationParams struct {
	Account   string
	From      string
	Symbol    string
	Quantity  string
	Precision int32
}

// MarketBuyParams describe a limit buy on the sidechain market
type MarketBuyParams struct {
	Account        string
	Symbol         string
	Quantity       string
	Price          string
	TokenPrecision int32
	PricePrecision int32
}

// Transfer builds a tokens/transfer envelope
func (b *OperationBuilder) Transfer(p TransferParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.From); err != nil {
		return models.OperationEnvelope{}, err
	}
	if err := ValidateAccountName(p.To); err != nil {
		return models.OperationEnvelope{}, err
	}
	if p.From == p.To {
		return models.OperationEnvelope{}, models.NewValidationError(models.ErrorCodeSelfReference,
			fmt.Sprintf("account %q cannot transfer to itself", p.From))
	}
	if _, err := ParseQuantity(p.Quantity, p.Precision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.From, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionTransfer,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"to":       p.To,
			"quantity": p.Quantity,
			"memo":     p.Memo,
		},
	})
}

// Stake builds a tokens/stake envelope. Staking to another account is
// allowed by the chain, so no self-reference guard applies.
func (b *OperationBuilder) Stake(p StakeParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if err := ValidateAccountName(p.To); err != nil {
		return models.OperationEnvelope{}, err
	}
	if _, err := ParseQuantity(p.Quantity, p.Precision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionStake,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"to":       p.To,
			"quantity": p.Quantity,
		},
	})
}

// Unstake builds a tokens/unstake envelope
func (b *OperationBuilder) Unstake(p UnstakeParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if _, err := ParseQuantity(p.Quantity, p.Precision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionUnstake,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"quantity": p.Quantity,
		},
	})
}

// CancelUnstake builds a tokens/cancelUnstake envelope for a pending
// unstake transaction
func (b *OperationBuilder) CancelUnstake(p CancelUnstakeParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if p.TxID == "" {
		return models.OperationEnvelope{}, models.NewValidationError(models.ErrorCodeInvalidRequest,
			"cancelUnstake requires the pending unstake transaction id")
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionCancelUnstake,
		ContractPayload: map[string]interface{}{
			"txID": p.TxID,
		},
	})
}

// Delegate builds a tokens/delegate envelope. Delegating to yourself is
// a business-rule violation and fails before any envelope is built.
func (b *OperationBuilder) Delegate(p DelegationParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if err := ValidateAccountName(p.To); err != nil {
		return models.OperationEnvelope{}, err
	}
	if p.Account == p.To {
		return models.OperationEnvelope{}, models.NewValidationError(models.ErrorCodeSelfReference,
			fmt.Sprintf("account %q cannot delegate to itself", p.Account))
	}
	if _, err := ParseQuantity(p.Quantity, p.Precision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionDelegate,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"to":       p.To,
			"quantity": p.Quantity,
		},
	})
}

// Undelegate builds a tokens/undelegate envelope
func (b *OperationBuilder) Undelegate(p UndelegationParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if err := ValidateAccountName(p.From); err != nil {
		return models.OperationEnvelope{}, err
	}
	if p.Account == p.From {
		return models.OperationEnvelope{}, models.NewValidationError(models.ErrorCodeSelfReference,
			fmt.Sprintf("account %q cannot undelegate from itself", p.Account))
	}
	if _, err := ParseQuantity(p.Quantity, p.Precision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractTokens,
		ContractAction: actionUndelegate,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"from":     p.From,
			"quantity": p.Quantity,
		},
	})
}

// MarketBuy builds a market/buy envelope: buy Quantity of Symbol paying
// at most Price per unit
func (b *OperationBuilder) MarketBuy(p MarketBuyParams) (models.OperationEnvelope, error) {
	if err := ValidateAccountName(p.Account); err != nil {
		return models.OperationEnvelope{}, err
	}
	if _, err := ParseQuantity(p.Quantity, p.TokenPrecision); err != nil {
		return models.OperationEnvelope{}, err
	}
	if _, err := ParseQuantity(p.Price, p.PricePrecision); err != nil {
		return models.OperationEnvelope{}, err
	}

	return models.NewOperationEnvelope(p.Account, models.AuthorityActive, models.ContractCall{
		ContractName:   contractMarket,
		ContractAction: actionBuy,
		ContractPayload: map[string]interface{}{
			"symbol":   p.Symbol,
			"quantity": p.Quantity,
			"price":    p.Price,
		},
	})
}

// BuildRewardBatch builds one transfer envelope per payout. The result
// preserves input order and keeps duplicate recipients separate; retried
// distributions intentionally repeat an account, so deduplication is the
// caller's call. Non-positive amounts are filtered out.
func (b *OperationBuilder) BuildRewardBatch(distributor, symbol string, precision int32, payouts []models.RewardPayout, memo string) ([]models.OperationEnvelope, error) {
	if err := ValidateAccountName(distributor); err != nil {
		return nil, err
	}

	envelopes := make([]models.OperationEnvelope, 0, len(payouts))
	for _, payout := range payouts {
		amount := parseAmount(payout.Amount)
		if !amount.IsPositive() {
			continue
		}

		env, err := b.Transfer(TransferParams{
			From:      distributor,
			To:        payout.Account,
			Symbol:    symbol,
			Quantity:  payout.Amount,
			Precision: precision,
			Memo:      memo,
		})
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}

	return envelopes, nil
}

// BuildSwapLegs assembles the three ordered legs of an accepted swap
// quote: fee transfer to the platform account, net-input deposit to the
// bridge account with the wrap memo, then a market buy of the estimated
// output capped at worstFill * (1 + slippageBuffer). Any validation
// failure aborts before a single leg is returned.
func (b *OperationBuilder) BuildSwapLegs(account string, quote models.SwapQuote, cfg config.SwapConfig, slippageBuffer decimal.Decimal) ([]models.OperationEnvelope, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}
	if !quote.NetInputAmount.IsPositive() || !quote.EstimatedOutputAmount.IsPositive() {
		return nil, models.NewValidationError(models.ErrorCodeInvalidQuantity,
			"swap quote has no matchable amount")
	}

	maxPrice := quote.WorstFillPrice.
		Mul(decimal.NewFromInt(1).Add(slippageBuffer)).
		RoundCeil(cfg.InputPrecision)

	legs := make([]models.OperationEnvelope, 0, 3)

	// A zero fee rate produces no fee leg at all.
	if quote.Fee.IsPositive() {
		feeLeg, err := b.Transfer(TransferParams{
			From:      account,
			To:        cfg.PlatformAccount,
			Symbol:    cfg.InputSymbol,
			Quantity:  quote.Fee.StringFixed(cfg.InputPrecision),
			Precision: cfg.InputPrecision,
			Memo:      "swap fee",
		})
		if err != nil {
			return nil, err
		}
		legs = append(legs, feeLeg)
	}

	depositLeg, err := b.Transfer(TransferParams{
		From:      account,
		To:        cfg.BridgeAccount,
		Symbol:    cfg.InputSymbol,
		Quantity:  quote.NetInputAmount.StringFixed(cfg.InputPrecision),
		Precision: cfg.InputPrecision,
		Memo:      cfg.BridgeMemo,
	})
	if err != nil {
		return nil, err
	}

	buyLeg, err := b.MarketBuy(MarketBuyParams{
		Account:        account,
		Symbol:         cfg.OutputSymbol,
		Quantity:       quote.EstimatedOutputAmount.Truncate(cfg.OutputPrecision).StringFixed(cfg.OutputPrecision),
		Price:          maxPrice.StringFixed(cfg.InputPrecision),
		TokenPrecision: cfg.OutputPrecision,
		PricePrecision: cfg.InputPrecision,
	})
	if err != nil {
		return nil, err
	}

	return append(legs, depositLeg, buyLeg), nil
}
