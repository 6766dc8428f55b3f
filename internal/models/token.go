package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRow is the raw tokens/balances table row as returned by the
// sidechain. All amounts are decimal strings on the wire.
type BalanceRow struct {
	Account        string `json:"account"`
	Symbol         string `json:"symbol"`
	Balance        string `json:"balance"`
	Stake          string `json:"stake"`
	PendingUnstake string `json:"pendingUnstake"`
	DelegationsIn  string `json:"delegationsIn"`
	DelegationsOut string `json:"delegationsOut"`
}

// PendingUnstakeRow is the raw tokens/pendingUnstakes table row
type PendingUnstakeRow struct {
	Account                string `json:"account"`
	Symbol                 string `json:"symbol"`
	Quantity               string `json:"quantity"`
	QuantityLeft           string `json:"quantityLeft"`
	NextTransactionTime    int64  `json:"nextTransactionTimestamp"`
	NumberTransactionsLeft int    `json:"numberTransactionsLeft"`
}

// TokenRow is the raw tokens/tokens metadata row (precision, supply)
type TokenRow struct {
	Symbol         string `json:"symbol"`
	Precision      int32  `json:"precision"`
	Supply         string `json:"supply"`
	TotalStaked    string `json:"totalStaked"`
	CircSupply     string `json:"circulatingSupply"`
	Issuer         string `json:"issuer"`
	StakingEnabled bool   `json:"stakingEnabled"`
}

// TokenBalance is the decoded per-(account, symbol) balance with the
// derived total. Total can transiently go negative during chain
// reorganization; callers surface that rather than fail.
type TokenBalance struct {
	Account        string          `json:"account"`
	Symbol         string          `json:"symbol"`
	Liquid         decimal.Decimal `json:"liquid"`
	Staked         decimal.Decimal `json:"staked"`
	PendingUnstake decimal.Decimal `json:"pending_unstake"`
	DelegatedIn    decimal.Decimal `json:"delegated_in"`
	DelegatedOut   decimal.Decimal `json:"delegated_out"`
	Total          decimal.Decimal `json:"total"`
	Inconsistent   bool            `json:"inconsistent,omitempty"`
}

// StakeInfo describes an account's staking position for one symbol
type StakeInfo struct {
	Account            string          `json:"account"`
	Symbol             string          `json:"symbol"`
	Staked             decimal.Decimal `json:"staked"`
	PendingUnstake     decimal.Decimal `json:"pending_unstake"`
	NextUnstakeRelease *time.Time      `json:"next_unstake_release,omitempty"`
	DelegatedIn        decimal.Decimal `json:"delegated_in"`
	DelegatedOut       decimal.Decimal `json:"delegated_out"`
	EffectiveStake     decimal.Decimal `json:"effective_stake"`
	EstimatedAPY       decimal.Decimal `json:"estimated_apy"`
	Tier               string          `json:"tier"`
}

// EffectiveStake is staked plus delegated in minus delegated out, the
// amount counted toward tier and reward eligibility.
func (b *TokenBalance) EffectiveStake() decimal.Decimal {
	return b.Staked.Add(b.DelegatedIn).Sub(b.DelegatedOut)
}
