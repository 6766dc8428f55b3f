package services

import (
	"context"
	"testing"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTestConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			BalanceTTL:      time.Minute,
			CleanupInterval: time.Minute,
		},
		Staking: config.StakingConfig{
			Symbol:       "SPORTS",
			Precision:    3,
			ProgramStart: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
			Tiers: []config.TierThreshold{
				{Name: "bronze", MinStake: "500"},
				{Name: "silver", MinStake: "5000"},
				{Name: "gold", MinStake: "50000"},
				{Name: "diamond", MinStake: "500000"},
			},
			RewardSteps: []config.RewardStep{
				{FromYear: 0, WeeklyPool: "250000"},
				{FromYear: 1, WeeklyPool: "125000"},
				{FromYear: 2, WeeklyPool: "62500"},
				{FromYear: 3, WeeklyPool: "31250"},
			},
		},
	}
}

func TestTokenService_GetBalance(t *testing.T) {
	chain := &stubChain{tables: map[string]interface{}{
		"tokens/balances": models.BalanceRow{
			Account:        "alice",
			Symbol:         "SPORTS",
			Balance:        "100.5",
			Stake:          "2000",
			PendingUnstake: "50",
			DelegationsIn:  "300",
			DelegationsOut: "10",
		},
	}}
	ts := NewTokenService(chain, tokenTestConfig())
	defer ts.Stop()

	balance, err := ts.GetBalance(context.Background(), "alice", "SPORTS")
	require.NoError(t, err)

	assert.True(t, balance.Liquid.Equal(d("100.5")))
	assert.True(t, balance.Staked.Equal(d("2000")))
	assert.True(t, balance.Total.Equal(d("2390.5")))
	assert.False(t, balance.Inconsistent)
}

func TestTokenService_GetBalanceMissingRowIsZero(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	balance, err := ts.GetBalance(context.Background(), "ghost-account", "")
	require.NoError(t, err)

	assert.True(t, balance.Total.IsZero())
	assert.True(t, balance.Liquid.IsZero())
	assert.False(t, balance.Inconsistent)
}

func TestTokenService_GetBalanceFlagsNegativeTotal(t *testing.T) {
	chain := &stubChain{tables: map[string]interface{}{
		"tokens/balances": models.BalanceRow{
			Account:        "alice",
			Symbol:         "SPORTS",
			Balance:        "5",
			Stake:          "10",
			DelegationsOut: "100",
		},
	}}
	ts := NewTokenService(chain, tokenTestConfig())
	defer ts.Stop()

	balance, err := ts.GetBalance(context.Background(), "alice", "SPORTS")
	require.NoError(t, err)

	assert.True(t, balance.Inconsistent)
	assert.True(t, balance.Total.Equal(d("-85")))
}

func TestTokenService_GetBalanceCaches(t *testing.T) {
	chain := &stubChain{tables: map[string]interface{}{
		"tokens/balances": models.BalanceRow{Account: "alice", Symbol: "SPORTS", Balance: "1"},
	}}
	ts := NewTokenService(chain, tokenTestConfig())
	defer ts.Stop()

	for i := 0; i < 3; i++ {
		_, err := ts.GetBalance(context.Background(), "alice", "SPORTS")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, chain.findOnes)
}

func TestTokenService_GetBalanceRejectsBadAccount(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	_, err := ts.GetBalance(context.Background(), "A", "SPORTS")
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorCodeInvalidAccountName, appErr.Code)
}

func TestTokenService_TierBoundaries(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	tests := []struct {
		stake string
		want  string
	}{
		{"0", ""},
		{"499.999", ""},
		{"500", "bronze"}, // boundary inclusive
		{"4999.999", "bronze"},
		{"5000", "silver"},
		{"49999.999", "silver"},
		{"50000", "gold"},
		{"500000", "diamond"},
		{"9999999", "diamond"},
	}

	for _, tt := range tests {
		t.Run(tt.stake, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.TierFor(d(tt.stake)))
		})
	}
}

func TestTokenService_WeeklyRewardPoolSteps(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		at   time.Time
		want string
	}{
		{start.AddDate(0, 0, -1), "0"},
		{start, "250000"},
		{start.AddDate(0, 6, 0), "250000"},
		{start.AddDate(1, 0, 7), "125000"},
		{start.AddDate(2, 0, 7), "62500"},
		{start.AddDate(3, 0, 7), "31250"},
		// last step is open-ended
		{start.AddDate(10, 0, 0), "31250"},
	}

	for _, tt := range tests {
		assert.True(t, ts.WeeklyRewardPool(tt.at).Equal(d(tt.want)),
			"at %s: got %s, want %s", tt.at, ts.WeeklyRewardPool(tt.at), tt.want)
	}
}

func TestTokenService_EstimateAPY(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	now := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)

	// share = 1000/1000000, yearly = share * 250000 * 52, APY = yearly/1000*100
	apy := ts.EstimateAPY(d("1000"), d("1000000"), now)
	assert.True(t, apy.Equal(d("1300")), "apy = %s", apy)

	assert.True(t, ts.EstimateAPY(decimal.Zero, d("1000000"), now).IsZero())
	assert.True(t, ts.EstimateAPY(d("1000"), decimal.Zero, now).IsZero())
}

func TestTokenService_GetStakeInfo(t *testing.T) {
	release := time.Now().Add(48 * time.Hour).UnixMilli()
	chain := &stubChain{tables: map[string]interface{}{
		"tokens/balances": models.BalanceRow{
			Account:        "alice",
			Symbol:         "SPORTS",
			Balance:        "10",
			Stake:          "6000",
			PendingUnstake: "100",
			DelegationsIn:  "0",
			DelegationsOut: "1000",
		},
		"tokens/pendingUnstakes": []models.PendingUnstakeRow{
			{Account: "alice", Symbol: "SPORTS", QuantityLeft: "100", NextTransactionTime: release},
		},
		"tokens/tokens": models.TokenRow{
			Symbol:      "SPORTS",
			Precision:   3,
			TotalStaked: "1000000",
		},
	}}
	ts := NewTokenService(chain, tokenTestConfig())
	defer ts.Stop()

	info, err := ts.GetStakeInfo(context.Background(), "alice", "SPORTS")
	require.NoError(t, err)

	assert.True(t, info.EffectiveStake.Equal(d("5000")))
	assert.Equal(t, "silver", info.Tier)
	require.NotNil(t, info.NextUnstakeRelease)
	assert.Equal(t, time.UnixMilli(release).UTC(), *info.NextUnstakeRelease)
	assert.True(t, info.EstimatedAPY.IsPositive())
}

func TestTokenService_GetToken(t *testing.T) {
	chain := &stubChain{tables: map[string]interface{}{
		"tokens/tokens": models.TokenRow{Symbol: "SPORTS", Precision: 3, TotalStaked: "5"},
	}}
	ts := NewTokenService(chain, tokenTestConfig())
	defer ts.Stop()

	token, err := ts.GetToken(context.Background(), "SPORTS")
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, int32(3), token.Precision)
}

func TestTokenService_GetTokenAbsent(t *testing.T) {
	ts := NewTokenService(&stubChain{}, tokenTestConfig())
	defer ts.Stop()

	token, err := ts.GetToken(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, token)
}
