package services

import (
	"context"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/engine"
	"hive-engine-api/internal/models"
	"hive-engine-api/pkg/cache"
	"hive-engine-api/pkg/logger"
	"hive-engine-api/pkg/metrics"
	"hive-engine-api/pkg/mutex"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const weeksPerYear = 52

// maxPendingUnstakes caps the pending-unstake rows fetched per account
const maxPendingUnstakes = 100

// TokenService serves balance and staking queries over the sidechain
// token tables, with short-lived caching and per-account request
// coalescing.
type TokenService struct {
	chain        ChainReader
	cache        *cache.Cache
	requestMutex *mutex.RequestMutex
	metrics      *metrics.Collector
	staking      config.StakingConfig

	tiers       []tierThreshold
	rewardSteps []rewardStep
}

type tierThreshold struct {
	name     string
	minStake decimal.Decimal
}

type rewardStep struct {
	fromYear   int
	weeklyPool decimal.Decimal
}

// NewTokenService creates a new TokenService instance
func NewTokenService(chain ChainReader, cfg *config.Config) *TokenService {
	ts := &TokenService{
		chain:        chain,
		cache:        cache.New(cfg.Cache.BalanceTTL),
		requestMutex: mutex.New(cfg.Cache.CleanupInterval),
		metrics:      metrics.NewCollector(),
		staking:      cfg.Staking,
	}
	for _, tier := range cfg.Staking.Tiers {
		ts.tiers = append(ts.tiers, tierThreshold{name: tier.Name, minStake: parseAmount(tier.MinStake)})
	}
	for _, step := range cfg.Staking.RewardSteps {
		ts.rewardSteps = append(ts.rewardSteps, rewardStep{fromYear: step.FromYear, weeklyPool: parseAmount(step.WeeklyPool)})
	}
	return ts
}

// GetBalance returns the decoded balance for one account and symbol.
// An empty symbol means the configured platform token. An account with
// no balance row gets an all-zero balance, not an error.
func (ts *TokenService) GetBalance(ctx context.Context, account, symbol string) (*models.TokenBalance, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}
	if symbol == "" {
		symbol = ts.staking.Symbol
	}
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	start := time.Now()
	ts.metrics.RecordRequest()

	cacheKey := "balance:" + symbol + ":" + account
	if cached, found := ts.cache.Get(cacheKey); found {
		ts.metrics.RecordCacheHit()
		ts.metrics.RecordRequestComplete(time.Since(start), true)
		balance := cached.(models.TokenBalance)
		return &balance, nil
	}
	ts.metrics.RecordCacheMiss()

	accountMutex := ts.requestMutex.GetMutex(cacheKey)
	accountMutex.Lock()
	defer accountMutex.Unlock()

	if cached, found := ts.cache.Get(cacheKey); found {
		ts.metrics.RecordCacheHit()
		ts.metrics.RecordRequestComplete(time.Since(start), true)
		balance := cached.(models.TokenBalance)
		return &balance, nil
	}

	var row models.BalanceRow
	rpcStart := time.Now()
	found, err := ts.chain.FindOne(ctx, engine.Query{
		Contract: "tokens",
		Table:    "balances",
		Query:    map[string]interface{}{"account": account, "symbol": symbol},
	}, &row)
	ts.metrics.RecordRPCCall(time.Since(rpcStart), err == nil)
	if err != nil {
		ts.metrics.RecordRequestComplete(time.Since(start), false)
		return nil, err
	}

	balance := &models.TokenBalance{
		Account: account,
		Symbol:  symbol,
	}
	if found {
		balance.Liquid = parseAmount(row.Balance)
		balance.Staked = parseAmount(row.Stake)
		balance.PendingUnstake = parseAmount(row.PendingUnstake)
		balance.DelegatedIn = parseAmount(row.DelegationsIn)
		balance.DelegatedOut = parseAmount(row.DelegationsOut)
	}
	balance.Total = balance.Liquid.Add(balance.Staked).Add(balance.DelegatedIn).Sub(balance.DelegatedOut)

	// A reorg can momentarily leave the derived total negative. Surface
	// the row with a flag instead of failing the read path.
	if balance.Total.IsNegative() {
		balance.Inconsistent = true
		logger.GetLogger().WithContext(ctx).Warn("Negative derived balance total",
			zap.String("account", account),
			zap.String("symbol", symbol),
			zap.String("total", balance.Total.String()),
		)
	}

	ts.cache.Set(cacheKey, *balance)
	ts.metrics.RecordRequestComplete(time.Since(start), true)
	return balance, nil
}

// GetToken returns the token metadata row for a symbol, or nil when the
// token does not exist.
func (ts *TokenService) GetToken(ctx context.Context, symbol string) (*models.TokenRow, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	cacheKey := "token:" + symbol
	if cached, found := ts.cache.Get(cacheKey); found {
		ts.metrics.RecordCacheHit()
		row := cached.(models.TokenRow)
		return &row, nil
	}
	ts.metrics.RecordCacheMiss()

	var row models.TokenRow
	found, err := ts.chain.FindOne(ctx, engine.Query{
		Contract: "tokens",
		Table:    "tokens",
		Query:    map[string]interface{}{"symbol": symbol},
	}, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	ts.cache.Set(cacheKey, row)
	return &row, nil
}

// GetStakeInfo returns the staking position plus the derived tier and
// APY estimate for one account and symbol. An empty symbol means the
// configured platform token.
func (ts *TokenService) GetStakeInfo(ctx context.Context, account, symbol string) (*models.StakeInfo, error) {
	if symbol == "" {
		symbol = ts.staking.Symbol
	}

	balance, err := ts.GetBalance(ctx, account, symbol)
	if err != nil {
		return nil, err
	}

	info := &models.StakeInfo{
		Account:        account,
		Symbol:         symbol,
		Staked:         balance.Staked,
		PendingUnstake: balance.PendingUnstake,
		DelegatedIn:    balance.DelegatedIn,
		DelegatedOut:   balance.DelegatedOut,
		EffectiveStake: balance.EffectiveStake(),
	}
	info.Tier = ts.TierFor(info.EffectiveStake)

	if balance.PendingUnstake.IsPositive() {
		var pending []models.PendingUnstakeRow
		if err := ts.chain.Find(ctx, engine.Query{
			Contract: "tokens",
			Table:    "pendingUnstakes",
			Query:    map[string]interface{}{"account": account, "symbol": symbol},
			Limit:    maxPendingUnstakes,
		}, &pending); err != nil {
			// best-effort detail; the position itself is already loaded
			logger.GetLogger().WithContext(ctx).Warn("Failed to load pending unstakes",
				zap.String("account", account),
				zap.Error(err),
			)
		} else if next := earliestRelease(pending); next != nil {
			info.NextUnstakeRelease = next
		}
	}

	token, err := ts.GetToken(ctx, symbol)
	if err != nil {
		logger.GetLogger().WithContext(ctx).Warn("Failed to load token metadata for APY estimate",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return info, nil
	}
	if token != nil {
		info.EstimatedAPY = ts.EstimateAPY(info.EffectiveStake, parseAmount(token.TotalStaked), time.Now())
	}

	return info, nil
}

func earliestRelease(pending []models.PendingUnstakeRow) *time.Time {
	var earliest int64
	for _, row := range pending {
		if row.NextTransactionTime <= 0 {
			continue
		}
		if earliest == 0 || row.NextTransactionTime < earliest {
			earliest = row.NextTransactionTime
		}
	}
	if earliest == 0 {
		return nil
	}
	// chain timestamps are unix milliseconds
	t := time.UnixMilli(earliest).UTC()
	return &t
}

// TierFor returns the highest tier whose threshold does not exceed
// effectiveStake, or empty below the lowest threshold. Boundaries are
// inclusive.
func (ts *TokenService) TierFor(effectiveStake decimal.Decimal) string {
	tier := ""
	for _, threshold := range ts.tiers {
		if effectiveStake.GreaterThanOrEqual(threshold.minStake) {
			tier = threshold.name
		}
	}
	return tier
}

// WeeklyRewardPool returns the emission step active at the given time.
// The last step is open-ended.
func (ts *TokenService) WeeklyRewardPool(now time.Time) decimal.Decimal {
	if len(ts.rewardSteps) == 0 || now.Before(ts.staking.ProgramStart) {
		return decimal.Zero
	}

	elapsedYears := int(now.Sub(ts.staking.ProgramStart).Hours() / (24 * 365))
	pool := decimal.Zero
	for _, step := range ts.rewardSteps {
		if elapsedYears >= step.fromYear {
			pool = step.weeklyPool
		}
	}
	return pool
}

// EstimateAPY annualizes the account's pro-rata share of the weekly
// reward pool. Returns 0 when either stake figure is zero.
func (ts *TokenService) EstimateAPY(effectiveStake, totalStaked decimal.Decimal, now time.Time) decimal.Decimal {
	if !effectiveStake.IsPositive() || !totalStaked.IsPositive() {
		return decimal.Zero
	}

	weeklyPool := ts.WeeklyRewardPool(now)
	if !weeklyPool.IsPositive() {
		return decimal.Zero
	}

	yearlyShare := effectiveStake.Div(totalStaked).Mul(weeklyPool).Mul(decimal.NewFromInt(weeksPerYear))
	return yearlyShare.Div(effectiveStake).Mul(decimal.NewFromInt(100))
}

// GetMetricsCollector returns the metrics collector for middleware
// integration
func (ts *TokenService) GetMetricsCollector() *metrics.Collector {
	return ts.metrics
}

// Stop gracefully shuts down the service
func (ts *TokenService) Stop() {
	ts.cache.Stop()
	ts.requestMutex.Stop()
}
