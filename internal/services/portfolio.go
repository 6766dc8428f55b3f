package services

import (
	"context"
	"fmt"
	"sync"

	"hive-engine-api/internal/models"
	"hive-engine-api/pkg/logger"

	"go.uber.org/zap"
)

const portfolioHistoryLimit = 20

// PortfolioService joins the balance, staking and history views of one
// account. The three sources are independent, so they are fetched in
// parallel and joined; a failed section degrades to a warning instead of
// failing the whole view.
type PortfolioService struct {
	tokens  TokenServiceInterface
	history HistoryServiceInterface
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(tokens TokenServiceInterface, history HistoryServiceInterface) *PortfolioService {
	return &PortfolioService{
		tokens:  tokens,
		history: history,
	}
}

// GetPortfolio fetches the aggregated account view
func (ps *PortfolioService) GetPortfolio(ctx context.Context, account string) (*models.Portfolio, error) {
	if err := ValidateAccountName(account); err != nil {
		return nil, err
	}

	portfolio := &models.Portfolio{Account: account}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	warn := func(section string, err error) {
		mu.Lock()
		portfolio.Warnings = append(portfolio.Warnings, fmt.Sprintf("%s unavailable: %v", section, err))
		mu.Unlock()
		logger.GetLogger().WithContext(ctx).Warn("Portfolio section failed",
			zap.String("account", account),
			zap.String("section", section),
			zap.Error(err),
		)
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		balance, err := ps.tokens.GetBalance(ctx, account, "")
		if err != nil {
			warn("balance", err)
			return
		}
		mu.Lock()
		portfolio.Balance = balance
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		stake, err := ps.tokens.GetStakeInfo(ctx, account, "")
		if err != nil {
			warn("stake", err)
			return
		}
		mu.Lock()
		portfolio.Stake = stake
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		transfers, err := ps.history.GetTransferHistory(ctx, account, portfolioHistoryLimit)
		if err != nil {
			warn("history", err)
			return
		}
		mu.Lock()
		portfolio.RecentTransfers = transfers
		mu.Unlock()
	}()

	wg.Wait()

	return portfolio, nil
}
