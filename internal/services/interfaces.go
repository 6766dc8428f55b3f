package services

import (
	"context"

	"hive-engine-api/internal/engine"
	"hive-engine-api/internal/models"

	"github.com/shopspring/decimal"
)

// ChainReader defines the interface for sidechain RPC reads
type ChainReader interface {
	Find(ctx context.Context, q engine.Query, out interface{}) error
	FindOne(ctx context.Context, q engine.Query, out interface{}) (bool, error)
	LatestBlockInfo(ctx context.Context) (*engine.BlockInfo, error)
}

// AuthServiceInterface defines the interface for authentication services
type AuthServiceInterface interface {
	ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error)
}

// TokenServiceInterface defines the interface for token balance and
// staking operations
type TokenServiceInterface interface {
	GetBalance(ctx context.Context, account, symbol string) (*models.TokenBalance, error)
	GetToken(ctx context.Context, symbol string) (*models.TokenRow, error)
	GetStakeInfo(ctx context.Context, account, symbol string) (*models.StakeInfo, error)
}

// MarketServiceInterface defines the interface for market data operations
type MarketServiceInterface interface {
	GetMarketData(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
	GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error)
	GetAggregatedOrderBook(ctx context.Context, symbol string, precision int32, depth int) (*models.AggregatedOrderBook, error)
}

// SwapServiceInterface defines the interface for swap quoting and
// transaction assembly
type SwapServiceInterface interface {
	Quote(ctx context.Context, grossInput decimal.Decimal) (*models.SwapQuote, error)
	BuildSwapTransaction(ctx context.Context, account string, grossInput decimal.Decimal) ([]models.OperationEnvelope, *models.SwapQuote, error)
}

// HistoryServiceInterface defines the interface for account history reads
type HistoryServiceInterface interface {
	GetTransferHistory(ctx context.Context, account string, limit int) ([]models.TransferRecord, error)
}

// PortfolioServiceInterface defines the interface for aggregated account
// views
type PortfolioServiceInterface interface {
	GetPortfolio(ctx context.Context, account string) (*models.Portfolio, error)
}
