package handlers

import (
	"hive-engine-api/internal/config"
	"hive-engine-api/internal/services"

	"github.com/gin-gonic/gin"
)

// Router handles HTTP routing setup
type Router struct {
	walletHandler     *WalletHandler
	marketHandler     *MarketHandler
	swapHandler       *SwapHandler
	operationsHandler *OperationsHandler
	healthHandler     *HealthHandler
}

// RouterDeps carries the services the router's handlers are built from
type RouterDeps struct {
	Tokens    services.TokenServiceInterface
	History   services.HistoryServiceInterface
	Portfolio services.PortfolioServiceInterface
	Market    services.MarketServiceInterface
	Swap      services.SwapServiceInterface
	Builder   *services.OperationBuilder
	Health    *HealthHandler
	Staking   config.StakingConfig
	SwapCfg   config.SwapConfig
}

// NewRouter creates a new Router instance with all handlers
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		walletHandler:     NewWalletHandler(deps.Tokens, deps.History, deps.Portfolio),
		marketHandler:     NewMarketHandler(deps.Market),
		swapHandler:       NewSwapHandler(deps.Swap),
		operationsHandler: NewOperationsHandler(deps.Builder, deps.Staking, deps.SwapCfg),
		healthHandler:     deps.Health,
	}
}

// SetupRoutes configures all API routes. The supplied middleware (auth)
// guards every /api route; health routes stay open.
func (r *Router) SetupRoutes(engine *gin.Engine, mw ...gin.HandlerFunc) {
	api := engine.Group("/api", mw...)
	{
		wallet := api.Group("/wallet")
		{
			wallet.GET("/:account/balance", r.walletHandler.GetBalance)
			wallet.GET("/:account/stake", r.walletHandler.GetStakeInfo)
			wallet.GET("/:account/history", r.walletHandler.GetHistory)
			wallet.GET("/:account/portfolio", r.walletHandler.GetPortfolio)
		}

		api.GET("/tokens/:symbol", r.walletHandler.GetToken)

		market := api.Group("/market")
		{
			market.GET("/:symbol", r.marketHandler.GetMarketData)
			market.GET("/:symbol/orderbook", r.marketHandler.GetOrderBook)
			market.GET("/:symbol/depth", r.marketHandler.GetDepth)
		}

		swap := api.Group("/swap")
		{
			swap.POST("/quote", r.swapHandler.QuoteSwap)
			swap.POST("/build", r.swapHandler.BuildSwap)
		}

		operations := api.Group("/operations")
		{
			operations.POST("/transfer", r.operationsHandler.Transfer)
			operations.POST("/stake", r.operationsHandler.Stake)
			operations.POST("/unstake", r.operationsHandler.Unstake)
			operations.POST("/cancel-unstake", r.operationsHandler.CancelUnstake)
			operations.POST("/delegate", r.operationsHandler.Delegate)
			operations.POST("/undelegate", r.operationsHandler.Undelegate)
			operations.POST("/market-buy", r.operationsHandler.MarketBuy)
			operations.POST("/rewards", r.operationsHandler.RewardBatch)
		}
	}
}

// SetupHealthRoutes configures health check routes
func (r *Router) SetupHealthRoutes(engine *gin.Engine) {
	health := engine.Group("/health")
	{
		health.GET("", r.healthHandler.GetHealth)
		health.GET("/live", r.healthHandler.GetLiveness)
		health.GET("/ready", r.healthHandler.GetReadiness)
		health.GET("/nodes", r.healthHandler.GetNodeHealth)
	}
}
