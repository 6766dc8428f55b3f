package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/engine"
	"hive-engine-api/internal/handlers"
	"hive-engine-api/internal/middleware"
	"hive-engine-api/internal/services"
	"hive-engine-api/pkg/logger"
	"hive-engine-api/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server represents the main application server
type Server struct {
	httpServer     *http.Server
	config         *config.Config
	authService    *services.AuthService
	engineClient   *engine.Client
	tokenService   *services.TokenService
	marketService  *services.MarketService
	swapService    *services.SwapService
	historyService *services.HistoryService
	rateLimiter    *ratelimiter.RateLimiter
	router         *handlers.Router
}

func main() {
	cfg := config.LoadConfig()

	loggerConfig := &logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		OutputPaths: cfg.Logging.OutputPaths,
	}

	if err := logger.Initialize(loggerConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.GetLogger()

	log.Info("Starting Hive Engine API server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.Strings("rpc_nodes", cfg.RPC.Nodes),
		zap.String("staking_symbol", cfg.Staking.Symbol),
		zap.Int("rate_limit_rpm", cfg.RateLimit.RequestsPerMinute),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("environment", cfg.Logging.Environment),
	)

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		log.Fatal("Server failed to start", zap.Error(err))
	}
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.GetLogger()

	log.Info("Initializing server components")

	authService, err := services.NewAuthService(&cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	engineClient := engine.New(&cfg.RPC)

	// A failed probe is logged, not fatal: the pool recovers on its own
	// once any node answers.
	probeCtx, cancel := context.WithTimeout(context.Background(), cfg.RPC.Timeout)
	if _, err := engineClient.LatestBlockInfo(probeCtx); err != nil {
		log.Warn("Sidechain RPC probe failed", zap.Error(err))
	} else {
		log.Info("Sidechain RPC connection healthy")
	}
	cancel()

	tokenService := services.NewTokenService(engineClient, cfg)
	marketService := services.NewMarketService(engineClient, cfg)
	historyService := services.NewHistoryService(cfg)
	portfolioService := services.NewPortfolioService(tokenService, historyService)

	builder := services.NewOperationBuilder()
	swapService := services.NewSwapService(marketService, builder, cfg.Swap)

	rateLimiter := ratelimiter.New(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowSize)

	chainChecker := services.NewChainHealthChecker(engineClient, engineClient.Pool())
	healthHandler := handlers.NewHealthHandler(chainChecker, authService)

	router := handlers.NewRouter(handlers.RouterDeps{
		Tokens:    tokenService,
		History:   historyService,
		Portfolio: portfolioService,
		Market:    marketService,
		Swap:      swapService,
		Builder:   builder,
		Health:    healthHandler,
		Staking:   cfg.Staking,
		SwapCfg:   cfg.Swap,
	})

	log.Info("Server components initialized successfully")

	return &Server{
		config:         cfg,
		authService:    authService,
		engineClient:   engineClient,
		tokenService:   tokenService,
		marketService:  marketService,
		swapService:    swapService,
		historyService: historyService,
		rateLimiter:    rateLimiter,
		router:         router,
	}, nil
}

// Start starts the HTTP server with graceful shutdown handling
func (s *Server) Start() error {
	log := logger.GetLogger()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	s.setupMiddleware(engine)
	s.setupRoutes(engine)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:           engine,
		ReadTimeout:       s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("HTTP server configured",
		zap.String("address", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout),
	)

	s.startCleanupRoutines()

	go func() {
		log.Info("Starting HTTP server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	return s.waitForShutdown()
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(engine *gin.Engine) {
	// Recovery first, then request logging with correlation IDs
	engine.Use(logger.RecoveryMiddleware())
	engine.Use(logger.LoggingMiddleware())

	engine.Use(middleware.PerformanceMiddleware(s.tokenService.GetMetricsCollector()))

	engine.Use(s.corsMiddleware())

	// Rate limiting before auth so auth probing is throttled too
	engine.Use(s.rateLimiter.Middleware())
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(engine *gin.Engine) {
	// Health check routes (no authentication required)
	s.router.SetupHealthRoutes(engine)

	// API routes with authentication
	s.router.SetupRoutes(engine, middleware.AuthMiddleware(s.authService))

	engine.GET("/metrics", s.metricsHandler)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// metricsHandler exposes token and market service counters
func (s *Server) metricsHandler(c *gin.Context) {
	tokenMetrics := s.tokenService.GetMetricsCollector()
	marketMetrics := s.marketService.GetMetricsCollector()

	c.JSON(http.StatusOK, gin.H{
		"service": "hive-engine-api",
		"version": "1.0.0",
		"tokens": gin.H{
			"metrics":         tokenMetrics.GetMetrics(),
			"cache_hit_ratio": tokenMetrics.GetCacheHitRatio(),
			"success_rate":    tokenMetrics.GetSuccessRate(),
			"uptime":          tokenMetrics.GetUptime().String(),
		},
		"market": gin.H{
			"metrics":         marketMetrics.GetMetrics(),
			"cache_hit_ratio": marketMetrics.GetCacheHitRatio(),
		},
	})
}

// startCleanupRoutines starts background cleanup tasks
func (s *Server) startCleanupRoutines() {
	go func() {
		ticker := time.NewTicker(s.config.Cache.CleanupInterval)
		defer ticker.Stop()

		for range ticker.C {
			s.rateLimiter.Cleanup()
		}
	}()
}

// waitForShutdown waits for interrupt signal and performs graceful shutdown
func (s *Server) waitForShutdown() error {
	log := logger.GetLogger()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.cleanup()

	log.Info("Server gracefully stopped")
	return nil
}

// cleanup performs cleanup of all services
func (s *Server) cleanup() {
	log := logger.GetLogger()

	if s.tokenService != nil {
		s.tokenService.Stop()
	}
	if s.marketService != nil {
		s.marketService.Stop()
	}
	if s.authService != nil {
		if err := s.authService.Close(); err != nil {
			log.Error("Error closing auth service", zap.Error(err))
		}
	}

	if err := logger.GetLogger().Sync(); err != nil {
		fmt.Printf("Error syncing logger: %v\n", err)
	}
}
