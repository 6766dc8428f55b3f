package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	MongoDB   MongoDBConfig   `json:"mongodb"`
	RPC       RPCConfig       `json:"rpc"`
	MarketAPI MarketAPIConfig `json:"market_api"`
	History   HistoryConfig   `json:"history"`
	Staking   StakingConfig   `json:"staking"`
	Swap      SwapConfig      `json:"swap"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration
type MongoDBConfig struct {
	URI              string        `json:"uri"`
	Database         string        `json:"database"`
	APIKeyCollection string        `json:"api_key_collection"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	MaxPoolSize      uint64        `json:"max_pool_size"`
}

// RPCConfig holds Hive Engine sidechain RPC configuration
type RPCConfig struct {
	Nodes      []string      `json:"nodes"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// MarketAPIConfig holds the external market-data API configuration.
// The API is the primary price source; the on-chain order book is the fallback.
type MarketAPIConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// HistoryConfig holds the account-history API configuration
type HistoryConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// TierThreshold names a staking tier and the minimum effective stake it requires
type TierThreshold struct {
	Name     string `json:"name"`
	MinStake string `json:"min_stake"`
}

// RewardStep is one step of the weekly reward-pool emission schedule
type RewardStep struct {
	FromYear   int    `json:"from_year"`
	WeeklyPool string `json:"weekly_pool"`
}

// StakingConfig holds tier thresholds and the reward emission schedule
type StakingConfig struct {
	Symbol       string          `json:"symbol"`
	Precision    int32           `json:"precision"`
	ProgramStart time.Time       `json:"program_start"`
	Tiers        []TierThreshold `json:"tiers"`
	RewardSteps  []RewardStep    `json:"reward_steps"`
}

// SwapConfig holds swap-quote and swap-transaction parameters
type SwapConfig struct {
	InputSymbol     string `json:"input_symbol"`
	OutputSymbol    string `json:"output_symbol"`
	InputPrecision  int32  `json:"input_precision"`
	OutputPrecision int32  `json:"output_precision"`
	FeeRate         string `json:"fee_rate"`
	SlippageBuffer  string `json:"slippage_buffer"`
	PlatformAccount string `json:"platform_account"`
	BridgeAccount   string `json:"bridge_account"`
	BridgeMemo      string `json:"bridge_memo"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	BalanceTTL      time.Duration `json:"balance_ttl"`
	MarketTTL       time.Duration `json:"market_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	WindowSize        time.Duration `json:"window_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:         getEnv("MONGODB_DATABASE", "engine_api"),
			APIKeyCollection: getEnv("MONGODB_APIKEY_COLLECTION", "api_keys"),
			ConnectTimeout:   getDurationEnv("MONGODB_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:      getUint64Env("MONGODB_MAX_POOL_SIZE", 100),
		},
		RPC: RPCConfig{
			Nodes: getStringSliceEnv("ENGINE_RPC_NODES", []string{
				"https://api.hive-engine.com/rpc",
				"https://engine.rishipanthee.com",
				"https://herpc.dtools.dev",
				"https://engine.deathwing.me",
			}),
			Timeout:    getDurationEnv("ENGINE_RPC_TIMEOUT", 10*time.Second),
			MaxRetries: getIntEnv("ENGINE_RPC_MAX_RETRIES", 3),
			RetryDelay: getDurationEnv("ENGINE_RPC_RETRY_DELAY", 1*time.Second),
		},
		MarketAPI: MarketAPIConfig{
			BaseURL: getEnv("MARKET_API_BASE_URL", "https://info-api.tribaldex.com"),
			Timeout: getDurationEnv("MARKET_API_TIMEOUT", 5*time.Second),
		},
		History: HistoryConfig{
			BaseURL: getEnv("HISTORY_API_BASE_URL", "https://history.hive-engine.com"),
			Timeout: getDurationEnv("HISTORY_API_TIMEOUT", 10*time.Second),
		},
		Staking: StakingConfig{
			Symbol:       getEnv("STAKING_SYMBOL", "SPORTS"),
			Precision:    int32(getIntEnv("STAKING_PRECISION", 3)),
			ProgramStart: getTimeEnv("STAKING_PROGRAM_START", time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)),
			Tiers: []TierThreshold{
				{Name: "bronze", MinStake: "500"},
				{Name: "silver", MinStake: "5000"},
				{Name: "gold", MinStake: "50000"},
				{Name: "diamond", MinStake: "500000"},
			},
			RewardSteps: []RewardStep{
				{FromYear: 0, WeeklyPool: "250000"},
				{FromYear: 1, WeeklyPool: "125000"},
				{FromYear: 2, WeeklyPool: "62500"},
				{FromYear: 3, WeeklyPool: "31250"},
			},
		},
		Swap: SwapConfig{
			InputSymbol:     getEnv("SWAP_INPUT_SYMBOL", "SWAP.HIVE"),
			OutputSymbol:    getEnv("SWAP_OUTPUT_SYMBOL", "SPORTS"),
			InputPrecision:  int32(getIntEnv("SWAP_INPUT_PRECISION", 3)),
			OutputPrecision: int32(getIntEnv("SWAP_OUTPUT_PRECISION", 3)),
			FeeRate:         getEnv("SWAP_FEE_RATE", "0.01"),
			SlippageBuffer:  getEnv("SWAP_SLIPPAGE_BUFFER", "0.05"),
			PlatformAccount: getEnv("SWAP_PLATFORM_ACCOUNT", "sports.treasury"),
			BridgeAccount:   getEnv("SWAP_BRIDGE_ACCOUNT", "honey-swap"),
			BridgeMemo:      getEnv("SWAP_BRIDGE_MEMO", `{"id":"ssc-mainnet-hive","json":{"contractName":"hivepegged","contractAction":"buy","contractPayload":{}}}`),
		},
		Cache: CacheConfig{
			BalanceTTL:      getDurationEnv("CACHE_BALANCE_TTL", 10*time.Second),
			MarketTTL:       getDurationEnv("CACHE_MARKET_TTL", 3*time.Second),
			CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 60*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			WindowSize:        getDurationEnv("RATE_LIMIT_WINDOW_SIZE", time.Minute),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
			OutputPaths: getStringSliceEnv("LOG_OUTPUT_PATHS", []string{"stdout"}),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uint64Value, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uint64Value
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getTimeEnv(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
