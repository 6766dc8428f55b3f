package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/engine"
	"hive-engine-api/internal/handlers"
	"hive-engine-api/internal/middleware"
	"hive-engine-api/internal/models"
	"hive-engine-api/internal/services"
	"hive-engine-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	validKeys map[string]*models.APIKey
	mu        sync.RWMutex
}

// NewMockAuthService creates a new mock authentication service
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		validKeys: make(map[string]*models.APIKey),
	}
}

// AddValidKey adds a valid API key for testing
func (m *MockAuthService) AddValidKey(key string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validKeys[key] = &models.APIKey{
		Key:       key,
		Name:      fmt.Sprintf("Test Key %s", key),
		Active:    active,
		CreatedAt: time.Now(),
	}
}

// ValidateAPIKey validates an API key (mock implementation)
func (m *MockAuthService) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apiKey, exists := m.validKeys[key]
	if !exists {
		return nil, services.ErrInvalidAPIKey
	}
	if !apiKey.Active {
		return nil, services.ErrInactiveAPIKey
	}
	return apiKey, nil
}

// newTestNode serves the sidechain JSON-RPC protocol over httptest,
// answering contract queries from canned table rows.
func newTestNode(t *testing.T, tables map[string]interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req engine.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch r.URL.Path {
		case "/blockchain":
			result = map[string]interface{}{"blockNumber": 12345}
		case "/contracts":
			params, _ := json.Marshal(req.Params)
			var q engine.Query
			require.NoError(t, json.Unmarshal(params, &q))
			result = tables[q.Contract+"/"+q.Table]
		}

		raw, err := json.Marshal(result)
		require.NoError(t, err)

		json.NewEncoder(w).Encode(engine.Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  raw,
		})
	}))
}

func testConfig(nodeURL, marketURL string) *config.Config {
	return &config.Config{
		RPC: config.RPCConfig{
			Nodes:      []string{nodeURL},
			Timeout:    2 * time.Second,
			MaxRetries: 2,
			RetryDelay: time.Millisecond,
		},
		MarketAPI: config.MarketAPIConfig{
			BaseURL: marketURL,
			Timeout: 2 * time.Second,
		},
		History: config.HistoryConfig{
			BaseURL: marketURL,
			Timeout: 2 * time.Second,
		},
		Staking: config.StakingConfig{
			Symbol:    "SPORTS",
			Precision: 3,
			Tiers: []config.TierThreshold{
				{Name: "bronze", MinStake: "500"},
				{Name: "silver", MinStake: "5000"},
			},
			RewardSteps: []config.RewardStep{
				{FromYear: 0, WeeklyPool: "250000"},
			},
		},
		Swap: config.SwapConfig{
			InputSymbol:     "SWAP.HIVE",
			OutputSymbol:    "SPORTS",
			InputPrecision:  3,
			OutputPrecision: 3,
			FeeRate:         "0.01",
			SlippageBuffer:  "0.05",
			PlatformAccount: "sports.treasury",
			BridgeAccount:   "honey-swap",
			BridgeMemo:      "wrap",
		},
		Cache: config.CacheConfig{
			BalanceTTL:      10 * time.Second,
			MarketTTL:       10 * time.Second,
			CleanupInterval: time.Minute,
		},
	}
}

// setupTestServer wires real services over the mock node and mock auth
func setupTestServer(t *testing.T, cfg *config.Config) (*gin.Engine, *MockAuthService) {
	t.Helper()

	require.NoError(t, logger.Initialize(&logger.Config{
		Level:       "error",
		Environment: "test",
		OutputPaths: []string{"stdout"},
	}))

	mockAuth := NewMockAuthService()
	mockAuth.AddValidKey("test-api-key", true)
	mockAuth.AddValidKey("inactive-key", false)

	engineClient := engine.New(&cfg.RPC)
	tokenService := services.NewTokenService(engineClient, cfg)
	marketService := services.NewMarketService(engineClient, cfg)
	historyService := services.NewHistoryService(cfg)
	portfolioService := services.NewPortfolioService(tokenService, historyService)
	builder := services.NewOperationBuilder()
	swapService := services.NewSwapService(marketService, builder, cfg.Swap)
	chainChecker := services.NewChainHealthChecker(engineClient, engineClient.Pool())

	t.Cleanup(func() {
		tokenService.Stop()
		marketService.Stop()
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Tokens:    tokenService,
		History:   historyService,
		Portfolio: portfolioService,
		Market:    marketService,
		Swap:      swapService,
		Builder:   builder,
		Health:    handlers.NewHealthHandler(chainChecker),
		Staking:   cfg.Staking,
		SwapCfg:   cfg.Swap,
	})

	gin.SetMode(gin.TestMode)
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	router.SetupHealthRoutes(ginEngine)
	router.SetupRoutes(ginEngine, middleware.AuthMiddleware(mockAuth))

	return ginEngine, mockAuth
}

func doRequest(ginEngine *gin.Engine, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	ginEngine.ServeHTTP(w, req)
	return w
}

func TestIntegration_BalanceEndpoint(t *testing.T) {
	node := newTestNode(t, map[string]interface{}{
		"tokens/balances": map[string]interface{}{
			"account":        "alice",
			"symbol":         "SPORTS",
			"balance":        "100.5",
			"stake":          "2000",
			"pendingUnstake": "0",
			"delegationsIn":  "0",
			"delegationsOut": "0",
		},
	})
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodGet, "/api/wallet/alice/balance", "test-api-key", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var balance models.TokenBalance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
	assert.Equal(t, "alice", balance.Account)
	assert.True(t, balance.Total.Equal(balance.Liquid.Add(balance.Staked)))
}

func TestIntegration_AuthRequired(t *testing.T) {
	node := newTestNode(t, nil)
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	tests := []struct {
		name   string
		apiKey string
		status int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"invalid key", "wrong-key", http.StatusUnauthorized},
		{"inactive key", "inactive-key", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(ginEngine, http.MethodGet, "/api/wallet/alice/balance", tt.apiKey, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestIntegration_HealthNoAuth(t *testing.T) {
	node := newTestNode(t, nil)
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(ginEngine, http.MethodGet, "/health/nodes", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Nodes []struct {
			URL     string `json:"url"`
			Healthy bool   `json:"healthy"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Nodes, 1)
	assert.True(t, body.Nodes[0].Healthy)
}

func TestIntegration_SwapQuote(t *testing.T) {
	node := newTestNode(t, map[string]interface{}{
		"market/sellBook": []map[string]interface{}{
			{"account": "maker", "symbol": "SPORTS", "price": "0.002", "quantity": "100000"},
		},
		"market/buyBook": []map[string]interface{}{},
	})
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodPost, "/api/swap/quote", "test-api-key", map[string]string{
		"amount": "100",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var quote models.SwapQuote
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &quote))
	// fee 1.000, net 99, output 99/0.002 = 49500
	assert.True(t, quote.Fee.Equal(decimalFromString(t, "1")))
	assert.True(t, quote.EstimatedOutputAmount.Equal(decimalFromString(t, "49500")))
	assert.True(t, quote.SufficientLiquidity)
}

func TestIntegration_BuildTransferOperation(t *testing.T) {
	node := newTestNode(t, nil)
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodPost, "/api/operations/transfer", "test-api-key", map[string]string{
		"from":     "alice",
		"to":       "bob",
		"quantity": "10.5",
		"memo":     "hello",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Operation models.OperationEnvelope `json:"operation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"alice"}, body.Operation.RequiredActiveAuths)
	assert.Contains(t, body.Operation.Payload, `"contractAction":"transfer"`)
}

func TestIntegration_TransferValidationFails(t *testing.T) {
	node := newTestNode(t, nil)
	defer node.Close()

	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodPost, "/api/operations/transfer", "test-api-key", map[string]string{
		"from":     "alice",
		"to":       "alice",
		"quantity": "10.5",
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SELF_REFERENCE", body.Error.Code)
}

func TestIntegration_MarketFallbackToChain(t *testing.T) {
	node := newTestNode(t, map[string]interface{}{
		"market/buyBook": []map[string]interface{}{
			{"symbol": "SPORTS", "price": "0.002", "quantity": "1000"},
		},
		"market/sellBook": []map[string]interface{}{
			{"symbol": "SPORTS", "price": "0.003", "quantity": "500"},
		},
		"market/tradesHistory": []map[string]interface{}{},
	})
	defer node.Close()

	// market API base URL points nowhere, forcing the chain fallback
	ginEngine, _ := setupTestServer(t, testConfig(node.URL, "http://127.0.0.1:1"))

	w := doRequest(ginEngine, http.MethodGet, "/api/market/SPORTS", "test-api-key", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snapshot models.MarketSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, models.MarketSourceChain, snapshot.Source)
	assert.True(t, snapshot.HighestBid.Equal(decimalFromString(t, "0.002")))
}
