package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(nodes []string, maxRetries int) (*Client, *[]time.Duration) {
	c := New(&config.RPCConfig{
		Nodes:      nodes,
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
		RetryDelay: 10 * time.Millisecond,
	})

	sleeps := &[]time.Duration{}
	c.sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return c, sleeps
}

func rpcHandler(t *testing.T, handler func(req Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)

		resp := handler(req)
		resp.JSONRPC = "2.0"
		resp.ID = req.ID
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestClientFindOne(t *testing.T) {
	t.Run("PopulatedResult", func(t *testing.T) {
		server := httptest.NewServer(rpcHandler(t, func(req Request) Response {
			assert.Equal(t, "findOne", req.Method)
			return Response{Result: json.RawMessage(`{"account":"alice","symbol":"SPORTS","balance":"10.5"}`)}
		}))
		defer server.Close()

		client, _ := newTestClient([]string{server.URL}, 3)

		var row models.BalanceRow
		found, err := client.FindOne(context.Background(), Query{
			Contract: "tokens",
			Table:    "balances",
			Query:    map[string]interface{}{"account": "alice", "symbol": "SPORTS"},
		}, &row)

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "alice", row.Account)
		assert.Equal(t, "10.5", row.Balance)

		// Success must be reported back to the pool with measured latency
		health := client.Pool().Health()
		require.Len(t, health, 1)
		assert.True(t, health[0].Healthy)
		assert.Equal(t, 0, health[0].ConsecutiveFailures)
	})

	t.Run("NullResultIsAbsentNotError", func(t *testing.T) {
		server := httptest.NewServer(rpcHandler(t, func(req Request) Response {
			return Response{Result: json.RawMessage(`null`)}
		}))
		defer server.Close()

		client, _ := newTestClient([]string{server.URL}, 3)

		var row models.BalanceRow
		found, err := client.FindOne(context.Background(), Query{Contract: "tokens", Table: "balances"}, &row)

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, row.Account)
	})
}

func TestClientFind(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, func(req Request) Response {
		assert.Equal(t, "find", req.Method)
		return Response{Result: json.RawMessage(`[{"price":"0.1","quantity":"100"},{"price":"0.2","quantity":"50"}]`)}
	}))
	defer server.Close()

	client, _ := newTestClient([]string{server.URL}, 3)

	var rows []models.OrderRow
	err := client.Find(context.Background(), Query{
		Contract: "market",
		Table:    "sellBook",
		Query:    map[string]interface{}{"symbol": "SPORTS"},
		Limit:    100,
		Indexes:  []Index{{Index: "priceDec", Descending: false}},
	}, &rows)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.1", rows[0].Price)
}

func TestClientRetriesExhaustBudget(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	const maxRetries = 4
	client, sleeps := newTestClient([]string{server.URL}, maxRetries)

	var rows []models.BalanceRow
	err := client.Find(context.Background(), Query{Contract: "tokens", Table: "balances"}, &rows)

	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrorCodeRPCUnavailable, appErr.Code)

	// Exactly maxRetries attempts, strictly sequential
	assert.Equal(t, int64(maxRetries), atomic.LoadInt64(&hits))

	// Exponential backoff: retryDelay * 2^attempt, so the last applied
	// backoff is retryDelay * 2^(N-1)
	require.Len(t, *sleeps, maxRetries)
	base := 10 * time.Millisecond
	assert.Equal(t, base, (*sleeps)[0])
	assert.Equal(t, 2*base, (*sleeps)[1])
	assert.Equal(t, 4*base, (*sleeps)[2])
	assert.Equal(t, 8*base, (*sleeps)[3])
}

func TestClientJSONRPCErrorCountsAgainstNode(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, func(req Request) Response {
		return Response{Error: &ResponseError{Code: -32602, Message: "invalid params"}}
	}))
	defer server.Close()

	client, _ := newTestClient([]string{server.URL}, 3)

	var rows []models.BalanceRow
	err := client.Find(context.Background(), Query{Contract: "tokens", Table: "balances"}, &rows)

	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrorCodeInvalidRPCResponse, appErr.Code)
	assert.Contains(t, appErr.Message, "invalid params")

	// Three JSON-RPC-level failures push the node over the threshold
	health := client.Pool().Health()
	require.Len(t, health, 1)
	assert.False(t, health[0].Healthy)
}

func TestClientFailsOverToSecondNode(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	good := httptest.NewServer(rpcHandler(t, func(req Request) Response {
		return Response{Result: json.RawMessage(`[{"account":"bob"}]`)}
	}))
	defer good.Close()

	client, _ := newTestClient([]string{bad.URL, good.URL}, 3)

	var rows []models.BalanceRow
	err := client.Find(context.Background(), Query{Contract: "tokens", Table: "balances"}, &rows)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].Account)

	for _, h := range client.Pool().Health() {
		switch h.URL {
		case bad.URL:
			assert.Equal(t, 1, h.ConsecutiveFailures)
		case good.URL:
			assert.True(t, h.Healthy)
			assert.Equal(t, 0, h.ConsecutiveFailures)
		}
	}
}

func TestClientCancellationIsNotRetried(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, sleeps := newTestClient([]string{server.URL}, 3)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	var rows []models.BalanceRow
	err := client.Find(ctx, Query{Contract: "tokens", Table: "balances"}, &rows)

	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.ErrorCodeRPCCancelled, appErr.Code)

	// A deliberate cancellation aborts the retry loop entirely
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
	assert.Empty(t, *sleeps)
}

func TestClientLatestBlockInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/blockchain", r.URL.Path)
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getLatestBlockInfo", req.Method)

		resp := Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  json.RawMessage(`{"blockNumber":12345678,"hash":"abc","refHiveBlockNumber":87654321,"timestamp":"2026-08-31T12:00:00"}`),
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client, _ := newTestClient([]string{server.URL}, 3)

	info, err := client.LatestBlockInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12345678), info.BlockNumber)
	assert.Equal(t, int64(87654321), info.RefHiveBlockNumber)
}

func TestRequestIDsAreMonotonic(t *testing.T) {
	seen := make(chan int64, 8)
	server := httptest.NewServer(rpcHandler(t, func(req Request) Response {
		seen <- req.ID
		return Response{Result: json.RawMessage(`null`)}
	}))
	defer server.Close()

	client, _ := newTestClient([]string{server.URL}, 3)

	var prev int64
	for i := 0; i < 4; i++ {
		var row models.BalanceRow
		_, err := client.FindOne(context.Background(), Query{Contract: "tokens", Table: "balances"}, &row)
		require.NoError(t, err)

		id := <-seen
		assert.Greater(t, id, prev)
		prev = id
	}
}

// Guard against pool state leaking between unrelated clients
func TestClientsOwnTheirPools(t *testing.T) {
	a := New(&config.RPCConfig{Nodes: []string{"https://node-a"}, Timeout: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond})
	b := New(&config.RPCConfig{Nodes: []string{"https://node-b"}, Timeout: time.Second, MaxRetries: 1, RetryDelay: time.Millisecond})

	a.Pool().ReportFailure("https://node-a")
	a.Pool().ReportFailure("https://node-a")
	a.Pool().ReportFailure("https://node-a")

	assert.False(t, a.Pool().Health()[0].Healthy)
	assert.True(t, b.Pool().Health()[0].Healthy)
	assert.NotSame(t, a.Pool(), b.Pool())
}
