package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"
	"hive-engine-api/pkg/logger"
	"hive-engine-api/pkg/nodepool"

	"go.uber.org/zap"
)

// Client issues JSON-RPC queries against a federated pool of sidechain
// nodes, retrying with exponential backoff through the healthiest
// endpoint. Only read-style calls go through this client; transaction
// broadcasts belong to the external signer and are never retried here.
type Client struct {
	pool       *nodepool.Pool
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration

	// sleep is injectable for deterministic backoff tests
	sleep func(time.Duration)
}

// New creates a Client over the configured node pool
func New(cfg *config.RPCConfig) *Client {
	return &Client{
		pool:       nodepool.New(cfg.Nodes),
		httpClient: &http.Client{},
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		sleep:      time.Sleep,
	}
}

// Pool exposes the node pool for health reporting endpoints
func (c *Client) Pool() *nodepool.Pool {
	return c.pool
}

// Find runs a find query against a contract table and decodes the result
// array into out. A JSON null result is a valid "no rows" answer and
// leaves out untouched.
func (c *Client) Find(ctx context.Context, q Query, out interface{}) error {
	raw, err := c.execute(ctx, endpointContracts, methodFind, q)
	if err != nil {
		return err
	}
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return models.NewAppErrorWithCause(models.ErrorCodeInvalidRPCResponse, "Failed to decode find result", err)
	}
	return nil
}

// FindOne runs a findOne query and decodes the single-row result into
// out. The boolean reports whether a row was found; a JSON null result
// is absent, not an error.
func (c *Client) FindOne(ctx context.Context, q Query, out interface{}) (bool, error) {
	raw, err := c.execute(ctx, endpointContracts, methodFindOne, q)
	if err != nil {
		return false, err
	}
	if isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, models.NewAppErrorWithCause(models.ErrorCodeInvalidRPCResponse, "Failed to decode findOne result", err)
	}
	return true, nil
}

// LatestBlockInfo fetches the newest sidechain block metadata
func (c *Client) LatestBlockInfo(ctx context.Context) (*BlockInfo, error) {
	raw, err := c.execute(ctx, endpointBlockchain, methodGetLatestBlockInfo, struct{}{})
	if err != nil {
		return nil, err
	}
	if isNull(raw) {
		return nil, models.NewAppError(models.ErrorCodeInvalidRPCResponse, "Empty block info result")
	}
	var info BlockInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeInvalidRPCResponse, "Failed to decode block info", err)
	}
	return &info, nil
}

// execute runs one logical request: up to maxRetries sequential attempts,
// each against the next healthy node, with retryDelay * 2^attempt backoff
// between attempts. A deliberate caller cancellation aborts immediately
// and is never retried; the last observed error is returned once the
// budget is spent.
func (c *Client) execute(ctx context.Context, endpoint, method string, params interface{}) (json.RawMessage, error) {
	log := logger.GetLogger().WithContext(ctx)

	var lastErr *models.AppError
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, cancellationError(err)
		}

		node, err := c.pool.Select()
		if err != nil {
			return nil, models.NewAppErrorWithCause(models.ErrorCodeRPCUnavailable, "No RPC nodes configured", err)
		}

		result, appErr := c.post(ctx, node, endpoint, method, params)
		if appErr == nil {
			return result, nil
		}
		if appErr.Code == models.ErrorCodeRPCCancelled {
			// Not the node's fault and not retried.
			return nil, appErr
		}

		c.pool.ReportFailure(node)
		lastErr = appErr

		log.Warn("RPC attempt failed",
			zap.String("node", node),
			zap.String("method", method),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.String("error_code", string(appErr.Code)),
			zap.Error(appErr),
		)

		c.sleep(c.retryDelay * (1 << attempt))
	}

	return nil, lastErr
}

// post issues a single JSON-RPC attempt with a hard per-request timeout
// and reports success with measured latency on the pool.
func (c *Client) post(ctx context.Context, node, endpoint, method string, params interface{}) (json.RawMessage, *models.AppError) {
	reqEnvelope := Request{
		JSONRPC: "2.0",
		ID:      nextRequestID(),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqEnvelope)
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeInternalError, "Failed to encode RPC request", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, node+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeRPCUnavailable, "Failed to build RPC request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, cancellationError(ctx.Err())
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, models.NewAppErrorWithCause(models.ErrorCodeRPCTimeout,
				fmt.Sprintf("RPC request to %s timed out after %s", node, c.timeout), err)
		}
		return nil, models.NewAppErrorWithCause(models.ErrorCodeRPCUnavailable, "RPC transport error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewAppError(models.ErrorCodeRPCUnavailable,
			fmt.Sprintf("RPC node %s returned status %d", node, resp.StatusCode))
	}

	var rpcResp Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeInvalidRPCResponse, "Malformed RPC response", err)
	}

	if rpcResp.Error != nil {
		// The node answered but the call failed at the JSON-RPC level:
		// a bad-node signal worth counting against it.
		return nil, models.NewAppError(models.ErrorCodeInvalidRPCResponse,
			fmt.Sprintf("RPC error from %s: %s", node, rpcResp.Error.Message))
	}

	c.pool.ReportSuccess(node, time.Since(start))
	return rpcResp.Result, nil
}

func cancellationError(cause error) *models.AppError {
	return models.NewAppErrorWithCause(models.ErrorCodeRPCCancelled, "RPC request cancelled by caller", cause)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
