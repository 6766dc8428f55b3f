package engine

import (
	"encoding/json"
	"sync/atomic"
)

// JSON-RPC methods served by Hive Engine nodes
const (
	methodFind               = "find"
	methodFindOne            = "findOne"
	methodGetLatestBlockInfo = "getLatestBlockInfo"
)

// Node endpoint paths. Contract-table queries and blockchain metadata are
// served on separate paths.
const (
	endpointContracts  = "contracts"
	endpointBlockchain = "blockchain"
)

// Request is a JSON-RPC 2.0 request envelope
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the JSON-RPC error member
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Index selects a contract-table index for server-side sorting
type Index struct {
	Index      string `json:"index"`
	Descending bool   `json:"descending"`
}

// Query addresses one contract table with an optional filter, paging and
// sort order.
type Query struct {
	Contract string                 `json:"contract"`
	Table    string                 `json:"table"`
	Query    map[string]interface{} `json:"query"`
	Limit    int                    `json:"limit,omitempty"`
	Offset   int                    `json:"offset,omitempty"`
	Indexes  []Index                `json:"indexes,omitempty"`
}

// BlockInfo is the latest-block metadata served on the blockchain path
type BlockInfo struct {
	BlockNumber        int64  `json:"blockNumber"`
	Hash               string `json:"hash"`
	PreviousHash       string `json:"previousHash"`
	Timestamp          string `json:"timestamp"`
	RefHiveBlockNumber int64  `json:"refHiveBlockNumber"`
}

// requestID is the process-global request id used for request/response
// correlation. Monotonic, never persisted.
var requestID int64

func nextRequestID() int64 {
	return atomic.AddInt64(&requestID, 1)
}
