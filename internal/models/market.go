package models

import "github.com/shopspring/decimal"

// OrderRow is the raw market/buyBook or market/sellBook table row
type OrderRow struct {
	Account  string `json:"account"`
	Symbol   string `json:"symbol"`
	Quantity string `json:"quantity"`
	Price    string `json:"price"`
}

// TradeRow is the raw market/tradesHistory table row
type TradeRow struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// MarketMetrics is the external market-data API body. Numeric fields are
// string-encoded by the API.
type MarketMetrics struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	HighestBid         string `json:"highestBid"`
	LowestAsk          string `json:"lowestAsk"`
	MarketCap          string `json:"marketCap"`
}

// MarketSnapshot is the decoded market view, produced identically by the
// external API path and the on-chain fallback. Fields the chain cannot
// derive (price change, market cap) are zero on the fallback path.
type MarketSnapshot struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"last_price"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	Volume24h          decimal.Decimal `json:"volume_24h"`
	HighestBid         decimal.Decimal `json:"highest_bid"`
	LowestAsk          decimal.Decimal `json:"lowest_ask"`
	MarketCap          decimal.Decimal `json:"market_cap"`
	Source             string          `json:"source"`
}

// Snapshot sources
const (
	MarketSourceAPI   = "api"
	MarketSourceChain = "chain"
)

// OrderBookEntry is one read-only price level of an order book side
type OrderBookEntry struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBook is a snapshot of both sides: bids sorted descending by price,
// asks ascending.
type OrderBook struct {
	Symbol string           `json:"symbol"`
	Bids   []OrderBookEntry `json:"bids"`
	Asks   []OrderBookEntry `json:"asks"`
}

// DepthLevel is one aggregated bucket of a depth chart, carrying the
// cumulative quantity from the top of its side.
type DepthLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// AggregatedOrderBook is the bucketed depth-chart view of an order book
type AggregatedOrderBook struct {
	Symbol string       `json:"symbol"`
	Bids   []DepthLevel `json:"bids"`
	Asks   []DepthLevel `json:"asks"`
}
