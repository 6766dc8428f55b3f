package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/engine"
	"hive-engine-api/internal/models"
	"hive-engine-api/pkg/cache"
	"hive-engine-api/pkg/logger"
	"hive-engine-api/pkg/metrics"
	"hive-engine-api/pkg/mutex"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// orderBookDepth is the number of price levels fetched per book side.
const orderBookDepth = 100

// tradeHistoryWindow bounds the trade rows scanned for the 24h volume
// fallback.
const tradeHistoryWindow = 500

// MarketService serves price and order-book snapshots. The external
// market-data API is the primary source; the on-chain book and trade
// history are the fallback, producing the same snapshot shape with the
// fields the chain cannot derive left at zero.
type MarketService struct {
	chain        ChainReader
	httpClient   *http.Client
	cache        *cache.Cache
	requestMutex *mutex.RequestMutex
	metrics      *metrics.Collector

	baseURL string
}

// NewMarketService creates a new MarketService instance
func NewMarketService(chain ChainReader, cfg *config.Config) *MarketService {
	return &MarketService{
		chain:        chain,
		httpClient:   &http.Client{Timeout: cfg.MarketAPI.Timeout},
		cache:        cache.New(cfg.Cache.MarketTTL),
		requestMutex: mutex.New(cfg.Cache.CleanupInterval),
		metrics:      metrics.NewCollector(),
		baseURL:      cfg.MarketAPI.BaseURL,
	}
}

// GetMarketData returns the market snapshot for a symbol, API-first with
// on-chain fallback. Snapshots are cached briefly; order books are not.
func (ms *MarketService) GetMarketData(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	cacheKey := "market:" + symbol
	if cached, found := ms.cache.Get(cacheKey); found {
		ms.metrics.RecordCacheHit()
		snapshot := cached.(models.MarketSnapshot)
		return &snapshot, nil
	}
	ms.metrics.RecordCacheMiss()

	symbolMutex := ms.requestMutex.GetMutex(cacheKey)
	symbolMutex.Lock()
	defer symbolMutex.Unlock()

	if cached, found := ms.cache.Get(cacheKey); found {
		ms.metrics.RecordCacheHit()
		snapshot := cached.(models.MarketSnapshot)
		return &snapshot, nil
	}

	log := logger.GetLogger().WithContext(ctx)

	snapshot, err := ms.fetchFromAPI(ctx, symbol)
	if err != nil {
		log.Warn("Market API unavailable, falling back to chain data",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		ms.metrics.RecordMarketFallback()

		snapshot, err = ms.deriveFromChain(ctx, symbol)
		if err != nil {
			return nil, err
		}
	} else {
		ms.metrics.RecordMarketAPIFetch()
	}

	ms.cache.Set(cacheKey, *snapshot)
	return snapshot, nil
}

// fetchFromAPI queries the external market-data API
func (ms *MarketService) fetchFromAPI(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	url := fmt.Sprintf("%s/market/metrics/%s", ms.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeMarketAPIError, "failed to build market API request", err)
	}

	start := time.Now()
	resp, err := ms.httpClient.Do(req)
	ms.metrics.RecordRPCCall(time.Since(start), err == nil)
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeMarketAPIError, "market API request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewAppError(models.ErrorCodeMarketAPIError,
			fmt.Sprintf("market API returned status %d", resp.StatusCode))
	}

	var body models.MarketMetrics
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeMarketAPIError, "failed to decode market API response", err)
	}

	return &models.MarketSnapshot{
		Symbol:             symbol,
		LastPrice:          parseAmount(body.LastPrice),
		PriceChangePercent: parseAmount(body.PriceChangePercent),
		Volume24h:          parseAmount(body.Volume),
		HighestBid:         parseAmount(body.HighestBid),
		LowestAsk:          parseAmount(body.LowestAsk),
		MarketCap:          parseAmount(body.MarketCap),
		Source:             models.MarketSourceAPI,
	}, nil
}

// deriveFromChain rebuilds the snapshot shape from the order book and
// trade history. Price change and market cap are not derivable on-chain
// and stay zero rather than being fabricated.
func (ms *MarketService) deriveFromChain(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	snapshot := &models.MarketSnapshot{
		Symbol: symbol,
		Source: models.MarketSourceChain,
	}

	var topBids []models.OrderRow
	if err := ms.chain.Find(ctx, engine.Query{
		Contract: "market",
		Table:    "buyBook",
		Query:    map[string]interface{}{"symbol": symbol},
		Limit:    1,
		Indexes:  []engine.Index{{Index: "priceDec", Descending: true}},
	}, &topBids); err != nil {
		return nil, err
	}
	if len(topBids) > 0 {
		snapshot.HighestBid = parseAmount(topBids[0].Price)
	}

	var topAsks []models.OrderRow
	if err := ms.chain.Find(ctx, engine.Query{
		Contract: "market",
		Table:    "sellBook",
		Query:    map[string]interface{}{"symbol": symbol},
		Limit:    1,
		Indexes:  []engine.Index{{Index: "priceDec", Descending: false}},
	}, &topAsks); err != nil {
		return nil, err
	}
	if len(topAsks) > 0 {
		snapshot.LowestAsk = parseAmount(topAsks[0].Price)
	}

	var trades []models.TradeRow
	if err := ms.chain.Find(ctx, engine.Query{
		Contract: "market",
		Table:    "tradesHistory",
		Query:    map[string]interface{}{"symbol": symbol},
		Limit:    tradeHistoryWindow,
		Indexes:  []engine.Index{{Index: "_id", Descending: true}},
	}, &trades); err != nil {
		return nil, err
	}
	if len(trades) > 0 {
		snapshot.LastPrice = parseAmount(trades[0].Price)
	}

	cutoff := time.Now().Add(-24 * time.Hour).Unix()
	volume := decimal.Zero
	for _, trade := range trades {
		if trade.Timestamp < cutoff {
			continue
		}
		volume = volume.Add(parseAmount(trade.Quantity).Mul(parseAmount(trade.Price)))
	}
	snapshot.Volume24h = volume

	return snapshot, nil
}

// GetOrderBook fetches up to depth levels of each book side. Bids come
// back descending by price, asks ascending. Never cached.
func (ms *MarketService) GetOrderBook(ctx context.Context, symbol string, depth int) (*models.OrderBook, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	if depth <= 0 || depth > orderBookDepth {
		depth = orderBookDepth
	}

	var bidRows []models.OrderRow
	if err := ms.chain.Find(ctx, engine.Query{
		Contract: "market",
		Table:    "buyBook",
		Query:    map[string]interface{}{"symbol": symbol},
		Limit:    depth,
		Indexes:  []engine.Index{{Index: "priceDec", Descending: true}},
	}, &bidRows); err != nil {
		return nil, err
	}

	var askRows []models.OrderRow
	if err := ms.chain.Find(ctx, engine.Query{
		Contract: "market",
		Table:    "sellBook",
		Query:    map[string]interface{}{"symbol": symbol},
		Limit:    depth,
		Indexes:  []engine.Index{{Index: "priceDec", Descending: false}},
	}, &askRows); err != nil {
		return nil, err
	}

	return &models.OrderBook{
		Symbol: symbol,
		Bids:   toBookEntries(bidRows),
		Asks:   toBookEntries(askRows),
	}, nil
}

func toBookEntries(rows []models.OrderRow) []models.OrderBookEntry {
	entries := make([]models.OrderBookEntry, 0, len(rows))
	for _, row := range rows {
		price := parseAmount(row.Price)
		quantity := parseAmount(row.Quantity)
		if !price.IsPositive() || !quantity.IsPositive() {
			continue
		}
		entries = append(entries, models.OrderBookEntry{Price: price, Quantity: quantity})
	}
	return entries
}

// GetAggregatedOrderBook buckets the raw book into fixed-precision price
// levels for depth-chart consumers. Bid prices round down, ask prices
// round up, so buckets never overstate how good a level is.
func (ms *MarketService) GetAggregatedOrderBook(ctx context.Context, symbol string, precision int32, depth int) (*models.AggregatedOrderBook, error) {
	book, err := ms.GetOrderBook(ctx, symbol, depth)
	if err != nil {
		return nil, err
	}

	return &models.AggregatedOrderBook{
		Symbol: symbol,
		Bids:   aggregateSide(book.Bids, precision, true),
		Asks:   aggregateSide(book.Asks, precision, false),
	}, nil
}

// aggregateSide merges entries into price buckets and emits a cumulative
// total per level from the top of the side.
func aggregateSide(entries []models.OrderBookEntry, precision int32, bids bool) []models.DepthLevel {
	buckets := make(map[string]decimal.Decimal)
	for _, entry := range entries {
		var price decimal.Decimal
		if bids {
			price = entry.Price.RoundFloor(precision)
		} else {
			price = entry.Price.RoundCeil(precision)
		}
		key := price.StringFixed(precision)
		buckets[key] = buckets[key].Add(entry.Quantity)
	}

	levels := make([]models.DepthLevel, 0, len(buckets))
	for key, quantity := range buckets {
		levels = append(levels, models.DepthLevel{
			Price:    decimal.RequireFromString(key),
			Quantity: quantity,
		})
	}

	sort.Slice(levels, func(i, j int) bool {
		if bids {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})

	total := decimal.Zero
	for i := range levels {
		total = total.Add(levels[i].Quantity)
		levels[i].Total = total
	}

	return levels
}

// GetMetricsCollector returns the metrics collector for middleware
// integration
func (ms *MarketService) GetMetricsCollector() *metrics.Collector {
	return ms.metrics
}

// Stop gracefully shuts down the service
func (ms *MarketService) Stop() {
	ms.cache.Stop()
	ms.requestMutex.Stop()
}
