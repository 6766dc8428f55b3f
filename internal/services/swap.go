package services

import (
	"context"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"
	"hive-engine-api/pkg/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// swap amounts settle at three decimal places; fee and net input are
// truncated, never rounded, so a fractional remainder always favors the
// platform instead of granting the user sub-precision surplus.
const swapAmountPlaces = 3

// QuoteSwap prices a swap of grossInput against a snapshot of the ask
// side of an order book. Pure: no I/O, the caller supplies the book.
// Asks must be sorted ascending by price; zero-price or zero-quantity
// entries are skipped rather than trusted.
func QuoteSwap(grossInput decimal.Decimal, feeRate decimal.Decimal, asks []models.OrderBookEntry) models.SwapQuote {
	quote := models.SwapQuote{
		GrossInputAmount:      decimal.Zero,
		Fee:                   decimal.Zero,
		NetInputAmount:        decimal.Zero,
		EstimatedOutputAmount: decimal.Zero,
		AveragePrice:          decimal.Zero,
		WorstFillPrice:        decimal.Zero,
		PriceImpactPercent:    decimal.Zero,
		SufficientLiquidity:   false,
	}

	if !grossInput.IsPositive() {
		return quote
	}

	fee := grossInput.Mul(feeRate).Truncate(swapAmountPlaces)
	net := grossInput.Sub(fee).Truncate(swapAmountPlaces)

	quote.GrossInputAmount = grossInput
	quote.Fee = fee
	quote.NetInputAmount = net

	remaining := net
	spent := decimal.Zero
	output := decimal.Zero
	bestAsk := decimal.Zero

	for _, ask := range asks {
		if !ask.Price.IsPositive() || !ask.Quantity.IsPositive() {
			continue
		}
		if bestAsk.IsZero() {
			bestAsk = ask.Price
		}

		cost := ask.Price.Mul(ask.Quantity)
		if remaining.GreaterThanOrEqual(cost) {
			output = output.Add(ask.Quantity)
			spent = spent.Add(cost)
			remaining = remaining.Sub(cost)
			quote.WorstFillPrice = ask.Price
			quote.OrdersConsumed++
			if remaining.IsZero() {
				break
			}
			continue
		}

		// Partial fill of the final order
		output = output.Add(remaining.Div(ask.Price))
		spent = spent.Add(remaining)
		remaining = decimal.Zero
		quote.WorstFillPrice = ask.Price
		quote.OrdersConsumed++
		break
	}

	quote.EstimatedOutputAmount = output
	quote.SufficientLiquidity = remaining.LessThanOrEqual(decimal.Zero)

	if output.IsPositive() {
		quote.AveragePrice = spent.Div(output)
	}

	if bestAsk.IsPositive() && quote.AveragePrice.IsPositive() {
		impact := quote.AveragePrice.Sub(bestAsk).Div(bestAsk).Mul(decimal.NewFromInt(100))
		if impact.IsNegative() {
			impact = decimal.Zero
		}
		quote.PriceImpactPercent = impact
	}

	return quote
}

// SwapService prices swaps against the live order book and assembles the
// transaction legs for an accepted quote.
type SwapService struct {
	market  MarketServiceInterface
	builder *OperationBuilder
	cfg     config.SwapConfig

	feeRate        decimal.Decimal
	slippageBuffer decimal.Decimal
}

// NewSwapService creates a SwapService from configuration
func NewSwapService(market MarketServiceInterface, builder *OperationBuilder, cfg config.SwapConfig) *SwapService {
	return &SwapService{
		market:         market,
		builder:        builder,
		cfg:            cfg,
		feeRate:        parseAmount(cfg.FeeRate),
		slippageBuffer: parseAmount(cfg.SlippageBuffer),
	}
}

// Quote fetches a fresh ask-side snapshot and prices grossInput against
// it. Quotes are never cached; order books move every block.
func (s *SwapService) Quote(ctx context.Context, grossInput decimal.Decimal) (*models.SwapQuote, error) {
	if !grossInput.IsPositive() {
		quote := QuoteSwap(grossInput, s.feeRate, nil)
		return &quote, nil
	}

	book, err := s.market.GetOrderBook(ctx, s.cfg.OutputSymbol, orderBookDepth)
	if err != nil {
		return nil, err
	}

	quote := QuoteSwap(grossInput, s.feeRate, book.Asks)

	if !quote.SufficientLiquidity {
		logger.GetLogger().WithContext(ctx).Warn("Order book too thin for requested swap",
			zap.String("symbol", s.cfg.OutputSymbol),
			zap.String("gross_input", grossInput.String()),
			zap.String("matched_output", quote.EstimatedOutputAmount.String()),
			zap.Int("orders_consumed", quote.OrdersConsumed),
		)
	}

	return &quote, nil
}

// BuildSwapTransaction quotes grossInput and assembles the three ordered
// legs for the external signer. The legs must be broadcast in order:
// each depends on the chain state produced by the previous one.
func (s *SwapService) BuildSwapTransaction(ctx context.Context, account string, grossInput decimal.Decimal) ([]models.OperationEnvelope, *models.SwapQuote, error) {
	quote, err := s.Quote(ctx, grossInput)
	if err != nil {
		return nil, nil, err
	}

	legs, err := s.builder.BuildSwapLegs(account, *quote, s.cfg, s.slippageBuffer)
	if err != nil {
		return nil, quote, err
	}

	return legs, quote, nil
}
