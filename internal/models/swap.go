package models

import "github.com/shopspring/decimal"

// SwapQuote prices a cross-asset swap against a snapshot of the ask side
// of the order book. Produced fresh per query and never cached; order
// books move every block.
type SwapQuote struct {
	GrossInputAmount      decimal.Decimal `json:"gross_input_amount"`
	Fee                   decimal.Decimal `json:"fee"`
	NetInputAmount        decimal.Decimal `json:"net_input_amount"`
	EstimatedOutputAmount decimal.Decimal `json:"estimated_output_amount"`
	AveragePrice          decimal.Decimal `json:"average_price"`
	WorstFillPrice        decimal.Decimal `json:"worst_fill_price"`
	PriceImpactPercent    decimal.Decimal `json:"price_impact_percent"`
	SufficientLiquidity   bool            `json:"sufficient_liquidity"`
	OrdersConsumed        int             `json:"orders_consumed"`
}
