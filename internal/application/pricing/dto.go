package pricing

import "github.com/shopspring/decimal"

// SolvePriceRequest asks for the sale price reaching a profit factor over
// cost after commission and the bracketed fixed fee.
type SolvePriceRequest struct {
	TotalCost    decimal.Decimal `json:"total_cost" binding:"required"`
	ProfitFactor decimal.Decimal `json:"profit_factor"`
}

// BreakdownRequest asks for the sale economics at a given price.
type BreakdownRequest struct {
	SalePrice decimal.Decimal `json:"sale_price" binding:"required"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// PriceResponse is the solved price with its full economics.
type PriceResponse struct {
	SalePrice          decimal.Decimal `json:"sale_price"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	VariableCommission decimal.Decimal `json:"variable_commission"`
	FixedCommission    decimal.Decimal `json:"fixed_commission"`
	NetProceeds        decimal.Decimal `json:"net_proceeds"`
	NetProfit          decimal.Decimal `json:"net_profit"`
}
