// Package pricing exposes the commission-aware price solver to the intake
// layer.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gestion/settlement/internal/domain/pricing"
	"github.com/gestion/settlement/internal/domain/shared"
)

// Service answers pricing queries against one commission rate and fee
// schedule, both fixed at construction from configuration.
type Service struct {
	commissionRate decimal.Decimal
	schedule       pricing.Schedule
	logger         *zap.Logger
}

// NewService creates a pricing Service. The schedule must already be
// validated.
func NewService(commissionRate decimal.Decimal, schedule pricing.Schedule, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		commissionRate: commissionRate,
		schedule:       schedule,
		logger:         logger,
	}
}

// SolvePrice finds the sale price reaching the requested profit factor and
// returns it with its full economics.
func (s *Service) SolvePrice(req SolvePriceRequest) (*PriceResponse, error) {
	if req.TotalCost.IsNegative() {
		return nil, fmt.Errorf("%w: total_cost must not be negative", shared.ErrInvalidInput)
	}
	if req.ProfitFactor.IsNegative() {
		return nil, fmt.Errorf("%w: profit_factor must not be negative", shared.ErrInvalidInput)
	}

	price := pricing.SolveTargetPrice(req.TotalCost, req.ProfitFactor, s.commissionRate, s.schedule)
	return s.breakdownAt(price, req.TotalCost), nil
}

// PriceBreakdown computes the sale economics at the given price.
func (s *Service) PriceBreakdown(req BreakdownRequest) (*PriceResponse, error) {
	if req.SalePrice.IsNegative() || req.TotalCost.IsNegative() {
		return nil, fmt.Errorf("%w: amounts must not be negative", shared.ErrInvalidInput)
	}
	return s.breakdownAt(req.SalePrice, req.TotalCost), nil
}

func (s *Service) breakdownAt(price, cost decimal.Decimal) *PriceResponse {
	if _, ok := pricing.BracketFor(price, s.schedule); !ok {
		s.logger.Warn("price outside fee schedule, using last bracket",
			zap.String("price", price.StringFixed(2)))
	}
	b := pricing.Breakdown(price, cost, s.commissionRate, s.schedule)
	return &PriceResponse{
		SalePrice:          b.SalePrice,
		TotalCost:          b.TotalCost,
		VariableCommission: b.VariableCommission,
		FixedCommission:    b.FixedCommission,
		NetProceeds:        b.NetProceeds,
		NetProfit:          b.NetProfit,
	}
}
