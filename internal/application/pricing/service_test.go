package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion/settlement/internal/domain/pricing"
	"github.com/gestion/settlement/internal/domain/shared"
)

func testSchedule() pricing.Schedule {
	return pricing.Schedule{
		{Min: decimal.Zero, Max: decimal.NewFromInt(15000), FixedFee: decimal.NewFromInt(1115)},
		{Min: decimal.NewFromInt(15000), Max: decimal.NewFromInt(25000), FixedFee: decimal.NewFromInt(2300)},
		{Min: decimal.NewFromInt(25000), Max: decimal.NewFromInt(33000), FixedFee: decimal.NewFromInt(2810)},
		{Min: decimal.NewFromInt(33000), Max: decimal.Zero, FixedFee: decimal.Zero},
	}
}

func newTestService() *Service {
	return NewService(decimal.NewFromFloat(0.13), testSchedule(), nil)
}

func TestSolvePriceCoversCostCommissionAndFee(t *testing.T) {
	svc := newTestService()

	resp, err := svc.SolvePrice(SolvePriceRequest{
		TotalCost:    decimal.NewFromInt(8000),
		ProfitFactor: decimal.NewFromFloat(0.30),
	})
	require.NoError(t, err)

	// At the solved price the proceeds minus cost equal the requested margin.
	wantProfit := decimal.NewFromInt(8000).Mul(decimal.NewFromFloat(0.30))
	assert.True(t, resp.NetProfit.Sub(wantProfit).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"profit %s, want %s", resp.NetProfit, wantProfit)
	assert.True(t, resp.SalePrice.GreaterThan(decimal.NewFromInt(8000)))
}

func TestSolvePriceRejectsNegativeInput(t *testing.T) {
	svc := newTestService()

	_, err := svc.SolvePrice(SolvePriceRequest{TotalCost: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = svc.SolvePrice(SolvePriceRequest{
		TotalCost:    decimal.NewFromInt(100),
		ProfitFactor: decimal.NewFromFloat(-0.1),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestPriceBreakdownUsesBracketFixedFee(t *testing.T) {
	svc := newTestService()

	resp, err := svc.PriceBreakdown(BreakdownRequest{
		SalePrice: decimal.NewFromInt(20000),
		TotalCost: decimal.NewFromInt(9000),
	})
	require.NoError(t, err)

	assert.True(t, resp.FixedCommission.Equal(decimal.NewFromInt(2300)))
	assert.True(t, resp.VariableCommission.Equal(decimal.NewFromInt(2600)))
	wantProceeds := decimal.NewFromInt(20000 - 2600 - 2300)
	assert.True(t, resp.NetProceeds.Equal(wantProceeds), resp.NetProceeds.String())
}
