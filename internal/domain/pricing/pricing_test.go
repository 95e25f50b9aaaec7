package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func testSchedule() Schedule {
	return Schedule{
		{Min: d(0), Max: d(15000), FixedFee: d(1115)},
		{Min: d(15000), Max: d(25000), FixedFee: d(2300)},
		{Min: d(25000), Max: d(33000), FixedFee: d(2810)},
		{Min: d(33000), Max: d(0), FixedFee: d(0)},
	}
}

func TestScheduleValidate(t *testing.T) {
	require.NoError(t, testSchedule().Validate())

	gapped := Schedule{
		{Min: d(0), Max: d(100), FixedFee: d(1)},
		{Min: d(200), Max: d(300), FixedFee: d(2)},
	}
	assert.Error(t, gapped.Validate())
	assert.Error(t, Schedule{}.Validate())
}

func TestBracketFor(t *testing.T) {
	brackets := testSchedule()

	tests := []struct {
		name    string
		price   float64
		wantFee float64
	}{
		{"zero price lands in first bracket", 0, 1115},
		{"interior of first bracket", 9999.99, 1115},
		{"lower bound is inclusive", 15000, 2300},
		{"upper bound is exclusive", 24999.99, 2300},
		{"third bracket", 30000, 2810},
		{"open-ended last bracket", 33000, 0},
		{"far above last threshold", 1000000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := BracketFor(d(tt.price), brackets)
			require.True(t, ok)
			assert.True(t, b.FixedFee.Equal(d(tt.wantFee)),
				"price %v: want fee %v got %v", tt.price, tt.wantFee, b.FixedFee)
		})
	}
}

func TestBracketForEveryPriceHasExactlyOneBracket(t *testing.T) {
	brackets := testSchedule()
	for p := 0.0; p < 50000; p += 37.5 {
		matches := 0
		for i, b := range brackets {
			last := i == len(brackets)-1
			if d(p).GreaterThanOrEqual(b.Min) && (last || d(p).LessThan(b.Max)) {
				matches++
			}
		}
		require.Equal(t, 1, matches, "price %v", p)
	}
}

func TestBracketForDegenerateFallback(t *testing.T) {
	// Schedule that does not start at zero: a sub-range price matches nothing.
	broken := Schedule{
		{Min: d(1000), Max: d(2000), FixedFee: d(50)},
		{Min: d(2000), Max: d(0), FixedFee: d(75)},
	}
	b, ok := BracketFor(d(10), broken)
	assert.False(t, ok)
	assert.True(t, b.FixedFee.Equal(d(75)), "fallback is the last bracket")
}

func TestSolveTargetPriceRoundTripsThroughBreakdown(t *testing.T) {
	brackets := testSchedule()

	tests := []struct {
		name           string
		cost           float64
		profitFactor   float64
		commissionRate float64
	}{
		{"small item low margin", 1000, 0.30, 0.13},
		{"mid-tier item", 12000, 0.45, 0.13},
		{"crosses into second bracket", 18000, 0.25, 0.145},
		{"high-value item above fee cutoff", 40000, 0.50, 0.13},
		{"zero commission", 5000, 0.20, 0},
		{"steep commission", 8000, 0.35, 0.80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := SolveTargetPrice(d(tt.cost), d(tt.profitFactor), d(tt.commissionRate), brackets)
			require.True(t, price.GreaterThanOrEqual(decimal.Zero))

			bd := Breakdown(price, d(tt.cost), d(tt.commissionRate), brackets)
			achieved, _ := bd.NetProfit.Div(bd.TotalCost).Float64()
			assert.InDelta(t, tt.profitFactor, achieved, 0.01,
				"price %v fee %v", price, bd.FixedCommission)
		})
	}
}

func TestSolveTargetPriceDenominatorFloor(t *testing.T) {
	// Commission at 100% would divide by zero without the floor.
	price := SolveTargetPrice(d(1000), d(0.3), d(1.0), testSchedule())
	assert.True(t, price.GreaterThan(decimal.Zero))
}

func TestSolveTargetPriceClampsNegative(t *testing.T) {
	price := SolveTargetPrice(d(-5000), d(0.3), d(0.13), testSchedule())
	assert.True(t, price.Equal(decimal.Zero))
}

func TestBreakdownFormulas(t *testing.T) {
	bd := Breakdown(d(10000), d(6000), d(0.13), testSchedule())
	assert.True(t, bd.VariableCommission.Equal(d(1300)))
	assert.True(t, bd.FixedCommission.Equal(d(1115)))
	assert.True(t, bd.NetProceeds.Equal(d(7585)))
	assert.True(t, bd.NetProfit.Equal(d(1585)))
}
