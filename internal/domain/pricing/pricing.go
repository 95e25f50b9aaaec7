// Package pricing computes marketplace sale prices under a bracketed
// fixed-fee plus variable-commission charge model.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/gestion/settlement/internal/domain/shared"
)

// FeeBracket is a fixed-fee tier keyed by a half-open price interval [Min, Max).
// The last bracket of a schedule is open-ended (Max ignored when Last).
type FeeBracket struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	FixedFee decimal.Decimal
}

// Schedule is an ordered, contiguous, exhaustive list of fee brackets.
type Schedule []FeeBracket

var (
	// denominatorFloor prevents division blow-up when commission >= 100%.
	denominatorFloor = decimal.NewFromFloat(0.01)
	convergenceEps   = decimal.NewFromFloat(0.001)
	one              = decimal.NewFromInt(1)
)

// maxSolverIterations bounds the fixed-point solver. Brackets are monotonic
// in price and fee steps are small relative to cost, so six steps suffice.
const maxSolverIterations = 6

// Validate checks the contiguous-exhaustive invariant of the schedule.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return shared.NewDomainError("EMPTY_SCHEDULE", "fee schedule has no brackets")
	}
	if !s[0].Min.IsZero() {
		return shared.NewDomainError("SCHEDULE_GAP", "first bracket must start at 0")
	}
	for i := 1; i < len(s); i++ {
		if !s[i].Min.Equal(s[i-1].Max) {
			return shared.NewDomainError("SCHEDULE_GAP", "brackets must be contiguous")
		}
	}
	return nil
}

// BracketFor returns the bracket whose [Min, Max) interval contains price.
// The last bracket is open-ended. When no bracket matches (a malformed
// schedule), the last bracket is returned with ok=false so callers can log
// the degenerate case instead of treating it as a silent success.
func BracketFor(price decimal.Decimal, brackets Schedule) (FeeBracket, bool) {
	for i, b := range brackets {
		if i == len(brackets)-1 {
			if price.GreaterThanOrEqual(b.Min) {
				return b, true
			}
			break
		}
		if price.GreaterThanOrEqual(b.Min) && price.LessThan(b.Max) {
			return b, true
		}
	}
	if len(brackets) == 0 {
		return FeeBracket{}, false
	}
	return brackets[len(brackets)-1], false
}

// SaleBreakdown is the derived economics of a sale at a given price.
type SaleBreakdown struct {
	SalePrice          decimal.Decimal
	TotalCost          decimal.Decimal
	VariableCommission decimal.Decimal
	FixedCommission    decimal.Decimal
	NetProceeds        decimal.Decimal
	NetProfit          decimal.Decimal
}

// Breakdown computes the full sale economics at price for the given cost,
// commission rate and fee schedule.
func Breakdown(price, cost, commissionRate decimal.Decimal, brackets Schedule) SaleBreakdown {
	bracket, _ := BracketFor(price, brackets)
	variable := price.Mul(commissionRate)
	proceeds := price.Sub(variable).Sub(bracket.FixedFee)
	return SaleBreakdown{
		SalePrice:          price,
		TotalCost:          cost,
		VariableCommission: variable,
		FixedCommission:    bracket.FixedFee,
		NetProceeds:        proceeds,
		NetProfit:          proceeds.Sub(cost),
	}
}

// SolveTargetPrice finds the sale price that yields the requested profit
// factor over cost after commission and the bracketed fixed fee.
//
// The fixed fee is a step function of the solved price, so the equation
// cannot be inverted directly. A fixed-point iteration reseeds the bracket
// from the current estimate and re-solves
//
//	price = (cost*(1+profitFactor) + fixedFee) / max(0.01, 1-commissionRate)
//
// stopping early once the estimate moves by less than 0.001. The result is
// clamped to >= 0.
func SolveTargetPrice(totalCost, profitFactor, commissionRate decimal.Decimal, brackets Schedule) decimal.Decimal {
	target := totalCost.Mul(one.Add(profitFactor))
	denom := one.Sub(commissionRate)
	if denom.LessThan(denominatorFloor) {
		denom = denominatorFloor
	}

	estimate := target.Div(denom)
	for i := 0; i < maxSolverIterations; i++ {
		bracket, _ := BracketFor(estimate, brackets)
		next := target.Add(bracket.FixedFee).Div(denom)
		if next.Sub(estimate).Abs().LessThan(convergenceEps) {
			estimate = next
			break
		}
		estimate = next
	}

	if estimate.IsNegative() {
		return decimal.Zero
	}
	return estimate
}
