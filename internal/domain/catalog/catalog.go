// Package catalog defines the read-only product reference data consumed by
// the settlement pipeline: descriptions, historical costs and kit
// composition. Implementations live in infrastructure.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Lookup provides read-only access to the product catalog.
type Lookup interface {
	// DescriptionFor returns the catalog description for a SKU, or "" when
	// the SKU is unknown.
	DescriptionFor(ctx context.Context, sku string) (string, error)
	// LastPositiveCostFor returns the most recent purchase cost > 0 recorded
	// for the SKU. Returns zero with no error when no such purchase exists;
	// callers decide whether a missing cost is fatal.
	LastPositiveCostFor(ctx context.Context, sku string) (decimal.Decimal, error)
}

// KitLookup resolves composite product definitions.
type KitLookup interface {
	// ComponentsOf returns the kit definition for a code, or nil when the
	// code has no component table.
	ComponentsOf(ctx context.Context, kitCode string) (*Kit, error)
}

// KitComponent is one member of a composite product.
type KitComponent struct {
	SKU              string
	QuantityPerKit   int
	ParticipationPct decimal.Decimal // zero means "infer from quantities"
}

// Kit is a composite SKU decomposed into component SKUs with participation
// shares of the kit's price.
type Kit struct {
	Code       string
	Components []KitComponent
}

var hundred = decimal.NewFromInt(100)

// ParticipationShares returns one share per component, normalized so the
// shares sum to 100. When no component declares an explicit share, shares
// are inferred from quantities: quantityPerKit / total quantity x 100.
func (k Kit) ParticipationShares() []decimal.Decimal {
	shares := make([]decimal.Decimal, len(k.Components))
	if len(k.Components) == 0 {
		return shares
	}

	declared := decimal.Zero
	anyDeclared := false
	for _, c := range k.Components {
		if c.ParticipationPct.GreaterThan(decimal.Zero) {
			anyDeclared = true
		}
		declared = declared.Add(c.ParticipationPct)
	}

	if anyDeclared && declared.GreaterThan(decimal.Zero) {
		for i, c := range k.Components {
			shares[i] = c.ParticipationPct.Div(declared).Mul(hundred)
		}
		return shares
	}

	totalQty := 0
	for _, c := range k.Components {
		totalQty += c.QuantityPerKit
	}
	if totalQty == 0 {
		even := hundred.Div(decimal.NewFromInt(int64(len(k.Components))))
		for i := range shares {
			shares[i] = even
		}
		return shares
	}
	for i, c := range k.Components {
		shares[i] = decimal.NewFromInt(int64(c.QuantityPerKit)).
			Div(decimal.NewFromInt(int64(totalQty))).Mul(hundred)
	}
	return shares
}
