// Package settlement holds the core domain of the marketplace settlement
// pipeline: line-item normalization, payment reconciliation and the
// settlement attempt state machine.
package settlement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ShippingMode classifies how an order group reaches the buyer.
type ShippingMode string

const (
	ShippingPickup         ShippingMode = "pickup"
	ShippingCarrierManaged ShippingMode = "carrier_managed"
	ShippingSelfFlex       ShippingMode = "self_managed_flex"
)

// RawEntry is one marketplace line as received from the order feed, before
// any normalization rule has run.
type RawEntry struct {
	SKU         string
	Title       string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// LineItem is a canonical settlement line. Subtotal is recomputed after
// every normalization rule so it always equals UnitPrice x Quantity within
// cent rounding.
type LineItem struct {
	SKU          string
	Name         string
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	Subtotal     decimal.Decimal
	CostOverride decimal.NullDecimal
}

// WithRecomputedSubtotal returns the item with Subtotal set from unit price
// and quantity, rounded to cents.
func (li LineItem) WithRecomputedSubtotal() LineItem {
	li.Subtotal = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
	return li
}

// Order is one marketplace order inside a settlement group.
type Order struct {
	Ref      string
	Tracking string
	Entries  []RawEntry
}

// Payment is a settled marketplace payment attached to an order group.
type Payment struct {
	ID             string
	OrderRef       string
	GrossAmount    decimal.Decimal
	NetAmount      decimal.Decimal
	ShippingAmount decimal.Decimal
	Installments   int
	Status         string
}

// Countable reports whether the payment participates in reconciliation
// sums. Rejected and cancelled payments, including prefixed status
// variants, never count.
func (p Payment) Countable() bool {
	s := strings.ToLower(strings.TrimSpace(p.Status))
	return !strings.HasPrefix(s, "reject") && !strings.HasPrefix(s, "cancel")
}

// OrderGroup is the unit of atomic settlement: one or more marketplace
// orders sharing a shipping and payment context.
type OrderGroup struct {
	Orders       []Order
	Payments     []Payment
	ShippingMode ShippingMode
	// CarrierCost is the actual cost owed to the carrier for
	// carrier-managed shipments; zero otherwise.
	CarrierCost decimal.Decimal
	// DeclaredShippingCost is the seller-declared shipping cost reported by
	// the marketplace for the group.
	DeclaredShippingCost decimal.Decimal
	// CourierName identifies the motorcycle courier for self-managed flex
	// shipments.
	CourierName string
}

// Refs returns the order references of the group, in order.
func (g OrderGroup) Refs() []string {
	refs := make([]string, 0, len(g.Orders))
	for _, o := range g.Orders {
		refs = append(refs, o.Ref)
	}
	return refs
}

// CountablePayments filters out rejected/cancelled payments and
// de-duplicates by payment ID, keeping first occurrence order.
func (g OrderGroup) CountablePayments() []Payment {
	seen := make(map[string]struct{}, len(g.Payments))
	out := make([]Payment, 0, len(g.Payments))
	for _, p := range g.Payments {
		if !p.Countable() {
			continue
		}
		if _, dup := seen[p.ID]; dup && p.ID != "" {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// NormalizeSKU left-pads purely numeric identifiers shorter than four
// digits to the canonical 4-character code; anything else passes verbatim.
func NormalizeSKU(sku string) string {
	s := strings.TrimSpace(sku)
	if len(s) == 0 || len(s) >= 4 {
		return s
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	return strings.Repeat("0", 4-len(s)) + s
}
