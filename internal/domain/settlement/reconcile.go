package settlement

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Basis names which payment sum the invoice total is compared against.
type Basis string

const (
	BasisNet   Basis = "NET"
	BasisGross Basis = "GROSS"
)

// ShippingSKUs are the service SKUs used to carry shipping economics on
// the invoice.
type ShippingSKUs struct {
	// Flex is the self-managed motorcycle-courier shipping SKU.
	Flex string
	// Carrier is the carrier-managed shipping SKU.
	Carrier string
	// Subsidy is the marketplace shipping-subsidy SKU.
	Subsidy string
}

// Contains reports whether sku is one of the shipping SKUs.
func (s ShippingSKUs) Contains(sku string) bool {
	return sku == s.Flex || sku == s.Carrier || sku == s.Subsidy
}

// DefaultShippingSKUs returns the production shipping SKU assignment.
func DefaultShippingSKUs() ShippingSKUs {
	return ShippingSKUs{Flex: "6696", Carrier: "6711", Subsidy: "6756"}
}

// ReconcilerConfig carries the tunable constants of the reconciliation
// engine.
type ReconcilerConfig struct {
	// Tolerance is the accepted absolute difference between reference and
	// invoice totals, in currency units.
	Tolerance decimal.Decimal
	// FlexNetThreshold: self-managed flex payments above this gross amount
	// have their net forced to gross, since the reported net is distorted
	// by financing on large flex sales.
	FlexNetThreshold decimal.Decimal
	// CarrierFreeThreshold: carrier-managed goods subtotals at or above
	// this amount ship free for the buyer, so the carrier line is priced
	// at zero.
	CarrierFreeThreshold decimal.Decimal
	// SubsidyMin is the minimum declared-vs-actual carrier cost difference
	// that produces a subsidy line; smaller differences are rounding noise.
	SubsidyMin decimal.Decimal
	SKUs       ShippingSKUs
}

// DefaultReconcilerConfig returns the production constants.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Tolerance:            decimal.NewFromFloat(0.50),
		FlexNetThreshold:     decimal.NewFromInt(33000),
		CarrierFreeThreshold: decimal.NewFromInt(33000),
		SubsidyMin:           decimal.NewFromFloat(0.01),
		SKUs:                 DefaultShippingSKUs(),
	}
}

// ReconciliationResult is the outcome of matching an invoice against
// payment evidence.
type ReconciliationResult struct {
	ReferenceBasis   Basis
	ExpectedTotal    decimal.Decimal
	ActualTotal      decimal.Decimal
	WithinTolerance  bool
	ExceptionApplied bool
	// NetOverridden reports that the flex large-payment rule rewrote at
	// least one payment's net amount.
	NetOverridden bool
	// ShippingCharge is the collapsed total the buyer paid for shipping.
	ShippingCharge decimal.Decimal
	// Items is the final line-item set, including any injected shipping or
	// subsidy lines.
	Items []LineItem
}

// Reconciler matches normalized invoices against settled payments.
type Reconciler struct {
	cfg    ReconcilerConfig
	logger *zap.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{cfg: cfg, logger: logger}
}

// Reconcile collapses shipping signals into the item set and matches the
// invoice total against the reference payment sum. It never fails with an
// error: a mismatch is reported through WithinTolerance=false and the
// caller decides how to surface it.
func (r *Reconciler) Reconcile(group OrderGroup, items []LineItem) ReconciliationResult {
	payments := group.CountablePayments()

	netOverridden := false
	if group.ShippingMode == ShippingSelfFlex {
		for i, p := range payments {
			if p.GrossAmount.GreaterThan(r.cfg.FlexNetThreshold) &&
				p.NetAmount.Sub(p.GrossAmount).Abs().GreaterThan(decimal.NewFromFloat(0.009)) {
				payments[i].NetAmount = p.GrossAmount
				netOverridden = true
			}
		}
	}

	netSum := decimal.Zero
	grossSum := decimal.Zero
	shipSum := decimal.Zero
	basis := BasisNet
	for _, p := range payments {
		netSum = netSum.Add(p.NetAmount)
		grossSum = grossSum.Add(p.GrossAmount)
		shipSum = shipSum.Add(p.ShippingAmount)
		if p.Installments > 1 {
			basis = BasisGross
		}
	}

	var shippingCharge decimal.Decimal
	if group.ShippingMode == ShippingCarrierManaged {
		items = r.placeCarrierShipping(group, items, netSum)
	} else {
		items, shippingCharge = r.collapseShipping(group, items, payments, shipSum)
	}

	invoiceTotal := sumSubtotals(items)
	reference := netSum
	if basis == BasisGross {
		reference = grossSum
	}

	result := ReconciliationResult{
		ReferenceBasis: basis,
		ExpectedTotal:  reference,
		ActualTotal:    invoiceTotal,
		NetOverridden:  netOverridden,
		ShippingCharge: shippingCharge,
		Items:          items,
	}

	if reference.Sub(invoiceTotal).Abs().LessThanOrEqual(r.cfg.Tolerance) {
		result.WithinTolerance = true
		return result
	}

	// Documented divergence pattern: the buyer transferred gross amount
	// plus shipping. Settles, but with an exception flag so the operator
	// side-channel is notified.
	if shipSum.GreaterThan(decimal.Zero) &&
		grossSum.Add(shipSum).Sub(invoiceTotal).Abs().LessThanOrEqual(r.cfg.Tolerance) {
		result.WithinTolerance = true
		result.ExceptionApplied = true
		return result
	}

	r.logger.Warn("reconciliation mismatch",
		zap.String("basis", string(result.ReferenceBasis)),
		zap.String("expected", reference.StringFixed(2)),
		zap.String("actual", invoiceTotal.StringFixed(2)))
	return result
}

// collapseShipping merges every shipping-cost signal into a single flex
// shipping line: pre-existing shipping lines, per-payment shipping amounts
// and tracking-linked payments not attached to the group's orders. Sources
// agreeing within tolerance are de-duplicated, not double counted.
func (r *Reconciler) collapseShipping(group OrderGroup, items []LineItem, payments []Payment, shipSum decimal.Decimal) ([]LineItem, decimal.Decimal) {
	base := decimal.Zero
	kept := items[:0:0]
	for _, li := range items {
		if li.SKU == r.cfg.SKUs.Flex {
			base = base.Add(li.Subtotal)
			continue
		}
		kept = append(kept, li)
	}

	refs := make(map[string]struct{}, len(group.Orders))
	for _, ref := range group.Refs() {
		refs[ref] = struct{}{}
	}
	tracking := decimal.Zero
	for _, p := range payments {
		if _, attached := refs[p.OrderRef]; !attached {
			tracking = tracking.Add(p.GrossAmount)
		}
	}

	if tracking.GreaterThan(decimal.Zero) && shipSum.GreaterThan(decimal.Zero) &&
		tracking.Sub(shipSum).Abs().LessThanOrEqual(r.cfg.Tolerance) {
		tracking = decimal.Zero
	}
	if tracking.GreaterThan(decimal.Zero) && base.GreaterThan(decimal.Zero) &&
		tracking.Sub(base).Abs().LessThanOrEqual(r.cfg.Tolerance) {
		tracking = decimal.Zero
	}

	total := base.Add(shipSum).Add(tracking)
	if total.GreaterThan(decimal.Zero) {
		kept = append(kept, LineItem{
			SKU:       r.cfg.SKUs.Flex,
			Name:      "Envio por moto flex",
			Quantity:  1,
			UnitPrice: total.Round(2),
			Subtotal:  total.Round(2),
		})
		return kept, total
	}
	return kept, decimal.Zero
}

// placeCarrierShipping applies the carrier-managed shipping rules: the
// shipping line is dropped when the goods subtotal already matches the net
// reference below the free-shipping threshold, priced at the seller's
// carrier cost below the threshold and at zero above it. When the declared
// seller cost exceeds the actual carrier cost, the positive difference
// becomes a marketplace subsidy line so the invoice still balances against
// what was actually transferred.
func (r *Reconciler) placeCarrierShipping(group OrderGroup, items []LineItem, netSum decimal.Decimal) []LineItem {
	kept := items[:0:0]
	goods := decimal.Zero
	for _, li := range items {
		if r.cfg.SKUs.Contains(li.SKU) {
			continue
		}
		goods = goods.Add(li.Subtotal)
		kept = append(kept, li)
	}

	carrierCost := group.CarrierCost
	if !carrierCost.GreaterThan(decimal.Zero) {
		return kept
	}

	belowThreshold := goods.LessThan(r.cfg.CarrierFreeThreshold)
	matchesNet := goods.Sub(netSum).Abs().LessThanOrEqual(r.cfg.Tolerance)
	if !(belowThreshold && matchesNet) {
		price := decimal.Zero
		if belowThreshold {
			price = carrierCost
		}
		kept = append(kept, LineItem{
			SKU:          r.cfg.SKUs.Carrier,
			Name:         "Envio por correo del marketplace",
			Quantity:     1,
			UnitPrice:    price.Round(2),
			Subtotal:     price.Round(2),
			CostOverride: decimal.NewNullDecimal(carrierCost),
		})
	}

	subsidy := group.DeclaredShippingCost.Sub(carrierCost)
	if group.DeclaredShippingCost.GreaterThan(decimal.Zero) && subsidy.GreaterThan(r.cfg.SubsidyMin) {
		kept = append(kept, LineItem{
			SKU:       r.cfg.SKUs.Subsidy,
			Name:      "Bonificacion de envio del marketplace",
			Quantity:  1,
			UnitPrice: subsidy.Round(2),
			Subtotal:  subsidy.Round(2),
		})
	}
	return kept
}

func sumSubtotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal)
	}
	return total
}
