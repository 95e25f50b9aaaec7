package settlement

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gestion/settlement/internal/domain/catalog"
	"github.com/gestion/settlement/internal/domain/shared"
)

var (
	skuLiteralRe = regexp.MustCompile(`^\s*(\w{4})\s*[xX]\s*(\d+)\s*$`)
	namePrefixRe = regexp.MustCompile(`^\s*(\d+)\s*[xX]`)
	resistanceRe = regexp.MustCompile(`(?i)\bresistencias?\b`)
	descPackRe   = regexp.MustCompile(`(?i)pack\s*[xX]\s*(\d+)`)
	metrosRe     = regexp.MustCompile(`(?i)(\d{1,4})\s*metros\b`)
	// xTokenRe matches an optional leading number followed by a bare X
	// token, e.g. "10 X ...", "10X-...", "X 5 ...".
	xTokenRe = regexp.MustCompile(`^(?:\d+\s*)?X(?:\s|[-_/]|$)`)
)

// namePrefixWindow bounds how far into the name a leading "Nx" token is
// recognized.
const namePrefixWindow = 5

var hundred = decimal.NewFromInt(100)

// Normalizer turns raw marketplace lines into canonical line items by
// expanding kits, splitting composite SKUs and applying the quantity
// multiplier cascade.
type Normalizer struct {
	catalog catalog.Lookup
	kits    catalog.KitLookup
	rules   RuleBook
	logger  *zap.Logger
}

// NewNormalizer builds a Normalizer over the given catalog collaborators
// and exception table.
func NewNormalizer(cat catalog.Lookup, kits catalog.KitLookup, rules RuleBook, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{catalog: cat, kits: kits, rules: rules, logger: logger}
}

// Normalize runs the full cascade over every entry of the group, in order:
// kit expansion, composite split, SKU-literal multiplier, then the
// text-derived multipliers gated by the per-SKU rule book. A line left
// without a SKU is a validation failure for the whole group.
func (n *Normalizer) Normalize(ctx context.Context, group OrderGroup) ([]LineItem, error) {
	var items []LineItem
	for _, order := range group.Orders {
		expanded, err := n.expandKits(ctx, order.Entries)
		if err != nil {
			return nil, err
		}
		split, err := n.splitComposites(ctx, expanded)
		if err != nil {
			return nil, err
		}
		for _, li := range split {
			out := n.applyMultipliers(li)
			if strings.TrimSpace(out.SKU) == "" {
				return nil, fmt.Errorf("%w: line %q in order %s", shared.ErrMissingSKU, out.Name, order.Ref)
			}
			items = append(items, out)
		}
	}
	return items, nil
}

// expandKits replaces every line whose SKU contains the token "kit" with
// its component list. A kit without a component table passes through
// unchanged; lines are never dropped here.
func (n *Normalizer) expandKits(ctx context.Context, entries []RawEntry) ([]LineItem, error) {
	var out []LineItem
	for _, e := range entries {
		li := LineItem{
			SKU:         strings.TrimSpace(e.SKU),
			Name:        e.Title,
			Description: e.Description,
			Quantity:    e.Quantity,
			UnitPrice:   e.UnitPrice,
			Subtotal:    e.Subtotal,
		}
		if li.Subtotal.IsZero() {
			li = li.WithRecomputedSubtotal()
		}
		if !strings.Contains(strings.ToLower(li.SKU), "kit") {
			out = append(out, li)
			continue
		}

		kit, err := n.kits.ComponentsOf(ctx, li.SKU)
		if err != nil {
			return nil, fmt.Errorf("resolving kit %s: %w", li.SKU, err)
		}
		if kit == nil || len(kit.Components) == 0 {
			n.logger.Warn("kit without component table, passing line through",
				zap.String("sku", li.SKU))
			out = append(out, li)
			continue
		}

		comps, err := n.expandOneKit(ctx, li, *kit)
		if err != nil {
			return nil, err
		}
		out = append(out, comps...)
	}
	return out, nil
}

// expandOneKit prices the components of a single kit line. When every
// component has a known positive cost, the kit margin is distributed over
// components by participation share; otherwise the kit price itself is
// distributed by share.
func (n *Normalizer) expandOneKit(ctx context.Context, li LineItem, kit catalog.Kit) ([]LineItem, error) {
	kitQty := li.Quantity
	if kitQty < 1 {
		kitQty = 1
	}
	kitPrice := li.UnitPrice
	if kitPrice.IsZero() && li.Quantity > 0 {
		kitPrice = li.Subtotal.Div(decimal.NewFromInt(int64(li.Quantity)))
	}

	shares := kit.ParticipationShares()
	costs := make([]decimal.Decimal, len(kit.Components))
	allCosts := true
	for i, c := range kit.Components {
		cost, err := n.catalog.LastPositiveCostFor(ctx, c.SKU)
		if err != nil {
			return nil, fmt.Errorf("resolving cost for kit component %s: %w", c.SKU, err)
		}
		costs[i] = cost
		if !cost.GreaterThan(decimal.Zero) {
			allCosts = false
		}
	}

	totalCostPerKit := decimal.Zero
	for i, c := range kit.Components {
		totalCostPerKit = totalCostPerKit.Add(costs[i].Mul(decimal.NewFromInt(int64(c.QuantityPerKit))))
	}
	marginPerKit := kitPrice.Sub(totalCostPerKit)

	out := make([]LineItem, 0, len(kit.Components))
	for i, c := range kit.Components {
		qty := c.QuantityPerKit * kitQty
		var unit decimal.Decimal
		if allCosts && kitPrice.GreaterThan(decimal.Zero) {
			shareMargin := marginPerKit.Mul(shares[i]).Div(hundred)
			perUnitMargin := decimal.Zero
			if c.QuantityPerKit > 0 {
				perUnitMargin = shareMargin.Div(decimal.NewFromInt(int64(c.QuantityPerKit)))
			}
			unit = costs[i].Add(perUnitMargin).Round(2)
		} else {
			unit = kitPrice.Mul(shares[i]).Div(hundred).Round(2)
		}

		name, err := n.catalog.DescriptionFor(ctx, c.SKU)
		if err != nil {
			return nil, fmt.Errorf("resolving description for kit component %s: %w", c.SKU, err)
		}
		if name == "" {
			name = c.SKU
		}
		out = append(out, LineItem{
			SKU:       NormalizeSKU(c.SKU),
			Name:      name,
			Quantity:  qty,
			UnitPrice: unit,
		}.WithRecomputedSubtotal())
	}
	return out, nil
}

// splitComposites splits every line whose SKU contains "+" into two: the
// segment after the plus is sold at its catalog cost with an explicit cost
// override, and the first segment absorbs the remaining value.
func (n *Normalizer) splitComposites(ctx context.Context, items []LineItem) ([]LineItem, error) {
	var out []LineItem
	for _, li := range items {
		if !strings.Contains(li.SKU, "+") || li.Quantity <= 0 {
			out = append(out, li)
			continue
		}
		first, second, ok := strings.Cut(li.SKU, "+")
		if !ok {
			out = append(out, li)
			continue
		}
		first = strings.TrimSpace(first)
		second = strings.TrimSpace(second)

		total := li.Subtotal
		if !total.GreaterThan(decimal.Zero) {
			total = li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
		}

		qty := decimal.NewFromInt(int64(li.Quantity))
		costUnit, err := n.catalog.LastPositiveCostFor(ctx, second)
		if err != nil {
			return nil, fmt.Errorf("resolving cost for composite segment %s: %w", second, err)
		}
		secondTotal := costUnit.Mul(qty).Round(2)
		firstTotal := total.Sub(secondTotal).Round(2)
		if firstTotal.IsNegative() {
			firstTotal = decimal.Zero
		}

		secondName, err := n.catalog.DescriptionFor(ctx, second)
		if err != nil {
			return nil, fmt.Errorf("resolving description for composite segment %s: %w", second, err)
		}

		out = append(out, LineItem{
			SKU:         first,
			Name:        li.Name,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   firstTotal.Div(qty).Round(2),
			Subtotal:    firstTotal,
		})
		out = append(out, LineItem{
			SKU:          second,
			Name:         secondName,
			Quantity:     li.Quantity,
			UnitPrice:    costUnit,
			Subtotal:     secondTotal,
			CostOverride: decimal.NewNullDecimal(costUnit),
		})
	}
	return out, nil
}

// applyMultipliers runs the SKU-literal multiplier first (it fixes the
// canonical SKU used to key the exception table) and then the text-derived
// multipliers, gated per SKU by the rule book.
func (n *Normalizer) applyMultipliers(li LineItem) LineItem {
	sku, skuMult := parseSKULiteral(li.SKU)
	canonical := NormalizeSKU(sku)

	if n.rules.Skipped(canonical, RuleSKULiteral) {
		skuMult = 1
	}
	qtyAfterSKU := li.Quantity * skuMult
	unitAfterSKU := li.UnitPrice
	if skuMult > 1 {
		unitAfterSKU = li.UnitPrice.Div(decimal.NewFromInt(int64(skuMult)))
	}

	nameMult := 1.0
	descMult := 1.0
	metrosMult := 1.0

	xFirst := n.rules.XPrefixSuppressed[canonical] &&
		(hasLeadingXToken(li.Name) || hasLeadingXToken(li.Description))

	if !xFirst {
		if !n.rules.Skipped(canonical, RuleNamePrefix) {
			nameMult = namePrefixMultiplier(li.Name)
		}
		if !n.rules.Skipped(canonical, RuleDescPack) {
			descText := li.Description
			if descText == "" {
				descText = li.Name
			}
			descMult = descPackMultiplier(descText)
		}
		if !n.rules.Skipped(canonical, RuleMetros) {
			metrosMult = metrosMultiplier(li.Name)
		}
	}

	textMult := nameMult * descMult * metrosMult
	qtyFinal := int(math.Round(float64(qtyAfterSKU) * textMult))
	divisor := textMult
	if divisor < 1.0 {
		divisor = 1.0
	}
	unitFinal := unitAfterSKU.Div(decimal.NewFromFloat(divisor))

	out := li
	out.SKU = canonical
	if skuMult == 1 && textMult == 1.0 {
		// No multiplier fired: keep the subtotal as delivered. Composite
		// segments carry exact remainders that a unit-price round trip
		// would lose.
		return out
	}
	out.Quantity = qtyFinal
	out.UnitPrice = unitFinal.Round(2)
	return out.WithRecomputedSubtotal()
}

// parseSKULiteral recognizes the NNNNxM convention in a SKU literal and
// returns the 4-character base plus the multiplier (1 when absent).
func parseSKULiteral(sku string) (base string, mult int) {
	m := skuLiteralRe.FindStringSubmatch(sku)
	if m == nil {
		return strings.TrimSpace(sku), 1
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		n = 1
	}
	return m[1], n
}

// namePrefixMultiplier reads a leading "Nx" token from the first characters
// of the name. A whole-word "resistencia(s)" in the name divides the
// multiplier by 10: those listings encode a resistance value, not a pack
// count, in the same position.
func namePrefixMultiplier(name string) float64 {
	head := name
	if len(head) > namePrefixWindow {
		head = head[:namePrefixWindow]
	}
	m := namePrefixRe.FindStringSubmatch(head)
	mult := 1.0
	if m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			mult = float64(n)
		}
	}
	if mult > 1.0 && resistanceRe.MatchString(name) {
		mult /= 10.0
	}
	return mult
}

// descPackMultiplier reads a "PACK xN" token anywhere in the description.
func descPackMultiplier(desc string) float64 {
	m := descPackRe.FindStringSubmatch(desc)
	if m == nil {
		return 1.0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1.0
	}
	return float64(n)
}

// metrosMultiplier reads a declared length in meters out of the name, with
// or without whitespace before the unit.
func metrosMultiplier(name string) float64 {
	m := metrosRe.FindStringSubmatch(name)
	if m == nil {
		return 1.0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1.0
	}
	return float64(n)
}

func hasLeadingXToken(text string) bool {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return false
	}
	return xTokenRe.MatchString(s)
}
