package settlement

// Rule identifies one quantity-multiplier rule of the normalization
// cascade. Per-SKU exceptions are expressed as a set of rules to skip, so
// new exceptions are configuration rows rather than code branches.
type Rule uint8

const (
	// RuleSKULiteral parses a NNNNxM multiplier out of the SKU literal.
	RuleSKULiteral Rule = 1 << iota
	// RuleNamePrefix parses a leading "Nx" multiplier out of the item name.
	RuleNamePrefix
	// RuleDescPack parses a "PACK xN" multiplier out of the description.
	RuleDescPack
	// RuleMetros parses a "N metros" length multiplier out of the item name.
	RuleMetros
)

// RuleTextDerived covers every rule that reads free text rather than the
// SKU literal.
const RuleTextDerived = RuleNamePrefix | RuleDescPack | RuleMetros

// RuleAll covers the whole multiplier cascade.
const RuleAll = RuleSKULiteral | RuleTextDerived

// RuleSet is a bitmask of rules.
type RuleSet uint8

// Has reports whether the set contains the rule.
func (s RuleSet) Has(r Rule) bool { return s&RuleSet(r) != 0 }

// RuleBook carries the per-SKU normalization exceptions, keyed by the
// canonical (post-SKU-literal) 4-character code.
type RuleBook struct {
	// Skip lists, per SKU, the rules that must not run.
	Skip map[string]RuleSet
	// XPrefixSuppressed lists SKUs whose naming convention legitimately
	// starts with a multiplier-looking "N x" token; for these, a title or
	// description beginning with a bare x-token disables every text-derived
	// rule instead of being parsed as a multiplier.
	XPrefixSuppressed map[string]bool
}

// Skipped reports whether rule r is disabled for the SKU.
func (rb RuleBook) Skipped(sku string, r Rule) bool {
	if rb.Skip == nil {
		return false
	}
	return rb.Skip[sku].Has(r)
}

// DefaultRuleBook returns the exception table observed in production; a
// deployment overrides it through configuration.
func DefaultRuleBook() RuleBook {
	return RuleBook{
		Skip: map[string]RuleSet{
			"6628": RuleSet(RuleNamePrefix | RuleDescPack),
			"1346": RuleSet(RuleNamePrefix | RuleDescPack),
			"6404": RuleSet(RuleDescPack),
			"6405": RuleSet(RuleDescPack),
			"5283": RuleSet(RuleMetros),
			"6408": RuleSet(RuleAll),
			"5293": RuleSet(RuleTextDerived),
		},
		XPrefixSuppressed: map[string]bool{
			"1341": true,
			"1637": true,
			"1640": true,
			"1644": true,
			"1647": true,
		},
	}
}
