package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion/settlement/internal/domain/catalog"
)

type fakeCatalog struct {
	costs map[string]float64
	descs map[string]string
}

func (f fakeCatalog) DescriptionFor(_ context.Context, sku string) (string, error) {
	return f.descs[sku], nil
}

func (f fakeCatalog) LastPositiveCostFor(_ context.Context, sku string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(f.costs[sku]), nil
}

type fakeKits struct {
	kits map[string]*catalog.Kit
}

func (f fakeKits) ComponentsOf(_ context.Context, code string) (*catalog.Kit, error) {
	return f.kits[code], nil
}

func newTestNormalizer(cat fakeCatalog, kits fakeKits) *Normalizer {
	return NewNormalizer(cat, kits, DefaultRuleBook(), nil)
}

func groupOf(entries ...RawEntry) OrderGroup {
	return OrderGroup{Orders: []Order{{Ref: "ord-1", Entries: entries}}}
}

func TestNormalizeSKULiteralMultiplier(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU:       "1234x3",
		Title:     "Tira de leds",
		Quantity:  2,
		UnitPrice: d(30),
	}))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "1234", items[0].SKU)
	assert.Equal(t, 6, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(10)), "unit %v", items[0].UnitPrice)
	assert.True(t, items[0].Subtotal.Equal(d(60)), "subtotal %v", items[0].Subtotal)
}

func TestNormalizeNamePrefixMultiplier(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	tests := []struct {
		name     string
		title    string
		wantQty  int
		wantUnit float64
	}{
		{"plain prefix", "3x Lampara led", 3, 10},
		{"spaced prefix", "2 X Sensor", 2, 15},
		{"no prefix", "Lampara 3 colores", 1, 30},
		{"prefix past window ignored", "Sensor 4x lente", 1, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := n.Normalize(context.Background(), groupOf(RawEntry{
				SKU: "2001", Title: tt.title, Quantity: 1, UnitPrice: d(30),
			}))
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Equal(t, tt.wantQty, items[0].Quantity)
			assert.True(t, items[0].UnitPrice.Equal(d(tt.wantUnit)),
				"unit %v", items[0].UnitPrice)
		})
	}
}

func TestNormalizeResistanceCorrection(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	// "20x resistencias" encodes 2 packs, not 20 units.
	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "3001", Title: "20x resistencias 1/4W", Quantity: 1, UnitPrice: d(100),
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Quantity)

	// Compound words do not trigger the correction.
	items, err = n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "3002", Title: "20x fotorresistencias LDR", Quantity: 1, UnitPrice: d(100),
	}))
	require.NoError(t, err)
	assert.Equal(t, 20, items[0].Quantity)
}

func TestNormalizeDescriptionPackMultiplier(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU:         "4001",
		Title:       "Borneras para PCB",
		Description: "Oferta PACK x4 unidades",
		Quantity:    1,
		UnitPrice:   d(40),
	}))
	require.NoError(t, err)
	assert.Equal(t, 4, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(10)))
}

func TestNormalizeMetrosMultiplier(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "5001", Title: "Cable unipolar 10 metros", Quantity: 1, UnitPrice: d(50),
	}))
	require.NoError(t, err)
	assert.Equal(t, 10, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(5)))

	items, err = n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "5002", Title: "Cable 25METROS exterior", Quantity: 1, UnitPrice: d(100),
	}))
	require.NoError(t, err)
	assert.Equal(t, 25, items[0].Quantity)
}

func TestNormalizeMultiplierCascadeCombines(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	// SKU literal x2, name prefix x3: factors multiply.
	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "1234x2", Title: "3x Modulo rele", Quantity: 1, UnitPrice: d(60),
	}))
	require.NoError(t, err)
	assert.Equal(t, 6, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(10)), "unit %v", items[0].UnitPrice)
	assert.True(t, items[0].Subtotal.Equal(d(60)))
}

func TestNormalizeRuleBookExceptions(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	t.Run("pack rules disabled", func(t *testing.T) {
		items, err := n.Normalize(context.Background(), groupOf(RawEntry{
			SKU: "6628", Title: "2x Kit de borneras", Description: "PACK x5",
			Quantity: 1, UnitPrice: d(100),
		}))
		require.NoError(t, err)
		assert.Equal(t, 1, items[0].Quantity)
		assert.True(t, items[0].UnitPrice.Equal(d(100)))
	})

	t.Run("all multiplier rules disabled", func(t *testing.T) {
		items, err := n.Normalize(context.Background(), groupOf(RawEntry{
			SKU: "6408x4", Title: "3x Fuente", Description: "PACK x2",
			Quantity: 2, UnitPrice: d(80),
		}))
		require.NoError(t, err)
		assert.Equal(t, "6408", items[0].SKU)
		assert.Equal(t, 2, items[0].Quantity)
		assert.True(t, items[0].UnitPrice.Equal(d(80)))
	})

	t.Run("only SKU-literal rule permitted", func(t *testing.T) {
		items, err := n.Normalize(context.Background(), groupOf(RawEntry{
			SKU: "5293x2", Title: "4x Conector", Description: "PACK x3",
			Quantity: 1, UnitPrice: d(20),
		}))
		require.NoError(t, err)
		assert.Equal(t, "5293", items[0].SKU)
		assert.Equal(t, 2, items[0].Quantity)
		assert.True(t, items[0].UnitPrice.Equal(d(10)))
	})

	t.Run("metros disabled for flagged SKU", func(t *testing.T) {
		items, err := n.Normalize(context.Background(), groupOf(RawEntry{
			SKU: "5283", Title: "Cable 10 metros", Quantity: 1, UnitPrice: d(50),
		}))
		require.NoError(t, err)
		assert.Equal(t, 1, items[0].Quantity)
	})
}

func TestNormalizeXPrefixSuppression(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	// Flagged SKU with a bare leading x-token: text rules are suppressed.
	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "1637", Title: "10 X 2.1mm conector", Quantity: 1, UnitPrice: d(30),
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(30)))

	// Same title on an unflagged SKU parses as a name multiplier.
	items, err = n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "2001", Title: "10 X 2.1mm conector", Quantity: 1, UnitPrice: d(30)},
	))
	require.NoError(t, err)
	assert.Equal(t, 10, items[0].Quantity)
	assert.True(t, items[0].UnitPrice.Equal(d(3)))
}

func TestNormalizeKitExpansionDistributesMargin(t *testing.T) {
	cat := fakeCatalog{
		costs: map[string]float64{"0010": 10, "0020": 30},
		descs: map[string]string{"0010": "Sensor PIR", "0020": "Placa controladora"},
	}
	kits := fakeKits{kits: map[string]*catalog.Kit{
		"KIT-ALARMA": {
			Code: "KIT-ALARMA",
			Components: []catalog.KitComponent{
				{SKU: "0010", QuantityPerKit: 2},
				{SKU: "0020", QuantityPerKit: 1},
			},
		},
	}}
	n := newTestNormalizer(cat, kits)

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "KIT-ALARMA", Title: "Kit alarma", Quantity: 1, UnitPrice: d(100),
	}))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "0010", items[0].SKU)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Sensor PIR", items[0].Name)
	assert.Equal(t, "0020", items[1].SKU)
	assert.Equal(t, 1, items[1].Quantity)

	// Value preservation: component subtotals reproduce the kit price
	// within rounding per component.
	total := items[0].Subtotal.Add(items[1].Subtotal)
	diff := total.Sub(d(100)).Abs()
	assert.True(t, diff.LessThanOrEqual(d(0.02)), "total %v", total)
}

func TestNormalizeKitWithoutCostsSplitsByShare(t *testing.T) {
	cat := fakeCatalog{descs: map[string]string{"0010": "A", "0020": "B"}}
	kits := fakeKits{kits: map[string]*catalog.Kit{
		"KIT-X": {
			Code: "KIT-X",
			Components: []catalog.KitComponent{
				{SKU: "0010", QuantityPerKit: 1},
				{SKU: "0020", QuantityPerKit: 1},
			},
		},
	}}
	n := newTestNormalizer(cat, kits)

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "KIT-X", Title: "Kit", Quantity: 2, UnitPrice: d(100),
	}))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].UnitPrice.Equal(d(50)))
	assert.Equal(t, 2, items[0].Quantity)
	assert.True(t, items[0].Subtotal.Equal(d(100)))
}

func TestNormalizeUnresolvableKitPassesThrough(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "KIT-FANTASMA", Title: "Kit sin tabla", Quantity: 1, UnitPrice: d(75),
	}))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "KIT-FANTASMA", items[0].SKU)
	assert.True(t, items[0].Subtotal.Equal(d(75)))
}

func TestNormalizeCompositeSplitPreservesTotal(t *testing.T) {
	cat := fakeCatalog{
		costs: map[string]float64{"2222": 15},
		descs: map[string]string{"2222": "Fuente 12V"},
	}
	n := newTestNormalizer(cat, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "1111+2222", Title: "Tira led con fuente", Quantity: 2, UnitPrice: d(50),
	}))
	require.NoError(t, err)
	require.Len(t, items, 2)

	first, second := items[0], items[1]
	assert.Equal(t, "1111", first.SKU)
	assert.Equal(t, "2222", second.SKU)

	// Second segment is sold at cost with an explicit override.
	require.True(t, second.CostOverride.Valid)
	assert.True(t, second.CostOverride.Decimal.Equal(d(15)))
	assert.True(t, second.UnitPrice.Equal(d(15)))
	assert.True(t, second.Subtotal.Equal(d(30)))

	// First segment absorbs the remaining value; split is exact.
	assert.True(t, first.Subtotal.Equal(d(70)), "first subtotal %v", first.Subtotal)
	assert.True(t, first.Subtotal.Add(second.Subtotal).Equal(d(100)))
}

func TestNormalizeCompositeSplitExactWhenUnitPriceDoesNotRoundTrip(t *testing.T) {
	// 100 - 3*11.11 = 66.67, which is not divisible by 3 at two decimals.
	// The first segment must keep the exact remainder, not a re-rounded
	// unit-price product.
	cat := fakeCatalog{
		costs: map[string]float64{"2222": 11.11},
		descs: map[string]string{"2222": "Fuente 12V"},
	}
	n := newTestNormalizer(cat, fakeKits{})

	items, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "1111+2222", Title: "Tira led con fuente", Quantity: 3, UnitPrice: decimal.Zero,
		Subtotal: d(100),
	}))
	require.NoError(t, err)
	require.Len(t, items, 2)

	first, second := items[0], items[1]
	assert.True(t, second.Subtotal.Equal(d(33.33)), "second subtotal %v", second.Subtotal)
	assert.True(t, first.Subtotal.Equal(d(66.67)), "first subtotal %v", first.Subtotal)
	assert.True(t, first.Subtotal.Add(second.Subtotal).Equal(d(100)),
		"split must preserve the original total exactly")
}

func TestNormalizeMissingSKUIsFatal(t *testing.T) {
	n := newTestNormalizer(fakeCatalog{}, fakeKits{})

	_, err := n.Normalize(context.Background(), groupOf(RawEntry{
		SKU: "", Title: "Linea huerfana", Quantity: 1, UnitPrice: d(10),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Linea huerfana")
}
