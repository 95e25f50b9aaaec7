package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion/settlement/internal/domain/settlement"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "settlement-engine", cfg.App.Name)
	assert.Equal(t, "gestion.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.InDelta(t, 0.13, cfg.Pricing.CommissionRate, 1e-9)
	assert.Len(t, cfg.Pricing.Brackets, 4)
	assert.InDelta(t, 0.50, cfg.Settlement.Tolerance, 1e-9)
	assert.Equal(t, "6696", cfg.Settlement.FlexSKU)
	assert.Equal(t, "003", cfg.Settlement.DefaultCourierVendor)
	assert.Equal(t, "034", cfg.Settlement.CarrierSupplier)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SETTLE_SETTLEMENT_TOLERANCE", "1.25")
	t.Setenv("SETTLE_DATABASE_PATH", "/data/store.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 1.25, cfg.Settlement.Tolerance, 1e-9)
	assert.Equal(t, "/data/store.db", cfg.Database.Path)
}

func TestPricingSchedule(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	schedule, err := cfg.Pricing.Schedule()
	require.NoError(t, err)
	require.Len(t, schedule, 4)
	assert.True(t, schedule[0].Min.IsZero())
	assert.True(t, schedule[1].Min.Equal(schedule[0].Max))

	bad := PricingConfig{Brackets: []BracketConfig{
		{Min: 100, Max: 200, Fee: 10},
	}}
	_, err = bad.Schedule()
	assert.Error(t, err, "first bracket must start at 0")
}

func TestRuleBookParsing(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	book, err := cfg.Settlement.RuleBook()
	require.NoError(t, err)

	assert.True(t, book.Skipped("6628", settlement.RuleNamePrefix))
	assert.True(t, book.Skipped("6628", settlement.RuleDescPack))
	assert.False(t, book.Skipped("6628", settlement.RuleMetros))
	assert.True(t, book.Skipped("6408", settlement.RuleSKULiteral))
	assert.True(t, book.Skipped("5293", settlement.RuleNamePrefix))
	assert.False(t, book.Skipped("5293", settlement.RuleSKULiteral))
	assert.True(t, book.XPrefixSuppressed["1637"])
	assert.False(t, book.XPrefixSuppressed["2001"])
}

func TestRuleBookRejectsUnknownRule(t *testing.T) {
	s := SettlementConfig{RuleMasks: map[string]string{"1234": "desc_pack,bogus"}}
	_, err := s.RuleBook()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidateRejectsBadCommission(t *testing.T) {
	t.Setenv("SETTLE_PRICING_COMMISSION_RATE", "1.5")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commission_rate")
}
