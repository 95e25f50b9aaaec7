// Package config loads application configuration from TOML and
// environment variables, with built-in production defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/gestion/settlement/internal/domain/pricing"
	"github.com/gestion/settlement/internal/domain/settlement"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Pricing    PricingConfig
	Settlement SettlementConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds the SQLite store settings
type DatabaseConfig struct {
	// Path is the SQLite database file.
	Path string
	// BusyTimeout in milliseconds, applied through the connection string.
	BusyTimeout int
	LogQueries  bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TrustedProxies []string
}

// BracketConfig is one fixed-fee tier. Max 0 on the last bracket means
// open-ended.
type BracketConfig struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
	Fee float64 `mapstructure:"fee"`
}

// PricingConfig holds the commission model.
type PricingConfig struct {
	CommissionRate float64
	Brackets       []BracketConfig
}

// SettlementConfig holds the reconciliation and commit constants. The
// per-SKU rule masks and the courier vendor table are configuration data,
// not code.
type SettlementConfig struct {
	Tolerance            float64
	FlexNetThreshold     float64
	CarrierFreeThreshold float64
	SubsidyMin           float64
	FlexSKU              string
	CarrierSKU           string
	SubsidySKU           string
	// RuleMasks maps a SKU to a comma-separated list of skipped rules:
	// sku_literal, name_prefix, desc_pack, metros, text, all.
	RuleMasks map[string]string
	// XPrefixSKUs lists SKUs whose leading bare x-token suppresses the
	// text-derived rules.
	XPrefixSKUs []string
	// CourierVendors maps an upper-cased courier name to a supplier code.
	CourierVendors       map[string]string
	DefaultCourierVendor string
	CarrierSupplier      string
	MaxDocNumber         int
	MinSaleCost          float64
	SellerAccount        string
	PaymentMethod        string
}

// Load loads configuration from TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with SETTLE_ prefix (e.g. SETTLE_DATABASE_PATH)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SETTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Path:        v.GetString("database.path"),
			BusyTimeout: v.GetInt("database.busy_timeout"),
			LogQueries:  v.GetBool("database.log_queries"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Pricing: PricingConfig{
			CommissionRate: v.GetFloat64("pricing.commission_rate"),
		},
		Settlement: SettlementConfig{
			Tolerance:            v.GetFloat64("settlement.tolerance"),
			FlexNetThreshold:     v.GetFloat64("settlement.flex_net_threshold"),
			CarrierFreeThreshold: v.GetFloat64("settlement.carrier_free_threshold"),
			SubsidyMin:           v.GetFloat64("settlement.subsidy_min"),
			FlexSKU:              v.GetString("settlement.flex_sku"),
			CarrierSKU:           v.GetString("settlement.carrier_sku"),
			SubsidySKU:           v.GetString("settlement.subsidy_sku"),
			RuleMasks:            v.GetStringMapString("settlement.rule_masks"),
			XPrefixSKUs:          v.GetStringSlice("settlement.x_prefix_skus"),
			CourierVendors:       v.GetStringMapString("settlement.courier_vendors"),
			DefaultCourierVendor: v.GetString("settlement.default_courier_vendor"),
			CarrierSupplier:      v.GetString("settlement.carrier_supplier"),
			MaxDocNumber:         v.GetInt("settlement.max_doc_number"),
			MinSaleCost:          v.GetFloat64("settlement.min_sale_cost"),
			SellerAccount:        v.GetString("settlement.seller_account"),
			PaymentMethod:        v.GetString("settlement.payment_method"),
		},
	}
	if err := v.UnmarshalKey("pricing.brackets", &cfg.Pricing.Brackets); err != nil {
		return nil, fmt.Errorf("error parsing pricing.brackets: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "settlement-engine"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "gestion.db"
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.Pricing.CommissionRate == 0 {
		cfg.Pricing.CommissionRate = 0.13
	}
	if len(cfg.Pricing.Brackets) == 0 {
		cfg.Pricing.Brackets = []BracketConfig{
			{Min: 0, Max: 15000, Fee: 1115},
			{Min: 15000, Max: 25000, Fee: 2300},
			{Min: 25000, Max: 33000, Fee: 2810},
			{Min: 33000, Max: 0, Fee: 0},
		}
	}

	s := &cfg.Settlement
	if s.Tolerance == 0 {
		s.Tolerance = 0.50
	}
	if s.FlexNetThreshold == 0 {
		s.FlexNetThreshold = 33000
	}
	if s.CarrierFreeThreshold == 0 {
		s.CarrierFreeThreshold = 33000
	}
	if s.SubsidyMin == 0 {
		s.SubsidyMin = 0.01
	}
	if s.FlexSKU == "" {
		s.FlexSKU = "6696"
	}
	if s.CarrierSKU == "" {
		s.CarrierSKU = "6711"
	}
	if s.SubsidySKU == "" {
		s.SubsidySKU = "6756"
	}
	if len(s.RuleMasks) == 0 {
		s.RuleMasks = map[string]string{
			"6628": "name_prefix,desc_pack",
			"1346": "name_prefix,desc_pack",
			"6404": "desc_pack",
			"6405": "desc_pack",
			"5283": "metros",
			"6408": "all",
			"5293": "text",
		}
	}
	if len(s.XPrefixSKUs) == 0 {
		s.XPrefixSKUs = []string{"1341", "1637", "1640", "1644", "1647"}
	}
	if len(s.CourierVendors) == 0 {
		s.CourierVendors = map[string]string{
			"CANDYHO":  "001",
			"OMYTECH":  "002",
			"PATO":     "003",
			"JHONATAN": "004",
		}
	}
	if s.DefaultCourierVendor == "" {
		s.DefaultCourierVendor = "003"
	}
	if s.CarrierSupplier == "" {
		s.CarrierSupplier = "034"
	}
	if s.MaxDocNumber == 0 {
		s.MaxDocNumber = 100000
	}
	if s.MinSaleCost == 0 {
		s.MinSaleCost = 0.01
	}
	if s.PaymentMethod == "" {
		s.PaymentMethod = "TRANSFERENCIA"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Pricing.CommissionRate < 0 || c.Pricing.CommissionRate >= 1 {
		return fmt.Errorf("pricing.commission_rate must be in [0, 1), got %f", c.Pricing.CommissionRate)
	}
	if _, err := c.Pricing.Schedule(); err != nil {
		return fmt.Errorf("pricing.brackets: %w", err)
	}
	if c.Settlement.Tolerance <= 0 {
		return fmt.Errorf("settlement.tolerance must be positive")
	}
	if c.Settlement.MaxDocNumber <= 0 {
		return fmt.Errorf("settlement.max_doc_number must be positive")
	}
	if _, err := c.Settlement.RuleBook(); err != nil {
		return err
	}
	return nil
}

// Schedule converts the bracket table into a validated fee schedule.
func (p *PricingConfig) Schedule() (pricing.Schedule, error) {
	schedule := make(pricing.Schedule, 0, len(p.Brackets))
	for _, b := range p.Brackets {
		schedule = append(schedule, pricing.FeeBracket{
			Min:      decimal.NewFromFloat(b.Min),
			Max:      decimal.NewFromFloat(b.Max),
			FixedFee: decimal.NewFromFloat(b.Fee),
		})
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return schedule, nil
}

// ShippingSKUs returns the configured shipping SKU assignment.
func (s *SettlementConfig) ShippingSKUs() settlement.ShippingSKUs {
	return settlement.ShippingSKUs{Flex: s.FlexSKU, Carrier: s.CarrierSKU, Subsidy: s.SubsidySKU}
}

// ReconcilerConfig builds the reconciliation constants.
func (s *SettlementConfig) ReconcilerConfig() settlement.ReconcilerConfig {
	return settlement.ReconcilerConfig{
		Tolerance:            decimal.NewFromFloat(s.Tolerance),
		FlexNetThreshold:     decimal.NewFromFloat(s.FlexNetThreshold),
		CarrierFreeThreshold: decimal.NewFromFloat(s.CarrierFreeThreshold),
		SubsidyMin:           decimal.NewFromFloat(s.SubsidyMin),
		SKUs:                 s.ShippingSKUs(),
	}
}

// RuleBook parses the per-SKU rule masks into the domain rule book.
func (s *SettlementConfig) RuleBook() (settlement.RuleBook, error) {
	book := settlement.RuleBook{
		Skip:              make(map[string]settlement.RuleSet, len(s.RuleMasks)),
		XPrefixSuppressed: make(map[string]bool, len(s.XPrefixSKUs)),
	}
	for sku, mask := range s.RuleMasks {
		set, err := parseRuleMask(mask)
		if err != nil {
			return settlement.RuleBook{}, fmt.Errorf("settlement.rule_masks[%s]: %w", sku, err)
		}
		book.Skip[settlement.NormalizeSKU(sku)] = set
	}
	for _, sku := range s.XPrefixSKUs {
		book.XPrefixSuppressed[settlement.NormalizeSKU(sku)] = true
	}
	return book, nil
}

func parseRuleMask(mask string) (settlement.RuleSet, error) {
	var set settlement.RuleSet
	for _, name := range strings.Split(mask, ",") {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "":
		case "sku_literal":
			set |= settlement.RuleSet(settlement.RuleSKULiteral)
		case "name_prefix":
			set |= settlement.RuleSet(settlement.RuleNamePrefix)
		case "desc_pack":
			set |= settlement.RuleSet(settlement.RuleDescPack)
		case "metros":
			set |= settlement.RuleSet(settlement.RuleMetros)
		case "text":
			set |= settlement.RuleSet(settlement.RuleTextDerived)
		case "all":
			set |= settlement.RuleSet(settlement.RuleAll)
		default:
			return 0, fmt.Errorf("unknown rule %q", name)
		}
	}
	return set, nil
}

// DSN returns the SQLite connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s?_busy_timeout=%d", d.Path, d.BusyTimeout)
}
