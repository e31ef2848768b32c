package scoring

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/banking/fraud-monitor/internal/domain"
)

// Config holds the scoring parameters that are not part of individual rules
type Config struct {
	BaseProbability float64
	MaxProbability  float64
	BaseCurrency    string
}

// DefaultConfig returns the canonical engine parameters
func DefaultConfig() Config {
	return Config{
		BaseProbability: 0.05,
		MaxProbability:  0.95,
		BaseCurrency:    "INR",
	}
}

// Rule is a named predicate over a transaction plus the weight it adds.
// AlertType tags which alert kind the rule points at when it is the
// strongest contributor
type Rule struct {
	Name      string
	Factor    string
	Weight    float64
	AlertType domain.AlertType
	Match     func(tx *domain.Transaction, cfg Config) bool
}

// Match is a rule that fired for a transaction
type Match struct {
	Rule   string
	Factor string
	Weight float64
}

// Catalog is an ordered, read-only set of rules
type Catalog struct {
	rules []Rule
	cfg   Config
}

// NewCatalog builds a catalog from rules, evaluated in the given order
func NewCatalog(cfg Config, rules ...Rule) *Catalog {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Catalog{rules: cp, cfg: cfg}
}

// DefaultCatalog returns the canonical rule set
func DefaultCatalog(cfg Config) *Catalog {
	return NewCatalog(cfg, DefaultRules()...)
}

// Config returns the parameters the catalog evaluates with
func (c *Catalog) Config() Config {
	return c.cfg
}

// Evaluate returns the rules matching tx in catalog order. No I/O
func (c *Catalog) Evaluate(tx *domain.Transaction) []Match {
	if tx == nil {
		return nil
	}
	var matches []Match
	for _, r := range c.rules {
		if r.Match(tx, c.cfg) {
			matches = append(matches, Match{Rule: r.Name, Factor: r.Factor, Weight: r.Weight})
		}
	}
	return matches
}

// AlertTypeFor returns the alert type tag of the named factor
func (c *Catalog) AlertTypeFor(factor string) domain.AlertType {
	for _, r := range c.rules {
		if r.Factor == factor && r.AlertType != "" {
			return r.AlertType
		}
	}
	return domain.AlertTypeHighRisk
}

var (
	highRiskCategories   = []string{"gambling", "cryptocurrency", "money_transfer", "electronics"}
	unusualLocations     = []string{"international", "different state"}
	higherRiskChannels   = []string{"online", "digital", "contactless"}
	suspiciousMerchants  = []string{"unknown", "temp", "test"}
	suspiciousLocations  = []string{"nigeria", "unknown", "tor network"}
	highAmountThreshold  = decimal.NewFromInt(10000)
	aboveAverageFloor    = decimal.NewFromInt(5000)
	balanceRatioLimit    = decimal.NewFromFloat(0.5)
	minimumBalanceDivide = decimal.NewFromInt(1)
)

// DefaultRules returns the canonical rules in evaluation order
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "high_balance_ratio",
			Factor:    "High transaction to balance ratio",
			Weight:    0.15,
			AlertType: domain.AlertTypeHighRisk,
			Match: func(tx *domain.Transaction, _ Config) bool {
				if !tx.Amount.Valid || !tx.Balance.Valid {
					return false
				}
				divisor := decimal.Max(tx.Balance.Decimal, minimumBalanceDivide)
				return tx.Amount.Decimal.Div(divisor).GreaterThan(balanceRatioLimit)
			},
		},
		{
			Name:      "unusual_hour",
			Factor:    "Unusual transaction hour",
			Weight:    0.10,
			AlertType: domain.AlertTypeSuspiciousPattern,
			Match: func(tx *domain.Transaction, _ Config) bool {
				h, ok := tx.Hour()
				return ok && (h == 23 || (h >= 0 && h <= 4))
			},
		},
		{
			Name:      "high_risk_category",
			Factor:    "High-risk merchant category",
			Weight:    0.12,
			AlertType: domain.AlertTypeSuspiciousPattern,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return equalsAny(tx.Category, highRiskCategories)
			},
		},
		{
			Name:      "unusual_location",
			Factor:    "Unusual transaction location",
			Weight:    0.20,
			AlertType: domain.AlertTypeLocationAnomaly,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return equalsAny(tx.Location, unusualLocations)
			},
		},
		{
			Name:      "weekend",
			Factor:    "Weekend transaction",
			Weight:    0.03,
			AlertType: domain.AlertTypeSuspiciousPattern,
			Match: func(tx *domain.Transaction, _ Config) bool {
				d, ok := tx.Weekday()
				return ok && (d == 5 || d == 6)
			},
		},
		{
			Name:      "higher_risk_channel",
			Factor:    "Higher-risk transaction type",
			Weight:    0.08,
			AlertType: domain.AlertTypeHighRisk,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return equalsAny(tx.TransactionType, higherRiskChannels)
			},
		},
		{
			Name:      "foreign_currency",
			Factor:    "Foreign currency",
			Weight:    0.05,
			AlertType: domain.AlertTypeHighRisk,
			Match: func(tx *domain.Transaction, cfg Config) bool {
				cur := strings.TrimSpace(tx.Currency)
				return cur != "" && !strings.EqualFold(cur, cfg.BaseCurrency)
			},
		},
		{
			Name:      "high_amount",
			Factor:    "High transaction amount",
			Weight:    0.40,
			AlertType: domain.AlertTypeHighRisk,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return tx.Amount.Valid && tx.Amount.Decimal.GreaterThan(highAmountThreshold)
			},
		},
		{
			Name:      "above_average_amount",
			Factor:    "Above average transaction amount",
			Weight:    0.20,
			AlertType: domain.AlertTypeHighRisk,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return tx.Amount.Valid &&
					tx.Amount.Decimal.GreaterThan(aboveAverageFloor) &&
					tx.Amount.Decimal.LessThanOrEqual(highAmountThreshold)
			},
		},
		{
			Name:      "suspicious_merchant",
			Factor:    "Suspicious merchant name",
			Weight:    0.30,
			AlertType: domain.AlertTypeSuspiciousPattern,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return containsAny(tx.Merchant, suspiciousMerchants)
			},
		},
		{
			Name:      "suspicious_location",
			Factor:    "Suspicious location detected",
			Weight:    0.50,
			AlertType: domain.AlertTypeLocationAnomaly,
			Match: func(tx *domain.Transaction, _ Config) bool {
				return containsAny(tx.Location, suspiciousLocations)
			},
		},
	}
}

func equalsAny(value string, set []string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func containsAny(value string, tokens []string) bool {
	v := strings.ToLower(value)
	if v == "" {
		return false
	}
	for _, t := range tokens {
		if strings.Contains(v, t) {
			return true
		}
	}
	return false
}
