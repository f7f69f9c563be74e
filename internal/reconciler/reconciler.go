// Package reconciler completes and verifies the monetary fields of a
// canonical invoice using exact decimal arithmetic.
//
// Simplified invoices often carry only a tax-inclusive total; the engine
// derives the missing net and tax amounts from the configured tax rate,
// rounding half up to whole currency units at each rounding point. When all
// three amounts are present it verifies their internal consistency instead.
//
// The five reconciliation scenarios are dispatched over the presence bitmask
// of {subtotal, tax, total}, so scenario coverage is an exhaustive switch
// rather than a chain of guards.
package reconciler

import (
	"fmt"

	"invoice-audit-service/internal/models"
	"invoice-audit-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Reconciliation method names recorded on the outcome so callers can
// distinguish computed from verified from incomplete records.
const (
	MethodTotalOnly    = "total_only"
	MethodCalcTax      = "calc_tax"
	MethodCalcSubtotal = "calc_subtotal"
	MethodValidate     = "validate"
	MethodInsufficient = "insufficient"
)

// Presence bitmask over the three monetary fields.
const (
	hasSubtotal = 1 << iota
	hasTax
	hasTotal
)

// Config holds the reconciliation parameters.
type Config struct {
	// TaxRate is the value-added tax rate used to split a tax-inclusive
	// total (default 0.05).
	TaxRate decimal.Decimal `json:"tax_rate"`

	// Tolerance is the accepted absolute variance between subtotal + tax
	// and total, in whole currency units (default 1).
	Tolerance decimal.Decimal `json:"tolerance"`
}

// DefaultConfig returns the standard 5% tax rate with a one currency unit
// tolerance, the accepted variance in currency-unit accounting.
func DefaultConfig() *Config {
	return &Config{
		TaxRate:   decimal.NewFromFloat(0.05),
		Tolerance: decimal.NewFromInt(1),
	}
}

// Validate checks if the reconciliation configuration is valid.
func (c *Config) Validate() error {
	if c.TaxRate.IsNegative() {
		return fmt.Errorf("tax rate cannot be negative: %s", c.TaxRate)
	}
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance cannot be negative: %s", c.Tolerance)
	}
	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// Engine applies the reconciliation scenarios to invoices.
type Engine struct {
	config *Config
	log    logger.Logger
}

// NewEngine creates a reconciliation engine. A nil config uses the defaults.
func NewEngine(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reconciler configuration: %w", err)
	}

	return &Engine{
		config: config.Clone(),
		log:    logger.GetGlobalLogger().WithComponent("amount_reconciler"),
	}, nil
}

// Reconcile completes the invoice's monetary fields and verifies their
// consistency. Present values are never overwritten; only absent fields are
// filled in. The outcome is attached to the invoice and returned; amount
// inconsistencies surface as outcome warnings, never as errors.
func (e *Engine) Reconcile(inv *models.Invoice) *models.ReconciliationOutcome {
	outcome := &models.ReconciliationOutcome{}

	mask := 0
	if inv.Subtotal.Valid {
		mask |= hasSubtotal
	}
	if inv.TaxAmount.Valid {
		mask |= hasTax
	}
	if inv.Total.Valid {
		mask |= hasTotal
	}

	switch mask {
	case hasTotal:
		e.splitTotal(inv, outcome)

	case hasTotal | hasSubtotal:
		// Exact subtraction; both operands are already integral.
		tax := inv.Total.Decimal.Sub(inv.Subtotal.Decimal)
		inv.TaxAmount = decimal.NewNullDecimal(tax)
		outcome.Method = MethodCalcTax
		outcome.Derived = []models.CanonicalField{models.FieldTaxAmount}
		outcome.Calculated = true

	case hasTotal | hasTax:
		subtotal := inv.Total.Decimal.Sub(inv.TaxAmount.Decimal)
		inv.Subtotal = decimal.NewNullDecimal(subtotal)
		outcome.Method = MethodCalcSubtotal
		outcome.Derived = []models.CanonicalField{models.FieldSubtotal}
		outcome.Calculated = true

	case hasTotal | hasSubtotal | hasTax:
		outcome.Method = MethodValidate
		e.verify(inv, outcome)

	default:
		// Fewer than two amounts present; nothing can be derived.
		outcome.Method = MethodInsufficient
		outcome.Warnings = append(outcome.Warnings, "insufficient amount information")
	}

	inv.Reconciliation = outcome

	e.log.WithFields(logger.Fields{
		"invoice":  inv.InvoiceNo,
		"method":   outcome.Method,
		"derived":  len(outcome.Derived),
		"warnings": len(outcome.Warnings),
	}).Debug("Reconciled invoice amounts")

	return outcome
}

// splitTotal handles the tax-inclusive-total-only scenario: subtotal is the
// total divided by (1 + rate), tax is subtotal times rate, both rounded half
// up to whole currency units.
func (e *Engine) splitTotal(inv *models.Invoice, outcome *models.ReconciliationOutcome) {
	total := inv.Total.Decimal
	divisor := decimal.NewFromInt(1).Add(e.config.TaxRate)

	subtotal := total.DivRound(divisor, 0)
	tax := subtotal.Mul(e.config.TaxRate).Round(0)

	inv.Subtotal = decimal.NewNullDecimal(subtotal)
	inv.TaxAmount = decimal.NewNullDecimal(tax)

	outcome.Method = MethodTotalOnly
	outcome.Derived = []models.CanonicalField{models.FieldSubtotal, models.FieldTaxAmount}
	outcome.Calculated = true
	outcome.TotalOnly = true

	variance := subtotal.Add(tax).Sub(total).Abs()
	outcome.Variance = variance
	if variance.GreaterThan(e.config.Tolerance) {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf(
			"derived amounts do not reproduce the total: %s + %s = %s, total is %s (variance %s)",
			subtotal, tax, subtotal.Add(tax), total, variance))
	}
}

// verify checks subtotal + tax against total when all three are present.
// A mismatch is a warning at this stage; the auditor escalates it to an
// error so the defect is reported once.
func (e *Engine) verify(inv *models.Invoice, outcome *models.ReconciliationOutcome) {
	calculated := inv.Subtotal.Decimal.Add(inv.TaxAmount.Decimal)
	variance := calculated.Sub(inv.Total.Decimal).Abs()
	outcome.Variance = variance

	if variance.GreaterThan(e.config.Tolerance) {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf(
			"amount check failed: %s + %s = %s, total is %s (variance %s)",
			inv.Subtotal.Decimal, inv.TaxAmount.Decimal, calculated, inv.Total.Decimal, variance))
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}
