package auditor

import (
	"fmt"
	"time"

	"invoice-audit-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// dateLayout is the normalized date format used throughout the audit
// pipeline.
const dateLayout = "2006-01-02"

// Config holds the audit rules supplied by the caller per validation run.
// The zero value of every field disables the corresponding check; only
// AllowEarlierDate and AmountTolerance carry meaningful defaults.
type Config struct {
	// ExpectedTaxID is the buyer tax identifier invoices must carry.
	// Empty disables the identity check.
	ExpectedTaxID string `json:"expected_tax_id"`

	// PeriodStart and PeriodEnd bound the inclusive audit window as
	// YYYY-MM-DD dates. The date-window check runs only when both are set.
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`

	// AllowEarlierDate tolerates invoices dated before the window start as
	// warnings rather than errors (default true). Pre-period invoices are
	// frequently legitimate late-arriving documents.
	AllowEarlierDate bool `json:"allow_earlier_date"`

	// StrictMode escalates every warning to an error after all checks have
	// run.
	StrictMode bool `json:"strict_mode"`

	// AmountTolerance is the accepted absolute variance between
	// subtotal + tax and total, in whole currency units (default 1).
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`
}

// DefaultConfig returns the standard audit configuration: no identity or
// window constraints, pre-period dates tolerated, one currency unit of
// amount tolerance.
func DefaultConfig() *Config {
	return &Config{
		AllowEarlierDate: true,
		AmountTolerance:  decimal.NewFromInt(1),
	}
}

// Validate checks if the audit configuration is usable. A malformed
// configuration is the only condition that aborts processing; data quality
// defects never do.
func (c *Config) Validate() error {
	start, err := c.parsePeriodBound("period_start", c.PeriodStart)
	if err != nil {
		return err
	}
	end, err := c.parsePeriodBound("period_end", c.PeriodEnd)
	if err != nil {
		return err
	}

	if (c.PeriodStart == "") != (c.PeriodEnd == "") {
		return errors.ConfigurationError(errors.CodeInvalidPeriod, "period",
			"period_start and period_end must be set together", nil)
	}
	if c.HasPeriod() && start.After(end) {
		return errors.ConfigurationError(errors.CodeInvalidPeriod, "period",
			fmt.Sprintf("start %s is after end %s", c.PeriodStart, c.PeriodEnd), nil)
	}

	if c.AmountTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount_tolerance",
			c.AmountTolerance.String(), nil)
	}

	return nil
}

func (c *Config) parsePeriodBound(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.ConfigurationError(errors.CodeInvalidConfig, name, value, err).
			WithSuggestion("use the YYYY-MM-DD date format")
	}
	return t, nil
}

// HasPeriod reports whether both window bounds are configured.
func (c *Config) HasPeriod() bool {
	return c.PeriodStart != "" && c.PeriodEnd != ""
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
