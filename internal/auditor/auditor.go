// Package auditor classifies canonicalized invoices against a caller-supplied
// rule set: required fields, identity match, date window, amount logic, and
// format checks.
//
// Validation never throws for data quality. Every check runs unconditionally
// and appends findings, so a single Validate call reports every defect in one
// pass; the result carries a severity instead of a bare boolean.
package auditor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"invoice-audit-service/internal/models"
	"invoice-audit-service/pkg/logger"
)

// Severity summarizes a record's audit disposition.
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// FindingType identifies the rule a finding originates from.
type FindingType string

const (
	FindingMissingFields      FindingType = "missing_fields"
	FindingTaxIDMismatch      FindingType = "tax_id_mismatch"
	FindingInvalidDate        FindingType = "invalid_date"
	FindingDateOutOfRange     FindingType = "date_out_of_range"
	FindingDateBeforePeriod   FindingType = "date_before_period"
	FindingAmountLogicError   FindingType = "amount_logic_error"
	FindingBadInvoiceNoFormat FindingType = "invalid_invoice_no_format"
	FindingBadTaxIDFormat     FindingType = "invalid_tax_id_format"
	FindingBadDateFormat      FindingType = "invalid_date_format"
	FindingNegativeAmount     FindingType = "negative_amount"
)

// Finding is a single validation defect with a human-readable message and
// the values that triggered it.
type Finding struct {
	Type    FindingType            `json:"type"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Result is the outcome of validating one invoice. It is created fresh per
// Validate call and never mutated after return. Invoice is a copy of the
// input annotated with the diagnostic flags.
type Result struct {
	Valid    bool            `json:"valid"`
	Errors   []Finding       `json:"errors"`
	Warnings []Finding       `json:"warnings"`
	Severity Severity        `json:"severity"`
	Invoice  *models.Invoice `json:"invoice"`
}

// HasFinding reports whether the result carries a finding of the given type,
// as an error or a warning.
func (r *Result) HasFinding(t FindingType) bool {
	for _, f := range r.Errors {
		if f.Type == t {
			return true
		}
	}
	for _, f := range r.Warnings {
		if f.Type == t {
			return true
		}
	}
	return false
}

// Stats counts validation outcomes across all Validate calls on a validator.
type Stats struct {
	Total          int `json:"total"`
	Valid          int `json:"valid"`
	Invalid        int `json:"invalid"`
	TaxIDMismatch  int `json:"tax_id_mismatch"`
	DateOutOfRange int `json:"date_out_of_range"`
	AmountError    int `json:"amount_error"`
	MissingFields  int `json:"missing_fields"`
}

// Summary aggregates a batch of validation results.
type Summary struct {
	Total        int                 `json:"total"`
	Valid        int                 `json:"valid"`
	Invalid      int                 `json:"invalid"`
	WithWarnings int                 `json:"with_warnings"`
	WithErrors   int                 `json:"with_errors"`
	ByFinding    map[FindingType]int `json:"by_finding"`
}

// BatchResult is the output of ValidateBatch.
type BatchResult struct {
	Results []*Result `json:"results"`
	Summary Summary   `json:"summary"`
}

// Validator applies the configured audit rules to invoices. Validation is
// stateless per record; the only shared state is the running statistics,
// guarded by a mutex so batches may be validated concurrently.
type Validator struct {
	config *Config
	log    logger.Logger

	mu    sync.Mutex
	stats Stats
}

// NewValidator creates a validator for the given audit configuration. A nil
// config uses the defaults. A malformed configuration is rejected here, the
// only abort path in the audit core.
func NewValidator(config *Config) (*Validator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Validator{
		config: config.Clone(),
		log:    logger.GetGlobalLogger().WithComponent("auditor"),
	}, nil
}

// Validate classifies one invoice. Every check stage runs; none halts the
// rest. Strict mode is applied last, after severity resolution, so the
// escalated findings reflect the full pass.
func (v *Validator) Validate(inv *models.Invoice) *Result {
	result := &Result{
		Valid:    true,
		Errors:   []Finding{},
		Warnings: []Finding{},
		Severity: SeverityNone,
		Invoice:  inv.Clone(),
	}

	v.checkRequiredFields(result)
	v.checkTaxID(result)
	v.checkDatePeriod(result)
	v.checkAmountLogic(result)
	v.checkFormats(result)

	if len(result.Errors) > 0 {
		result.Valid = false
		result.Severity = SeverityError
	} else if len(result.Warnings) > 0 {
		result.Severity = SeverityWarning
	}

	if v.config.StrictMode && len(result.Warnings) > 0 {
		result.Valid = false
		result.Severity = SeverityError
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = []Finding{}
	}

	v.recordStats(result)

	v.log.WithFields(logger.Fields{
		"invoice":  result.Invoice.InvoiceNo,
		"severity": result.Severity,
		"errors":   len(result.Errors),
		"warnings": len(result.Warnings),
	}).Debug("Validated invoice")

	return result
}

// ValidateBatch validates records independently and aggregates counts by
// severity and by finding type. There is no cross-record computation beyond
// counting.
func (v *Validator) ValidateBatch(invoices []*models.Invoice) *BatchResult {
	results := make([]*Result, 0, len(invoices))
	for _, inv := range invoices {
		results = append(results, v.Validate(inv))
	}

	return &BatchResult{
		Results: results,
		Summary: Summarize(results),
	}
}

// Summarize aggregates validation results into batch counts. The counting is
// associative and order-independent, so results produced in any order combine
// to the same summary.
func Summarize(results []*Result) Summary {
	summary := Summary{ByFinding: make(map[FindingType]int)}

	for _, result := range results {
		summary.Total++
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		if len(result.Warnings) > 0 {
			summary.WithWarnings++
		}
		if len(result.Errors) > 0 {
			summary.WithErrors++
		}
		for _, f := range result.Errors {
			summary.ByFinding[f.Type]++
		}
		for _, f := range result.Warnings {
			summary.ByFinding[f.Type]++
		}
	}

	return summary
}

// Filter names for FilterResults.
const (
	FilterAll            = "all"
	FilterValid          = "valid"
	FilterInvalid        = "invalid"
	FilterWarnings       = "warnings"
	FilterErrors         = "errors"
	FilterTaxIDMismatch  = "tax_id_mismatch"
	FilterDateOutOfRange = "date_out_of_range"
	FilterAmountError    = "amount_error"
)

// FilterResults subsets validation results by outcome or finding category for
// downstream review tooling. An unknown filter returns the results unchanged.
func FilterResults(results []*Result, filter string) []*Result {
	keep := func(r *Result) bool { return true }

	switch filter {
	case FilterValid:
		keep = func(r *Result) bool { return r.Valid && len(r.Warnings) == 0 }
	case FilterInvalid:
		keep = func(r *Result) bool { return !r.Valid }
	case FilterWarnings:
		keep = func(r *Result) bool { return len(r.Warnings) > 0 }
	case FilterErrors:
		keep = func(r *Result) bool { return len(r.Errors) > 0 }
	case FilterTaxIDMismatch:
		keep = func(r *Result) bool { return r.Invoice.TaxIDMismatch }
	case FilterDateOutOfRange:
		keep = func(r *Result) bool { return r.Invoice.DateOutOfRange }
	case FilterAmountError:
		keep = func(r *Result) bool { return r.Invoice.AmountError }
	}

	filtered := make([]*Result, 0, len(results))
	for _, r := range results {
		if keep(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Stats returns a copy of the running validation statistics.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// ResetStats clears the running validation statistics.
func (v *Validator) ResetStats() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stats = Stats{}
}

// Config returns a copy of the validator configuration.
func (v *Validator) Config() *Config {
	return v.config.Clone()
}

func (v *Validator) recordStats(result *Result) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.stats.Total++
	if result.Valid {
		v.stats.Valid++
	} else {
		v.stats.Invalid++
	}
	if result.Invoice.TaxIDMismatch {
		v.stats.TaxIDMismatch++
	}
	if result.Invoice.DateOutOfRange {
		v.stats.DateOutOfRange++
	}
	if result.Invoice.AmountError {
		v.stats.AmountError++
	}
	if result.HasFinding(FindingMissingFields) {
		v.stats.MissingFields++
	}
}

// checkRequiredFields flags the absence of invoice number, date, tax
// identifier or gross total. Absence is always an error.
func (v *Validator) checkRequiredFields(result *Result) {
	missing := result.Invoice.MissingRequiredFields()
	if len(missing) == 0 {
		return
	}

	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.String()
	}

	result.Errors = append(result.Errors, Finding{
		Type:    FindingMissingFields,
		Message: fmt.Sprintf("missing required fields: %s", strings.Join(names, ", ")),
		Context: map[string]interface{}{"fields": names},
	})
}

// checkTaxID compares the invoice's tax identifier against the expected one.
// Runs only when an expected identifier is configured and the invoice carries
// one; absence is already reported by the required-field check.
func (v *Validator) checkTaxID(result *Result) {
	if v.config.ExpectedTaxID == "" || result.Invoice.TaxID == "" {
		return
	}

	expected := strings.TrimSpace(v.config.ExpectedTaxID)
	actual := strings.TrimSpace(result.Invoice.TaxID)
	if expected == actual {
		return
	}

	result.Errors = append(result.Errors, Finding{
		Type:    FindingTaxIDMismatch,
		Message: fmt.Sprintf("buyer tax ID mismatch: expected %s, got %s", expected, actual),
		Context: map[string]interface{}{"expected": expected, "actual": actual},
	})
	result.Invoice.TaxIDMismatch = true
}

// checkDatePeriod classifies the invoice date against the configured window.
// Dates after the window end are errors. Dates before the window start are
// warnings when AllowEarlierDate is set, errors otherwise; pre-period
// invoices are often back-filed rather than fraudulent.
func (v *Validator) checkDatePeriod(result *Result) {
	if !v.config.HasPeriod() || result.Invoice.Date == "" {
		return
	}

	date, err := time.Parse(dateLayout, result.Invoice.Date)
	if err != nil {
		result.Errors = append(result.Errors, Finding{
			Type:    FindingInvalidDate,
			Message: fmt.Sprintf("unparseable invoice date: %s", result.Invoice.Date),
			Context: map[string]interface{}{"date": result.Invoice.Date},
		})
		return
	}

	// Already validated by the configuration.
	start, _ := time.Parse(dateLayout, v.config.PeriodStart)
	end, _ := time.Parse(dateLayout, v.config.PeriodEnd)

	switch {
	case date.After(end):
		days := int(date.Sub(end).Hours() / 24)
		result.Errors = append(result.Errors, Finding{
			Type: FindingDateOutOfRange,
			Message: fmt.Sprintf("invoice date %s is %d day(s) after period end %s",
				result.Invoice.Date, days, v.config.PeriodEnd),
			Context: map[string]interface{}{
				"date":       result.Invoice.Date,
				"period_end": v.config.PeriodEnd,
				"days":       days,
			},
		})
		result.Invoice.DateOutOfRange = true
		result.Invoice.DateStatus = models.DateStatusAfterPeriod

	case date.Before(start):
		days := int(start.Sub(date).Hours() / 24)
		if !v.config.AllowEarlierDate {
			result.Errors = append(result.Errors, Finding{
				Type: FindingDateBeforePeriod,
				Message: fmt.Sprintf("invoice date %s is %d day(s) before period start %s",
					result.Invoice.Date, days, v.config.PeriodStart),
				Context: map[string]interface{}{
					"date":         result.Invoice.Date,
					"period_start": v.config.PeriodStart,
					"days":         days,
				},
			})
			result.Invoice.DateOutOfRange = true
			result.Invoice.DateStatus = models.DateStatusBeforePeriod
			return
		}
		result.Warnings = append(result.Warnings, Finding{
			Type: FindingDateBeforePeriod,
			Message: fmt.Sprintf("invoice date %s is %d day(s) before period start %s, possibly a back-filed invoice",
				result.Invoice.Date, days, v.config.PeriodStart),
			Context: map[string]interface{}{
				"date":         result.Invoice.Date,
				"period_start": v.config.PeriodStart,
				"days":         days,
			},
		})
		result.Invoice.DateStatus = models.DateStatusBeforePeriod

	default:
		result.Invoice.DateStatus = models.DateStatusInPeriod
	}
}

// checkAmountLogic verifies subtotal + tax against total when all three are
// present. Runs after reconciliation, so a variance here means the record's
// own figures disagree beyond tolerance.
func (v *Validator) checkAmountLogic(result *Result) {
	inv := result.Invoice
	if !inv.Subtotal.Valid || !inv.TaxAmount.Valid || !inv.Total.Valid {
		return
	}

	calculated := inv.Subtotal.Decimal.Add(inv.TaxAmount.Decimal)
	diff := calculated.Sub(inv.Total.Decimal).Abs()
	if !diff.GreaterThan(v.config.AmountTolerance) {
		return
	}

	result.Errors = append(result.Errors, Finding{
		Type: FindingAmountLogicError,
		Message: fmt.Sprintf("amount check failed: %s + %s = %s, total is %s (variance %s)",
			inv.Subtotal.Decimal, inv.TaxAmount.Decimal, calculated, inv.Total.Decimal, diff),
		Context: map[string]interface{}{
			"subtotal":   inv.Subtotal.Decimal.String(),
			"tax_amount": inv.TaxAmount.Decimal.String(),
			"total":      inv.Total.Decimal.String(),
			"calculated": calculated.String(),
			"variance":   diff.String(),
		},
	})
	result.Invoice.AmountError = true
}

// checkFormats applies the field format rules. Format anomalies are warnings
// since a malformed figure was already usable in arithmetic; a negative gross
// total is an error.
func (v *Validator) checkFormats(result *Result) {
	inv := result.Invoice

	if inv.InvoiceNo != "" && !models.ValidInvoiceNo(inv.InvoiceNo) {
		result.Warnings = append(result.Warnings, Finding{
			Type:    FindingBadInvoiceNoFormat,
			Message: fmt.Sprintf("unexpected invoice number format: %s (expected two letters and eight digits)", inv.InvoiceNo),
			Context: map[string]interface{}{"invoice_no": inv.InvoiceNo},
		})
	}

	if inv.TaxID != "" && !models.ValidTaxID(inv.TaxID) {
		result.Warnings = append(result.Warnings, Finding{
			Type:    FindingBadTaxIDFormat,
			Message: fmt.Sprintf("unexpected tax ID format: %s (expected eight digits)", inv.TaxID),
			Context: map[string]interface{}{"tax_id": inv.TaxID},
		})
	}

	if inv.Date != "" && !models.ValidDate(inv.Date) {
		result.Warnings = append(result.Warnings, Finding{
			Type:    FindingBadDateFormat,
			Message: fmt.Sprintf("unexpected date format: %s (expected YYYY-MM-DD)", inv.Date),
			Context: map[string]interface{}{"date": inv.Date},
		})
	}

	if inv.Total.Valid && inv.Total.Decimal.IsNegative() {
		result.Errors = append(result.Errors, Finding{
			Type:    FindingNegativeAmount,
			Message: fmt.Sprintf("gross total cannot be negative: %s", inv.Total.Decimal),
			Context: map[string]interface{}{"total": inv.Total.Decimal.String()},
		})
	}
}
