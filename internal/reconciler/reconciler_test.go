package reconciler

import (
	"testing"

	"invoice-audit-service/internal/models"

	"github.com/shopspring/decimal"
)

func createTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func amount(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestNewEngine(t *testing.T) {
	engine := createTestEngine(t)
	if !engine.Config().TaxRate.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("Expected default tax rate 0.05, got %s", engine.Config().TaxRate)
	}

	bad := &Config{TaxRate: decimal.NewFromFloat(-0.05), Tolerance: decimal.NewFromInt(1)}
	if _, err := NewEngine(bad); err == nil {
		t.Error("Expected error for negative tax rate")
	}
}

func TestReconcileTotalOnly(t *testing.T) {
	engine := createTestEngine(t)

	inv := &models.Invoice{Total: amount(10500)}
	outcome := engine.Reconcile(inv)

	if outcome.Method != MethodTotalOnly {
		t.Fatalf("Expected method total_only, got %s", outcome.Method)
	}
	if !inv.Subtotal.Valid || !inv.Subtotal.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Subtotal = %v, expected 10000", inv.Subtotal)
	}
	if !inv.TaxAmount.Valid || !inv.TaxAmount.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("TaxAmount = %v, expected 500", inv.TaxAmount)
	}
	if len(outcome.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", outcome.Warnings)
	}
	if !outcome.TotalOnly || !outcome.Calculated {
		t.Error("Expected TotalOnly and Calculated to be set")
	}
	if len(outcome.Derived) != 2 {
		t.Errorf("Expected two derived fields, got %v", outcome.Derived)
	}
	if inv.Reconciliation != outcome {
		t.Error("Outcome should be attached to the invoice")
	}
}

func TestReconcileTotalOnlyRounding(t *testing.T) {
	engine := createTestEngine(t)

	tests := []struct {
		total    int64
		subtotal int64
		tax      int64
	}{
		{10500, 10000, 500},
		{1000, 952, 48},
		{105, 100, 5},
		{100, 95, 5},
		{1, 1, 0},
	}

	for _, tt := range tests {
		inv := &models.Invoice{Total: amount(tt.total)}
		engine.Reconcile(inv)

		if !inv.Subtotal.Decimal.Equal(decimal.NewFromInt(tt.subtotal)) {
			t.Errorf("total %d: subtotal = %s, expected %d", tt.total, inv.Subtotal.Decimal, tt.subtotal)
		}
		if !inv.TaxAmount.Decimal.Equal(decimal.NewFromInt(tt.tax)) {
			t.Errorf("total %d: tax = %s, expected %d", tt.total, inv.TaxAmount.Decimal, tt.tax)
		}

		variance := inv.Subtotal.Decimal.Add(inv.TaxAmount.Decimal).Sub(inv.Total.Decimal).Abs()
		tolerated := !variance.GreaterThan(decimal.NewFromInt(1))
		if tolerated == (len(inv.Reconciliation.Warnings) > 0) {
			t.Errorf("total %d: variance %s, warnings %v", tt.total, variance, inv.Reconciliation.Warnings)
		}
	}
}

func TestReconcileCalcTax(t *testing.T) {
	engine := createTestEngine(t)

	inv := &models.Invoice{Subtotal: amount(10000), Total: amount(10500)}
	outcome := engine.Reconcile(inv)

	if outcome.Method != MethodCalcTax {
		t.Fatalf("Expected method calc_tax, got %s", outcome.Method)
	}
	if !inv.TaxAmount.Valid || !inv.TaxAmount.Decimal.Equal(decimal.NewFromInt(500)) {
		t.Errorf("TaxAmount = %v, expected 500", inv.TaxAmount)
	}
	if !inv.Subtotal.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Error("Present subtotal must not be overwritten")
	}
	if len(outcome.Derived) != 1 || outcome.Derived[0] != models.FieldTaxAmount {
		t.Errorf("Derived = %v, expected [taxAmount]", outcome.Derived)
	}
}

func TestReconcileCalcSubtotal(t *testing.T) {
	engine := createTestEngine(t)

	inv := &models.Invoice{TaxAmount: amount(500), Total: amount(10500)}
	outcome := engine.Reconcile(inv)

	if outcome.Method != MethodCalcSubtotal {
		t.Fatalf("Expected method calc_subtotal, got %s", outcome.Method)
	}
	if !inv.Subtotal.Valid || !inv.Subtotal.Decimal.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Subtotal = %v, expected 10000", inv.Subtotal)
	}
}

func TestReconcileValidate(t *testing.T) {
	engine := createTestEngine(t)

	// Consistent within tolerance: variance of exactly 1 is accepted.
	inv := &models.Invoice{Subtotal: amount(10000), TaxAmount: amount(499), Total: amount(10500)}
	outcome := engine.Reconcile(inv)

	if outcome.Method != MethodValidate {
		t.Fatalf("Expected method validate, got %s", outcome.Method)
	}
	if len(outcome.Warnings) != 0 {
		t.Errorf("Variance 1 should be tolerated, got %v", outcome.Warnings)
	}
	if !outcome.Variance.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Variance = %s, expected 1", outcome.Variance)
	}

	// Beyond tolerance: a warning here, escalation is the auditor's job.
	inv = &models.Invoice{Subtotal: amount(10000), TaxAmount: amount(400), Total: amount(10500)}
	outcome = engine.Reconcile(inv)

	if len(outcome.Warnings) != 1 {
		t.Fatalf("Expected one warning, got %v", outcome.Warnings)
	}
	if outcome.Calculated {
		t.Error("Validation scenario should not report Calculated")
	}
	if !inv.Subtotal.Decimal.Equal(decimal.NewFromInt(10000)) ||
		!inv.TaxAmount.Decimal.Equal(decimal.NewFromInt(400)) {
		t.Error("Present amounts must not be modified")
	}
}

func TestReconcileInsufficient(t *testing.T) {
	engine := createTestEngine(t)

	tests := []struct {
		name string
		inv  *models.Invoice
	}{
		{"no amounts", &models.Invoice{}},
		{"subtotal only", &models.Invoice{Subtotal: amount(10000)}},
		{"tax only", &models.Invoice{TaxAmount: amount(500)}},
		{"subtotal and tax without total", &models.Invoice{Subtotal: amount(10000), TaxAmount: amount(500)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := engine.Reconcile(tt.inv)
			if outcome.Method != MethodInsufficient {
				t.Errorf("Expected method insufficient, got %s", outcome.Method)
			}
			if len(outcome.Warnings) != 1 {
				t.Errorf("Expected one warning, got %v", outcome.Warnings)
			}
			if tt.inv.Total.Valid {
				t.Error("No field should be derived")
			}
		})
	}
}

func TestReconcileZeroTotal(t *testing.T) {
	engine := createTestEngine(t)

	// Zero is a present amount, not an absent one.
	inv := &models.Invoice{Total: amount(0)}
	outcome := engine.Reconcile(inv)

	if outcome.Method != MethodTotalOnly {
		t.Fatalf("Expected method total_only, got %s", outcome.Method)
	}
	if !inv.Subtotal.Decimal.IsZero() || !inv.TaxAmount.Decimal.IsZero() {
		t.Errorf("Expected zero split, got %s / %s", inv.Subtotal.Decimal, inv.TaxAmount.Decimal)
	}
}
