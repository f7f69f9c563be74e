package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanonicalFieldString(t *testing.T) {
	tests := []struct {
		field    CanonicalField
		expected string
	}{
		{FieldInvoiceNo, "invoiceNo"},
		{FieldDate, "date"},
		{FieldTaxID, "taxId"},
		{FieldSeller, "seller"},
		{FieldBuyer, "buyer"},
		{FieldSubtotal, "subtotal"},
		{FieldTaxAmount, "taxAmount"},
		{FieldTotal, "total"},
		{FieldItems, "items"},
		{CanonicalField(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.field.String(); got != tt.expected {
			t.Errorf("String() = %q, expected %q", got, tt.expected)
		}
	}
}

func TestParseCanonicalField(t *testing.T) {
	for _, f := range AllFields() {
		parsed, err := ParseCanonicalField(f.String())
		if err != nil {
			t.Fatalf("ParseCanonicalField(%q) failed: %v", f.String(), err)
		}
		if parsed != f {
			t.Errorf("ParseCanonicalField(%q) = %v, expected %v", f.String(), parsed, f)
		}
	}

	if _, err := ParseCanonicalField("nonsense"); err == nil {
		t.Error("Expected error for unknown field name")
	}
}

func TestCanonicalFieldJSON(t *testing.T) {
	data, err := json.Marshal(FieldTaxID)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"taxId"` {
		t.Errorf("Marshal = %s, expected \"taxId\"", data)
	}

	var f CanonicalField
	if err := json.Unmarshal([]byte(`"subtotal"`), &f); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if f != FieldSubtotal {
		t.Errorf("Unmarshal = %v, expected FieldSubtotal", f)
	}

	if err := json.Unmarshal([]byte(`"bogus"`), &f); err == nil {
		t.Error("Expected error for unknown field name")
	}
}

func TestRequiredFields(t *testing.T) {
	required := RequiredFields()
	expected := []CanonicalField{FieldInvoiceNo, FieldDate, FieldTaxID, FieldTotal}

	if len(required) != len(expected) {
		t.Fatalf("Expected %d required fields, got %d", len(expected), len(required))
	}
	for i, f := range expected {
		if required[i] != f {
			t.Errorf("RequiredFields()[%d] = %v, expected %v", i, required[i], f)
		}
	}
}

func TestFieldValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(TypedValue) bool
		value    TypedValue
		expected bool
	}{
		{"valid invoice no", ValidInvoiceNo, "AB12345678", true},
		{"lowercase invoice no", ValidInvoiceNo, "ab12345678", true},
		{"short invoice no", ValidInvoiceNo, "A12345678", false},
		{"invoice no wrong type", ValidInvoiceNo, 42, false},
		{"valid tax id", ValidTaxID, "12345678", true},
		{"short tax id", ValidTaxID, "1234567", false},
		{"tax id with letters", ValidTaxID, "1234567a", false},
		{"valid date", ValidDate, "2024-01-15", true},
		{"unnormalized date", ValidDate, "113/01/15", false},
		{"zero amount", ValidAmount, decimal.Zero, true},
		{"positive amount", ValidAmount, decimal.NewFromInt(100), true},
		{"negative amount", ValidAmount, decimal.NewFromInt(-1), false},
		{"amount wrong type", ValidAmount, "100", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.validate(tt.value); got != tt.expected {
				t.Errorf("validator(%v) = %t, expected %t", tt.value, got, tt.expected)
			}
		})
	}
}

func TestInvoiceSetAndHasField(t *testing.T) {
	inv := &Invoice{}

	inv.SetField(FieldInvoiceNo, "AB12345678")
	inv.SetField(FieldTotal, decimal.NewFromInt(10500))
	inv.SetField(FieldItems, []string{"品項A"})

	if !inv.HasField(FieldInvoiceNo) || inv.InvoiceNo != "AB12345678" {
		t.Error("Expected invoice number to be set")
	}
	if !inv.HasField(FieldTotal) || !inv.Total.Decimal.Equal(decimal.NewFromInt(10500)) {
		t.Error("Expected total to be set")
	}
	if !inv.HasField(FieldItems) {
		t.Error("Expected items to be set")
	}
	if inv.HasField(FieldSubtotal) {
		t.Error("Subtotal should be absent")
	}

	// Zero is a present value, distinct from absence.
	inv.SetField(FieldSubtotal, decimal.Zero)
	if !inv.HasField(FieldSubtotal) {
		t.Error("Zero subtotal should count as present")
	}
}

func TestMissingRequiredFields(t *testing.T) {
	inv := &Invoice{InvoiceNo: "AB12345678", Date: "2024-01-15"}

	missing := inv.MissingRequiredFields()
	expected := []CanonicalField{FieldTaxID, FieldTotal}

	if len(missing) != len(expected) {
		t.Fatalf("Expected %d missing fields, got %d", len(expected), len(missing))
	}
	for i, f := range expected {
		if missing[i] != f {
			t.Errorf("missing[%d] = %v, expected %v", i, missing[i], f)
		}
	}
}

func TestInvoiceClone(t *testing.T) {
	inv := &Invoice{
		InvoiceNo: "AB12345678",
		Items:     []string{"品項A"},
		Total:     decimal.NewNullDecimal(decimal.NewFromInt(10500)),
		Reconciliation: &ReconciliationOutcome{
			Method:   "total_only",
			Derived:  []CanonicalField{FieldSubtotal, FieldTaxAmount},
			Warnings: []string{"w"},
		},
	}

	cp := inv.Clone()
	cp.Items[0] = "changed"
	cp.Reconciliation.Warnings[0] = "changed"
	cp.TaxIDMismatch = true

	if inv.Items[0] != "品項A" {
		t.Error("Clone should not share the items slice")
	}
	if inv.Reconciliation.Warnings[0] != "w" {
		t.Error("Clone should not share the reconciliation outcome")
	}
	if inv.TaxIDMismatch {
		t.Error("Clone should not share flags")
	}
}

func TestRawFieldsSortedLabels(t *testing.T) {
	raw := RawFields{"b": 1, "a": 2, "c": 3}
	labels := raw.SortedLabels()
	expected := []string{"a", "b", "c"}
	for i, l := range expected {
		if labels[i] != l {
			t.Errorf("labels[%d] = %q, expected %q", i, labels[i], l)
		}
	}
}
