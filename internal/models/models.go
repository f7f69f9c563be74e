// Package models defines the canonical invoice schema shared by every stage of
// the audit pipeline: the closed set of canonical fields, the typed Invoice
// record, and the transient outcome types produced by mapping and
// reconciliation.
//
// The canonical field set is deliberately a closed enumeration rather than a
// map of field-name strings. Matching, conversion and reconciliation all
// dispatch on CanonicalField values, so an unknown field name cannot leak past
// the serialization boundary (ParseCanonicalField / String).
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/shopspring/decimal"
)

// FieldType describes the value type a canonical field carries after
// conversion.
type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
	FieldTypeList   FieldType = "list"
)

// CanonicalField identifies one attribute of the canonical invoice schema.
// The declaration order is significant: fuzzy-match ties are broken by the
// first field in this order, which keeps matching deterministic.
type CanonicalField int

const (
	FieldInvoiceNo CanonicalField = iota
	FieldDate
	FieldTaxID
	FieldSeller
	FieldBuyer
	FieldSubtotal
	FieldTaxAmount
	FieldTotal
	FieldItems

	numFields
)

var fieldNames = [numFields]string{
	FieldInvoiceNo: "invoiceNo",
	FieldDate:      "date",
	FieldTaxID:     "taxId",
	FieldSeller:    "seller",
	FieldBuyer:     "buyer",
	FieldSubtotal:  "subtotal",
	FieldTaxAmount: "taxAmount",
	FieldTotal:     "total",
	FieldItems:     "items",
}

// String returns the serialized name of the field, as used in learned-mapping
// persistence and report output.
func (f CanonicalField) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// IsValid checks if the field is a member of the canonical set.
func (f CanonicalField) IsValid() bool {
	return f >= 0 && f < numFields
}

// ParseCanonicalField resolves a serialized field name back to its enum value.
func ParseCanonicalField(name string) (CanonicalField, error) {
	for f, n := range fieldNames {
		if n == name {
			return CanonicalField(f), nil
		}
	}
	return 0, fmt.Errorf("unknown canonical field: %q", name)
}

// AllFields returns every canonical field in declaration order.
func AllFields() []CanonicalField {
	fields := make([]CanonicalField, numFields)
	for i := range fields {
		fields[i] = CanonicalField(i)
	}
	return fields
}

// MarshalJSON serializes the field by name.
func (f CanonicalField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON parses a field from its serialized name.
func (f *CanonicalField) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseCanonicalField(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// TypedValue is a converted field value: string for text and date fields,
// decimal.Decimal for number fields, []string for list fields.
type TypedValue = interface{}

// FieldSpec carries the static metadata of a canonical field: whether it is
// required on a complete invoice, its value type, and an optional format
// validator applied after conversion.
type FieldSpec struct {
	Required bool
	Type     FieldType
	Validate func(TypedValue) bool
}

var (
	invoiceNoPattern = regexp.MustCompile(`^[A-Za-z]{2}\d{8}$`)
	taxIDPattern     = regexp.MustCompile(`^\d{8}$`)
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidInvoiceNo reports whether the value matches the two-letters plus
// eight-digits invoice number format.
func ValidInvoiceNo(v TypedValue) bool {
	s, ok := v.(string)
	return ok && invoiceNoPattern.MatchString(s)
}

// ValidTaxID reports whether the value is an eight-digit tax identifier.
func ValidTaxID(v TypedValue) bool {
	s, ok := v.(string)
	return ok && taxIDPattern.MatchString(s)
}

// ValidDate reports whether the value is a normalized YYYY-MM-DD date string.
func ValidDate(v TypedValue) bool {
	s, ok := v.(string)
	return ok && datePattern.MatchString(s)
}

// ValidAmount reports whether the value is a non-negative decimal amount.
func ValidAmount(v TypedValue) bool {
	d, ok := v.(decimal.Decimal)
	return ok && !d.IsNegative()
}

// fieldSpecs is the validator function table indexed by canonical field.
var fieldSpecs = [numFields]FieldSpec{
	FieldInvoiceNo: {Required: true, Type: FieldTypeText, Validate: ValidInvoiceNo},
	FieldDate:      {Required: true, Type: FieldTypeDate, Validate: ValidDate},
	FieldTaxID:     {Required: true, Type: FieldTypeText, Validate: ValidTaxID},
	FieldSeller:    {Required: false, Type: FieldTypeText},
	FieldBuyer:     {Required: false, Type: FieldTypeText},
	FieldSubtotal:  {Required: false, Type: FieldTypeNumber, Validate: ValidAmount},
	FieldTaxAmount: {Required: false, Type: FieldTypeNumber, Validate: ValidAmount},
	FieldTotal:     {Required: true, Type: FieldTypeNumber, Validate: ValidAmount},
	FieldItems:     {Required: false, Type: FieldTypeList},
}

// Spec returns the static metadata for the field.
func (f CanonicalField) Spec() FieldSpec {
	if !f.IsValid() {
		return FieldSpec{}
	}
	return fieldSpecs[f]
}

// RequiredFields returns the canonical fields that must be present on a
// complete invoice, in declaration order.
func RequiredFields() []CanonicalField {
	var required []CanonicalField
	for _, f := range AllFields() {
		if f.Spec().Required {
			required = append(required, f)
		}
	}
	return required
}

// RawFields is an OCR record: raw label strings mapped to raw scalar or list
// values. There is no ordering guarantee on the labels; SortedLabels gives a
// deterministic processing order.
type RawFields map[string]interface{}

// SortedLabels returns the raw labels in lexicographic order.
func (r RawFields) SortedLabels() []string {
	labels := make([]string, 0, len(r))
	for label := range r {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// MatchMethod records how a raw label was resolved to a canonical field.
type MatchMethod string

const (
	MatchLearned MatchMethod = "learned"
	MatchExact   MatchMethod = "exact"
	MatchFuzzy   MatchMethod = "fuzzy"
	MatchNone    MatchMethod = "unmatched"
)

// MappingOutcome is the per-label result of field matching.
type MappingOutcome struct {
	Field      CanonicalField `json:"field"`
	Matched    bool           `json:"matched"`
	Confidence float64        `json:"confidence"`
	Method     MatchMethod    `json:"method"`
}

// UnmappedReason explains why a raw pair could not be mapped.
type UnmappedReason string

const (
	ReasonNoMatch          UnmappedReason = "no_match"
	ReasonValidationFailed UnmappedReason = "validation_failed"
)

// UnmappedField retains a raw pair that could not be resolved to a canonical
// field, for caller review. Unmapped pairs are never silently dropped.
type UnmappedField struct {
	Label  string         `json:"label"`
	Value  interface{}    `json:"value"`
	Reason UnmappedReason `json:"reason"`
}

// DateStatus classifies an invoice date against a configured audit window.
type DateStatus string

const (
	DateStatusUnchecked    DateStatus = ""
	DateStatusBeforePeriod DateStatus = "before_period"
	DateStatusInPeriod     DateStatus = "in_period"
	DateStatusAfterPeriod  DateStatus = "after_period"
)

// ReconciliationOutcome records what the amount reconciliation engine did to
// an invoice: which fields it derived, the scenario it applied, and any
// consistency warning with its numeric variance. It is attached to the
// invoice and never discarded.
type ReconciliationOutcome struct {
	Method     string           `json:"method"`
	Derived    []CanonicalField `json:"derived,omitempty"`
	Calculated bool             `json:"calculated"`
	TotalOnly  bool             `json:"total_only"`
	Warnings   []string         `json:"warnings,omitempty"`
	Variance   decimal.Decimal  `json:"variance"`
}

// HasWarnings reports whether the reconciliation produced any warnings.
func (o *ReconciliationOutcome) HasWarnings() bool {
	return o != nil && len(o.Warnings) > 0
}

// Invoice is the canonical record produced by mapping and reconciliation and
// consumed by the auditor. Text fields use the empty string for absence; the
// three monetary fields use decimal.NullDecimal so absent and zero amounts
// stay distinguishable.
//
// The diagnostic flags (TaxIDMismatch, DateOutOfRange, DateStatus,
// AmountError) are set only by the auditor, on its annotated copy of the
// record.
type Invoice struct {
	InvoiceNo string   `json:"invoiceNo,omitempty"`
	Date      string   `json:"date,omitempty"`
	TaxID     string   `json:"taxId,omitempty"`
	Seller    string   `json:"seller,omitempty"`
	Buyer     string   `json:"buyer,omitempty"`
	Items     []string `json:"items,omitempty"`

	Subtotal  decimal.NullDecimal `json:"subtotal"`
	TaxAmount decimal.NullDecimal `json:"taxAmount"`
	Total     decimal.NullDecimal `json:"total"`

	TaxIDMismatch  bool       `json:"taxIdMismatch,omitempty"`
	DateOutOfRange bool       `json:"dateOutOfRange,omitempty"`
	DateStatus     DateStatus `json:"dateStatus,omitempty"`
	AmountError    bool       `json:"amountError,omitempty"`

	Reconciliation *ReconciliationOutcome `json:"reconciliation,omitempty"`
}

// NewInvoiceFromFields builds an invoice from converted canonical field
// values, as produced by the field mapper.
func NewInvoiceFromFields(fields map[CanonicalField]TypedValue) *Invoice {
	inv := &Invoice{}
	for f, v := range fields {
		inv.SetField(f, v)
	}
	return inv
}

// SetField assigns a converted value to the corresponding invoice attribute.
// Values of the wrong dynamic type are ignored; conversion guarantees the
// type ahead of this call.
func (inv *Invoice) SetField(f CanonicalField, v TypedValue) {
	switch f {
	case FieldInvoiceNo:
		if s, ok := v.(string); ok {
			inv.InvoiceNo = s
		}
	case FieldDate:
		if s, ok := v.(string); ok {
			inv.Date = s
		}
	case FieldTaxID:
		if s, ok := v.(string); ok {
			inv.TaxID = s
		}
	case FieldSeller:
		if s, ok := v.(string); ok {
			inv.Seller = s
		}
	case FieldBuyer:
		if s, ok := v.(string); ok {
			inv.Buyer = s
		}
	case FieldSubtotal:
		if d, ok := v.(decimal.Decimal); ok {
			inv.Subtotal = decimal.NewNullDecimal(d)
		}
	case FieldTaxAmount:
		if d, ok := v.(decimal.Decimal); ok {
			inv.TaxAmount = decimal.NewNullDecimal(d)
		}
	case FieldTotal:
		if d, ok := v.(decimal.Decimal); ok {
			inv.Total = decimal.NewNullDecimal(d)
		}
	case FieldItems:
		if l, ok := v.([]string); ok {
			inv.Items = l
		}
	}
}

// HasField reports whether the invoice carries a value for the field.
func (inv *Invoice) HasField(f CanonicalField) bool {
	switch f {
	case FieldInvoiceNo:
		return inv.InvoiceNo != ""
	case FieldDate:
		return inv.Date != ""
	case FieldTaxID:
		return inv.TaxID != ""
	case FieldSeller:
		return inv.Seller != ""
	case FieldBuyer:
		return inv.Buyer != ""
	case FieldSubtotal:
		return inv.Subtotal.Valid
	case FieldTaxAmount:
		return inv.TaxAmount.Valid
	case FieldTotal:
		return inv.Total.Valid
	case FieldItems:
		return len(inv.Items) > 0
	default:
		return false
	}
}

// MissingRequiredFields returns the required canonical fields absent from the
// invoice, in declaration order.
func (inv *Invoice) MissingRequiredFields() []CanonicalField {
	var missing []CanonicalField
	for _, f := range RequiredFields() {
		if !inv.HasField(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone returns a deep copy of the invoice. The auditor annotates the copy so
// the caller's record stays untouched.
func (inv *Invoice) Clone() *Invoice {
	cp := *inv
	if inv.Items != nil {
		cp.Items = append([]string(nil), inv.Items...)
	}
	if inv.Reconciliation != nil {
		rc := *inv.Reconciliation
		if inv.Reconciliation.Derived != nil {
			rc.Derived = append([]CanonicalField(nil), inv.Reconciliation.Derived...)
		}
		if inv.Reconciliation.Warnings != nil {
			rc.Warnings = append([]string(nil), inv.Reconciliation.Warnings...)
		}
		cp.Reconciliation = &rc
	}
	return &cp
}

// String returns a short representation for logging.
func (inv *Invoice) String() string {
	total := "absent"
	if inv.Total.Valid {
		total = inv.Total.Decimal.String()
	}
	return fmt.Sprintf("Invoice{No: %s, Date: %s, TaxID: %s, Total: %s}",
		inv.InvoiceNo, inv.Date, inv.TaxID, total)
}
