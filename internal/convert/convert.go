// Package convert parses raw OCR values into typed canonical field values.
//
// Conversion never returns an error: an unparseable value yields ok=false and
// the defect is reported later by the auditor as a data-quality finding. This
// keeps the mapping stage total over arbitrary OCR output.
package convert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"invoice-audit-service/internal/models"

	"github.com/shopspring/decimal"
)

// rocYearOffset converts a Republic-of-China era year to its Gregorian year.
const rocYearOffset = 1911

var (
	// Both date patterns are anchored so a 4-digit Gregorian year can never
	// be partially consumed by the 2-3 digit era-year pattern.
	rocDatePattern       = regexp.MustCompile(`^(\d{2,3})[/.年-](\d{1,2})[/.月-](\d{1,2})日?$`)
	gregorianDatePattern = regexp.MustCompile(`^(\d{4})[/.年-](\d{1,2})[/.月-](\d{1,2})日?$`)

	currencyMarkers = []string{"NT$", "￥", "¥", "$", "元"}
)

// Value converts a raw OCR value to the typed representation of the target
// field type. It returns ok=false (never an error) when the value cannot be
// parsed, deferring error reporting to the auditor.
func Value(raw interface{}, target models.FieldType) (models.TypedValue, bool) {
	if raw == nil {
		return nil, false
	}

	switch target {
	case models.FieldTypeText:
		return strings.TrimSpace(stringify(raw)), true
	case models.FieldTypeNumber:
		return Amount(stringify(raw))
	case models.FieldTypeDate:
		return Date(stringify(raw))
	case models.FieldTypeList:
		return toList(raw), true
	default:
		return nil, false
	}
}

// Amount cleans and parses a money string: thousands separators (half and
// full width) and known currency markers are stripped before the decimal
// parse. Non-finite or non-numeric input yields ok=false.
func Amount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "，", "")
	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount the way reports and round-tripping expect.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// Date parses an invoice date in either calendar: an ROC era date (2-3 digit
// era year, era year + 1911 = Gregorian year) is tried before a direct
// 4-digit Gregorian date. Accepted separators are / . - and the 年月日
// characters. The result is normalized to YYYY-MM-DD; no match or an
// impossible calendar date yields ok=false.
func Date(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := rocDatePattern.FindStringSubmatch(s); m != nil {
		year := mustAtoi(m[1]) + rocYearOffset
		return buildDate(year, mustAtoi(m[2]), mustAtoi(m[3]))
	}

	if m := gregorianDatePattern.FindStringSubmatch(s); m != nil {
		return buildDate(mustAtoi(m[1]), mustAtoi(m[2]), mustAtoi(m[3]))
	}

	return "", false
}

// buildDate normalizes the components and rejects impossible calendar dates
// (month 13, February 30) by round-tripping through time.Date.
func buildDate(year, month, day int) (string, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// toList wraps a scalar into a single-element list and passes arrays through
// unchanged, stringifying each element.
func toList(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, strings.TrimSpace(stringify(item)))
		}
		return items
	default:
		return []string{strings.TrimSpace(stringify(raw))}
	}
}

// stringify renders a raw OCR value as a string for parsing. JSON numbers
// arrive as float64; integral values must not pick up a spurious fraction.
func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", raw)
	}
}
