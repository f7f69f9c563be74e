// Package reporter renders batch audit results for review.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured output for programmatic consumption
//   - CSV: one row per record for spreadsheet applications
//
// The reporter performs no validation logic of its own; it reads the finding
// lists and diagnostic flags the auditor produced.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"invoice-audit-service/internal/auditor"
	"invoice-audit-service/internal/processor"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds report generation options.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail options
	IncludeValidRecords   bool `json:"include_valid_records"`
	IncludeUnmappedFields bool `json:"include_unmapped_fields"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns the default report configuration: console
// output, defective records only, unmapped fields included.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                FormatConsole,
		IncludeValidRecords:   false,
		IncludeUnmappedFields: true,
		CSVDelimiter:          ',',
		CSVHeaders:            true,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.CSVDelimiter == 0 {
		return fmt.Errorf("csv delimiter cannot be empty")
	}
	return nil
}

// ReportGenerator renders batch audit results.
type ReportGenerator struct {
	config *ReportConfig
	now    func() time.Time
}

// NewReportGenerator creates a report generator with the given configuration.
// A nil config uses the defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
		now:    time.Now,
	}, nil
}

// GenerateReport renders the batch result to the writer in the configured
// format.
func (rg *ReportGenerator) GenerateReport(batch *processor.BatchResult, writer io.Writer) error {
	if batch == nil {
		return fmt.Errorf("batch result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(batch, writer)
	case FormatJSON:
		return rg.generateJSONReport(batch, writer)
	case FormatCSV:
		return rg.generateCSVReport(batch, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(batch *processor.BatchResult, writer io.Writer) error {
	fmt.Fprintf(writer, "INVOICE AUDIT REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", rg.now().Format(time.RFC3339))

	summary := batch.Summary

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Records:\n")
	fmt.Fprintf(writer, "  Total:         %d\n", summary.Total)
	fmt.Fprintf(writer, "  Valid:         %d\n", summary.Valid)
	fmt.Fprintf(writer, "  Invalid:       %d\n", summary.Invalid)
	fmt.Fprintf(writer, "  With warnings: %d\n", summary.WithWarnings)
	fmt.Fprintf(writer, "  With errors:   %d\n\n", summary.WithErrors)

	if len(summary.ByFinding) > 0 {
		fmt.Fprintf(writer, "=== FINDING BREAKDOWN ===\n")
		for _, ft := range sortedFindingTypes(summary.ByFinding) {
			fmt.Fprintf(writer, "  %-28s %d\n", ft, summary.ByFinding[ft])
		}
		fmt.Fprintf(writer, "\n")
	}

	fmt.Fprintf(writer, "=== RECORDS ===\n")
	for _, rec := range batch.Records {
		if !rg.includeRecord(rec) {
			continue
		}
		rg.printRecord(rec, writer)
	}

	return nil
}

func (rg *ReportGenerator) includeRecord(rec *processor.Record) bool {
	if rg.config.IncludeValidRecords {
		return true
	}
	return rec.Audit.Severity != auditor.SeverityNone || len(rec.Mapping.Unmapped) > 0
}

func (rg *ReportGenerator) printRecord(rec *processor.Record, writer io.Writer) {
	inv := rec.Audit.Invoice
	fmt.Fprintf(writer, "[%d] %s  date=%s  taxId=%s  total=%s  severity=%s\n",
		rec.Index, orDash(inv.InvoiceNo), orDash(inv.Date), orDash(inv.TaxID),
		amountString(inv.Total), rec.Audit.Severity)

	for _, f := range rec.Audit.Errors {
		fmt.Fprintf(writer, "    error:   [%s] %s\n", f.Type, f.Message)
	}
	for _, f := range rec.Audit.Warnings {
		fmt.Fprintf(writer, "    warning: [%s] %s\n", f.Type, f.Message)
	}
	if inv.Reconciliation != nil {
		for _, w := range inv.Reconciliation.Warnings {
			fmt.Fprintf(writer, "    reconciliation: %s\n", w)
		}
	}

	if rg.config.IncludeUnmappedFields {
		for _, u := range rec.Mapping.Unmapped {
			fmt.Fprintf(writer, "    unmapped: %q = %v (%s)\n", u.Label, u.Value, u.Reason)
		}
	}
}

func (rg *ReportGenerator) generateJSONReport(batch *processor.BatchResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(batch)
}

func (rg *ReportGenerator) generateCSVReport(batch *processor.BatchResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"Index",
			"Invoice_No",
			"Date",
			"Tax_ID",
			"Seller",
			"Buyer",
			"Subtotal",
			"Tax_Amount",
			"Total",
			"Reconciliation_Method",
			"Severity",
			"Valid",
			"Findings",
			"Unmapped_Labels",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, rec := range batch.Records {
		inv := rec.Audit.Invoice

		var findings []string
		for _, f := range rec.Audit.Errors {
			findings = append(findings, string(f.Type))
		}
		for _, f := range rec.Audit.Warnings {
			findings = append(findings, string(f.Type))
		}

		var unmapped []string
		for _, u := range rec.Mapping.Unmapped {
			unmapped = append(unmapped, u.Label)
		}

		method := ""
		if inv.Reconciliation != nil {
			method = inv.Reconciliation.Method
		}

		row := []string{
			fmt.Sprintf("%d", rec.Index),
			inv.InvoiceNo,
			inv.Date,
			inv.TaxID,
			inv.Seller,
			inv.Buyer,
			amountString(inv.Subtotal),
			amountString(inv.TaxAmount),
			amountString(inv.Total),
			method,
			string(rec.Audit.Severity),
			fmt.Sprintf("%t", rec.Audit.Valid),
			strings.Join(findings, "; "),
			strings.Join(unmapped, "; "),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write record row: %w", err)
		}
	}

	return nil
}

func sortedFindingTypes(counts map[auditor.FindingType]int) []auditor.FindingType {
	types := make([]auditor.FindingType, 0, len(counts))
	for ft := range counts {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func amountString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
