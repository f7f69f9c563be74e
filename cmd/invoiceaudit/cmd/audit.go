package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"invoice-audit-service/cmd/invoiceaudit/config"
	"invoice-audit-service/internal/processor"
	"invoice-audit-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the audit command
var (
	recordsFile     string
	mappingsFile    string
	expectedTaxID   string
	periodStart     string
	periodEnd       string
	allowEarlier    bool
	strictMode      bool
	amountTolerance float64
	minSimilarity   float64
	outputFormat    string
	outputFile      string
	includeValid    bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit a batch of OCR invoice records",
	Long: `Audit reads a JSON array of raw OCR records (label/value pairs, one
object per scanned invoice), canonicalizes the fields, completes the
monetary amounts and validates every record against the configured audit
rules.

Examples:
  # Basic audit of an OCR export
  invoiceaudit audit --records ocr.json

  # Check buyer tax ID and audit period
  invoiceaudit audit --records ocr.json --expected-tax-id 12345678 \
    --period-start 2024-11-01 --period-end 2024-12-31

  # Use learned label corrections and emit a CSV for review
  invoiceaudit audit --records ocr.json --mappings mappings.json \
    --output-format csv --output report.csv

  # Strict mode: every warning counts as an error
  invoiceaudit audit --records ocr.json --strict`,

	PreRunE: validateAuditFlags,
	RunE:    runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	// Input flags
	auditCmd.Flags().StringVarP(&recordsFile, "records", "r", "", "path to JSON file of raw OCR records (required)")
	auditCmd.Flags().StringVarP(&mappingsFile, "mappings", "m", "", "path to learned-mapping store (optional)")

	// Audit rule flags
	auditCmd.Flags().StringVar(&expectedTaxID, "expected-tax-id", "", "expected buyer tax ID (8 digits)")
	auditCmd.Flags().StringVar(&periodStart, "period-start", "", "audit period start (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&periodEnd, "period-end", "", "audit period end (YYYY-MM-DD)")
	auditCmd.Flags().BoolVar(&allowEarlier, "allow-earlier", true, "tolerate invoices dated before the period start as warnings")
	auditCmd.Flags().BoolVar(&strictMode, "strict", false, "treat all warnings as errors")
	auditCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 1.0, "accepted variance between subtotal+tax and total, in currency units")
	auditCmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0.70, "fuzzy label matching acceptance threshold (0.0-1.0)")

	// Output flags
	auditCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	auditCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: stdout)")
	auditCmd.Flags().BoolVar(&includeValid, "include-valid", false, "include clean records in console output")

	auditCmd.MarkFlagRequired("records")

	// Bind flags to viper
	viper.BindPFlag("records", auditCmd.Flags().Lookup("records"))
	viper.BindPFlag("mappings", auditCmd.Flags().Lookup("mappings"))
	viper.BindPFlag("expected-tax-id", auditCmd.Flags().Lookup("expected-tax-id"))
	viper.BindPFlag("period-start", auditCmd.Flags().Lookup("period-start"))
	viper.BindPFlag("period-end", auditCmd.Flags().Lookup("period-end"))
	viper.BindPFlag("allow-earlier", auditCmd.Flags().Lookup("allow-earlier"))
	viper.BindPFlag("strict", auditCmd.Flags().Lookup("strict"))
	viper.BindPFlag("amount-tolerance", auditCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("min-similarity", auditCmd.Flags().Lookup("min-similarity"))
	viper.BindPFlag("output-format", auditCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output", auditCmd.Flags().Lookup("output"))
	viper.BindPFlag("include-valid", auditCmd.Flags().Lookup("include-valid"))
}

func validateAuditFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	recordsFile = viper.GetString("records")
	mappingsFile = viper.GetString("mappings")
	expectedTaxID = viper.GetString("expected-tax-id")
	periodStart = viper.GetString("period-start")
	periodEnd = viper.GetString("period-end")
	allowEarlier = viper.GetBool("allow-earlier")
	strictMode = viper.GetBool("strict")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	minSimilarity = viper.GetFloat64("min-similarity")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output")
	includeValid = viper.GetBool("include-valid")

	if recordsFile == "" {
		return fmt.Errorf("records file is required")
	}
	if err := validateFileExists(recordsFile, "records file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if periodStart != "" {
		if _, err := time.Parse("2006-01-02", periodStart); err != nil {
			return fmt.Errorf("invalid period start format. Use YYYY-MM-DD: %w", err)
		}
	}
	if periodEnd != "" {
		if _, err := time.Parse("2006-01-02", periodEnd); err != nil {
			return fmt.Errorf("invalid period end format. Use YYYY-MM-DD: %w", err)
		}
	}
	if (periodStart == "") != (periodEnd == "") {
		return fmt.Errorf("period-start and period-end must be given together")
	}
	if periodStart != "" && periodStart > periodEnd {
		return fmt.Errorf("period start cannot be after period end")
	}

	if amountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if minSimilarity < 0 || minSimilarity > 1 {
		return fmt.Errorf("min similarity must be between 0.0 and 1.0")
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	auditConfig := config.CreateAuditConfig(expectedTaxID, periodStart, periodEnd,
		allowEarlier, strictMode, amountTolerance)
	processorConfig := config.CreateProcessorConfig(auditConfig, minSimilarity)

	store, err := config.OpenLearnedStore(mappingsFile)
	if err != nil {
		return err
	}

	pipeline, err := processor.NewPipeline(processorConfig, store)
	if err != nil {
		return err
	}

	records, err := config.LoadRecords(recordsFile)
	if err != nil {
		return err
	}

	batch, err := pipeline.ProcessBatch(records)
	if err != nil {
		return err
	}

	generator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat, includeValid))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := generator.GenerateReport(batch, out); err != nil {
		return err
	}

	if outputFile != "" && viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
	}

	return nil
}
