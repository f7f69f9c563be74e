package config

import (
	"os"
	"path/filepath"
	"testing"

	"invoice-audit-service/internal/reporter"

	"github.com/shopspring/decimal"
)

func TestCreateAuditConfig(t *testing.T) {
	config := CreateAuditConfig("12345678", "2024-01-01", "2024-12-31", false, true, 2.0)

	if config.ExpectedTaxID != "12345678" {
		t.Errorf("expected ExpectedTaxID '12345678', got '%s'", config.ExpectedTaxID)
	}
	if config.PeriodStart != "2024-01-01" {
		t.Errorf("expected PeriodStart '2024-01-01', got '%s'", config.PeriodStart)
	}
	if config.PeriodEnd != "2024-12-31" {
		t.Errorf("expected PeriodEnd '2024-12-31', got '%s'", config.PeriodEnd)
	}
	if config.AllowEarlierDate {
		t.Error("expected AllowEarlierDate to be false")
	}
	if !config.StrictMode {
		t.Error("expected StrictMode to be true")
	}
	if !config.AmountTolerance.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected AmountTolerance 2, got %s", config.AmountTolerance)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("audit config should be valid: %v", err)
	}
}

func TestCreateProcessorConfig(t *testing.T) {
	auditConfig := CreateAuditConfig("", "", "", true, false, 3.0)
	config := CreateProcessorConfig(auditConfig, 0.85)

	if config.Mapper.MinSimilarity != 0.85 {
		t.Errorf("expected MinSimilarity 0.85, got %f", config.Mapper.MinSimilarity)
	}
	if config.Audit != auditConfig {
		t.Error("expected audit config to be passed through")
	}

	// The reconciler shares the auditor's amount tolerance.
	if !config.Reconciler.Tolerance.Equal(auditConfig.AmountTolerance) {
		t.Errorf("expected reconciler tolerance %s, got %s",
			auditConfig.AmountTolerance, config.Reconciler.Tolerance)
	}

	if err := config.Mapper.Validate(); err != nil {
		t.Errorf("mapper config should be valid: %v", err)
	}
	if err := config.Reconciler.Validate(); err != nil {
		t.Errorf("reconciler config should be valid: %v", err)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		includeValid bool
		expectedType reporter.OutputFormat
	}{
		{"console format", "console", false, reporter.FormatConsole},
		{"json format", "json", true, reporter.FormatJSON},
		{"csv format", "csv", false, reporter.FormatCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := CreateReportConfig(tt.format, tt.includeValid)

			if config.Format != tt.expectedType {
				t.Errorf("expected Format %s, got %s", tt.expectedType, config.Format)
			}
			if config.IncludeValidRecords != tt.includeValid {
				t.Errorf("expected IncludeValidRecords %v, got %v", tt.includeValid, config.IncludeValidRecords)
			}

			if err := config.Validate(); err != nil {
				t.Errorf("report config should be valid: %v", err)
			}
		})
	}
}

func TestOpenLearnedStoreInMemory(t *testing.T) {
	store, err := OpenLearnedStore("")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	if store == nil {
		t.Fatal("expected a store")
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
}

func TestOpenLearnedStoreMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")

	// A missing file is a fresh store, not an error.
	store, err := OpenLearnedStore(path)
	if err != nil {
		t.Fatalf("failed to open store at missing path: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	content := `[
		{"發票號碼": "AB12345678", "日期": "2024-11-15", "總計": 10500},
		{"統一編號": "12345678", "品項": ["品項A", "品項B"]}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	records, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("failed to load records: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["發票號碼"] != "AB12345678" {
		t.Errorf("expected invoice number 'AB12345678', got %v", records[0]["發票號碼"])
	}
	if _, ok := records[1]["品項"].([]interface{}); !ok {
		t.Errorf("expected list value for 品項, got %T", records[1]["品項"])
	}
}

func TestLoadRecordsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `[{"發票號碼": ]`},
		{"not an array", `{"發票號碼": "AB12345678"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "records.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			if _, err := LoadRecords(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadRecordsMissingFile(t *testing.T) {
	if _, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for missing file")
	}
}
