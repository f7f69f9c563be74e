// Package config builds the library configurations from CLI inputs and loads
// the CLI's file inputs.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"invoice-audit-service/internal/auditor"
	"invoice-audit-service/internal/mapper"
	"invoice-audit-service/internal/models"
	"invoice-audit-service/internal/processor"
	"invoice-audit-service/internal/reconciler"
	"invoice-audit-service/internal/reporter"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

// CreateAuditConfig builds the auditor configuration from CLI flag values.
func CreateAuditConfig(expectedTaxID, periodStart, periodEnd string, allowEarlier, strict bool, amountTolerance float64) *auditor.Config {
	config := auditor.DefaultConfig()

	config.ExpectedTaxID = expectedTaxID
	config.PeriodStart = periodStart
	config.PeriodEnd = periodEnd
	config.AllowEarlierDate = allowEarlier
	config.StrictMode = strict
	config.AmountTolerance = decimal.NewFromFloat(amountTolerance)

	return config
}

// CreateProcessorConfig builds the full pipeline configuration. The matching
// threshold and amount tolerance carry the CLI overrides; the reconciler
// shares the auditor's tolerance so variance is judged consistently across
// both stages.
func CreateProcessorConfig(auditConfig *auditor.Config, minSimilarity float64) *processor.Config {
	mapperConfig := mapper.DefaultConfig()
	mapperConfig.MinSimilarity = minSimilarity

	reconcilerConfig := reconciler.DefaultConfig()
	reconcilerConfig.Tolerance = auditConfig.AmountTolerance

	return &processor.Config{
		Mapper:     mapperConfig,
		Reconciler: reconcilerConfig,
		Audit:      auditConfig,
	}
}

// CreateReportConfig builds the reporter configuration.
func CreateReportConfig(format string, includeValid bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	config.Format = reporter.OutputFormat(format)
	config.IncludeValidRecords = includeValid

	return config
}

// OpenLearnedStore opens and loads the learned-mapping store at the given
// path. An empty path yields an in-memory store with no persistence.
func OpenLearnedStore(path string) (*mapper.LearnedStore, error) {
	if path == "" {
		return mapper.NewMemoryStore(), nil
	}

	store := mapper.NewLearnedStore(afero.NewOsFs(), path)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadRecords reads a JSON array of raw OCR records, each an object mapping
// raw label strings to scalar or list values.
func LoadRecords(path string) ([]models.RawFields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file %s: %w", path, err)
	}

	var records []models.RawFields
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records file %s: %w", path, err)
	}

	return records, nil
}
