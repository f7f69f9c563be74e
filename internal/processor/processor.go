// Package processor wires the audit pipeline together: field mapping, invoice
// construction, amount reconciliation and audit validation, per record and in
// batches.
//
// The pipeline owns no rules of its own. Per-record data defects land in the
// record's mapping result and audit result and never abort a batch; the only
// failure path is a malformed configuration at construction time.
package processor

import (
	"invoice-audit-service/internal/auditor"
	"invoice-audit-service/internal/mapper"
	"invoice-audit-service/internal/models"
	"invoice-audit-service/internal/reconciler"
	"invoice-audit-service/pkg/errors"
	"invoice-audit-service/pkg/logger"
)

// Config aggregates the per-stage configurations. Nil stage configs fall back
// to that stage's defaults.
type Config struct {
	Mapper     *mapper.Config     `json:"mapper"`
	Reconciler *reconciler.Config `json:"reconciler"`
	Audit      *auditor.Config    `json:"audit"`
}

// DefaultConfig returns the default configuration for every stage.
func DefaultConfig() *Config {
	return &Config{
		Mapper:     mapper.DefaultConfig(),
		Reconciler: reconciler.DefaultConfig(),
		Audit:      auditor.DefaultConfig(),
	}
}

// Record is the full processing outcome for one raw OCR record.
type Record struct {
	// Index is the record's position in the batch input, zero-based.
	Index int `json:"index"`

	// Mapping carries the per-label outcomes, including unmapped pairs.
	Mapping *mapper.MappingResult `json:"mapping"`

	// Invoice is the canonical record after reconciliation.
	Invoice *models.Invoice `json:"invoice"`

	// Audit is the validation result, with the annotated invoice copy.
	Audit *auditor.Result `json:"audit"`
}

// BatchResult aggregates the processing of a sequence of raw records.
type BatchResult struct {
	Records []*Record       `json:"records"`
	Summary auditor.Summary `json:"summary"`
}

// AuditResults extracts the validation results in record order, for filtering
// and reporting.
func (b *BatchResult) AuditResults() []*auditor.Result {
	results := make([]*auditor.Result, len(b.Records))
	for i, rec := range b.Records {
		results[i] = rec.Audit
	}
	return results
}

// Pipeline runs raw OCR records through mapping, reconciliation and audit.
type Pipeline struct {
	mapper     *mapper.Engine
	reconciler *reconciler.Engine
	validator  *auditor.Validator
	log        logger.Logger
}

// NewPipeline creates a processing pipeline. The learned-mapping store is
// injected so the caller controls its lifecycle and persistence location; a
// nil store disables learned overrides. Configuration is validated here, the
// only abort path in the core.
func NewPipeline(config *Config, store *mapper.LearnedStore) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}

	mapEngine, err := mapper.NewEngine(config.Mapper, store)
	if err != nil {
		return nil, err
	}
	recEngine, err := reconciler.NewEngine(config.Reconciler)
	if err != nil {
		return nil, err
	}
	validator, err := auditor.NewValidator(config.Audit)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		mapper:     mapEngine,
		reconciler: recEngine,
		validator:  validator,
		log:        logger.GetGlobalLogger().WithComponent("processor"),
	}, nil
}

// ProcessRecord runs one raw record through the full pipeline. Unmapped
// labels, reconciliation warnings and validation findings all land on the
// returned record; an error is returned only for unusable input.
func (p *Pipeline) ProcessRecord(raw models.RawFields) (*Record, error) {
	if raw == nil {
		return nil, errors.ProcessingError(errors.CodeProcessingError, "record processing", nil).
			WithContext("reason", "nil record")
	}

	mapping := p.mapper.MapRecord(raw)
	invoice := models.NewInvoiceFromFields(mapping.Fields)
	p.reconciler.Reconcile(invoice)
	audit := p.validator.Validate(invoice)

	p.log.WithFields(logger.Fields{
		"invoice":  invoice.InvoiceNo,
		"mapped":   len(mapping.Fields),
		"unmapped": len(mapping.Unmapped),
		"severity": audit.Severity,
	}).Debug("Processed record")

	return &Record{
		Mapping: mapping,
		Invoice: invoice,
		Audit:   audit,
	}, nil
}

// ProcessBatch runs records through the pipeline in order and aggregates the
// audit summary. Per-record defects never abort the batch.
func (p *Pipeline) ProcessBatch(rawRecords []models.RawFields) (*BatchResult, error) {
	progress := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "batch audit",
		Total:     int64(len(rawRecords)),
		Logger:    p.log,
	})

	batch := &BatchResult{Records: make([]*Record, 0, len(rawRecords))}

	for i, raw := range rawRecords {
		record, err := p.ProcessRecord(raw)
		if err != nil {
			p.log.WithError(err).WithField("index", i).Warn("Skipping unusable record")
			progress.Increment()
			continue
		}
		record.Index = i
		batch.Records = append(batch.Records, record)
		progress.Increment()
	}
	progress.Complete()

	batch.Summary = auditor.Summarize(batch.AuditResults())

	p.log.WithFields(logger.Fields{
		"total":   batch.Summary.Total,
		"valid":   batch.Summary.Valid,
		"invalid": batch.Summary.Invalid,
	}).Info("Batch complete")

	return batch, nil
}

// Mapper exposes the mapping engine, for learn operations on the same store
// the pipeline reads.
func (p *Pipeline) Mapper() *mapper.Engine {
	return p.mapper
}

// Validator exposes the audit validator, for statistics inspection.
func (p *Pipeline) Validator() *auditor.Validator {
	return p.validator
}
