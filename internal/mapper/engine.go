package mapper

import (
	"fmt"

	"invoice-audit-service/internal/convert"
	"invoice-audit-service/internal/models"
	"invoice-audit-service/internal/normalize"
	"invoice-audit-service/pkg/logger"
)

// Engine resolves raw OCR labels to canonical fields and maps whole records
// into typed field values.
type Engine struct {
	config     *Config
	store      *LearnedStore
	dictionary []normalizedEntry
	log        logger.Logger
}

// MappingResult is the outcome of mapping one raw OCR record: the converted
// canonical values, the per-field confidence, the per-label outcomes, and the
// raw pairs that could not be mapped.
type MappingResult struct {
	Fields     map[models.CanonicalField]models.TypedValue `json:"-"`
	Confidence map[models.CanonicalField]float64           `json:"confidence"`
	Outcomes   map[string]models.MappingOutcome            `json:"outcomes"`
	Unmapped   []models.UnmappedField                      `json:"unmapped,omitempty"`
}

// NewEngine creates a matching engine. A nil config uses the defaults; a nil
// store uses an in-memory store with no persisted history.
func NewEngine(config *Config, store *LearnedStore) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapper configuration: %w", err)
	}

	if store == nil {
		store = NewMemoryStore()
	}

	return &Engine{
		config:     config.Clone(),
		store:      store,
		dictionary: buildNormalizedDictionary(),
		log:        logger.GetGlobalLogger().WithComponent("field_mapper"),
	}, nil
}

// Match resolves a raw label to a canonical field using the priority order
// learned, exact, fuzzy, unmatched. Fuzzy ties are broken by field
// declaration order then synonym order, so resolution is deterministic.
func (e *Engine) Match(rawLabel string) models.MappingOutcome {
	normalized := normalize.Normalize(rawLabel)
	if normalized == "" {
		return models.MappingOutcome{Method: models.MatchNone}
	}

	if field, ok := e.store.Lookup(normalized); ok {
		return models.MappingOutcome{
			Field:      field,
			Matched:    true,
			Confidence: LearnedConfidence,
			Method:     models.MatchLearned,
		}
	}

	for _, entry := range e.dictionary {
		if entry.normal == normalized {
			return models.MappingOutcome{
				Field:      entry.field,
				Matched:    true,
				Confidence: ExactConfidence,
				Method:     models.MatchExact,
			}
		}
	}

	bestScore := 0.0
	var bestField models.CanonicalField
	found := false
	for _, entry := range e.dictionary {
		score := normalize.Similarity(normalized, entry.normal, e.config.Weights)
		if score >= e.config.MinSimilarity && score > bestScore {
			bestScore = score
			bestField = entry.field
			found = true
		}
	}

	if found {
		return models.MappingOutcome{
			Field:      bestField,
			Matched:    true,
			Confidence: bestScore,
			Method:     models.MatchFuzzy,
		}
	}

	return models.MappingOutcome{Method: models.MatchNone}
}

// Learn records a caller-confirmed mapping from a raw label to a canonical
// field and persists it. This is the single mutation point of the learned
// store; it is idempotent.
func (e *Engine) Learn(rawLabel string, field models.CanonicalField) error {
	return e.store.Learn(normalize.Normalize(rawLabel), field)
}

// MapRecord maps a whole raw OCR record: each pair is matched, its value
// converted to the field's declared type, and the field validator applied.
// Pairs that fail to match convert or validate are retained as unmapped
// fields with their raw value, never dropped. Labels are processed in sorted
// order so duplicate-label resolution is deterministic.
func (e *Engine) MapRecord(raw models.RawFields) *MappingResult {
	result := &MappingResult{
		Fields:     make(map[models.CanonicalField]models.TypedValue),
		Confidence: make(map[models.CanonicalField]float64),
		Outcomes:   make(map[string]models.MappingOutcome),
	}

	for _, label := range raw.SortedLabels() {
		value := raw[label]
		outcome := e.Match(label)
		result.Outcomes[label] = outcome

		if !outcome.Matched {
			result.Unmapped = append(result.Unmapped, models.UnmappedField{
				Label:  label,
				Value:  value,
				Reason: models.ReasonNoMatch,
			})
			continue
		}

		spec := outcome.Field.Spec()
		converted, ok := convert.Value(value, spec.Type)
		if ok && spec.Validate != nil {
			ok = spec.Validate(converted)
		}
		if !ok {
			e.log.WithFields(logger.Fields{
				"label": label,
				"field": outcome.Field.String(),
			}).Debug("Field value failed conversion or validation")
			result.Unmapped = append(result.Unmapped, models.UnmappedField{
				Label:  label,
				Value:  value,
				Reason: models.ReasonValidationFailed,
			})
			continue
		}

		result.Fields[outcome.Field] = converted
		result.Confidence[outcome.Field] = outcome.Confidence
	}

	return result
}

// Store returns the engine's learned-mapping store.
func (e *Engine) Store() *LearnedStore {
	return e.store
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}
