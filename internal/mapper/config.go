// Package mapper resolves raw OCR field labels to canonical invoice fields.
//
// Resolution uses a fixed priority order, first hit wins:
//  1. Learned mapping (caller-confirmed override) - confidence 1.0
//  2. Exact dictionary match after normalization - confidence 0.95
//  3. Fuzzy match above the similarity threshold - confidence = score
//  4. Unmatched - confidence 0, raw pair retained for caller review
//
// The exact-match confidence sits slightly below 1.0 so a learned override
// always takes precedence even when it coincidentally equals a dictionary
// synonym of a different field: user corrections win.
//
// Example usage:
//
//	store := mapper.NewLearnedStore(afero.NewOsFs(), "mappings.json")
//	engine, err := mapper.NewEngine(mapper.DefaultConfig(), store)
//	outcome := engine.Match("統一編號")
package mapper

import (
	"fmt"

	"invoice-audit-service/internal/normalize"
)

// Confidence levels assigned by resolution method. Fuzzy matches carry their
// similarity score instead.
const (
	LearnedConfidence = 1.0
	ExactConfidence   = 0.95
)

// Config holds configuration parameters for field matching.
type Config struct {
	// MinSimilarity is the acceptance threshold for fuzzy matches (0.0 to 1.0).
	MinSimilarity float64 `json:"min_similarity"`

	// Weights blends edit-distance and character-set similarity.
	Weights normalize.Weights `json:"weights"`
}

// DefaultConfig returns the observed production defaults: a 0.70 fuzzy
// acceptance threshold with the 60/40 similarity blend.
func DefaultConfig() *Config {
	return &Config{
		MinSimilarity: 0.70,
		Weights:       normalize.DefaultWeights(),
	}
}

// StrictConfig returns a configuration that only accepts near-identical
// labels through the fuzzy path.
func StrictConfig() *Config {
	return &Config{
		MinSimilarity: 0.90,
		Weights:       normalize.DefaultWeights(),
	}
}

// Validate checks if the mapping configuration is valid.
func (c *Config) Validate() error {
	if c.MinSimilarity < 0.0 || c.MinSimilarity > 1.0 {
		return fmt.Errorf("minimum similarity must be between 0.0 and 1.0: %f", c.MinSimilarity)
	}

	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid similarity weights: %w", err)
	}

	return nil
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
