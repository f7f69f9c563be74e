// Package errors defines the error taxonomy of the invoice audit service.
//
// Only programmer or configuration misuse surfaces as a Go error; data
// quality defects are accumulated into validation results and never thrown.
// Every AuditError carries a category, a specific code, optional context and
// a fix suggestion, plus a stack trace captured at construction.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors.
type ErrorCategory string

const (
	CategoryMapping       ErrorCategory = "mapping"
	CategoryConversion    ErrorCategory = "conversion"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryProcessing    ErrorCategory = "processing"
)

// ErrorCode represents specific error codes within categories.
type ErrorCode string

const (
	// Mapping errors
	CodeUnknownField      ErrorCode = "unknown_field"
	CodeInvalidDictionary ErrorCode = "invalid_dictionary"

	// Conversion errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidType   ErrorCode = "invalid_type"

	// Validation errors
	CodeMissingField ErrorCode = "missing_field"
	CodeOutOfRange   ErrorCode = "out_of_range"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"
	CodeInvalidPeriod ErrorCode = "invalid_period"

	// Storage errors
	CodeLoadFailed ErrorCode = "load_failed"
	CodeSaveFailed ErrorCode = "save_failed"

	// Processing errors
	CodeProcessingError ErrorCode = "processing_error"
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// AuditError is the base error type for all application errors.
type AuditError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *AuditError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *AuditError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error.
func (e *AuditError) GetExitCode() int {
	switch e.Category {
	case CategoryStorage:
		return 2
	case CategoryMapping, CategoryConversion, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryProcessing:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *AuditError) WithContext(key string, value interface{}) *AuditError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *AuditError) WithSuggestion(suggestion string) *AuditError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AuditError.
func New(category ErrorCategory, code ErrorCode, message string) *AuditError {
	return &AuditError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with AuditError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *AuditError {
	if err == nil {
		return nil
	}

	return &AuditError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ConfigurationError creates a configuration-related error. Configuration
// misuse is the only error class that aborts processing.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *AuditError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting"
	case CodeInvalidPeriod:
		message = fmt.Sprintf("invalid audit period configuration: %v", value)
		suggestion = "the period start date must not be after the period end date"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *AuditError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// StorageError creates a learned-mapping store error.
func StorageError(code ErrorCode, path string, err error) *AuditError {
	var message string
	var suggestion string

	switch code {
	case CodeLoadFailed:
		message = fmt.Sprintf("failed to load learned mappings from %s", path)
		suggestion = "check that the mapping file exists and contains valid JSON"
	case CodeSaveFailed:
		message = fmt.Sprintf("failed to save learned mappings to %s", path)
		suggestion = "check write permissions on the mapping file directory"
	default:
		message = fmt.Sprintf("storage error: %s", path)
		suggestion = "check the mapping file and try again"
	}

	var result *AuditError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// MappingError creates a field-mapping error for programmer misuse, such as
// learning a label against a field outside the canonical set.
func MappingError(code ErrorCode, label string, err error) *AuditError {
	var message string
	var suggestion string

	switch code {
	case CodeUnknownField:
		message = fmt.Sprintf("unknown canonical field for label %q", label)
		suggestion = "use one of the canonical field names"
	case CodeInvalidDictionary:
		message = "synonym dictionary is invalid"
		suggestion = "this is likely a bug - please report it"
	default:
		message = fmt.Sprintf("mapping error for label %q", label)
		suggestion = "check the label and field name"
	}

	var result *AuditError
	if err != nil {
		result = Wrap(err, CategoryMapping, code, message)
	} else {
		result = New(CategoryMapping, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("label", label)
}

// ProcessingError creates a processing-related error.
func ProcessingError(code ErrorCode, operation string, err error) *AuditError {
	var message string
	var suggestion string

	switch code {
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check the input records and try again"
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug - please report it with the error details"
	default:
		message = fmt.Sprintf("error during %s", operation)
		suggestion = "review the input and configuration"
	}

	var result *AuditError
	if err != nil {
		result = Wrap(err, CategoryProcessing, code, message)
	} else {
		result = New(CategoryProcessing, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors.
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*AuditError         `json:"errors"`
}

// NewErrorSummary creates a new error summary.
func NewErrorSummary(errs []*AuditError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if errs == nil {
		summary.Errors = []*AuditError{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary.
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// IsAuditError checks if an error is an AuditError.
func IsAuditError(err error) bool {
	_, ok := err.(*AuditError)
	return ok
}

// AsAuditError extracts an AuditError from an error chain.
func AsAuditError(err error) (*AuditError, bool) {
	var auditErr *AuditError
	if errors.As(err, &auditErr) {
		return auditErr, true
	}
	return nil, false
}
