package errors

import (
	stderrors "errors"
	"fmt"
)

// KBError is the structured error type for sthmatters.
// It carries enough context for logging, CLI output and JSON reports.
type KBError struct {
	// Code is the unique error code (e.g., "ERR_201_SOURCE_MISSING").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *KBError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *KBError) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against sentinel values built with New.
func (e *KBError) Is(target error) bool {
	if t, ok := target.(*KBError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *KBError) WithDetail(key, value string) *KBError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *KBError) WithSuggestion(suggestion string) *KBError {
	e.Suggestion = suggestion
	return e
}

// New creates a new KBError. Category and severity are derived from the code.
func New(code string, message string, cause error) *KBError {
	return &KBError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a KBError from an existing error.
func Wrap(code string, err error) *KBError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports a malformed configuration. Callers fall back to defaults.
func ConfigError(message string, cause error) *KBError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// QueryValidationError reports an empty or invalid query.
func QueryValidationError(message string) *KBError {
	return New(ErrCodeInvalidQuery, message, nil)
}

// SourceFileMissing reports a manifest source that could not be loaded.
func SourceFileMissing(path string, cause error) *KBError {
	return New(ErrCodeSourceMissing, "source file not found: "+path, cause).
		WithDetail("path", path)
}

// OutputWriteError reports a failed write of a generated artifact.
func OutputWriteError(path string, cause error) *KBError {
	return New(ErrCodeOutputWrite, "failed to write "+path, cause).
		WithDetail("path", path)
}

// UnsupportedFormatError reports an unknown layout or output format.
func UnsupportedFormatError(kind, name string) *KBError {
	return New(ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported %s: %q", kind, name), nil).
		WithDetail(kind, name)
}

// ValidationError creates a generic validation error.
func ValidationError(message string, cause error) *KBError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *KBError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if any KBError in the chain has fatal severity.
func IsFatal(err error) bool {
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke.Severity == SeverityFatal
	}
	return false
}

// IsWarning reports whether err is a non-fatal, degraded-operation error.
func IsWarning(err error) bool {
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke.Severity == SeverityWarning
	}
	return false
}

// GetCode extracts the error code from the first KBError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// GetCategory extracts the category from the first KBError in the chain.
func GetCategory(err error) Category {
	var ke *KBError
	if stderrors.As(err, &ke) {
		return ke.Category
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}
