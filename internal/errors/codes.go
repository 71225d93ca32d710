// Package errors provides structured error handling for sthmatters.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (knowledge base files, generated artifacts)
//   - 4XX: Validation errors (queries, manifests, formats)
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal aborts the whole call (render, assembly).
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the current call only.
	SeverityError Severity = "ERROR"
	// SeverityWarning means degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeRootMissing    = "ERR_103_ROOT_MISSING"
	ErrCodeUnknownProfile = "ERR_104_UNKNOWN_PROFILE"
	ErrCodeNotReady       = "ERR_105_NOT_READY"

	// IO errors (200-299)
	ErrCodeSourceMissing  = "ERR_201_SOURCE_MISSING"
	ErrCodeFileRead       = "ERR_202_FILE_READ"
	ErrCodeOutputWrite    = "ERR_203_OUTPUT_WRITE"
	ErrCodeOutputLocked   = "ERR_204_OUTPUT_LOCKED"
	ErrCodeManifestRead   = "ERR_205_MANIFEST_READ"
	ErrCodeIndexPartial   = "ERR_206_INDEX_PARTIAL"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidManifest   = "ERR_402_INVALID_MANIFEST"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"
	ErrCodeNoIndex           = "ERR_405_NO_INDEX"
	ErrCodeInvalidPath       = "ERR_406_INVALID_PATH"
	ErrCodeUnsupportedFormat = "ERR_407_UNSUPPORTED_FORMAT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIndexFailed  = "ERR_505_INDEX_FAILED"
	ErrCodeRenderFailed = "ERR_506_RENDER_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "1" from "ERR_102_CONFIG_INVALID"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeOutputWrite, ErrCodeOutputLocked:
		return SeverityFatal
	case ErrCodeConfigInvalid, ErrCodeConfigNotFound, ErrCodeSourceMissing, ErrCodeIndexPartial:
		return SeverityWarning
	}
	return SeverityError
}
