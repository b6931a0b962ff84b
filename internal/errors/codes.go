// Package errors provides structured error handling for ragcore.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO and storage errors
//   - 3XX: Network and registry errors
//   - 4XX: Validation errors
//   - 5XX: Operation errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and storage I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network and registry errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryOperation indicates failed core operations.
	CategoryOperation Category = "OPERATION"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO and storage errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeStoreCorrupt   = "ERR_204_STORE_CORRUPT"
	ErrCodeCorruptArchive = "ERR_205_CORRUPT_ARCHIVE"
	ErrCodeCorruptPointer = "ERR_206_CORRUPT_POINTER"
	ErrCodeMarkerInvalid  = "ERR_207_MARKER_INVALID"

	// Network and registry errors (300-399)
	ErrCodeNetworkTimeout      = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeRegistryUnavailable = "ERR_302_REGISTRY_UNAVAILABLE"
	ErrCodeVersionNotFound     = "ERR_303_VERSION_NOT_FOUND"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeEmptyQuery   = "ERR_402_QUERY_EMPTY"

	// Operation errors (500-599)
	ErrCodeBuildFailed         = "ERR_501_BUILD_FAILED"
	ErrCodeNotReady            = "ERR_502_NOT_READY"
	ErrCodeConcurrentOperation = "ERR_503_CONCURRENT_OPERATION"
	ErrCodeInternal            = "ERR_504_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryOperation
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryOperation
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptPointer:
		// The current-generation pointer being unreadable after a successful
		// swap is the one condition callers treat as store-missing; it still
		// must not terminate the process.
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Registry timeouts and unavailability are transient, not corruption.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeRegistryUnavailable:
		return true
	default:
		return false
	}
}
