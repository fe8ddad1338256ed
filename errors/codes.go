package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodePayloadTooLarge indicates the request body exceeds the size limit.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// Throttling errors
const (
	// ErrCodeRateLimited indicates the client sent too many requests.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Transpilation errors
const (
	// ErrCodeGraphCycle indicates the workflow graph contains a cycle.
	ErrCodeGraphCycle ErrorCode = "GRAPH_CYCLE"
	// ErrCodeInvalidGraph indicates a structurally invalid workflow graph.
	ErrCodeInvalidGraph ErrorCode = "INVALID_GRAPH"
	// ErrCodePluginNotFound indicates a node type has no registered plugin.
	ErrCodePluginNotFound ErrorCode = "PLUGIN_NOT_FOUND"
	// ErrCodeSettingsInvalid indicates node settings failed schema validation.
	ErrCodeSettingsInvalid ErrorCode = "SETTINGS_INVALID"
	// ErrCodeMissingChildren indicates a structural node received too few children.
	ErrCodeMissingChildren ErrorCode = "MISSING_CHILDREN"
	// ErrCodeUndefinedScopedVariable indicates a qualified reference to a variable never defined in scope.
	ErrCodeUndefinedScopedVariable ErrorCode = "UNDEFINED_SCOPED_VARIABLE"
	// ErrCodeGenerationFailed indicates a plugin failed to produce its fragment.
	ErrCodeGenerationFailed ErrorCode = "GENERATION_FAILED"
	// ErrCodeFormatterUnavailable indicates the external formatter could not be used.
	ErrCodeFormatterUnavailable ErrorCode = "FORMATTER_UNAVAILABLE"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable:   true,
	ErrCodeTimeout:              true,
	ErrCodeExternalService:      true,
	ErrCodeRateLimited:          true,
	ErrCodeFormatterUnavailable: false,
	ErrCodeInternal:             false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
