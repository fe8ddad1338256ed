package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Wrap converts any error into an AppError. AppErrors anywhere in the chain
// are returned as-is; everything else becomes an internal error.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// --- Common Error Constructors ---

// ServiceUnavailable creates a new AppError for a service that is temporarily unavailable.
func ServiceUnavailable(service string) *AppError {
	return &AppError{
		Code: ErrCodeServiceUnavailable, Message: fmt.Sprintf("The %s is temporarily unavailable. Please try again.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"service": service},
	}
}

// Timeout creates a new AppError for a request that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: "The request took too long. Please try again.",
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an internal server error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred. Please try again or contact support.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// ExternalServiceError creates a new AppError for an error from an external service.
func ExternalServiceError(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeExternalService, Message: fmt.Sprintf("The %s service encountered an error. Please try again.", service),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"service": service}, Cause: cause,
	}
}

// RateLimited creates a new AppError for a throttled client.
func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: "Too many requests. Please slow down.",
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
		Details: map[string]any{"retry_after_ms": retryAfter.Milliseconds()},
	}
}

// PayloadTooLarge creates a new AppError for an oversized request body.
func PayloadTooLarge(limit int64) *AppError {
	return &AppError{
		Code: ErrCodePayloadTooLarge, Message: fmt.Sprintf("Request body exceeds %d bytes.", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge, Retryable: false,
		Details: map[string]any{"limit": limit},
	}
}

// --- Transpilation Error Constructors ---

// GraphCycle creates a new AppError for a workflow graph containing a cycle.
func GraphCycle(nodeIDs []string) *AppError {
	return &AppError{
		Code:       ErrCodeGraphCycle,
		Message:    fmt.Sprintf("Workflow graph contains a cycle through nodes: %s", strings.Join(nodeIDs, ", ")),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_ids": nodeIDs},
	}
}

// InvalidGraph creates a new AppError for a structurally invalid workflow graph.
func InvalidGraph(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidGraph, Message: fmt.Sprintf("Invalid workflow graph: %s", reason),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
	}
}

// PluginNotFound creates a new AppError for a node type without a registered plugin.
func PluginNotFound(pluginType string) *AppError {
	return &AppError{
		Code: ErrCodePluginNotFound, Message: fmt.Sprintf("No plugin registered for type %q.", pluginType),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"plugin": pluginType},
	}
}

// SettingsInvalid creates a new AppError for node settings that failed validation.
// fields is attached verbatim under the "fields" detail key.
func SettingsInvalid(nodeID, pluginType string, messages []string, fields any) *AppError {
	return &AppError{
		Code:       ErrCodeSettingsInvalid,
		Message:    fmt.Sprintf("Settings for node %q (%s) are invalid: %s", nodeID, pluginType, strings.Join(messages, "; ")),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_id": nodeID, "plugin": pluginType, "fields": fields},
	}
}

// MissingChildren creates a new AppError for a structural node with too few children.
func MissingChildren(nodeID, pluginType string, want, got int) *AppError {
	return &AppError{
		Code:       ErrCodeMissingChildren,
		Message:    fmt.Sprintf("Node %q (%s) requires at least %d child node(s), got %d", nodeID, pluginType, want, got),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_id": nodeID, "plugin": pluginType, "min_children": want, "children": got},
	}
}

// UndefinedScopedVariable creates a new AppError for a qualified reference to a
// variable that is never defined in the enclosing scope.
func UndefinedScopedVariable(variable string, line int, text string) *AppError {
	return &AppError{
		Code:       ErrCodeUndefinedScopedVariable,
		Message:    fmt.Sprintf("Undefined scoped variable %q on line %d: %s", variable, line, strings.TrimSpace(text)),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"variable": variable, "line": line},
	}
}

// GenerationFailed creates a new AppError for a plugin that failed to generate code.
func GenerationFailed(nodeID, pluginType string, cause error) *AppError {
	return &AppError{
		Code:       ErrCodeGenerationFailed,
		Message:    fmt.Sprintf("Code generation failed for node %q (%s)", nodeID, pluginType),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"node_id": nodeID, "plugin": pluginType}, Cause: cause,
	}
}

// FormatterUnavailable creates a new AppError for an external formatter that could not be run.
func FormatterUnavailable(tool string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeFormatterUnavailable, Message: fmt.Sprintf("The %s formatter is unavailable; returning unformatted source.", tool),
		HTTPStatus: http.StatusOK, Retryable: false,
		Details: map[string]any{"tool": tool}, Cause: cause,
	}
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
