// Package errors provides unified error handling for the transpiler.
// It implements structured error types with error codes, HTTP status mapping,
// and retryable detection following RFC 7807 and Google AIP-193.
//
// Every failure kind of the pipeline (cycles, unknown plugins, invalid
// settings, undefined scoped variables, formatter fallbacks) has its own
// ErrorCode so callers can attribute a failure to a node and plugin.
package errors
