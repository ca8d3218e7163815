// Package errors provides standardized error codes for the host.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (spawn, proto, session, process)
//   - error: The specific error type within that domain
//
// These codes are stable and can be used by the GUI for programmatic
// error handling. Human-readable messages are provided alongside codes.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
// These are stable identifiers that callers can rely on for error handling.
const (
	// Spawn domain - executable discovery and process creation
	CodeSpawnNotFound  = "spawn.not_found"   // Executable not found in any search location
	CodeSpawnFailed    = "spawn.failed"      // Process failed to start
	CodeSpawnPipe      = "spawn.pipe_failed" // Could not obtain a piped stdio handle
	CodeSpawnExhausted = "spawn.exhausted"   // Every runtime fallback strategy failed

	// Protocol domain - JSONL message parsing and serialization
	CodeProtoSyntax         = "proto.syntax"          // Malformed JSON on the wire
	CodeProtoMissingType    = "proto.missing_type"    // Line has no "type" discriminant
	CodeProtoUnknownType    = "proto.unknown_type"    // Unrecognized discriminant (forward-compat)
	CodeProtoInvalidPayload = "proto.invalid_payload" // Known type, malformed or incomplete payload
	CodeProtoSerialize      = "proto.serialize"       // Failed to serialize an outgoing message

	// Session domain - stdio exchange with a running script
	CodeSessionWriteFailed = "session.write_failed" // Failed to write to script stdin
	CodeSessionClosed      = "session.closed"       // Session already closed
	CodeSessionConsumed    = "session.consumed"     // Session was split; use the halves instead

	// Process domain - process-group lifecycle and bookkeeping
	CodeProcessKillFailed     = "process.kill_failed"     // Signal delivery failed
	CodeProcessSnapshotFailed = "process.snapshot_failed" // Could not persist the PID snapshot
	CodeProcessPIDFileFailed  = "process.pid_file_failed" // Could not write the host PID file

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal host error
)

// CodedError wraps an error with a stable error code.
// This allows errors to carry both a code for programmatic handling
// and a message for human consumption.
type CodedError struct {
	Code    string // Stable error code (e.g., "spawn.not_found")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// If the error is a CodedError, returns its code.
// Falls back to CodeUnknown for unrecognized errors.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// GetMessage extracts a human-readable message from an error.
// If the error is a CodedError, returns its message.
// Otherwise, returns the error's Error() string.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Message
	}

	return err.Error()
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors for frequently used error types.

// ExecutableNotFound creates a "spawn.not_found" error.
func ExecutableNotFound(name string) *CodedError {
	return New(CodeSpawnNotFound, fmt.Sprintf("executable %q not found in any search location or PATH", name))
}

// SpawnFailed creates a "spawn.failed" error.
func SpawnFailed(command string, cause error) *CodedError {
	return Wrap(CodeSpawnFailed, fmt.Sprintf("failed to start %s", command), cause)
}

// PipeFailed creates a "spawn.pipe_failed" error.
func PipeFailed(stream string, cause error) *CodedError {
	return Wrap(CodeSpawnPipe, fmt.Sprintf("failed to open %s pipe", stream), cause)
}

// WriteFailed creates a "session.write_failed" error.
func WriteFailed(cause error) *CodedError {
	return Wrap(CodeSessionWriteFailed, "failed to write message to script stdin", cause)
}

// SessionConsumed creates a "session.consumed" error.
func SessionConsumed() *CodedError {
	return New(CodeSessionConsumed, "session was split into halves; use SplitSession instead")
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
