// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Telos.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Telos errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeToolFailure indicates a tool execution failed.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeToolUnavailable indicates the requested tool is not in the registry.
	CodeToolUnavailable ErrorCode = "TOOL_UNAVAILABLE"

	// CodeDecodeFailure indicates oracle output could not be decoded by any tier.
	CodeDecodeFailure ErrorCode = "DECODE_FAILURE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeContextLost indicates context was canceled or lost mid-operation.
	CodeContextLost ErrorCode = "CONTEXT_LOST"

	// CodeLLMError indicates an oracle transport or provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeNoTools indicates the registry finished building with zero tools.
	CodeNoTools ErrorCode = "NO_TOOLS"
)

// TelosError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type TelosError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *TelosError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *TelosError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *TelosError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
	}{
		Message:     e.Error(),
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
	})
}

// New creates a new TelosError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *TelosError {
	return &TelosError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *TelosError) WithContext(key string, value interface{}) *TelosError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *TelosError) WithRecoverable(recoverable bool) *TelosError {
	e.Recoverable = recoverable
	return e
}

// AsTelosError attempts to convert an error to a TelosError.
// Returns the error as TelosError if it is one, or wraps it otherwise.
func AsTelosError(err error) *TelosError {
	if err == nil {
		return nil
	}
	if te, ok := err.(*TelosError); ok {
		return te
	}
	return New(CodeInternal, "wrapped error", err)
}

// RecoverableString returns "true" or "false" as a string for observability.
func (e *TelosError) RecoverableString() string {
	if e.Recoverable {
		return "true"
	}
	return "false"
}
