// SPDX-License-Identifier: Apache-2.0
package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := New(CodeLLMError, "oracle unreachable", cause)

	msg := err.Error()
	if !strings.Contains(msg, string(CodeLLMError)) {
		t.Errorf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Errorf("expected cause in message, got %q", msg)
	}
}

func TestUnwrapChain(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New(CodeToolFailure, "tool failed", cause)

	if !stderrors.Is(err, cause) {
		t.Errorf("expected errors.Is to reach the cause")
	}

	var te *TelosError
	if !stderrors.As(err, &te) {
		t.Fatalf("expected errors.As to match TelosError")
	}
	if te.Code != CodeToolFailure {
		t.Errorf("expected CodeToolFailure, got %s", te.Code)
	}
}

func TestWithContextAndRecoverable(t *testing.T) {
	err := New(CodeTimeout, "deadline exceeded", nil).
		WithContext("operation", "chat").
		WithRecoverable(true)

	if err.Context["operation"] != "chat" {
		t.Errorf("expected context value, got %v", err.Context["operation"])
	}
	if !err.Recoverable {
		t.Errorf("expected recoverable")
	}
	if err.RecoverableString() != "true" {
		t.Errorf("expected \"true\", got %q", err.RecoverableString())
	}
}

func TestAsTelosErrorWrapsForeignErrors(t *testing.T) {
	plain := stderrors.New("plain")
	te := AsTelosError(plain)
	if te.Code != CodeInternal {
		t.Errorf("expected CodeInternal wrapper, got %s", te.Code)
	}
	if !stderrors.Is(te, plain) {
		t.Errorf("expected wrapped error to keep the cause")
	}

	if AsTelosError(nil) != nil {
		t.Errorf("expected nil for nil error")
	}
}
