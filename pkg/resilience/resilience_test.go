// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/telos-labs/telos/pkg/errors"
)

func TestRetrySuccessAfterTransientErrors(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return stderrors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return stderrors.New("always fails")
	})

	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryStopsOnNonRecoverableError(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	fatal := errors.New(errors.CodeInvalidInput, "bad input", nil)
	err := config.Do(context.Background(), func() error {
		attempts++
		return fatal
	})

	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-recoverable error, got %d", attempts)
	}
}

func TestRetryRetriesRecoverableTelosError(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(3).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New(errors.CodeLLMError, "oracle hiccup", nil).WithRecoverable(true)
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithInitialDelay(100 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := config.Do(ctx, func() error {
		attempts++
		return stderrors.New("transient error")
	})

	if err == nil {
		t.Fatalf("expected context error")
	}
	if te := errors.AsTelosError(err); te.Code != errors.CodeContextLost {
		t.Errorf("expected CodeContextLost, got %v", err)
	}
	if attempts < 1 {
		t.Errorf("expected at least 1 attempt, got %d", attempts)
	}
}

func TestWithTimeoutResultReturnsValue(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: time.Second},
		func(ctx context.Context) (int, error) {
			return 42, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 42 {
		t.Errorf("expected 42, got %d", value)
	}
}

func TestWithTimeoutResultDeadlineExceeded(t *testing.T) {
	_, err := WithTimeoutResult(context.Background(), TimeoutConfig{Duration: 10 * time.Millisecond},
		func(ctx context.Context) (string, error) {
			select {
			case <-time.After(time.Second):
				return "too late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	te := errors.AsTelosError(err)
	if te.Code != errors.CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", err)
	}
	if !te.Recoverable {
		t.Errorf("timeout should be recoverable")
	}
}

func TestWithTimeoutZeroDurationRunsInline(t *testing.T) {
	called := false
	err := WithTimeout(context.Background(), TimeoutConfig{}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Errorf("expected fn to run")
	}
}
