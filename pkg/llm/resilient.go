package llm

import (
	"context"
	"time"

	"github.com/telos-labs/telos/pkg/resilience"
)

// ResilientProvider wraps a Provider with a per-call deadline and bounded
// retry. The orchestration loop only checks its time budget between
// iterations, so this wrapper is the layer that prevents a hung oracle call
// from stalling a run indefinitely.
type ResilientProvider struct {
	inner   Provider
	retry   resilience.RetryConfig
	timeout resilience.TimeoutConfig
}

// NewResilient wraps provider with the given per-call timeout and default
// retry policy. A zero timeout disables the deadline.
func NewResilient(provider Provider, timeout time.Duration) *ResilientProvider {
	return &ResilientProvider{
		inner:   provider,
		retry:   resilience.DefaultRetryConfig(),
		timeout: resilience.TimeoutConfig{Duration: timeout},
	}
}

// WithRetry replaces the retry policy.
func (p *ResilientProvider) WithRetry(retry resilience.RetryConfig) *ResilientProvider {
	p.retry = retry
	return p
}

// Chat implements Provider.
func (p *ResilientProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse
	err := p.retry.Do(ctx, func() error {
		var callErr error
		resp, callErr = resilience.WithTimeoutResult(ctx, p.timeout, func(ctx context.Context) (*ChatResponse, error) {
			return p.inner.Chat(ctx, req)
		})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

var _ Provider = (*ResilientProvider)(nil)
