// Package retry decides whether a failed call is retried and how long to wait before the next attempt.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

// RetryPolicy is an interface that defines retry logic.
type RetryPolicy interface {
	// ShouldRetry determines if a given error is retryable.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the wait in milliseconds after the given attempt (starting from 1).
	GetBackoffInterval(attempt int) int
	// GetMaxAttempts returns the maximum number of attempts, including the first one.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory is a factory for creating RetryPolicy.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a new DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create creates an exponential backoff RetryPolicy.
// retryableExceptions lists type names or message fragments treated as retryable in
// addition to BatchErrors flagged retryable.
func (f *DefaultRetryPolicyFactory) Create(cfg config.RetryConfig, retryableExceptions []string) RetryPolicy {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Factor < 1 {
		cfg.Factor = 1
	}
	if cfg.InitialInterval < 0 {
		cfg.InitialInterval = 0
	}
	return &defaultRetryPolicy{
		cfg:                 cfg,
		retryableExceptions: retryableExceptions,
	}
}

// defaultRetryPolicy is the default implementation of RetryPolicy.
type defaultRetryPolicy struct {
	cfg                 config.RetryConfig
	retryableExceptions []string
}

// GetMaxAttempts returns the maximum number of attempts.
func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.cfg.MaxAttempts
}

// ShouldRetry reports true for BatchErrors flagged retryable and for errors
// matching one of the configured exception names. Context cancellation never retries.
func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var be *exception.BatchError
	if errors.As(err, &be) && be.IsRetryable() {
		return true
	}

	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval returns InitialInterval * Factor^(attempt-1), capped at MaxInterval when set.
func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) int {
	if attempt < 1 {
		attempt = 1
	}
	interval := float64(p.cfg.InitialInterval) * math.Pow(p.cfg.Factor, float64(attempt-1))
	if p.cfg.MaxInterval > 0 && interval > float64(p.cfg.MaxInterval) {
		return p.cfg.MaxInterval
	}
	return int(interval)
}

// Do calls fn until it succeeds, the policy declines to retry, attempts run out, or ctx ends.
// fn receives the attempt number starting from 1. The last error is returned.
func Do(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt >= policy.GetMaxAttempts() || !policy.ShouldRetry(err) {
			return err
		}

		wait := time.Duration(policy.GetBackoffInterval(attempt)) * time.Millisecond
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// Verify interfaces
var _ RetryPolicy = (*defaultRetryPolicy)(nil)
