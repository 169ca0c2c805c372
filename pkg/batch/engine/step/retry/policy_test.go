package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/engine/step/retry"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

func TestBackoffInterval(t *testing.T) {
	p := retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 100,
		MaxInterval:     350,
		Factor:          2,
	}, nil)

	assert.Equal(t, 5, p.GetMaxAttempts())
	assert.Equal(t, 100, p.GetBackoffInterval(1))
	assert.Equal(t, 200, p.GetBackoffInterval(2))
	assert.Equal(t, 350, p.GetBackoffInterval(3))
	assert.Equal(t, 350, p.GetBackoffInterval(10))
}

func TestCreateNormalisesConfig(t *testing.T) {
	p := retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{InitialInterval: 50}, nil)

	assert.Equal(t, 1, p.GetMaxAttempts())
	assert.Equal(t, 50, p.GetBackoffInterval(4), "factor below 1 means a fixed interval")
}

func TestShouldRetry(t *testing.T) {
	p := retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{MaxAttempts: 3}, []string{"connection reset"})

	assert.False(t, p.ShouldRetry(nil))
	assert.True(t, p.ShouldRetry(exception.NewBatchError("reader", "503", nil, false, true)))
	assert.False(t, p.ShouldRetry(exception.NewBatchError("reader", "404", nil, false, false)))
	assert.True(t, p.ShouldRetry(errors.New("read: connection reset by peer")))
	assert.False(t, p.ShouldRetry(context.Canceled))
}

func TestDo(t *testing.T) {
	p := retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{MaxAttempts: 3, InitialInterval: 1, Factor: 1}, nil)
	retryable := exception.NewBatchError("reader", "503", nil, false, true)

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), p, func(attempt int) error {
			calls++
			if attempt < 3 {
				return retryable
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := retry.Do(context.Background(), p, func(int) error {
			calls++
			return retryable
		})
		assert.ErrorIs(t, err, retryable)
		assert.Equal(t, 3, calls)
	})

	t.Run("fatal errors are not retried", func(t *testing.T) {
		calls := 0
		fatal := errors.New("bad request")
		err := retry.Do(context.Background(), p, func(int) error {
			calls++
			return fatal
		})
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation stops waiting", func(t *testing.T) {
		slow := retry.NewDefaultRetryPolicyFactory().Create(config.RetryConfig{MaxAttempts: 3, InitialInterval: 60000}, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := retry.Do(ctx, slow, func(int) error { return retryable })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorIs(t, err, retryable)
	})
}
