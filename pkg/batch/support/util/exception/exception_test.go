package exception_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("CustomError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("db connection refused")
	be := exception.NewBatchError("db", "failed to connect", originalErr, false, true)

	assert.Equal(t, "db", be.Module)
	assert.Equal(t, "failed to connect", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[db] failed to connect: db connection refused", be.Error())
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("reader", "item %d not found", 10)
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Equal(t, "[reader] item 10 not found", be1.Error())

	be2 := exception.NewBatchErrorf("net", "timeout occurred", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	be3 := exception.NewBatchErrorf("item", "data error in item %d", 5, true, false)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())

	cause := errors.New("io error")
	be4 := exception.NewBatchErrorf("io", "read %s failed", "BTCUSD", true, cause)
	assert.True(t, be4.IsRetryable())
	assert.Equal(t, cause, be4.Unwrap())
	assert.Equal(t, "[io] read BTCUSD failed: io error", be4.Error())
}

func TestKindErrors(t *testing.T) {
	cause := errors.New("login failed")

	cfg := exception.NewConfigFileNotFound("config.yaml", nil)
	assert.Equal(t, "ConfigFileNotFound: file config.yaml not found", cfg.Error())
	assert.True(t, exception.IsConfigFileNotFound(cfg))
	assert.False(t, exception.IsAPIURLNotFound(cfg))

	conn := exception.NewDatabaseConnectionError("default", cause)
	assert.Equal(t, "DataBaseConnectionError: connection 'default' failed caused by login failed", conn.Error())
	assert.True(t, exception.IsDatabaseConnectionError(conn))
	assert.True(t, conn.IsRetryable())
	assert.ErrorIs(t, conn, cause)

	assert.True(t, exception.IsDriverNotInstalled(exception.NewDriverNotInstalled("oracle")))
	assert.True(t, exception.IsQueryExecutionError(exception.NewQueryExecutionError("schema", "exec failed", cause)))
	assert.True(t, exception.IsAPIURLNotFound(exception.NewAPIURLNotFound("API base URL not configured")))

	// A kind error buried under a generic wrapper is still found.
	txErr := exception.NewTransactionError("schema", "commit failed", cause)
	wrapped := exception.NewBatchError("tasklet", "apply failed", fmt.Errorf("step: %w", txErr), false, false)
	assert.True(t, exception.IsTransactionError(wrapped))
	assert.False(t, exception.IsTransactionError(cause))
	assert.False(t, exception.IsTransactionError(nil))
}

func TestIsTemporaryAndIsFatal(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(exception.NewBatchError("net", "503", nil, false, true)))
	assert.True(t, exception.IsTemporary(fmt.Errorf("wrapped: %w", exception.NewBatchError("net", "503", nil, false, true))))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error")))

	assert.False(t, exception.IsFatal(nil))
	assert.True(t, exception.IsFatal(exception.NewBatchError("writer", "bad", nil, false, false)))
	assert.False(t, exception.IsFatal(exception.NewBatchError("writer", "skip me", nil, true, false)))
	assert.True(t, exception.IsFatal(errors.New("permission denied")))
}

func TestIsErrorOfType(t *testing.T) {
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("read: %w", io.EOF), "io.EOF"))
	assert.True(t, exception.IsErrorOfType(&CustomError{Msg: "x"}, "*exception_test.CustomError"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("outer: %w", &CustomError{Msg: "x"}), "exception_test.CustomError"))
	assert.True(t, exception.IsErrorOfType(errors.New("connection reset by peer"), "connection reset"))
	assert.False(t, exception.IsErrorOfType(errors.New("other"), "io.EOF"))
	assert.False(t, exception.IsErrorOfType(nil, "io.EOF"))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "clean message", exception.ExtractErrorMessage(exception.NewBatchError("m", "clean message", errors.New("x"), false, false)))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
