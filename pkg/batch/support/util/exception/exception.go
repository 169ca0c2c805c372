// Package exception provides the error types shared by dayche components.
// Errors are categorised by kind (configuration, driver, connection, query,
// transaction, API) and by whether a caller may retry or skip them.
package exception

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Kind classifies a BatchError.
type Kind string

const (
	// KindGeneric is used for errors that carry no specific kind.
	KindGeneric Kind = ""
	// KindConfigFileNotFound is raised when a configuration file is missing.
	KindConfigFileNotFound Kind = "ConfigFileNotFound"
	// KindDriverNotInstalled is raised when no database dialect is registered for a configured type.
	KindDriverNotInstalled Kind = "DriverNotInstalled"
	// KindDatabaseConnectionError is raised when a database connection cannot be established.
	KindDatabaseConnectionError Kind = "DataBaseConnectionError"
	// KindQueryExecutionError is raised when a statement fails.
	KindQueryExecutionError Kind = "QueryExecutionError"
	// KindTransactionError is raised when commit or rollback fails.
	KindTransactionError Kind = "TransactionError"
	// KindAPIURLNotFound is raised when the quote API base URL is not configured.
	KindAPIURLNotFound Kind = "APIURLNotFound"
)

// errorRegistry maps names used in retry configuration to sentinel errors.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers a sentinel error under name so that IsErrorOfType can find it with errors.Is.
// It panics on an empty name or a nil prototype.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// BatchError is the common error type of dayche.
// It holds the module where the error occurred, a message, the wrapped original error,
// its kind, and flags indicating whether it is retryable or skippable.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "reader", "writer", "config", "schema").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind classifies the error. Empty for generic errors.
	Kind Kind
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string

	isRetryable bool
	isSkippable bool
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError instance using a format string.
// Optional trailing arguments are extracted from the end of 'a' in this order:
// [originalErr error], then [isRetryable bool], then [isSkippable bool].
// The remaining arguments are used for fmt.Sprintf.
//
// Examples:
//
//	NewBatchErrorf("reader", "request for %s failed", symbol, true, err)  // retryable, wraps err
//	NewBatchErrorf("writer", "upsert failed", err)                         // fatal, wraps err
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

func newKindError(kind Kind, module, message string, cause error, retryable bool) *BatchError {
	be := NewBatchError(module, message, cause, false, retryable)
	be.Kind = kind
	return be
}

// NewConfigFileNotFound reports a missing configuration file.
func NewConfigFileNotFound(path string, cause error) *BatchError {
	return newKindError(KindConfigFileNotFound, "config", fmt.Sprintf("file %s not found", path), cause, false)
}

// NewDriverNotInstalled reports that no driver is available for a database type.
func NewDriverNotInstalled(dbType string) *BatchError {
	return newKindError(KindDriverNotInstalled, "database", fmt.Sprintf("no driver registered for database type '%s'", dbType), nil, false)
}

// NewDatabaseConnectionError reports a failed connection attempt. It is retryable.
func NewDatabaseConnectionError(name string, cause error) *BatchError {
	return newKindError(KindDatabaseConnectionError, "database", fmt.Sprintf("connection '%s' failed", name), cause, true)
}

// NewQueryExecutionError reports a failed statement.
func NewQueryExecutionError(module, message string, cause error) *BatchError {
	return newKindError(KindQueryExecutionError, module, message, cause, false)
}

// NewTransactionError reports a failed commit or rollback.
func NewTransactionError(module, message string, cause error) *BatchError {
	return newKindError(KindTransactionError, module, message, cause, false)
}

// NewAPIURLNotFound reports a missing API base URL.
func NewAPIURLNotFound(message string) *BatchError {
	return newKindError(KindAPIURLNotFound, "reader", message, nil, false)
}

// Error implements the error interface.
// Kind errors render as "<Kind>: <message> caused by <cause>"; others as "[module] message: cause".
func (e *BatchError) Error() string {
	if e.Kind != KindGeneric {
		if e.OriginalErr != nil {
			return fmt.Sprintf("%s: %s caused by %v", e.Kind, e.Message, e.OriginalErr)
		}
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsKind reports whether err or any error it wraps is a BatchError of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var be *BatchError
		if !errors.As(err, &be) {
			return false
		}
		if be.Kind == kind {
			return true
		}
		err = be.OriginalErr
	}
	return false
}

// IsConfigFileNotFound reports whether err is a ConfigFileNotFound error.
func IsConfigFileNotFound(err error) bool { return IsKind(err, KindConfigFileNotFound) }

// IsDriverNotInstalled reports whether err is a DriverNotInstalled error.
func IsDriverNotInstalled(err error) bool { return IsKind(err, KindDriverNotInstalled) }

// IsDatabaseConnectionError reports whether err is a DataBaseConnectionError.
func IsDatabaseConnectionError(err error) bool { return IsKind(err, KindDatabaseConnectionError) }

// IsQueryExecutionError reports whether err is a QueryExecutionError.
func IsQueryExecutionError(err error) bool { return IsKind(err, KindQueryExecutionError) }

// IsTransactionError reports whether err is a TransactionError.
func IsTransactionError(err error) bool { return IsKind(err, KindTransactionError) }

// IsAPIURLNotFound reports whether err is an APIURLNotFound error.
func IsAPIURLNotFound(err error) bool { return IsKind(err, KindAPIURLNotFound) }

// IsTemporary determines if an error is temporary (e.g., network error, temporary DB connection issue).
// If the chain holds a BatchError, its IsRetryable flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF")
}

// IsFatal determines if an error can be neither retried nor skipped.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied")
}

// IsErrorOfType checks if an error matches a type name.
// errorTypeName may be a registered sentinel name, a Go type name (e.g., "*net.OpError"),
// or a substring of an error message in the chain.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, targetError) {
		return true
	}

	for currentErr := err; currentErr != nil; currentErr = errors.Unwrap(currentErr) {
		if strings.Contains(currentErr.Error(), errorTypeName) {
			return true
		}
		errType := reflect.TypeOf(currentErr)
		if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
			return true
		}
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType("io.EOF", io.EOF)
	RegisterErrorType("io.ErrUnexpectedEOF", io.ErrUnexpectedEOF)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
}
