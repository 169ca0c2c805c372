package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

const (
	snippetLength = 80
	hashLength    = 12
)

// ErrEmptyScript is the cause of a SourceUnavailableError for a script without any text.
var ErrEmptyScript = errors.New("script is empty")

// NotConnectedError is returned when Apply is called without a usable session.
type NotConnectedError struct {
	Reason string
}

func (e *NotConnectedError) Error() string {
	if e.Reason == "" {
		return "schema: session is not connected"
	}
	return "schema: session is not connected: " + e.Reason
}

// SourceUnavailableError is returned when a script cannot be loaded.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("schema: script source %q unavailable: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// BatchFailure describes one failed batch execution.
type BatchFailure struct {
	// Index is the index of the batch in the plan.
	Index int
	// Attempt is the 1-based repetition that failed.
	Attempt int
	// Snippet is the start of the batch text with whitespace collapsed.
	Snippet string
	// Hash identifies the full batch text.
	Hash string
	Err  error
}

func (f BatchFailure) String() string {
	return fmt.Sprintf("batch %d (attempt %d, %s) %q: %v", f.Index, f.Attempt, f.Hash, f.Snippet, f.Err)
}

func newBatchFailure(b Batch, attempt int, err error) BatchFailure {
	return BatchFailure{
		Index:   b.Index,
		Attempt: attempt,
		Snippet: Snippet(b.Text),
		Hash:    Hash(b.Text),
		Err:     err,
	}
}

// BatchExecutionError is returned in fail-fast mode for the first failing batch.
type BatchExecutionError struct {
	Index   int
	Attempt int
	Snippet string
	Hash    string
	// Succeeded is the number of batches that completed before the failure.
	Succeeded int
	Err       error
	// RollbackErr is set when the rollback after the failure failed too.
	RollbackErr error
}

func (e *BatchExecutionError) Error() string {
	msg := fmt.Sprintf("schema: batch %d (attempt %d, %s) failed after %d successful batch(es): %v; batch: %q",
		e.Index, e.Attempt, e.Hash, e.Succeeded, e.Err, e.Snippet)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf("; rollback failed: %v", e.RollbackErr)
	}
	return msg
}

func (e *BatchExecutionError) Unwrap() error {
	return e.Err
}

// AggregateExecutionError is returned in continue mode when at least one batch failed.
type AggregateExecutionError struct {
	Failures []BatchFailure
	// Total is the number of batches in the plan.
	Total int
	// RollbackErr is set when the rollback after the failures failed.
	RollbackErr error

	errs *multierror.Error
}

func newAggregateExecutionError(failures []BatchFailure, total int) *AggregateExecutionError {
	var errs *multierror.Error
	for _, f := range failures {
		errs = multierror.Append(errs, f.Err)
	}
	return &AggregateExecutionError{Failures: failures, Total: total, errs: errs}
}

func (e *AggregateExecutionError) Error() string {
	msg := fmt.Sprintf("schema: %d error(s) in %d batch(es)", len(e.Failures), e.Total)
	if len(e.Failures) > 0 {
		msg += "; first: " + e.Failures[0].String()
	}
	if e.RollbackErr != nil {
		msg += fmt.Sprintf("; rollback failed: %v", e.RollbackErr)
	}
	return msg
}

// Unwrap exposes every batch error to errors.Is and errors.As.
func (e *AggregateExecutionError) Unwrap() error {
	return e.errs.ErrorOrNil()
}

// Snippet collapses whitespace in text and cuts it to a short prefix for error messages.
func Snippet(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= snippetLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:snippetLength]) + "..."
}

// Hash returns a short sha256 digest of text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sha256:" + hex.EncodeToString(sum[:])[:hashLength]
}
