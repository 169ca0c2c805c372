package schema_test

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
)

// fakeSession records every call made on it.
type fakeSession struct {
	autoCommit   bool
	disconnected bool
	// fail returns the error for the n-th (1-based) execution of text, or nil.
	fail        func(text string, n int) error
	commitErr   error
	rollbackErr error

	calls           []string
	executions      map[string]int
	autoCommitCalls int
}

func newFakeSession(autoCommit bool) *fakeSession {
	return &fakeSession{autoCommit: autoCommit, executions: make(map[string]int)}
}

func (s *fakeSession) failOn(texts map[string]error) *fakeSession {
	s.fail = func(text string, _ int) error { return texts[text] }
	return s
}

func (s *fakeSession) Execute(_ context.Context, statement string) error {
	s.executions[statement]++
	s.calls = append(s.calls, "exec:"+statement)
	if s.fail != nil {
		return s.fail(statement, s.executions[statement])
	}
	return nil
}

func (s *fakeSession) Commit(context.Context) error {
	s.calls = append(s.calls, "commit")
	return s.commitErr
}

func (s *fakeSession) Rollback(context.Context) error {
	s.calls = append(s.calls, "rollback")
	return s.rollbackErr
}

func (s *fakeSession) AutoCommit() bool {
	s.autoCommitCalls++
	return s.autoCommit
}

func (s *fakeSession) IsConnected() bool {
	return !s.disconnected
}

func (s *fakeSession) count(call string) int {
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

// countingRecorder counts batch executions by status and script outcomes.
type countingRecorder struct {
	metrics.NoOpMetricRecorder

	mu       sync.Mutex
	batches  map[string]int
	outcomes []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{batches: make(map[string]int)}
}

func (r *countingRecorder) RecordBatchExecution(_ context.Context, _ string, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[status]++
}

func (r *countingRecorder) RecordScriptApply(_ context.Context, _ string, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}
