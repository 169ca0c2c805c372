package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/job/runner"
	"github.com/tigerroll/dayche/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

func countingStep(name string, calls *[]string, err error) port.Step {
	return port.Step{
		Name: name,
		Tasklet: port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
			*calls = append(*calls, name)
			se.WriteCount = 2
			if err != nil {
				return model.ExitStatusFailed, err
			}
			return model.ExitStatusCompleted, nil
		}),
	}
}

func TestSimpleJobRunner_RunsStepsInOrder(t *testing.T) {
	var calls []string
	r := runner.NewSimpleJobRunner(logger.Discard(), nil, nil)
	je := model.NewJobExecution("ingest", nil)

	err := r.Run(context.Background(), je, []port.Step{
		countingStep("schema", &calls, nil),
		countingStep("fetch", &calls, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"schema", "fetch"}, calls)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	require.Len(t, je.StepExecutions, 2)
	for _, se := range je.StepExecutions {
		assert.Equal(t, model.BatchStatusCompleted, se.Status)
		assert.Equal(t, je.ID, se.JobExecutionID)
		assert.NotNil(t, se.EndTime)
	}
	assert.NotNil(t, je.EndTime)
}

func TestSimpleJobRunner_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	r := runner.NewSimpleJobRunner(logger.Discard(), nil, nil)
	je := model.NewJobExecution("ingest", nil)

	err := r.Run(context.Background(), je, []port.Step{
		countingStep("a", &calls, nil),
		countingStep("b", &calls, boom),
		countingStep("c", &calls, nil),
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.FailureList{"boom"}, je.Failures)
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[1].Status)
}

func TestSimpleJobRunner_RecoversPanic(t *testing.T) {
	r := runner.NewSimpleJobRunner(logger.Discard(), nil, nil)
	je := model.NewJobExecution("panics", nil)

	err := r.Run(context.Background(), je, []port.Step{{
		Name: "explode",
		Tasklet: port.TaskletFunc(func(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
			panic("kaboom")
		}),
	}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, model.BatchStatusFailed, je.Status)
}

func TestSimpleJobRunner_CancelledContext(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.NewSimpleJobRunner(logger.Discard(), nil, nil).Run(ctx, model.NewJobExecution("x", nil), []port.Step{
		countingStep("never", &calls, nil),
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func TestSimpleJobRunner_PersistsExecutions(t *testing.T) {
	var calls []string
	repo := inmemory.NewInMemoryJobRepository()
	r := runner.NewSimpleJobRunner(nil, nil, nil).WithJobRepository(repo)
	je := model.NewJobExecution("ingest", map[string]string{"symbol": "BTCUSD"})

	require.NoError(t, r.Run(context.Background(), je, []port.Step{countingStep("fetch", &calls, nil)}))

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, stored.Status)
	require.Len(t, stored.StepExecutions, 1)
	assert.Equal(t, 2, stored.StepExecutions[0].WriteCount)
	assert.Equal(t, model.BatchStatusCompleted, stored.StepExecutions[0].Status)
}
