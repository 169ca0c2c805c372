package writer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/component/step/writer"
	"github.com/tigerroll/dayche/pkg/batch/core/tx"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

type upsertCall struct {
	rows     int
	table    string
	conflict []string
}

type recordingTx struct {
	calls []upsertCall
	err   error
}

func (r *recordingTx) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	return 0, nil
}

func (r *recordingTx) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	rows := model.([]quoteRow)
	r.calls = append(r.calls, upsertCall{rows: len(rows), table: tableName, conflict: conflictColumns})
	return int64(len(rows)), nil
}

func (r *recordingTx) Savepoint(name string) error           { return nil }
func (r *recordingTx) RollbackToSavepoint(name string) error { return nil }

var _ tx.Tx = (*recordingTx)(nil)

func TestSqlBulkWriter_ChunksWithinContextTx(t *testing.T) {
	rec := &recordingTx{}
	w := writer.NewSqlBulkWriter[quoteRow]("quotes", "quotes", []string{"symbol"}, []string{"close"}, writer.WithBulkSize(2))
	ctx := tx.WithTx(context.Background(), rec)

	require.NoError(t, w.Open(ctx))
	require.NoError(t, w.Write(ctx, []quoteRow{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}, {Symbol: "D"}, {Symbol: "E"}}))
	require.NoError(t, w.Close(ctx))

	require.Len(t, rec.calls, 3)
	assert.Equal(t, []int{2, 2, 1}, []int{rec.calls[0].rows, rec.calls[1].rows, rec.calls[2].rows})
	assert.Equal(t, "quotes", rec.calls[0].table)
	assert.Equal(t, []string{"symbol"}, rec.calls[0].conflict)
	assert.EqualValues(t, 5, w.Written())
}

func TestSqlBulkWriter_FallbackExecutor(t *testing.T) {
	rec := &recordingTx{}
	w := writer.NewSqlBulkWriter[quoteRow]("quotes", "quotes", []string{"symbol"}, nil, writer.WithExecutor(rec))

	require.NoError(t, w.Write(context.Background(), []quoteRow{{Symbol: "A"}}))
	assert.Len(t, rec.calls, 1)
}

func TestSqlBulkWriter_NoExecutor(t *testing.T) {
	w := writer.NewSqlBulkWriter[quoteRow]("quotes", "quotes", []string{"symbol"}, nil)
	err := w.Write(context.Background(), []quoteRow{{Symbol: "A"}})
	assert.ErrorContains(t, err, "no transaction in context")
}

func TestSqlBulkWriter_UpsertFailure(t *testing.T) {
	rec := &recordingTx{err: errors.New("deadlock")}
	w := writer.NewSqlBulkWriter[quoteRow]("quotes", "quotes", []string{"symbol"}, nil, writer.WithExecutor(rec))

	err := w.Write(context.Background(), []quoteRow{{Symbol: "A"}})
	require.Error(t, err)
	assert.True(t, exception.IsQueryExecutionError(err))
	assert.ErrorContains(t, err, "deadlock")
	assert.Zero(t, w.Written())
}
