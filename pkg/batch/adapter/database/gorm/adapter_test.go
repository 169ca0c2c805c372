package gorm_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

type quoteRow struct {
	Symbol string  `gorm:"column:symbol"`
	Close  float64 `gorm:"column:close"`
}

func (quoteRow) TableName() string { return "quotes" }

func newMockAdapter(t *testing.T, autoCommit bool) (*gormadapter.GormDBAdapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 gormadapter.NewGormLogger(logger.Discard(), "SILENT"),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	cfg := dbconfig.DatabaseConfig{Type: "mysql", AutoCommit: autoCommit}
	a, err := gormadapter.NewGormDBAdapter(gdb, cfg, "default", logger.Discard())
	require.NoError(t, err)
	return a, mock
}

func TestGormDBAdapter_Metadata(t *testing.T) {
	a, _ := newMockAdapter(t, true)

	assert.Equal(t, "mysql", a.Type())
	assert.Equal(t, "default", a.Name())
	assert.True(t, a.Config().AutoCommit)
	sqlDB, err := a.GetSQLDB()
	require.NoError(t, err)
	assert.NotNil(t, sqlDB)
	assert.NotNil(t, a.TransactionManager())
}

func TestGormDBAdapter_ExecuteUpsert(t *testing.T) {
	a, mock := newMockAdapter(t, true)

	mock.ExpectExec("INSERT INTO `quotes` .* ON DUPLICATE KEY UPDATE `close`=VALUES\\(`close`\\)").
		WithArgs("BTCUSD", 42.5).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rows, err := a.ExecuteUpsert(context.Background(), &quoteRow{Symbol: "BTCUSD", Close: 42.5}, "quotes", []string{"symbol"}, []string{"close"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDBAdapter_Count(t *testing.T) {
	a, mock := newMockAdapter(t, true)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `quotes` WHERE `quotes`\\.`symbol` = \\?").
		WithArgs("ETHUSD").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := a.Count(context.Background(), &quoteRow{}, map[string]interface{}{"symbol": "ETHUSD"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDBAdapter_OpenSession(t *testing.T) {
	a, _ := newMockAdapter(t, false)

	s, err := a.OpenSession(context.Background())
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.AutoCommit())
	assert.True(t, s.IsConnected())
}

func TestGormTransactionManager_CommitAndRollback(t *testing.T) {
	a, mock := newMockAdapter(t, true)
	tm := a.TransactionManager()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `quotes`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := tm.Begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecuteUpdate(ctx, &quoteRow{Symbol: "BTCUSD", Close: 1}, "CREATE", "quotes", nil)
	require.NoError(t, err)
	require.NoError(t, tm.Commit(tx))

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err = tm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tm.Rollback(tx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
