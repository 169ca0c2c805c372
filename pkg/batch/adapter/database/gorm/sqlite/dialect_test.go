package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	"github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/sqlite"
)

func TestConnectionString(t *testing.T) {
	assert.Equal(t, "quotes.db", sqlite.ConnectionString(dbconfig.DatabaseConfig{Database: "quotes.db"}))
	assert.Equal(t, "quotes.db?_busy_timeout=5000&_foreign_keys=on",
		sqlite.ConnectionString(dbconfig.DatabaseConfig{
			Database: "quotes.db",
			Params:   map[string]string{"_foreign_keys": "on", "_busy_timeout": "5000"},
		}))
}
