package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	"github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/postgres"
)

func TestConnectionString(t *testing.T) {
	dsn := postgres.ConnectionString(dbconfig.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "dayche",
		Password: "secret",
		Database: "market",
		Schema:   "quotes",
		Params:   map[string]string{"application_name": "dayche"},
	})

	assert.Equal(t,
		"host=localhost port=5432 user=dayche password=secret dbname=market sslmode=disable search_path=quotes application_name=dayche",
		dsn)
}
