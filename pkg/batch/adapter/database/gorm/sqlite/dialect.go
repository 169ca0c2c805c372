// Package sqlite registers the SQLite dialect with the gorm adapter.
package sqlite

import (
	"errors"
	"net/url"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the database file path with Params as query options.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if len(c.Params) == 0 {
		return c.Database
	}
	query := url.Values{}
	for _, k := range c.SortedParamKeys() {
		query.Set(k, c.Params[k])
	}
	return c.Database + "?" + query.Encode()
}
