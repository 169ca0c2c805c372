// Package mysql registers the MySQL dialect with the gorm adapter.
package mysql

import (
	"fmt"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN from cfg.
// Multi-statement batches are enabled since schema scripts rely on them.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	dc := driver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.MultiStatements = true
	if c.ConnectTimeout > 0 {
		dc.Timeout = time.Duration(c.ConnectTimeout) * time.Second
	}
	if len(c.Params) > 0 {
		dc.Params = make(map[string]string, len(c.Params))
		for k, v := range c.Params {
			dc.Params[k] = v
		}
	}
	return dc.FormatDSN()
}
