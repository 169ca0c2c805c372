// Package sqlserver registers the SQL Server dialect with the gorm adapter.
// Import it for its side effect.
package sqlserver

import (
	"database/sql"
	"fmt"
	"net/url"
	"strconv"

	mssql "github.com/microsoft/go-mssqldb"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
)

func init() {
	gormadapter.RegisterDialector("sqlserver", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		connector, err := mssql.NewConnector(ConnectionString(cfg))
		if err != nil {
			return nil, fmt.Errorf("invalid sqlserver connection settings: %w", err)
		}
		return sqlserver.New(sqlserver.Config{Conn: sql.OpenDB(connector)}), nil
	})
}

// ConnectionString builds a sqlserver:// URL from cfg.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	query := url.Values{}
	if c.Database != "" {
		query.Set("database", c.Database)
	}
	if c.Encrypt != "" {
		query.Set("encrypt", c.Encrypt)
	}
	if c.TrustServerCertificate {
		query.Set("TrustServerCertificate", "true")
	}
	if c.ConnectTimeout > 0 {
		query.Set("connection timeout", strconv.Itoa(c.ConnectTimeout))
	}
	for _, k := range c.SortedParamKeys() {
		query.Set(k, c.Params[k])
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     c.Host,
		RawQuery: query.Encode(),
	}
	if c.Port > 0 {
		u.Host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.Instance != "" {
		u.Path = "/" + c.Instance
	}
	return u.String()
}
