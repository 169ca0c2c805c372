// Package config defines the configuration of a named database connection.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tigerroll/dayche/pkg/batch/support/util/configbinder"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds the settings of one database connection.
type DatabaseConfig struct {
	Type     string `yaml:"type"`     // Database type: "sqlserver", "postgres", "mysql" or "sqlite".
	Host     string `yaml:"host"`     // Database host address.
	Port     int    `yaml:"port"`     // Database port number.
	Database string `yaml:"database"` // Database name, or the file path for sqlite.
	User     string `yaml:"user"`     // Database user.
	Password string `yaml:"password"` // Database password.
	Schema   string `yaml:"schema"`   // Schema name (PostgreSQL search_path).
	Sslmode  string `yaml:"sslmode"`  // SSL mode for PostgreSQL.
	Instance string `yaml:"instance"` // SQL Server named instance.
	Encrypt  string `yaml:"encrypt"`  // SQL Server encrypt setting ("disable", "true", "false").

	TrustServerCertificate bool `yaml:"trust_server_certificate"`
	// ConnectTimeout is the login timeout in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`
	// AutoCommit makes script sessions commit each statement on its own.
	AutoCommit bool `yaml:"autocommit"`
	// LogLevel is the level of SQL logging ("SILENT", "ERROR", "WARN", "INFO").
	LogLevel string `yaml:"log_level"`
	// Params are appended to the connection string as driver specific options.
	Params map[string]string `yaml:"params"`
	Pool   PoolConfig        `yaml:"pool"`
}

// DefaultPort returns the conventional port of the configured type.
func (c DatabaseConfig) DefaultPort() int {
	switch strings.ToLower(c.Type) {
	case "sqlserver", "mssql":
		return 1433
	case "postgres":
		return 5432
	case "mysql":
		return 3306
	default:
		return 0
	}
}

// SortedParamKeys returns the keys of Params in a stable order.
func (c DatabaseConfig) SortedParamKeys() []string {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bind decodes a raw configuration entry into a DatabaseConfig.
func Bind(raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	props, ok := raw.(map[string]interface{})
	if !ok {
		return cfg, fmt.Errorf("database configuration must be a mapping, got %T", raw)
	}
	if err := configbinder.BindProperties(props, &cfg); err != nil {
		return cfg, err
	}
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Type == "mssql" {
		cfg.Type = "sqlserver"
	}
	if cfg.Type == "" {
		return cfg, fmt.Errorf("database configuration has no 'type'")
	}
	if cfg.Port == 0 {
		cfg.Port = cfg.DefaultPort()
	}
	return cfg, nil
}
