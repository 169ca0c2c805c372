package gorm

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// DialectorFactory builds a gorm.Dialector from a DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers factory for dbType, replacing any earlier registration.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory returns the factory registered for dbType.
// It returns a DriverNotInstalled error when none is registered.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, exception.NewDriverNotInstalled(dbType)
	}
	return factory, nil
}

// RegisteredDialects returns the registered database types in sorted order.
func RegisteredDialects() []string {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	types := make([]string, 0, len(dialectorRegistry))
	for t := range dialectorRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Provider opens named connections described in the "database" section of the configuration.
type Provider struct {
	cfg *config.Config
	log *logger.Logger

	connections map[string]database.DBConnection
	mu          sync.RWMutex
}

// NewProvider creates a Provider.
func NewProvider(cfg *config.Config, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Discard()
	}
	return &Provider{
		cfg:         cfg,
		log:         log,
		connections: make(map[string]database.DBConnection),
	}
}

// Type implements database.DBProvider.
func (p *Provider) Type() string {
	return "database"
}

// Register stores an already opened connection under name.
// GetConnection returns it instead of opening a new one.
func (p *Provider) Register(name string, conn database.DBConnection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connections[name] = conn
}

// GetConnection returns the named connection, opening it on first use.
func (p *Provider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}
	return p.createAndStoreConnection(name)
}

// ForceReconnect closes the named connection, if open, and opens it again.
func (p *Provider) ForceReconnect(name string) (database.DBConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.connections[name]; ok {
		if err := existing.Close(); err != nil {
			p.log.Warnf("Failed to close existing connection '%s' before reconnect: %v", name, err)
		}
		delete(p.connections, name)
	}

	conn, err := p.createAndStoreConnection(name)
	if err != nil {
		return nil, err
	}
	p.log.Infof("Re-established DB connection: %s (%s)", name, conn.Type())
	return conn, nil
}

// CloseAll closes every open connection and returns the last close error.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			p.log.Errorf("Failed to close connection '%s': %v", name, err)
			lastErr = err
		}
		delete(p.connections, name)
	}
	return lastErr
}

func (p *Provider) createAndStoreConnection(name string) (database.DBConnection, error) {
	raw, ok := p.cfg.Database[name]
	if !ok {
		return nil, fmt.Errorf("database configuration '%s' not found", name)
	}
	dbCfg, err := dbconfig.Bind(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration '%s': %w", name, err)
	}

	gormDB, err := p.connect(name, dbCfg)
	if err != nil {
		return nil, err
	}

	conn, err := NewGormDBAdapter(gormDB, dbCfg, name, p.log)
	if err != nil {
		return nil, exception.NewDatabaseConnectionError(name, err)
	}
	p.connections[name] = conn
	p.log.Infof("Established new DB connection: %s (%s)", name, dbCfg.Type)
	return conn, nil
}

func (p *Provider) connect(name string, dbCfg dbconfig.DatabaseConfig) (*gorm.DB, error) {
	factory, err := GetDialectorFactory(dbCfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(dbCfg)
	if err != nil {
		return nil, exception.NewDatabaseConnectionError(name, err)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(p.log, dbCfg.LogLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, exception.NewDatabaseConnectionError(name, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, exception.NewDatabaseConnectionError(name, err)
	}
	applyPool(sqlDB, dbCfg.Pool)
	return gormDB, nil
}

type poolSetter interface {
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)
}

func applyPool(db poolSetter, pool dbconfig.PoolConfig) {
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
}

var _ database.DBProvider = (*Provider)(nil)
