// Package adapter defines the resource abstractions shared by database and storage adapters.
package adapter

// ResourceConnection is a named, closable connection to an external resource.
type ResourceConnection interface {
	// Close releases the resources held by the connection.
	Close() error
	// Type returns the kind of backend (e.g., "sqlserver", "local").
	Type() string
	// Name returns the configured name of the connection.
	Name() string
}
