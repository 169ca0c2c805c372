// Package config holds the settings of storage connections.
package config

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type       string `yaml:"type"`        // Type of storage, currently only "local".
	BucketName string `yaml:"bucket_name"` // Default bucket, a subdirectory for local storage.
	BaseDir    string `yaml:"base_dir"`    // Base directory for local file system operations.
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig
