package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/dayche/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/dayche/pkg/batch/adapter/storage/config"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// ExportConnection is the storage connection name exports are written to.
const ExportConnection = "export"

// Module provides a StorageProvider whose "export" connection is rooted at export.base_dir.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProviderFromConfig,
		fx.As(new(storageAdapter.StorageProvider)),
	)),
)

// NewProviderFromConfig creates a LocalProvider from the application configuration.
func NewProviderFromConfig(cfg *config.Config, log *logger.Logger) *LocalProvider {
	return NewLocalProvider(storageConfig.DatasourcesConfig{
		ExportConnection: {Type: ProviderType, BaseDir: cfg.Export.BaseDir},
	}, log)
}
