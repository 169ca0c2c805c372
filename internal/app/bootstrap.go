package app

import (
	"errors"
	"io"
	"io/fs"
	"os"

	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// DefaultConfigFile is read when no configuration path is given and it exists.
const DefaultConfigFile = "config.yaml"

// Options are the settings given on the command line.
type Options struct {
	ConfigPath string
	EnvFile    string
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Bootstrap loads the .env file and the configuration, then creates the logger.
// With logging.dir set, log lines go to a new file there and files older than
// logging.keep_days are removed. The returned closer must be closed on exit.
func Bootstrap(opts Options, stderr io.Writer) (*config.Config, *logger.Logger, io.Closer, error) {
	earlyLevel := opts.LogLevel
	if earlyLevel == "" {
		earlyLevel = "INFO"
	}
	early := logger.New(earlyLevel, stderr)
	config.LoadEnvFile(opts.EnvFile, early)

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	if cfg.Logging.Dir == "" {
		return cfg, logger.New(cfg.Logging.Level, stderr), io.NopCloser(nil), nil
	}

	fm := logger.NewFileManager(cfg.Logging.Prefix, cfg.Logging.Dir, cfg.Logging.NamePattern, cfg.Logging.Level, cfg.Logging.Console)
	if cfg.Logging.KeepDays > 0 {
		if removed, err := fm.Cleanup(cfg.Logging.KeepDays, false); err != nil {
			early.Warnf("Log cleanup failed: %v", err)
		} else if removed > 0 {
			early.Debugf("Removed %d old log file(s) from %s.", removed, cfg.Logging.Dir)
		}
	}
	log, path, runID, closer, err := fm.Setup()
	if err != nil {
		return nil, nil, nil, err
	}
	log.Infof("Run %s logging to %s.", runID, path)
	return cfg, log, closer, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return config.LoadConfig(DefaultConfigFile)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return config.ParseConfig(nil)
}
