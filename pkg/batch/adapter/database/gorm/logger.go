package gorm

import (
	"fmt"
	"strings"
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// NewGormLogger creates a gorm logger that writes through log.
// level is one of "SILENT", "ERROR", "WARN" or "INFO"; anything else is SILENT.
func NewGormLogger(log *logger.Logger, level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch strings.ToUpper(level) {
	case "ERROR":
		gormLevel = gorm_logger.Error
	case "WARN":
		gormLevel = gorm_logger.Warn
	case "INFO":
		gormLevel = gorm_logger.Info
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(log),
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter routes gorm log lines to a *logger.Logger.
// SQL traces go to DEBUG, everything else to INFO.
type GormWriter struct {
	log *logger.Logger
}

// NewGormWriter creates a GormWriter.
func NewGormWriter(log *logger.Logger) *GormWriter {
	return &GormWriter{log: log}
}

// Printf implements gorm_logger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		w.log.Debugf("[GORM] %s", msg)
		return
	}
	w.log.Infof("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	upper := strings.ToUpper(msg)
	for _, kw := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "MERGE"} {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
