package logger

import "go.uber.org/fx"

// Module routes Fx's own lifecycle events through the application *Logger.
// The *Logger itself must be supplied by the application.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
