package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter is an adapter that implements the fxevent.Logger interface.
type FxLoggerAdapter struct {
	log *Logger
}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter writing through l.
func NewFxLoggerAdapter(l *Logger) fxevent.Logger {
	return &FxLoggerAdapter{log: l}
}

// LogEvent logs events from Fx.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	l := a.log
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		l.Debugf("OnStart hook executing: %s", extractMeaningfulFunctionName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.Errorf("OnStart hook failed: %s, error: %v", extractMeaningfulFunctionName(e.FunctionName), e.Err)
		} else {
			l.Debugf("OnStart hook executed: %s", extractMeaningfulFunctionName(e.FunctionName))
		}
	case *fxevent.OnStopExecuting:
		l.Debugf("OnStop hook executing: %s", extractMeaningfulFunctionName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.Errorf("OnStop hook failed: %s, error: %v", extractMeaningfulFunctionName(e.FunctionName), e.Err)
		} else {
			l.Debugf("OnStop hook executed: %s", extractMeaningfulFunctionName(e.FunctionName))
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			l.Errorf("Supplied failed: %v", e.Err)
		} else {
			l.Debugf("Supplied: %s", e.TypeName)
		}
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			l.Debugf("Provided: %s", rtype)
		}
		if e.Err != nil {
			l.Errorf("Provide error: %v", e.Err)
		}
	case *fxevent.Invoking:
		l.Debugf("Invoking: %s", extractMeaningfulFunctionName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			l.Errorf("Invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		l.Debugf("Stopping signal received: %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			l.Errorf("Stop failed, error: %v", e.Err)
		}
	case *fxevent.RollingBack:
		l.Errorf("Start failed, rolling back, error: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			l.Errorf("Rollback failed, error: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			l.Errorf("Start failed, error: %v", e.Err)
		} else {
			l.Debugf("Application started.")
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			l.Errorf("Logger initialization failed, error: %v", e.Err)
		} else {
			l.Debugf("Custom logger initialized: %s", e.ConstructorName)
		}
	}
}

// extractMeaningfulFunctionName trims the package path from a fully qualified function name.
func extractMeaningfulFunctionName(fullName string) string {
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		fullName = fullName[idx+1:]
	}
	return strings.TrimSuffix(fullName, "()")
}
