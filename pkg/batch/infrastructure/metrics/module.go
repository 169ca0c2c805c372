package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	metrics "github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// Module is an Fx module that provides the metrics.MetricRecorder and metrics.Tracer
// selected by configuration. Disabled concerns get the no-op implementations.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)

// NewMetricRecorder returns a PrometheusRecorder when metrics are enabled.
// With a textfile configured, the registry is written there when the application stops.
func NewMetricRecorder(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) metrics.MetricRecorder {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpMetricRecorder()
	}
	recorder := NewPrometheusRecorder(log)
	if path := cfg.Metrics.Textfile; path != "" {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return recorder.WriteTextfile(path)
			},
		})
	}
	return recorder
}

// NewTracer returns an OpenTelemetryTracer exporting over OTLP/HTTP when tracing is enabled.
// The provider is shut down, flushing pending spans, when the application stops.
func NewTracer(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) (metrics.Tracer, error) {
	if !cfg.Tracing.Enabled {
		return metrics.NewNoOpTracer(), nil
	}
	provider, err := NewTracerProvider(context.Background(), cfg.Tracing)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: provider.Shutdown})
	log.Infof("Tracing enabled, exporting to %s.", cfg.Tracing.Endpoint)
	return NewOpenTelemetryTracer(provider, log), nil
}
