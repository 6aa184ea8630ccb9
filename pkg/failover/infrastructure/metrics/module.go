package metrics

import (
	"go.uber.org/fx"
)

// Module is an Fx module that provides PrometheusRecorder and OpenTelemetryTracer.
// The constructors already return the core metrics interfaces, so they replace
// the no-op fallbacks directly.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewOpenTelemetryTracer),
)
