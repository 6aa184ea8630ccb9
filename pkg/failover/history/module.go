package history

import "go.uber.org/fx"

// Module is an Fx module that provides the history exporter.
var Module = fx.Options(
	fx.Provide(NewExporter),
)
