package notification

import "go.uber.org/fx"

// Module is an Fx module that provides the notification sink.
var Module = fx.Options(
	fx.Provide(NewLogNotifier),
)
