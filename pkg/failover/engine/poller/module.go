package poller

import "go.uber.org/fx"

// Module is an Fx module that provides the job poller.
var Module = fx.Options(
	fx.Provide(NewPoller),
)
