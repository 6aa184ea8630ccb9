package credentials

import "go.uber.org/fx"

// Module is an Fx module that provides the credential broker.
var Module = fx.Options(
	fx.Provide(NewBroker),
)
