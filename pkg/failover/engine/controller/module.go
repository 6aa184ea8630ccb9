package controller

import "go.uber.org/fx"

// Module is an Fx module that provides the execution controller.
var Module = fx.Options(
	fx.Provide(NewController),
)
