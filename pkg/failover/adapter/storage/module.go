package storage

import (
	"go.uber.org/fx"
)

// Module is the Fx module for the storage adapter layer.
// It collects the providers registered under group:"storage_providers" and
// exposes a StorageConnectionResolver built over them.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConnectionResolver,
		fx.ParamTags(`group:"storage_providers"`),
	)),
)
