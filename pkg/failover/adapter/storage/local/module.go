// Package local provides the Fx module for the local storage adapter.
package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/seawall/pkg/failover/adapter/storage"
)

// Module is the Fx module for the local storage adapter.
// It provides the LocalProvider to the Fx application graph.
var Module = fx.Options(
	// Provide NewLocalProvider and tag it with group:"storage_providers".
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
