// Package inmemory provides in-memory implementations of the execution and
// definition stores. This module integrates them into the application's
// dependency graph using Fx.
package inmemory

import (
	"go.uber.org/fx"

	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
)

// Module is an Fx module that provides the in-memory stores behind the
// repository interfaces.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewInMemoryExecutionStore,
			fx.As(new(repository.ExecutionStore)),
		),
	),
	fx.Provide(
		fx.Annotate(
			NewInMemoryDefinitionStore,
			fx.As(new(repository.DefinitionRepository)),
		),
	),
)
