package sql

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	"github.com/tigerroll/seawall/pkg/failover/core/config"
)

// Module is an Fx module that provides the SQL-backed ExecutionStore and runs
// schema migrations on startup, before any component touches the store.
var Module = fx.Options(
	fx.Provide(NewSQLExecutionStore),
	fx.Invoke(func(lc fx.Lifecycle, dbResolver database.DBConnectionResolver, cfg *config.Config) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return Migrate(ctx, dbResolver, cfg)
			},
		})
	}),
)
