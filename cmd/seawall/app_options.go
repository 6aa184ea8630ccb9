package main

import (
	"context"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database/gorm"
	"github.com/tigerroll/seawall/pkg/failover/adapter/database/gorm/sqlite"
	"github.com/tigerroll/seawall/pkg/failover/adapter/storage"
	"github.com/tigerroll/seawall/pkg/failover/adapter/storage/local"
	"github.com/tigerroll/seawall/pkg/failover/backend"
	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	model "github.com/tigerroll/seawall/pkg/failover/core/domain/model"
	repository "github.com/tigerroll/seawall/pkg/failover/core/domain/repository"
	"github.com/tigerroll/seawall/pkg/failover/credentials"
	"github.com/tigerroll/seawall/pkg/failover/engine/controller"
	"github.com/tigerroll/seawall/pkg/failover/engine/poller"
	"github.com/tigerroll/seawall/pkg/failover/history"
	infraMetrics "github.com/tigerroll/seawall/pkg/failover/infrastructure/metrics"
	inmemoryRepo "github.com/tigerroll/seawall/pkg/failover/infrastructure/repository/inmemory"
	sqlRepo "github.com/tigerroll/seawall/pkg/failover/infrastructure/repository/sql"
	"github.com/tigerroll/seawall/pkg/failover/listener/notification"
	logger "github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// demoPlanID is the recovery plan executed by the demo drill.
const demoPlanID = "plan-checkout-dr"

// GetApplicationOptions builds the uber-fx options and returns them as a slice.
func GetApplicationOptions(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		embeddedConfig,
		fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, infraMetrics.Module)

	// Relational execution store over SQLite, with the storage adapter for the
	// Parquet audit archive.
	options = append(options, gorm.Module)
	options = append(options, sqlite.Module)
	options = append(options, sqlRepo.Module)
	options = append(options, storage.Module)
	options = append(options, local.Module)
	options = append(options, history.Module)

	// Definitions are seeded in memory for the demo.
	options = append(options, fx.Provide(inmemoryRepo.NewInMemoryDefinitionStore))
	options = append(options, fx.Provide(func(s *inmemoryRepo.InMemoryDefinitionStore) repository.DefinitionRepository {
		return s
	}))

	// The scripted backend and locally minted credentials stand in for the
	// real recovery service.
	options = append(options, fx.Provide(backend.NewFakeClient))
	options = append(options, fx.Provide(func(c *backend.FakeClient) backend.Client { return c }))
	options = append(options, fx.Provide(func() credentials.Source {
		return credentials.NewStaticSource(15 * time.Minute)
	}))

	options = append(options, credentials.Module)
	options = append(options, poller.Module)
	options = append(options, notification.Module)
	options = append(options, controller.Module)

	options = append(options, fx.Invoke(seedDefinitions))
	options = append(options, fx.Invoke(fx.Annotate(startDrillExecution, fx.ParamTags("", "", "", "", `name:"appCtx"`))))

	return options
}

// seedDefinitions loads the demo plan, protection groups, and target accounts
// into the definition store.
func seedDefinitions(defs *inmemoryRepo.InMemoryDefinitionStore) error {
	accounts := []model.TargetAccount{
		{ID: "acct-dr-east", Name: "dr-east", ExternalID: "ext-7781"},
		{ID: "acct-dr-west", Name: "dr-west", ExternalID: "ext-7782", RoleRef: "role/CustomRecoveryRole"},
	}
	groups := []model.ProtectionGroup{
		{
			ID: "pg-databases", Name: "checkout databases",
			TargetAccountID: "acct-dr-east", TargetRegion: "us-east-2",
			Servers: []model.Server{{ID: "srv-db-1", Hostname: "db1.internal"}, {ID: "srv-db-2", Hostname: "db2.internal"}},
		},
		{
			ID: "pg-app", Name: "checkout app tier",
			TargetAccountID: "acct-dr-east", TargetRegion: "us-east-2",
			Servers: []model.Server{{ID: "srv-app-1", Hostname: "app1.internal"}, {ID: "srv-app-2", Hostname: "app2.internal"}},
		},
		{
			ID: "pg-edge", Name: "checkout edge",
			TargetAccountID: "acct-dr-west", TargetRegion: "us-west-2",
			Servers: []model.Server{{ID: "srv-edge-1", Hostname: "edge1.internal"}},
		},
	}
	plan := model.RecoveryPlan{
		ID:          demoPlanID,
		Name:        "checkout stack failover",
		Description: "Recover the checkout stack: databases first, then app tier, then edge.",
		Waves: []model.Wave{
			{ID: "w-db", Name: "databases", Sequence: 1, GroupIDs: []string{"pg-databases"}},
			{ID: "w-app", Name: "app tier", Sequence: 2, GroupIDs: []string{"pg-app"}},
			{ID: "w-edge", Name: "edge", Sequence: 3, GroupIDs: []string{"pg-edge"}, Predecessors: []string{"w-app"}},
		},
		CreateTime: time.Now(),
	}

	for _, account := range accounts {
		if err := defs.SeedAccount(account); err != nil {
			return err
		}
	}
	for _, group := range groups {
		if err := defs.SeedGroup(group); err != nil {
			return err
		}
	}
	return defs.SeedPlan(plan)
}
