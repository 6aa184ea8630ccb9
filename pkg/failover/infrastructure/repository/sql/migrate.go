package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	"github.com/tigerroll/seawall/pkg/failover/core/config"
	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable tracks applied schema versions for the execution store.
const migrationsTable = "failover_schema_migrations"

// Migrate applies all pending execution-store schema migrations against the
// configured metadata database. It is idempotent; a database already at the
// latest version is not an error.
func Migrate(ctx context.Context, dbResolver database.DBConnectionResolver, cfg *config.Config) error {
	dbName := cfg.Seawall.Infrastructure.ExecutionStoreDBRef
	conn, err := dbResolver.ResolveDBConnection(ctx, dbName)
	if err != nil {
		return exception.NewInternal(moduleName, fmt.Sprintf("failed to resolve DB connection '%s' for migration", dbName), err)
	}

	sqlDB, err := conn.GetSQLDB()
	if err != nil {
		return exception.NewInternal(moduleName, "failed to get underlying sql.DB for migration", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return exception.NewInternal(moduleName, "failed to create iofs source driver", err)
	}

	dbDriver, err := databaseDriver(conn.Type(), sqlDB)
	if err != nil {
		return exception.NewInternal(moduleName, "failed to create migration database driver", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, conn.Type(), dbDriver)
	if err != nil {
		return exception.NewInternal(moduleName, "failed to create migrate instance", err)
	}
	defer m.Close()

	logger.Infof("Applying execution store migrations (DB: %s, Type: %s)", dbName, conn.Type())
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return exception.NewInternal(moduleName, fmt.Sprintf("migration failed (DB: %s, Type: %s)", dbName, conn.Type()), err)
	}
	logger.Infof("Execution store schema is up to date.")
	return nil
}

// databaseDriver builds a migrate/v4 database driver for the given engine type.
func databaseDriver(dbType string, sqlDB *sql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}
