// Package postgres provides a GORM DBProvider implementation for PostgreSQL databases.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	dbconfig "github.com/tigerroll/seawall/pkg/failover/adapter/database/config"
	gormadapter "github.com/tigerroll/seawall/pkg/failover/adapter/database/gorm"
	"github.com/tigerroll/seawall/pkg/failover/core/config"
)

// init registers the PostgreSQL dialector factory with the gorm adapter.
// This function is automatically called when the package is imported.
func init() {
	gormadapter.RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for PostgreSQL connections.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.Sslmode)
}

// PostgresDBProvider implements database.DBProvider for PostgreSQL connections.
type PostgresDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates a new database.DBProvider for PostgreSQL.
// This function is intended to be used with fx.Provide.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &PostgresDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "postgres")}
}
