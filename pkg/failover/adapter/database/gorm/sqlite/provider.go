// Package sqlite provides a GORM DBProvider implementation for SQLite databases.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	dbconfig "github.com/tigerroll/seawall/pkg/failover/adapter/database/config"
	gormadapter "github.com/tigerroll/seawall/pkg/failover/adapter/database/gorm"
	"github.com/tigerroll/seawall/pkg/failover/core/config"
)

// init registers the SQLite dialector factory with the gorm adapter.
// This function is automatically called when the package is imported.
func init() {
	gormadapter.RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString generates the DSN for SQLite connections.
// The GORM SQLite dialector expects the file path directly.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

// SQLiteDBProvider implements database.DBProvider for SQLite connections.
type SQLiteDBProvider struct {
	*gormadapter.BaseProvider
}

// NewProvider creates a new database.DBProvider for SQLite.
// This function is intended to be used with fx.Provide.
func NewProvider(cfg *config.Config) database.DBProvider {
	return &SQLiteDBProvider{BaseProvider: gormadapter.NewBaseProvider(cfg, "sqlite")}
}
