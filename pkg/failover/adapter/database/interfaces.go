// Package database defines the common interfaces for database adapters.
// These interfaces abstract relational storage so the execution store can run
// against different engines through a unified API.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/seawall/pkg/failover/adapter/database/config"
)

// DBExecutor defines common write and read operations for a database.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation (CREATE, UPDATE, DELETE).
	// For UPDATE and DELETE, 'query' narrows the affected rows.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteQueryAdvanced executes a read operation with optional sorting and limiting.
	// A slice value in the query map produces an IN clause.
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// Count counts the number of records matching the query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection represents an abstraction of a database connection.
type DBConnection interface {
	DBExecutor

	// Close releases the underlying connection.
	Close() error
	// Type returns the database type of this connection (e.g., "sqlite").
	Type() string
	// Name returns the configured name of this connection.
	Name() string
	// IsTableNotExistError checks if the given error indicates that a table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection verifies the connection is still valid.
	RefreshConnection(ctx context.Context) error
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
}

// DBConnectionResolver resolves named database connections by looking up the
// engine type in configuration and dispatching to the matching provider.
type DBConnectionResolver interface {
	// ResolveDBConnection resolves a database connection instance by name.
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// DBProvider is responsible for providing database connections of one engine
// type based on configuration.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the engine type handled by this provider.
	Type() string
	// ForceReconnect forces the closure and re-establishment of an existing connection with the specified name.
	ForceReconnect(name string) (DBConnection, error)
}

// DBProviderGroup is the Fx group tag used to collect all DBProvider implementations.
const DBProviderGroup = "db_providers"
