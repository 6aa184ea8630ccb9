package gorm

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/tigerroll/seawall/pkg/failover/adapter/database"
	dbconfig "github.com/tigerroll/seawall/pkg/failover/adapter/database/config"
	config "github.com/tigerroll/seawall/pkg/failover/core/config"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// GormDBConnectionResolver is the GORM implementation of database.DBConnectionResolver.
type GormDBConnectionResolver struct {
	dbProviders map[string]database.DBProvider // DBProviders keyed by database type.
	cfg         *config.Config
}

// NewGormDBConnectionResolver creates a new GormDBConnectionResolver from the
// registered DBProviders.
func NewGormDBConnectionResolver(providers []database.DBProvider, cfg *config.Config) database.DBConnectionResolver {
	providerMap := make(map[string]database.DBProvider)
	for _, provider := range providers {
		providerMap[provider.Type()] = provider
	}

	return &GormDBConnectionResolver{
		dbProviders: providerMap,
		cfg:         cfg,
	}
}

// ResolveDBConnection resolves a database connection with the specified name.
// It attempts to reconnect if the connection is closed or invalid.
func (r *GormDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	// 1. Get the engine type from configuration.
	rawConfig, ok := r.cfg.Seawall.DatabaseConfigs[name]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: database configuration '%s' not found", name)
	}

	var dbConfig dbconfig.DatabaseConfig
	decoderConfig := &mapstructure.DecoderConfig{
		Result:  &dbConfig,
		TagName: "yaml",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to create decoder for '%s': %w", name, err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to decode database config for '%s': %w", name, err)
	}

	// 2. Select the appropriate DBProvider.
	provider, ok := r.dbProviders[dbConfig.Type]
	if !ok {
		return nil, fmt.Errorf("DBConnectionResolver: DBProvider for type '%s' not found for connection '%s'", dbConfig.Type, name)
	}

	// 3. Get the connection from the DBProvider.
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("DBConnectionResolver: failed to get connection '%s': %w", name, err)
	}

	// 4. Check connection health and reconnect if necessary.
	sqlDB, getDBErr := conn.GetSQLDB()
	if getDBErr != nil {
		logger.Debugf("DBConnectionResolver: failed to get underlying *sql.DB for connection '%s': %v", name, getDBErr)
		return conn, nil
	}

	if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		logger.Warnf("DBConnectionResolver: connection '%s' is invalid (%v). Attempting to reconnect.", name, pingErr)
		reconnectedConn, reconnectErr := provider.ForceReconnect(name)
		if reconnectErr != nil {
			return nil, fmt.Errorf("DBConnectionResolver: failed to reconnect connection '%s': %w", name, reconnectErr)
		}
		logger.Infof("DBConnectionResolver: successfully reconnected connection '%s'.", name)
		return reconnectedConn, nil
	}

	return conn, nil
}

var _ database.DBConnectionResolver = (*GormDBConnectionResolver)(nil)
