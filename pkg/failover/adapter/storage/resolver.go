package storage

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	coreConfig "github.com/tigerroll/seawall/pkg/failover/core/config"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

// connectionResolver implements StorageConnectionResolver over a set of
// registered providers, keyed by backend type.
type connectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// NewConnectionResolver creates a resolver from the registered storage
// providers. Providers are indexed by their Type(); a duplicate type is a
// configuration error.
func NewConnectionResolver(providers []StorageProvider, cfg *coreConfig.Config) (StorageConnectionResolver, error) {
	byType := make(map[string]StorageProvider, len(providers))
	for _, p := range providers {
		if _, ok := byType[p.Type()]; ok {
			return nil, fmt.Errorf("duplicate storage provider registered for type '%s'", p.Type())
		}
		byType[p.Type()] = p
	}
	return &connectionResolver{
		providers: byType,
		cfg:       cfg,
	}, nil
}

// ResolveStorageConnection resolves a StorageConnection by the given name.
// The backend type is read from the named entry in the storage configuration
// and dispatched to the matching provider.
func (r *connectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	namedConfig, ok := r.cfg.Seawall.StorageConfigs[name]
	if !ok {
		return nil, fmt.Errorf("storage connection '%s' not found in configuration", name)
	}

	var tempCfg struct {
		Type string `yaml:"type"` // Use yaml tag for decoding.
	}
	decoderConfig := &mapstructure.DecoderConfig{
		Result:  &tempCfg,
		TagName: "yaml",
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder for storage config '%s': %w", name, err)
	}
	if err := decoder.Decode(namedConfig); err != nil {
		return nil, fmt.Errorf("failed to decode storage type for '%s': %w", name, err)
	}

	provider, ok := r.providers[tempCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", tempCfg.Type, name)
	}

	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, tempCfg.Type, err)
	}
	logger.Debugf("Resolved storage connection '%s' (type '%s').", name, tempCfg.Type)
	return conn, nil
}
