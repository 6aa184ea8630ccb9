package config

// Package config provides structures and utilities for managing the
// orchestrator configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed
// from main.go when the YAML is compiled into the binary.
type EmbeddedConfig []byte

// PollingConfig holds the job-poller cadence settings.
type PollingConfig struct {
	InitialInterval int     `yaml:"initial_interval"` // InitialInterval is the first poll delay in milliseconds.
	MaxInterval     int     `yaml:"max_interval"`     // MaxInterval caps the backoff interval in milliseconds.
	Factor          float64 `yaml:"factor"`           // Factor is the backoff multiplier (e.g., 2.0).
	MaxAttempts     int     `yaml:"max_attempts"`     // MaxAttempts bounds consecutive transient-error retries per job.
	MaxWaitSeconds  int     `yaml:"max_wait_seconds"` // MaxWaitSeconds bounds the total wait for one job before it is timed out.
}

// CredentialsConfig holds the credential-broker settings.
type CredentialsConfig struct {
	// ExpirySkewSeconds is subtracted from a credential's validity window so a
	// cache entry expires slightly before the credential itself.
	ExpirySkewSeconds int `yaml:"expiry_skew_seconds"`
	// DefaultRoleName is the role reference derived for accounts with no
	// explicit RoleRef.
	DefaultRoleName string `yaml:"default_role_name"`
}

// EngineConfig holds the execution-engine settings.
type EngineConfig struct {
	// Polling is the job poller cadence configuration.
	Polling PollingConfig `yaml:"polling"`
	// Credentials is the credential broker configuration.
	Credentials CredentialsConfig `yaml:"credentials"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// ExecutionStoreDBRef is the name of the database connection used by the
	// SQL execution store (e.g., "metadata").
	ExecutionStoreDBRef string `yaml:"execution_store_db_ref"`
	// HistoryArchiveStorageRef is the name of the storage connection used by
	// the history exporter (e.g., "audit").
	HistoryArchiveStorageRef string `yaml:"history_archive_storage_ref"`
	// HistoryArchiveBaseDir is the base directory within the storage bucket for
	// archived history files.
	HistoryArchiveBaseDir string `yaml:"history_archive_base_dir"`
	// HistoryArchiveCompression is the compression type for archived Parquet
	// files (e.g., "SNAPPY", "GZIP", "NONE").
	HistoryArchiveCompression string `yaml:"history_archive_compression"`
}

// SeawallConfig holds all configuration under the "seawall" top-level key.
type SeawallConfig struct {
	// Engine contains execution-engine configurations.
	Engine EngineConfig `yaml:"engine"`
	// System contains system-wide configurations.
	System SystemConfig `yaml:"system"`
	// Infrastructure contains infrastructure-related configurations.
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	// DatabaseConfigs holds named database connection configurations.
	DatabaseConfigs map[string]interface{} `yaml:"database"`
	// StorageConfigs holds named storage connection configurations.
	StorageConfigs map[string]interface{} `yaml:"storage"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Seawall contains the top-level orchestrator configuration.
	Seawall SeawallConfig `yaml:"seawall"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		Seawall: SeawallConfig{
			Engine: EngineConfig{
				Polling: PollingConfig{
					InitialInterval: 2000,
					MaxInterval:     30000,
					Factor:          2.0,
					MaxAttempts:     3,
					MaxWaitSeconds:  3600,
				},
				Credentials: CredentialsConfig{
					ExpirySkewSeconds: 60,
					DefaultRoleName:   "role/DRSOrchestrationRole",
				},
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Infrastructure: InfrastructureConfig{
				ExecutionStoreDBRef:       "metadata",
				HistoryArchiveStorageRef:  "audit",
				HistoryArchiveBaseDir:     "history",
				HistoryArchiveCompression: "SNAPPY",
			},
		},
	}

	// Initialized as empty maps, populated by YAML or by mergeConfig.
	cfg.Seawall.DatabaseConfigs = map[string]interface{}{}
	cfg.Seawall.StorageConfigs = map[string]interface{}{}
	return cfg
}
