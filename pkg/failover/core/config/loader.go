package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/seawall/pkg/failover/support/util/exception"
	"github.com/tigerroll/seawall/pkg/failover/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// loadConfig loads configuration from the embedded YAML and environment
// variables. Called once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	// Defaults from NewConfig(), then YAML, then environment variables.
	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewInternal(moduleName, "failed to unmarshal embedded config", err)
	}

	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewInternal(moduleName, "failed to load config from environment variables", err)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config. It also
// sets the global logger level from the loaded configuration.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	logger.SetLogLevel(cfg.Seawall.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Seawall.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from the embedded YAML and environment
// variables, without touching global logger state.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig. Values
// in sourceConfig overwrite corresponding values in destConfig if they are not
// zero values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeSeawallConfig(&destConfig.Seawall, &sourceConfig.Seawall)
}

func mergeSeawallConfig(dest, source *SeawallConfig) {
	mergePollingConfig(&dest.Engine.Polling, &source.Engine.Polling)
	mergeCredentialsConfig(&dest.Engine.Credentials, &source.Engine.Credentials)
	mergeSystemConfig(&dest.System, &source.System)

	if source.Infrastructure.ExecutionStoreDBRef != "" {
		dest.Infrastructure.ExecutionStoreDBRef = source.Infrastructure.ExecutionStoreDBRef
	}
	if source.Infrastructure.HistoryArchiveStorageRef != "" {
		dest.Infrastructure.HistoryArchiveStorageRef = source.Infrastructure.HistoryArchiveStorageRef
	}
	if source.Infrastructure.HistoryArchiveBaseDir != "" {
		dest.Infrastructure.HistoryArchiveBaseDir = source.Infrastructure.HistoryArchiveBaseDir
	}
	if source.Infrastructure.HistoryArchiveCompression != "" {
		dest.Infrastructure.HistoryArchiveCompression = source.Infrastructure.HistoryArchiveCompression
	}

	if source.DatabaseConfigs != nil {
		if dest.DatabaseConfigs == nil {
			dest.DatabaseConfigs = make(map[string]interface{})
		}
		for key, value := range source.DatabaseConfigs {
			dest.DatabaseConfigs[key] = value
		}
	}
	if source.StorageConfigs != nil {
		if dest.StorageConfigs == nil {
			dest.StorageConfigs = make(map[string]interface{})
		}
		for key, value := range source.StorageConfigs {
			dest.StorageConfigs[key] = value
		}
	}
}

func mergePollingConfig(dest, source *PollingConfig) {
	if source.InitialInterval != 0 { dest.InitialInterval = source.InitialInterval }
	if source.MaxInterval != 0 { dest.MaxInterval = source.MaxInterval }
	if source.Factor != 0 { dest.Factor = source.Factor }
	if source.MaxAttempts != 0 { dest.MaxAttempts = source.MaxAttempts }
	if source.MaxWaitSeconds != 0 { dest.MaxWaitSeconds = source.MaxWaitSeconds }
}

func mergeCredentialsConfig(dest, source *CredentialsConfig) {
	if source.ExpirySkewSeconds != 0 { dest.ExpirySkewSeconds = source.ExpirySkewSeconds }
	if source.DefaultRoleName != "" { dest.DefaultRoleName = source.DefaultRoleName }
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" { dest.Timezone = source.Timezone }
	if source.Logging.Level != "" { dest.Logging.Level = source.Logging.Level }
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables, using the "yaml" tag to derive the variable name.
// Example: SEAWALL_ENGINE_POLLING_MAX_INTERVAL.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind. It
// handles string, int, float, and bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
