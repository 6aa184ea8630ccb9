// Package config provides core configuration structures and utilities for the
// orchestrator. This module defines Fx providers for configuration-related
// components.
package config

import "go.uber.org/fx"

// NewEngineConfigProvider extracts and provides *EngineConfig from *Config.
// This allows engine components to depend only on their own configuration.
func NewEngineConfigProvider(cfg *Config) *EngineConfig {
	return &cfg.Seawall.Engine
}

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Seawall.System.Logging
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewEngineConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
)
