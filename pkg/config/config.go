// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Neuract is the global configuration object
var Neuract *viper.Viper

func init() {
	Neuract = viper.New()
	Neuract.SetConfigName("neuract")
	Neuract.SetConfigType("yaml")
	Neuract.SetEnvPrefix("NEURACT")
	Neuract.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Neuract.AutomaticEnv()
	initConfig(Neuract)
}

// initConfig initializes the config defaults on a config
func initConfig(config *viper.Viper) {
	// Agent
	bindEnvAndSetDefault(config, "log_level", "info")

	// Catalog
	bindEnvAndSetDefault(config, "catalog.driver", "sqlite3")
	bindEnvAndSetDefault(config, "catalog.dsn", "neuract-catalog.db")

	// Protocols
	bindEnvAndSetDefault(config, "modbus.default_timeout_ms", 3000)
	bindEnvAndSetDefault(config, "opcua.default_timeout_ms", 3000)

	// Jobs
	bindEnvAndSetDefault(config, "jobs.join_timeout_ms", 5000)

	// Telemetry
	bindEnvAndSetDefault(config, "telemetry.enabled", true)
	bindEnvAndSetDefault(config, "telemetry.port", 9090)
}

func bindEnvAndSetDefault(config *viper.Viper, key string, val interface{}) {
	config.BindEnv(key) //nolint:errcheck
	config.SetDefault(key, val)
}

// Load reads the config file from the given paths; a missing file is not an
// error, defaults and environment variables still apply.
func Load(paths ...string) error {
	for _, p := range paths {
		Neuract.AddConfigPath(p)
	}
	if err := Neuract.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}
