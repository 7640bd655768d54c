package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// cliConfig holds everything the CLI itself needs, as opposed to
// per-connection settings that live in a DSN. It is loaded once at
// startup and may be overridden per-invocation by flags.
type cliConfig struct {
	LogLevel   string `mapstructure:"log_level"`
	AutoCommit bool   `mapstructure:"autocommit"`
	DefaultDSN string `mapstructure:"dsn"`
}

func defaultCLIConfig() *cliConfig {
	return &cliConfig{
		LogLevel:   "warn",
		AutoCommit: true,
	}
}

func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pgasync"
	}
	return filepath.Join(home, ".pgasync")
}

// loadCLIConfig reads configPath (or the default search path), falling
// back silently to defaults when no config file exists. Environment
// variables prefixed PGASYNC_ always take precedence.
func loadCLIConfig(configPath string) (*cliConfig, error) {
	v := viper.New()

	defaults := defaultCLIConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("autocommit", defaults.AutoCommit)
	v.SetDefault("dsn", defaults.DefaultDSN)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigDir())
	}

	v.SetEnvPrefix("pgasync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &cliConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}
