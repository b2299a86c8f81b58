package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig reads the configuration from the specified JSON file.
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")

	viper.SetDefault("port", 8080)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("data_dir", ".")
	viper.SetDefault("chat_backend", BackendRemote)
	viper.SetDefault("secret_code", "0026123")
	viper.SetDefault("admin_code", "CLEAR_ALL_ROOMS")
	viper.SetDefault("removal_delay_ms", 300)

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.ChatBackend != BackendLocal && cfg.ChatBackend != BackendRemote {
		return cfg, fmt.Errorf("unknown chat_backend %q", cfg.ChatBackend)
	}

	return cfg, nil
}

// MustReadConfig reads the configuration or panics if there's an error.
func MustReadConfig(configPath string) Config {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
