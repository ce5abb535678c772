// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	AppEnv    string
	Port      string
	DataDir   string
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		Port:      os.Getenv("PORT"),
		DataDir:   getEnv("DATA_DIR", "./tmp/data"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if cfg.Port == "" {
		return nil, fmt.Errorf("PORT is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
