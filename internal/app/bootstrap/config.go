// Package bootstrap wires configuration, logging, storage, gateways and
// the HTTP server into a runnable service.
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	ServiceName string
	HTTPPort    int

	GitHubToken      string
	ChannelBridgeURL string

	Store    string
	RedisURL string

	OperationTimeout time.Duration
	LogLevel         string
}

type configFile struct {
	Service struct {
		Name     string `yaml:"name"`
		HTTPPort int    `yaml:"http_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		ChannelBridgeURL string `yaml:"channel_bridge_url"`
		RedisURL         string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Limits struct {
		OperationTimeoutSeconds int `yaml:"operation_timeout_seconds"`
	} `yaml:"limits"`
	Store string `yaml:"store"`
}

// LoadConfig layers defaults, the optional yaml file and environment
// overrides, in that order. Secrets (the API token) come from the
// environment only.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceName:      "gityap",
		HTTPPort:         8080,
		Store:            StoreMemory,
		OperationTimeout: 60 * time.Second,
		LogLevel:         "info",
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			var f configFile
			if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
				return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
			}
			if f.Service.Name != "" {
				cfg.ServiceName = f.Service.Name
			}
			if f.Service.HTTPPort > 0 {
				cfg.HTTPPort = f.Service.HTTPPort
			}
			if f.Service.LogLevel != "" {
				cfg.LogLevel = f.Service.LogLevel
			}
			if f.Dependencies.ChannelBridgeURL != "" {
				cfg.ChannelBridgeURL = f.Dependencies.ChannelBridgeURL
			}
			if f.Dependencies.RedisURL != "" {
				cfg.RedisURL = f.Dependencies.RedisURL
			}
			if f.Limits.OperationTimeoutSeconds > 0 {
				cfg.OperationTimeout = time.Duration(f.Limits.OperationTimeoutSeconds) * time.Second
			}
			if f.Store != "" {
				cfg.Store = f.Store
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.HTTPPort = port
		}
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("CHANNEL_BRIDGE_URL"); v != "" {
		cfg.ChannelBridgeURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("GITYAP_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if cfg.Store != StoreMemory && cfg.Store != StoreRedis {
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
	if cfg.Store == StoreRedis && cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("store %q requires a redis url", StoreRedis)
	}
	return cfg, nil
}
