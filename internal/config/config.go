// Package config loads service configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the service.
type Config struct {
	Port      string `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`

	// StoreBackend selects the record store: "sqlite" or "redis".
	StoreBackend  string `yaml:"store_backend"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	SignalTTLHours    int `yaml:"signal_ttl_hours"`
	PollIntervalMS    int `yaml:"poll_interval_ms"`
	PollBatchSize     int `yaml:"poll_batch_size"`
	SignalLookback    int `yaml:"signal_lookback"`
	GatewayTimeoutSec int `yaml:"gateway_timeout_sec"`

	// TriggerPolicy decides how price and signal conditions combine for
	// orders carrying both: "any" or "all".
	TriggerPolicy string `yaml:"trigger_policy"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() *Config {
	return &Config{
		Port:              "8080",
		JWTSecret:         "trading-bot-secret-key",
		StoreBackend:      "sqlite",
		SQLitePath:        "trading.db",
		RedisAddr:         "localhost:6379",
		SignalTTLHours:    24,
		PollIntervalMS:    1000,
		PollBatchSize:     50,
		SignalLookback:    10,
		GatewayTimeoutSec: 10,
		TriggerPolicy:     "any",
	}
}

// Load reads the YAML file at path (skipped when empty or missing) and then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.StoreBackend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("TRIGGER_POLICY"); v != "" {
		c.TriggerPolicy = v
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PollIntervalMS = n
		}
	}
}

// SignalTTL returns the signal retention window.
func (c *Config) SignalTTL() time.Duration {
	return time.Duration(c.SignalTTLHours) * time.Hour
}

// PollInterval returns the matching loop tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// GatewayTimeout returns the bound on a single gateway call.
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.GatewayTimeoutSec) * time.Second
}
