// Package config loads server configuration from a YAML file with
// environment variable overrides. Secrets can live in a local .env file
// during development and in real env vars in production.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Polling  PollingConfig  `yaml:"polling"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL settings. An empty URL selects the
// in-memory repositories.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional Redis connection for the send
// single-flight lock. An empty address disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DeliveryConfig tunes the send pipeline.
type DeliveryConfig struct {
	Workers     int     `yaml:"workers"`
	SuccessRate float64 `yaml:"success_rate"` // simulated provider
	Seed        int64   `yaml:"seed"`         // 0 = time-based
}

// PollingConfig holds the client-facing completion polling contract.
type PollingConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	WindowSeconds   int `yaml:"window_seconds"`
}

// Interval returns the polling interval as a duration.
func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Window returns the polling window as a duration.
func (c PollingConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Delivery.Workers == 0 {
		c.Delivery.Workers = 8
	}
	if c.Delivery.SuccessRate == 0 {
		c.Delivery.SuccessRate = 0.9
	}
	if c.Polling.IntervalSeconds == 0 {
		c.Polling.IntervalSeconds = 2
	}
	if c.Polling.WindowSeconds == 0 {
		c.Polling.WindowSeconds = 120
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is read first, so local secrets never need
// to be exported by hand.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		cfg.Database.URL = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if workers := os.Getenv("DELIVERY_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			cfg.Delivery.Workers = n
		}
	}
	if rate := os.Getenv("DELIVERY_SUCCESS_RATE"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Delivery.SuccessRate = f
		}
	}
	if seed := os.Getenv("DELIVERY_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			cfg.Delivery.Seed = n
		}
	}

	return cfg, nil
}
