// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantfold/orderflow/internal/domain/footprint"
)

// Config is the root configuration document.
type Config struct {
	Symbols    []string         `yaml:"symbols"`
	Stream     StreamConfig     `yaml:"stream"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Server     ServerConfig     `yaml:"server"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
}

// StreamConfig tunes the exchange WebSocket transport.
type StreamConfig struct {
	BaseURL    string   `yaml:"base_url"`
	BackoffMin Duration `yaml:"backoff_min"`
	BackoffMax Duration `yaml:"backoff_max"`
}

// AggregatorConfig tunes the streaming footprint session.
type AggregatorConfig struct {
	Timeframe     footprint.Timeframe `yaml:"timeframe"`
	PriceStep     float64             `yaml:"price_step"`
	Retention     Duration            `yaml:"retention"`
	PruneInterval Duration            `yaml:"prune_interval"`
	MaxBars       int                 `yaml:"max_bars"`
}

// ResolverConfig tunes the price-step metadata lookup.
type ResolverConfig struct {
	Endpoints      []string `yaml:"endpoints"`
	RequestTimeout Duration `yaml:"request_timeout"`
	TTL            Duration `yaml:"ttl"`
	RequestsPerSec float64  `yaml:"requests_per_sec"`
}

// ServerConfig tunes the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// PostgresConfig holds the trade-store connection string. An empty DSN
// disables persistence.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the Redis cache tier when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Symbols: []string{"BTCUSDT"},
		Aggregator: AggregatorConfig{
			Timeframe:     footprint.TF1m,
			Retention:     Duration(2 * time.Hour),
			PruneInterval: Duration(30 * time.Second),
			MaxBars:       150,
		},
		Resolver: ResolverConfig{
			RequestTimeout: Duration(5 * time.Second),
			TTL:            Duration(24 * time.Hour),
			RequestsPerSec: 2,
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads and validates a YAML config file. Missing fields fall back
// to Default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configuration errors eagerly, before any state
// exists.
func (c Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if _, err := c.Aggregator.Timeframe.Millis(); err != nil {
		return err
	}
	if c.Aggregator.PriceStep < 0 {
		return fmt.Errorf("aggregator price_step must not be negative")
	}
	if c.Aggregator.Retention <= 0 {
		return fmt.Errorf("aggregator retention must be positive")
	}
	if c.Aggregator.PruneInterval <= 0 {
		return fmt.Errorf("aggregator prune_interval must be positive")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	return nil
}
