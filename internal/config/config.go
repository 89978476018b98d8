// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int    `yaml:"port"`
	InternalAPIKey string `yaml:"internal_api_key"` // bearer key for the worker callback route
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type BrokerConfig struct {
	URL          string        `yaml:"url"`
	Exchange     string        `yaml:"exchange"`
	BatchSize    int           `yaml:"batch_size"`
	BatchFlush   time.Duration `yaml:"batch_flush_interval"`
	ConfirmWait  time.Duration `yaml:"confirm_wait"`
	QueueEnabled bool          `yaml:"queue_enabled"` // queue fallback path
}

type PrimaryConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"` // worker's direct submission endpoint
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"` // attempts for SubmitWithRetries
}

type StreamConfig struct {
	MaxConnections int           `yaml:"max_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
	Lifetime       time.Duration `yaml:"lifetime"`           // hard cap per connection
	Heartbeat      time.Duration `yaml:"heartbeat_interval"` // keepalive cadence
	Workers        int           `yaml:"workers"`            // heartbeat fan-out pool size
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Broker   BrokerConfig   `yaml:"broker"`
	Primary  PrimaryConfig  `yaml:"primary"`
	Stream   StreamConfig   `yaml:"stream"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 30 * time.Minute
	}
	if cfg.Broker.Exchange == "" {
		cfg.Broker.Exchange = "job_exchange"
	}
	if cfg.Broker.BatchSize <= 0 {
		cfg.Broker.BatchSize = 50
	}
	if cfg.Broker.BatchFlush <= 0 {
		cfg.Broker.BatchFlush = 100 * time.Millisecond
	}
	if cfg.Broker.ConfirmWait <= 0 {
		cfg.Broker.ConfirmWait = 5 * time.Second
	}
	if cfg.Primary.Timeout <= 0 {
		cfg.Primary.Timeout = 5 * time.Second
	}
	if cfg.Primary.Retries <= 0 {
		cfg.Primary.Retries = 3
	}
	if cfg.Stream.MaxConnections <= 0 {
		cfg.Stream.MaxConnections = 1000
	}
	if cfg.Stream.IdleTimeout <= 0 {
		cfg.Stream.IdleTimeout = 5 * time.Minute
	}
	if cfg.Stream.SweepInterval <= 0 {
		cfg.Stream.SweepInterval = time.Minute
	}
	if cfg.Stream.Lifetime <= 0 {
		cfg.Stream.Lifetime = 10 * time.Minute
	}
	if cfg.Stream.Heartbeat <= 0 {
		cfg.Stream.Heartbeat = 30 * time.Second
	}
	if cfg.Stream.Workers <= 0 {
		cfg.Stream.Workers = 4
	}
}
