// Package config loads process configuration by layering defaults, an
// optional YAML file, and environment variables.
package config

import (
	"fmt"
	"time"
)

// Config contains all process configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Ingestion IngestionConfig `koanf:"ingestion"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	ReadTimeoutSeconds  int `koanf:"read_timeout_seconds"`
	WriteTimeoutSeconds int `koanf:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `koanf:"idle_timeout_seconds"`
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"`

	MaxOpenConns           int `koanf:"max_open_conns"`
	MaxIdleConns           int `koanf:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `koanf:"conn_max_lifetime_minutes"`
	ConnMaxIdleMinutes     int `koanf:"conn_max_idle_minutes"`
}

// IngestionConfig configures the upstream feed clients and the one-shot
// ingestion runs.
type IngestionConfig struct {
	OpenF1BaseURL string `koanf:"openf1_base_url"`
	ErgastBaseURL string `koanf:"ergast_base_url"`

	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`
	RetryMax           int `koanf:"retry_max"`

	// Season range and pool size for the per-season standings fetch.
	SeasonFrom int `koanf:"season_from"`
	SeasonTo   int `koanf:"season_to"`
	Workers    int `koanf:"workers"`

	BatchSize int `koanf:"batch_size"`
}

// AnalysisConfig configures the aggregation pipeline.
type AnalysisConfig struct {
	// TrendWindow is the rolling-mean window for position trends.
	TrendWindow int `koanf:"trend_window"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// New returns a Config populated with development defaults. The database
// defaults mirror the original ingestion scripts so a bare `make run`
// against a local PostgreSQL works out of the box.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 30,
			IdleTimeoutSeconds:  60,
		},
		Database: DatabaseConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "postgres",
			Password:               "403800",
			Name:                   "f1_stats",
			SSLMode:                "disable",
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
			ConnMaxIdleMinutes:     5,
		},
		Ingestion: IngestionConfig{
			OpenF1BaseURL:      "https://api.openf1.org/v1",
			ErgastBaseURL:      "https://ergast.com/api/f1",
			HTTPTimeoutSeconds: 30,
			RetryMax:           5,
			SeasonFrom:         2000,
			SeasonTo:           2024,
			Workers:            5,
			BatchSize:          1000,
		},
		Analysis: AnalysisConfig{
			TrendWindow: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name must not be empty")
	}
	if c.Ingestion.Workers < 1 {
		return fmt.Errorf("ingestion workers must be positive, got %d", c.Ingestion.Workers)
	}
	if c.Ingestion.SeasonFrom > c.Ingestion.SeasonTo {
		return fmt.Errorf("season range inverted: %d..%d", c.Ingestion.SeasonFrom, c.Ingestion.SeasonTo)
	}
	if c.Analysis.TrendWindow < 1 {
		return fmt.Errorf("trend window must be positive, got %d", c.Analysis.TrendWindow)
	}
	return nil
}

// ReadTimeout returns the server read timeout as a duration.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the server write timeout as a duration.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the server idle timeout as a duration.
func (s ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(s.IdleTimeoutSeconds) * time.Second
}

// ConnMaxLifetime returns the pool connection lifetime as a duration.
func (d DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(d.ConnMaxLifetimeMinutes) * time.Minute
}

// ConnMaxIdleTime returns the pool idle time as a duration.
func (d DatabaseConfig) ConnMaxIdleTime() time.Duration {
	return time.Duration(d.ConnMaxIdleMinutes) * time.Minute
}

// HTTPTimeout returns the upstream client timeout as a duration.
func (i IngestionConfig) HTTPTimeout() time.Duration {
	return time.Duration(i.HTTPTimeoutSeconds) * time.Second
}
