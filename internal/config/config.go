// Package config loads application configuration from a YAML file with
// environment-variable overrides for deploy-time secrets.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the monitor.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Queue     QueueConfig     `yaml:"queue"`
	Email     EmailConfig     `yaml:"email"`
	Recommend RecommendConfig `yaml:"recommend"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional alert-list cache settings.
type RedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the configured cache TTL as a duration.
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// QueueConfig holds the SQS notification queue settings.
type QueueConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	QueueURL  string `yaml:"queue_url"`
	Prefetch  int    `yaml:"prefetch"` // max in-flight messages per poll
}

// EmailConfig holds the SES email transport settings.
type EmailConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	From           string `yaml:"from"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured send timeout as a duration.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RecommendConfig holds the external recommendation-service settings.
type RecommendConfig struct {
	BaseURL            string  `yaml:"base_url"`
	APIKey             string  `yaml:"api_key"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	MaxRecommendations int     `yaml:"max_recommendations"`
	RateCapacity       float64 `yaml:"rate_capacity"`        // token bucket burst size
	RateRefillPerSec   float64 `yaml:"rate_refill_per_sec"`  // sustained request rate
}

// Timeout returns the configured request timeout as a duration.
func (c RecommendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AnalysisConfig holds orchestration settings.
type AnalysisConfig struct {
	DaysBack       int    `yaml:"days_back"`
	MaxAttempts    int    `yaml:"max_attempts"`
	BackoffSeconds int    `yaml:"backoff_seconds"`
	DashboardURL   string `yaml:"dashboard_url"`
}

// Backoff returns the retry backoff as a duration.
func (c AnalysisConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.CacheTTLSeconds == 0 {
		cfg.Redis.CacheTTLSeconds = 30
	}
	if cfg.Queue.Region == "" {
		cfg.Queue.Region = "us-west-2"
	}
	if cfg.Queue.Prefetch == 0 {
		cfg.Queue.Prefetch = 10
	}
	if cfg.Email.Region == "" {
		cfg.Email.Region = cfg.Queue.Region
	}
	if cfg.Email.TimeoutSeconds == 0 {
		cfg.Email.TimeoutSeconds = 30
	}
	if cfg.Recommend.TimeoutSeconds == 0 {
		cfg.Recommend.TimeoutSeconds = 30
	}
	if cfg.Recommend.MaxRecommendations == 0 {
		cfg.Recommend.MaxRecommendations = 4
	}
	if cfg.Recommend.RateCapacity == 0 {
		cfg.Recommend.RateCapacity = 10
	}
	if cfg.Recommend.RateRefillPerSec == 0 {
		cfg.Recommend.RateRefillPerSec = 1
	}
	if cfg.Analysis.DaysBack == 0 {
		cfg.Analysis.DaysBack = 7
	}
	if cfg.Analysis.MaxAttempts == 0 {
		cfg.Analysis.MaxAttempts = 3
	}
	if cfg.Analysis.BackoffSeconds == 0 {
		cfg.Analysis.BackoffSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file is loaded first if present, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Queue.AccessKey = v
		cfg.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Queue.SecretKey = v
		cfg.Email.SecretKey = v
	}
	if v := os.Getenv("NOTIFICATION_QUEUE_URL"); v != "" {
		cfg.Queue.QueueURL = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		cfg.Email.From = v
	}
	if v := os.Getenv("RECOMMEND_BASE_URL"); v != "" {
		cfg.Recommend.BaseURL = v
	}
	if v := os.Getenv("RECOMMEND_API_KEY"); v != "" {
		cfg.Recommend.APIKey = v
	}
	if v := os.Getenv("DASHBOARD_URL"); v != "" {
		cfg.Analysis.DashboardURL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
