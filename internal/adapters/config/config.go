package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"gitarg/pkg/errors"
)

type Config struct {
	App           AppConfig
	Evaluation    EvaluationConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"gitarg"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// EvaluationConfig controls how alternatives are enumerated
type EvaluationConfig struct {
	Agent      string `envconfig:"DECISION_AGENT" default:"UK"`
	Parallel   bool   `envconfig:"EVALUATION_PARALLEL" default:"false"`
	MaxWorkers int    `envconfig:"EVALUATION_MAX_WORKERS" default:"4"`
}

// Workers returns the worker limit for the enumerator, 0 when evaluation is sequential
func (c EvaluationConfig) Workers() int {
	if !c.Parallel {
		return 0
	}
	return c.MaxWorkers
}

// RedisConfig is optional; an empty host disables the session store
type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"gitarg:session:"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig is optional; no brokers disables event publishing
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Async   bool     `envconfig:"KAFKA_ASYNC" default:"false"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"gitarg"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// MetricsConfig holds the prometheus listener; empty address disables it
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	if c.Evaluation.Agent == "" {
		return errors.NewValidationError("DECISION_AGENT", "must not be empty", c.Evaluation.Agent)
	}
	if c.Evaluation.Parallel && c.Evaluation.MaxWorkers < 1 {
		return errors.NewValidationError("EVALUATION_MAX_WORKERS", "must be positive when evaluation is parallel", c.Evaluation.MaxWorkers)
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.Provider == "sentry" && c.ErrorTracking.SentryDSN == "" {
		return errors.NewValidationError("SENTRY_DSN", "required when error tracking is enabled", "")
	}
	return nil
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
