package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gitarg", cfg.App.Name)
	assert.Equal(t, "UK", cfg.Evaluation.Agent)
	assert.Equal(t, 0, cfg.Evaluation.Workers(), "sequential unless enabled")
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
	assert.Empty(t, cfg.Metrics.Addr)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DECISION_AGENT", "EU")
	t.Setenv("EVALUATION_PARALLEL", "true")
	t.Setenv("EVALUATION_MAX_WORKERS", "3")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EU", cfg.Evaluation.Agent)
	assert.Equal(t, 3, cfg.Evaluation.Workers())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "no workers", env: map[string]string{"EVALUATION_PARALLEL": "true", "EVALUATION_MAX_WORKERS": "0"}},
		{name: "sentry without dsn", env: map[string]string{"ERROR_TRACKING_ENABLED": "true"}},
		{name: "bad integer", env: map[string]string{"REDIS_PORT": "many"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
