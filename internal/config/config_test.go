package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)

	assert.Equal(t, "customer_events", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "customer_events", cfg.RabbitMQ.QueuePrefix)
	assert.Equal(t, 24*time.Hour, cfg.RabbitMQ.QueueTTL)
	assert.Equal(t, int64(10000), cfg.RabbitMQ.QueueMaxLength)
	assert.Equal(t, 5, cfg.RabbitMQ.Breaker.FailThreshold)
	assert.Equal(t, 30*time.Second, cfg.RabbitMQ.Breaker.OpenFor)

	assert.Equal(t, 3, cfg.Consumer.MaxRetries)
	assert.Equal(t, "customer_notifications", cfg.Consumer.Name)
	assert.Equal(t, 10, cfg.RateLimit.RPS)
	assert.Equal(t, 3*time.Second, cfg.Sanctions.Timeout)
}

func TestLoadMergesFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("http:\n  addr: \":9090\"\nrabbitmq:\n  exchange: \"other_events\"\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "other_events", cfg.RabbitMQ.Exchange)
	// untouched keys keep embedded defaults
	assert.Equal(t, "customer_events", cfg.RabbitMQ.QueuePrefix)
}
