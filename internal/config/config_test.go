package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "certificate-documents", cfg.S3.Bucket)
	assert.Equal(t, "categories.yaml", cfg.Database.CategoriesFile)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("OLLAMA_TIMEOUT", "not-a-number")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	// Unparseable integers fall back to the default.
	assert.Equal(t, "300s", cfg.Ollama.RequestTimeout.String())
}

func TestAllowedExtensions(t *testing.T) {
	assert.True(t, AllowedExtensions["pdf"])
	assert.True(t, AllowedExtensions["jpeg"])
	assert.False(t, AllowedExtensions["exe"])
}
