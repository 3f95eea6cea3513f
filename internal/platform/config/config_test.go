package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("US_DB_DSN", "")
	t.Setenv("EU_DB_DSN", "")
	t.Setenv("SBX_DB_DSN", "")

	cfg := FromEnv()

	assert.Equal(t, ":8001", cfg.Server.Addr)
	assert.Equal(t, "http://opa:8181/v1/data/authz/allow", cfg.Policy.URL)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, "llama3.2:3b", cfg.Oracle.Model)
	assert.Equal(t, 256, cfg.Audit.BufferSize)
	assert.False(t, cfg.Auth.VerifySignatures())
	assert.Empty(t, cfg.Databases.IDs())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GATEWAY_ADDR", ":9999")
	t.Setenv("LLM_TIMEOUT", "12s")
	t.Setenv("LLM_DISABLED", "true")
	t.Setenv("AUDIT_BUFFER", "not-a-number")
	t.Setenv("AUDIT_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("US_DB_DSN", "postgres://us")
	t.Setenv("SBX_DB_DSN", "postgres://sbx")
	t.Setenv("EU_DB_DSN", "")
	t.Setenv("JWT_HMAC_SECRET", "s3cret")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 12*time.Second, cfg.Oracle.Timeout)
	assert.True(t, cfg.Oracle.Disabled)
	assert.Equal(t, 256, cfg.Audit.BufferSize, "invalid ints fall back to defaults")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{DatabaseSandbox, DatabaseUS}, cfg.Databases.IDs())
	assert.True(t, cfg.Auth.VerifySignatures())

	dsn, ok := cfg.Databases.DSN(DatabaseUS)
	assert.True(t, ok)
	assert.Equal(t, "postgres://us", dsn)

	_, ok = cfg.Databases.DSN(DatabaseEU)
	assert.False(t, ok, "empty DSN is not configured")
}

func TestFromEnv_LegacyOllamaURL(t *testing.T) {
	t.Setenv("LLM_URL", "")
	t.Setenv("OLLAMA_URL", "http://host.docker.internal:11434/api/generate")

	cfg := FromEnv()
	assert.Equal(t, "http://host.docker.internal:11434/api/generate", cfg.Oracle.URL)
}

func TestFromEnv_OptionalFeatures(t *testing.T) {
	t.Run("unset keeps defaults", func(t *testing.T) {
		t.Setenv("LOGGER_URL", "")
		t.Setenv("CORS_ALLOWED_ORIGINS", "")
		require.NoError(t, os.Unsetenv("LOGGER_URL"))
		require.NoError(t, os.Unsetenv("CORS_ALLOWED_ORIGINS"))

		cfg := FromEnv()
		assert.Equal(t, "http://logger:9000/log", cfg.Audit.SinkURL)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.Server.CORSAllowedOrigins)
		assert.Equal(t, DriverPgx, cfg.Databases.Driver)
	})

	t.Run("explicit empty turns the feature off", func(t *testing.T) {
		t.Setenv("LOGGER_URL", "")
		t.Setenv("CORS_ALLOWED_ORIGINS", "")

		cfg := FromEnv()
		assert.Empty(t, cfg.Audit.SinkURL)
		assert.Empty(t, cfg.Server.CORSAllowedOrigins)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("LOGGER_URL", "http://audit:9000/log")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://console.example.org")
		t.Setenv("DB_DRIVER", DriverPQ)

		cfg := FromEnv()
		assert.Equal(t, "http://audit:9000/log", cfg.Audit.SinkURL)
		assert.Equal(t, []string{"https://console.example.org"}, cfg.Server.CORSAllowedOrigins)
		assert.Equal(t, DriverPQ, cfg.Databases.Driver)
	})
}
