package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("TOKEN_RESERVATION_TTL", "90s")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, "invoicevault", cfg.Database.AppName)
	assert.Equal(t, 5, cfg.Database.ConnectTimeoutSec)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 90*time.Second, cfg.Redis.ReservationTTL)
}

func TestLoad_PipelineDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, int64(10*1024*1024), cfg.Pipeline.MaxContentSize)
	assert.Equal(t, int64(512*1024*1024), cfg.Pipeline.MaxArtifactSize)
	assert.Greater(t, cfg.Pipeline.MaxArtifactSize, cfg.Pipeline.MaxContentSize)
	assert.Equal(t, 85, cfg.Pipeline.JPEGQuality)
	assert.Equal(t, 8, cfg.Pipeline.TokenMaxAttempts)
	assert.Equal(t, 100.0, cfg.Pipeline.BandHeight)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.False(t, cfg.IsDev())
}

func TestAppConfig_Location(t *testing.T) {
	cfg := &AppConfig{Timezone: "Europe/Zurich"}
	assert.Equal(t, "Europe/Zurich", cfg.Location().String())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	t.Setenv(key, "value")

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	t.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	t.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	t.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	t.Setenv(key, "")
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	t.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	t.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	t.Setenv(key, "")
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvFloatAndInt64(t *testing.T) {
	t.Setenv("TEST_FLOAT_VAR", "72.5")
	assert.Equal(t, 72.5, getEnvFloat("TEST_FLOAT_VAR", 1))

	t.Setenv("TEST_INT64_VAR", "oops")
	assert.Equal(t, int64(7), getEnvInt64("TEST_INT64_VAR", 7))
}
