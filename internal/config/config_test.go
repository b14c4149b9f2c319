package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "6543")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REDIS_ADDR", "localhost:6379")
		t.Setenv("LOCK_TTL", "5s")

		cfg := LoadConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "testpass", cfg.DBPassword)
		assert.Equal(t, "testdb", cfg.DBName)
		assert.Equal(t, "6543", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, "secret", cfg.JWTSecret)
		assert.Equal(t, "localhost:6379", cfg.RedisAddr)
		assert.Equal(t, 5*time.Second, cfg.LockTTL)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DB_HOST", "db")

		cfg := Load()

		assert.Equal(t, "disable", cfg.DBSSLMode)
		assert.Equal(t, 3*time.Second, cfg.LockWait)
		assert.Equal(t, "0 30 2 * * *", cfg.ReconcileSchedule)
		assert.Equal(t, 20, cfg.RateLimitBurst)
		assert.Equal(t, 3, cfg.ConflictRetries)
		assert.InDelta(t, 10.0, cfg.RateLimitRPS, 0.001)
	})
}
