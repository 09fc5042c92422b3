package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "prestashop-connector", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "connector", cfg.Database.DBName)
		assert.Equal(t, 4, cfg.Queue.Workers)
		assert.Equal(t, "postgres", cfg.Queue.LockBackend)
		assert.Equal(t, time.Hour, cfg.Queue.StaleAfter)
		assert.Equal(t, 1000, cfg.PrestaShop.PageSize)
		assert.Equal(t, 60*time.Second, cfg.PrestaShop.Timeout)
		assert.Equal(t, "prestashop.connector", cfg.RabbitMQ.Exchange)
		assert.False(t, cfg.Scheduler.Enabled)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads a .env file without overriding the environment", func(t *testing.T) {
		dir := t.TempDir()
		env := "PSC_APP_NAME=from-dotenv\nPSC_DATABASE_DBNAME=dotenv_db\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))
		t.Chdir(dir)
		t.Setenv("PSC_DATABASE_DBNAME", "from_env")
		t.Cleanup(func() { _ = os.Unsetenv("PSC_APP_NAME") })

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", cfg.App.Name)
		assert.Equal(t, "from_env", cfg.Database.DBName)
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		t.Setenv("PSC_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.sampling_ratio")
	})

	t.Run("loads values from environment variables with PSC prefix", func(t *testing.T) {
		t.Setenv("PSC_APP_PORT", "9000")
		t.Setenv("PSC_DATABASE_HOST", "testdb.local")
		t.Setenv("PSC_DATABASE_PASSWORD", "testpass")
		t.Setenv("PSC_QUEUE_WORKERS", "8")
		t.Setenv("PSC_PRESTASHOP_PAGE_SIZE", "250")
		t.Setenv("PSC_SCHEDULER_IMPORT_ORDERS", "*/5 * * * *")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 8, cfg.Queue.Workers)
		assert.Equal(t, 250, cfg.PrestaShop.PageSize)
		assert.Equal(t, "*/5 * * * *", cfg.Scheduler.ImportOrders)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("PSC_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("PSC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown lock backend", func(t *testing.T) {
		t.Setenv("PSC_QUEUE_LOCK_BACKEND", "zookeeper")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue.lock_backend")
	})

	t.Run("rejects stale_after not longer than job_timeout", func(t *testing.T) {
		t.Setenv("PSC_QUEUE_STALE_AFTER", "10m")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue.stale_after")
	})

	t.Run("redis lock requires redis", func(t *testing.T) {
		t.Setenv("PSC_QUEUE_LOCK_BACKEND", "redis")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis.enabled")
	})

	t.Run("storage requires a bucket", func(t *testing.T) {
		t.Setenv("PSC_STORAGE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		t.Setenv("PSC_APP_ENV", "production")
		t.Setenv("PSC_AUTH_SECRET", "this-is-a-very-secure-api-secret-key-32chars")
		t.Setenv("PSC_DATABASE_PASSWORD", "secure-password")
		t.Setenv("PSC_DATABASE_SSLMODE", "require")
	}

	t.Run("requires auth.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("PSC_AUTH_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "auth.secret is required in production")
	})

	t.Run("requires a long auth.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("PSC_AUTH_SECRET", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("PSC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRabbitMQConfig_URL(t *testing.T) {
	cfg := RabbitMQConfig{Host: "mq", Port: 5672, User: "guest", Password: "p@ss", VHost: "/"}
	assert.Equal(t, "amqp://guest:p%40ss@mq:5672/", cfg.URL())
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
