package config

import (
	"testing"
	"time"

	"campus-eats-be/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PHONEPE_MERCHANT_ID", "MERCHANTUAT")
	t.Setenv("PHONEPE_SALT_KEY", "salt")
	t.Setenv("PHONEPE_SALT_INDEX", "1")
	t.Setenv("PHONEPE_BASE_URL", "")
	t.Setenv("PHONEPE_ENV", "sandbox")
	t.Setenv("APP_BASE_URL", "https://eats.example.com/")
	t.Setenv("JWT_SECRET", "jwt-secret")
}

func TestLoad(t *testing.T) {
	t.Run("Success loading from env", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "testuser")
		t.Setenv("DB_PASSWORD", "testpass")
		t.Setenv("DB_NAME", "testdb")
		t.Setenv("DB_PORT", "5433")
		t.Setenv("APP_PORT", "9090")
		t.Setenv("APP_ENV", "test")
		t.Setenv("PHONEPE_TIMEOUT", "5s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.DBHost)
		assert.Equal(t, "testuser", cfg.DBUser)
		assert.Equal(t, "5433", cfg.DBPort)
		assert.Equal(t, "9090", cfg.AppPort)
		assert.Equal(t, "test", cfg.AppEnv)
		assert.Equal(t, payment.PhonePeSandboxURL, cfg.PhonePeBaseURL)
		assert.Equal(t, 5*time.Second, cfg.PhonePeTimeout)
		assert.True(t, cfg.UsePostgres())
		assert.Equal(t, "https://eats.example.com/payments/callback", cfg.PhonePeCallbackURL())
		assert.Equal(t, "https://eats.example.com/order/status", cfg.PhonePeRedirectURL())
	})

	t.Run("Production URL", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PHONEPE_ENV", "PROD")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, payment.PhonePeProductionURL, cfg.PhonePeBaseURL)
	})

	t.Run("Explicit base URL wins", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PHONEPE_BASE_URL", "http://localhost:9999")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9999", cfg.PhonePeBaseURL)
	})

	t.Run("Missing secrets is a startup error", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PHONEPE_SALT_KEY", "")
		t.Setenv("JWT_SECRET", "")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PHONEPE_SALT_KEY")
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("Missing provider URL", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PHONEPE_ENV", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PHONEPE_BASE_URL or PHONEPE_ENV")
	})

	t.Run("Invalid timeout", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PHONEPE_TIMEOUT", "soon")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("Memory store without DB_HOST", func(t *testing.T) {
		setRequired(t)
		t.Setenv("DB_HOST", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.False(t, cfg.UsePostgres())
	})
}
