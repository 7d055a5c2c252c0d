package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL_TEST", "postgres://localhost/somos_test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres://localhost/somos_test", cfg.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.ReservationValidity)
	assert.InDelta(t, 0.8, cfg.KYCApprovalProbability, 1e-9)
	assert.Equal(t, time.Hour, cfg.ExpirySweepInterval)
	assert.Equal(t, "webhook-secret-key", cfg.WebhookAPIKey)
	assert.Equal(t, 1025, cfg.SMTPPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RESERVATION_VALIDITY_DAYS", "3")
	t.Setenv("KYC_APPROVAL_PROBABILITY", "0.5")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "0")
	t.Setenv("PUBLIC_BASE_URL", "https://somosrentable.cl/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*24*time.Hour, cfg.ReservationValidity)
	assert.InDelta(t, 0.5, cfg.KYCApprovalProbability, 1e-9)
	assert.Equal(t, time.Duration(0), cfg.ExpirySweepInterval)
	assert.Equal(t, "https://somosrentable.cl", cfg.PublicBaseURL)
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://somosrentable.cl, https://admin.somosrentable.cl,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://somosrentable.cl", "https://admin.somosrentable.cl"}, cfg.CORSAllowedOrigins)
}

func TestLoad_KYCApprovalProbabilityRange(t *testing.T) {
	t.Setenv("KYC_APPROVAL_PROBABILITY", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.KYCApprovalProbability)

	t.Setenv("KYC_APPROVAL_PROBABILITY", "1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cfg.KYCApprovalProbability, 1e-9)

	for _, bad := range []string{"1.5", "-0.1", "ochenta"} {
		t.Setenv("KYC_APPROVAL_PROBABILITY", bad)
		_, err = Load()
		assert.Error(t, err, bad)
	}
}
