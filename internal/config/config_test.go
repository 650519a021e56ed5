package config

import (
	"testing"
	"time"

	"github.com/mbd888/botdesk/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL", "ADMIN_SECRET",
		"ALLOWED_ORIGINS", "RATE_LIMIT_RPM", "DEFAULT_PLAN", "SEED_DEFAULT_BOT",
		"MONTHLY_RESET_ENABLED", "MONTHLY_RESET_INTERVAL", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultEnv, cfg.Env)
	assert.Equal(t, plan.Free, cfg.DefaultPlan)
	assert.True(t, cfg.SeedDefaultBot)
	assert.True(t, cfg.MonthlyResetEnabled)
	assert.Equal(t, DefaultMonthlyResetInterval, cfg.MonthlyResetInterval)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimitRPM)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_PLAN", "Premium")
	t.Setenv("SEED_DEFAULT_BOT", "false")
	t.Setenv("MONTHLY_RESET_INTERVAL", "1h")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("RATE_LIMIT_RPM", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, plan.Premium, cfg.DefaultPlan)
	assert.False(t, cfg.SeedDefaultBot)
	assert.Equal(t, time.Hour, cfg.MonthlyResetInterval)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 30, cfg.RateLimitRPM)
}

func TestLoad_UnknownPlan(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_PLAN", "enterprise")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrUnknownPlan)
}

func TestLoad_BadInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONTHLY_RESET_INTERVAL", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "MONTHLY_RESET_INTERVAL")
}

func TestLoad_BadIntervalIgnoredWhenDisabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONTHLY_RESET_ENABLED", "false")
	t.Setenv("MONTHLY_RESET_INTERVAL", "soon")

	_, err := Load()
	assert.NoError(t, err)
}

func TestValidate_ProductionNeedsAdminSecret(t *testing.T) {
	cfg := &Config{
		Port:         "8080",
		Env:          "production",
		DefaultPlan:  plan.Free,
		RateLimitRPM: 10,
	}
	assert.ErrorContains(t, cfg.Validate(), "ADMIN_SECRET")

	cfg.AdminSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsProduction())
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := &Config{Port: "8080", DefaultPlan: plan.Free}
	assert.ErrorContains(t, cfg.Validate(), "RATE_LIMIT_RPM")
}
