package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10*time.Second, cfg.CNESTimeout())
	assert.Equal(t, "America/Campo_Grande", cfg.Timezone)
	assert.Equal(t, "https://apidadosabertos.saude.gov.br", cfg.CNESBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL())
	assert.NotEmpty(t, cfg.Warnings)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CNES_TIMEOUT_SECONDS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.gov.br, https://b.gov.br")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.CNESTimeout())
	assert.Equal(t, "https://a.gov.br,https://b.gov.br", cfg.AllowedOrigins())
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "curto")

	_, err := Load()
	assert.Error(t, err)
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Nowhere/Invalid"}
	assert.Equal(t, time.UTC, cfg.Location())
}
