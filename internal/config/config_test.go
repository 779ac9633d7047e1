package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("PHYBENCH_JWT_SECRET", "secret")
	t.Setenv("PHYBENCH_DATABASE_URL", "postgres://localhost/phybench")
	t.Setenv("PHYBENCH_STATS_CACHE_TTL", "90s")
	t.Setenv("PHYBENCH_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PHYBENCH_APP_PORT", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.StatsCacheTTL)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 15, cfg.DefaultPageSize)
	require.Equal(t, "phybench/attachments", cfg.CloudinaryUploadFolder)
	require.False(t, cfg.CloudinaryEnabled())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("PHYBENCH_JWT_SECRET", "")
	t.Setenv("PHYBENCH_DATABASE_URL", "postgres://localhost/phybench")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("PHYBENCH_JWT_SECRET", "secret")
	t.Setenv("PHYBENCH_DATABASE_URL", "postgres://localhost/phybench")
	t.Setenv("PHYBENCH_STATS_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}
