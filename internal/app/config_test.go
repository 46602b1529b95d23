package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 5*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "5 * * * *", cfg.WarmupCron)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "c")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsBcryptCost(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("BCRYPT_COST", "40")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SESSION_SECRET=from-file\nCSRF_SECRET=c\nAPP_ENV=production\n"), 0o600))
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("APP_ENV", "")
	os.Unsetenv("SESSION_SECRET")
	os.Unsetenv("CSRF_SECRET")
	os.Unsetenv("APP_ENV")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.SessionSecret)
	assert.True(t, cfg.IsProduction())
}
