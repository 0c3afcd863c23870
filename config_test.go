package modernblog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giriprasad013-git/modern-blog/database"
)

// clearEnv unsets keys for the duration of the test; values loaded from
// .env files are removed again afterwards.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

var configKeys = []string{
	"APP_ENV", "SITE_NAME", "SITE_URL", "SESSION_SECRET", "POST_CACHE_TTL",
	"ADMIN_EMAILS", "DATABASE_DRIVER", "DATABASE_URL", "ANALYTICS_ENABLED",
}

func TestLoadConfigLayersEnvFiles(t *testing.T) {
	clearEnv(t, configKeys...)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "SITE_NAME=From Env File\nSITE_URL=https://blog.example.com/\nPOST_CACHE_TTL=90s\nADMIN_EMAILS=a@example.com, b@example.com\n")
	writeFile(t, dir, ".env.local", "SITE_NAME=From Local\n")
	t.Setenv("SESSION_SECRET", "from-process")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "From Local", cfg.Name)
	assert.Equal(t, "https://blog.example.com", cfg.URL)
	assert.Equal(t, "from-process", cfg.SessionSecret)
	assert.Equal(t, 90*time.Second, cfg.PostCacheTTL)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.authConfig().AdminEmails)
	assert.Equal(t, "https://blog.example.com/reset-password", cfg.authConfig().ResetURL)
	assert.True(t, cfg.AnalyticsEnabled)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, database.DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "data/blog.db", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Minute, cfg.PrefsCacheTTL)
	assert.Equal(t, 365, cfg.AnalyticsRetentionDays)
	assert.Equal(t, []string{"https://blog.example.com"}, cfg.origins())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigTestEnvSkipsLocal(t *testing.T) {
	clearEnv(t, configKeys...)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "SITE_NAME=Base\nANALYTICS_ENABLED=false\n")
	writeFile(t, dir, ".env.local", "SITE_NAME=Local\n")
	writeFile(t, dir, ".env.test", "SITE_NAME=Testing\n")
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "Testing", cfg.Name)
	assert.False(t, cfg.AnalyticsEnabled)
}

func TestConfigValidate(t *testing.T) {
	base := SiteConfig{SessionSecret: "s"}
	base.setDefaults()
	require.NoError(t, base.Validate())

	cfg := base
	cfg.SessionSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base
	cfg.AdminEmail = "admin@example.com"
	assert.Error(t, cfg.Validate())
}
