package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Locking.Mode)
	assert.Equal(t, 2, cfg.Analysis.Workers)
	assert.Equal(t, int64(50), cfg.Storage.MaxUploadSizeMB)
	assert.Equal(t, "0 30 3 * * *", cfg.Jobs.RetiredSectionCleanupCron)
	assert.Equal(t, []string{"/health", "/health/db"}, cfg.RateLimit.WhitelistPaths)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeoutDuration())
	assert.Equal(t, 15*time.Minute, cfg.Analysis.RunTimeoutDuration())
	assert.Equal(t, time.Hour, cfg.Jobs.StuckAnalysisMaxAgeDuration())
	assert.Equal(t, 30*time.Second, cfg.Locking.TTLDuration())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("LOCKING_MODE", "redis")
	t.Setenv("JWT_SECRET", "token-secret")
	t.Setenv("EXTRACTION_API_KEY", "extract-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Locking.Mode)
	assert.Equal(t, "token-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "extract-key", cfg.Extraction.APIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	content := `{"app": {"environment": "staging"}, "analysis": {"workers": 4}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 64, cfg.Analysis.QueueSize)
}

func TestLoadWithSecrets_VaultDisabled(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("USE_AZURE_KEY_VAULT", "false")
	t.Setenv("DATABASE_PASSWORD", "from-env")

	cfg, err := LoadWithSecrets(context.Background(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
}

func TestLoadWithSecrets_VaultNameRequired(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("USE_AZURE_KEY_VAULT", "true")
	t.Setenv("APP_ENVIRONMENT", "production")
	t.Setenv("AZURE_KEY_VAULT_NAME", "")
	t.Setenv("SECRETS_KEYVAULTNAME", "")

	_, err := LoadWithSecrets(context.Background(), zap.NewNop())
	assert.Error(t, err)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "dossier", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=dossier sslmode=require", d.ConnectionString())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
