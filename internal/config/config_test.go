package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDotenvPath, filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv(EnvConfigPath, "")
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "Historial", cfg.Sheets.Ledger)
	assert.Equal(t, "Log_Errores", cfg.Sheets.Errors)
	assert.Equal(t, 30, cfg.ErrorRetentionDays)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Panama", loc.String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MUSTER_ENV", "PROD")
	t.Setenv("MUSTER_DB_PATH", "/var/lib/muster.db")
	t.Setenv("MUSTER_NOTIFY_EMAIL", "seguridad@example.com, brigada@example.com")
	t.Setenv("MUSTER_NOTIFY_EMAIL_SECONDARY", "gerencia@example.com")
	t.Setenv("MUSTER_NOTIFY", "false")
	t.Setenv("MUSTER_ERROR_RETENTION_DAYS", "-4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "/var/lib/muster.db", cfg.DBPath)
	assert.Equal(t, []string{"seguridad@example.com", "brigada@example.com", "gerencia@example.com"}, cfg.Recipients)
	assert.False(t, cfg.NotifyOnEvacuation)
	// invalid ints keep the default
	assert.Equal(t, 30, cfg.ErrorRetentionDays)
}

func TestLoad_UnknownEnvFallsBackToDev(t *testing.T) {
	isolate(t)
	t.Setenv("MUSTER_ENV", "staging")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
}

func TestLoad_FileThenEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "muster.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr = ":9000"
time_zone = "UTC"
error_retention_days = 0

[sheets]
ledger = "Registro"

[notify]
enabled = false
recipients = ["a@example.com", " ", "b@example.com"]
`), 0o600))
	t.Setenv(EnvConfigPath, path)
	t.Setenv("MUSTER_HTTP_ADDR", ":7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr, "env wins over file")
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, "Registro", cfg.Sheets.Ledger)
	assert.Equal(t, "Base de Datos", cfg.Sheets.Personnel)
	assert.Equal(t, 0, cfg.ErrorRetentionDays)
	assert.False(t, cfg.NotifyOnEvacuation)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Recipients)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad toml", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("http_addr = "), 0o600))
		t.Setenv(EnvConfigPath, path)

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("bad time zone", func(t *testing.T) {
		isolate(t)
		t.Setenv("MUSTER_TZ", "Mars/Olympus")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_Dotenv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MUSTER_SHEET_LEDGER=Desde_Env\n"), 0o600))
	t.Setenv(EnvDotenvPath, path)
	// Register a restore, then unset so the file can supply the value.
	t.Setenv("MUSTER_SHEET_LEDGER", "")
	require.NoError(t, os.Unsetenv("MUSTER_SHEET_LEDGER"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Desde_Env", cfg.Sheets.Ledger)
}

func TestSplitCSV(t *testing.T) {
	assert.Nil(t, splitCSV(""))
	assert.Nil(t, splitCSV(" , ,"))
	assert.Equal(t, []string{"a", "b"}, splitCSV(" a ,b,"))
}
