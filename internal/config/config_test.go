package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://connect.garmin.com", cfg.Garmin.Endpoint)
	assert.Equal(t, "Garmin Connect", cfg.Garmin.CredentialItem)
	assert.Equal(t, "bitwarden", cfg.Secrets.Backend)
	assert.Equal(t, "bw", cfg.Secrets.Executable)
	assert.Equal(t, "swimsync.csv", cfg.Export.CSVPath)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
garmin:
  credential_item: "Garmin User1"
secrets:
  backend: vault
  vault_mount: kv
export:
  csv_path: /tmp/swim.csv
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "Garmin User1", cfg.Garmin.CredentialItem)
	assert.Equal(t, "vault", cfg.Secrets.Backend)
	assert.Equal(t, "kv", cfg.Secrets.VaultMount)
	assert.Equal(t, "/tmp/swim.csv", cfg.Export.CSVPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("SWIMSYNC_GARMIN_CREDENTIAL_ITEM", "Garmin User2")
	t.Setenv("SWIMSYNC_LOGGING_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "garmin:\n  credential_item: \"Garmin User1\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "Garmin User2", cfg.Garmin.CredentialItem)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  level: shouty\n"))
	assert.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
