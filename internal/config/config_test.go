package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "kitchensync.db", cfg.DatabasePath)
	assert.Empty(t, cfg.FirestoreProjectID)
	assert.Equal(t, 15*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SyncInterval)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.Equal(t, uint64(5), cfg.MaxSyncAttempts)
	assert.Equal(t, 7, cfg.ExpiryWindowDays)
}

func TestLoad_JSONOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"database_path": "/tmp/pantry.db",
		"firestore_project_id": "demo-project",
		"remote_timeout": "5s",
		"sync_interval": "1h",
		"expiry_window_days": 3
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pantry.db", cfg.DatabasePath)
	assert.Equal(t, "demo-project", cfg.FirestoreProjectID)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 3, cfg.ExpiryWindowDays)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.Equal(t, uint64(5), cfg.MaxSyncAttempts)
}

func TestLoad_EnvOverridesJSON(t *testing.T) {
	path := writeConfig(t, `{"database_path": "/tmp/from-json.db", "sync_interval": "1h"}`)

	t.Setenv(EnvDatabasePath, "/tmp/from-env.db")
	t.Setenv(EnvSyncInterval, "30m")
	t.Setenv(EnvExpiryWindowDays, "14")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-env.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Minute, cfg.SyncInterval)
	assert.Equal(t, 14, cfg.ExpiryWindowDays)
}

func TestLoad_MalformedEnvIgnored(t *testing.T) {
	t.Setenv(EnvSyncInterval, "not-a-duration")
	t.Setenv(EnvExpiryWindowDays, "-2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.SyncInterval)
	assert.Equal(t, 7, cfg.ExpiryWindowDays)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := Load(path)
	assert.Error(t, err)
}
