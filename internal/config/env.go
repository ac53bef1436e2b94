package config

import (
	"os"
	"strconv"
	"time"
)

// Environment variable names. All optional.
const (
	EnvDatabasePath     = "KITCHENSYNC_DATABASE_PATH"
	EnvFirestoreProject = "KITCHENSYNC_FIRESTORE_PROJECT_ID"
	EnvRemoteTimeout    = "KITCHENSYNC_REMOTE_TIMEOUT"
	EnvSyncInterval     = "KITCHENSYNC_SYNC_INTERVAL"
	EnvExpiryWindowDays = "KITCHENSYNC_EXPIRY_WINDOW_DAYS"
)

// parseEnv overlays cfg with values from the environment. Malformed values
// are ignored in favor of the current value.
func parseEnv(cfg *Config) {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(EnvFirestoreProject); v != "" {
		cfg.FirestoreProjectID = v
	}
	if v := os.Getenv(EnvRemoteTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RemoteTimeout = d
		}
	}
	if v := os.Getenv(EnvSyncInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SyncInterval = d
		}
	}
	if v := os.Getenv(EnvExpiryWindowDays); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ExpiryWindowDays = n
		}
	}
}
