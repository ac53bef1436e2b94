package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kitchensync/kitchensync/internal/timex"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "90s"
// or as integer nanoseconds. Absent fields leave the current value alone.
type jsonConfig struct {
	DatabasePath       *string         `json:"database_path"`
	FirestoreProjectID *string         `json:"firestore_project_id"`
	RemoteTimeout      *timex.Duration `json:"remote_timeout"`
	SyncInterval       *timex.Duration `json:"sync_interval"`
	BackoffBase        *timex.Duration `json:"backoff_base"`
	MaxSyncAttempts    *uint64         `json:"max_sync_attempts"`
	ExpiryWindowDays   *int            `json:"expiry_window_days"`
}

// parseJSON overlays cfg with values from the JSON file at path. An empty
// path is a no-op.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.FirestoreProjectID != nil {
		cfg.FirestoreProjectID = *jc.FirestoreProjectID
	}
	if jc.RemoteTimeout != nil {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.BackoffBase != nil {
		cfg.BackoffBase = jc.BackoffBase.Duration
	}
	if jc.MaxSyncAttempts != nil {
		cfg.MaxSyncAttempts = *jc.MaxSyncAttempts
	}
	if jc.ExpiryWindowDays != nil {
		cfg.ExpiryWindowDays = *jc.ExpiryWindowDays
	}
	return nil
}
