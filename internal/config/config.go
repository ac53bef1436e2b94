// Package config holds runtime settings for an embedding application.
// Values are resolved defaults-first, then overlaid from an optional JSON
// file, then from environment variables. Later sources take precedence.
package config

import "time"

// Config holds runtime settings for the sync library.
type Config struct {
	// DatabasePath is the SQLite file backing the local store.
	DatabasePath string

	// FirestoreProjectID selects the remote store project. Empty means the
	// embedding application injects its own remote client.
	FirestoreProjectID string

	// RemoteTimeout bounds each individual remote operation.
	RemoteTimeout time.Duration

	// SyncInterval is the periodic re-sync cadence. Zero disables it.
	SyncInterval time.Duration

	// BackoffBase is the first retry delay after a failed sync pass.
	BackoffBase time.Duration

	// MaxSyncAttempts bounds retries within one scheduler activation.
	MaxSyncAttempts uint64

	// ExpiryWindowDays is the lookahead used when generating grocery
	// entries from expiring pantry items.
	ExpiryWindowDays int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "kitchensync.db"
	c.RemoteTimeout = 15 * time.Second
	c.SyncInterval = 24 * time.Hour
	c.BackoffBase = 2 * time.Second
	c.MaxSyncAttempts = 5
	c.ExpiryWindowDays = 7
}

// Load constructs a Config: defaults, then the JSON file at path (skipped
// when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, path); err != nil {
		return nil, err
	}
	parseEnv(cfg)
	return cfg, nil
}
