package groceries

import (
	"context"
	"time"

	"github.com/kitchensync/kitchensync/internal/models"
)

// Repository describes storage and query operations for grocery entries.
type Repository interface {
	// ListActive returns non-deleted entries for a household, unchecked
	// first, newest first within each group.
	ListActive(ctx context.Context, householdID string) ([]models.GroceryEntry, error)

	// GetByID returns an entry by id, tombstones included.
	// Returns common.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.GroceryEntry, error)

	// FindActiveByName returns the first non-deleted entry with the given
	// name, or common.ErrNotFound. Used by the bulk generators to stay
	// idempotent.
	FindActiveByName(ctx context.Context, householdID, name string) (*models.GroceryEntry, error)

	// Upsert inserts or fully replaces an entry by id.
	Upsert(ctx context.Context, entry *models.GroceryEntry) error

	// AcceptRemote stores an entry pulled from the remote: inserted when
	// absent, replacing the stored row only when that row has no
	// unconfirmed local changes. A dirty row wins and the write is a no-op.
	AcceptRemote(ctx context.Context, entry *models.GroceryEntry) error

	// SetChecked flips the checked flag, advances updated_at and marks the
	// entry dirty in one statement.
	SetChecked(ctx context.Context, id string, checked bool, ts time.Time) error

	// SoftDelete marks an entry as a tombstone and advances updated_at.
	SoftDelete(ctx context.Context, id string, ts time.Time) error

	// MarkDirty clears is_synced so the next sync pass pushes the entry.
	MarkDirty(ctx context.Context, id string) error

	// ListChecked returns non-deleted checked entries for a household.
	ListChecked(ctx context.Context, householdID string) ([]models.GroceryEntry, error)

	// ListUnsynced returns all dirty entries across every household.
	ListUnsynced(ctx context.Context) ([]models.GroceryEntry, error)

	// MarkSynced sets is_synced only if updated_at still equals asOf.
	// Silently succeeds when no row matches.
	MarkSynced(ctx context.Context, id string, asOf time.Time) error

	// HardDelete removes a confirmed tombstone from storage entirely.
	HardDelete(ctx context.Context, id string) error

	// PurgeHousehold unconditionally removes every entry in the household.
	PurgeHousehold(ctx context.Context, householdID string) error
}
