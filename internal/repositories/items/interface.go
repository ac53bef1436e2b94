package items

import (
	"context"
	"time"

	"github.com/kitchensync/kitchensync/internal/models"
)

// Repository describes storage and query operations for pantry items.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// ListActive returns non-deleted items for a household, ordered by
	// ascending expiry date (items without an expiry sort last).
	ListActive(ctx context.Context, householdID string) ([]models.Item, error)

	// ListByLocation returns non-deleted items stored in one location.
	ListByLocation(ctx context.Context, householdID, location string) ([]models.Item, error)

	// ListExpiring returns non-deleted items whose expiry date is on or
	// before the given instant.
	ListExpiring(ctx context.Context, householdID string, before time.Time) ([]models.Item, error)

	// ListLowStock returns non-deleted items at or below their low-stock
	// threshold. Items without a threshold are never reported.
	ListLowStock(ctx context.Context, householdID string) ([]models.Item, error)

	// GetByID returns an item by id, tombstones included.
	// Returns common.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Item, error)

	// Upsert inserts or fully replaces an item by id.
	Upsert(ctx context.Context, item *models.Item) error

	// AcceptRemote stores an item pulled from the remote: inserted when
	// absent, replacing the stored row only when that row has no
	// unconfirmed local changes. A dirty row wins and the write is a no-op.
	AcceptRemote(ctx context.Context, item *models.Item) error

	// SoftDelete marks an item as a tombstone and advances updated_at.
	// The dirty flag is left untouched; the mutation layer owns it.
	SoftDelete(ctx context.Context, id string, ts time.Time) error

	// MarkDirty clears is_synced so the next sync pass pushes the record.
	MarkDirty(ctx context.Context, id string) error

	// ListUnsynced returns all dirty items across every household.
	// Used only by the sync engine's push phase.
	ListUnsynced(ctx context.Context) ([]models.Item, error)

	// MarkSynced sets is_synced only if updated_at still equals asOf, so a
	// stale acknowledgment never marks a newer local mutation as synced.
	// Silently succeeds when no row matches.
	MarkSynced(ctx context.Context, id string, asOf time.Time) error

	// HardDelete removes a confirmed tombstone (deleted and synced) from
	// storage entirely. Silently succeeds otherwise.
	HardDelete(ctx context.Context, id string) error

	// PurgeHousehold unconditionally removes every item in the household.
	PurgeHousehold(ctx context.Context, householdID string) error
}
