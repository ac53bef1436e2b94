package households

import (
	"context"
	"time"

	"github.com/kitchensync/kitchensync/internal/models"
)

// Repository describes storage and query operations for households.
type Repository interface {
	// ListAll returns every non-deleted household known locally, by name.
	ListAll(ctx context.Context) ([]models.Household, error)

	// GetByID returns a household by id, tombstones included.
	// Returns common.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*models.Household, error)

	// Upsert inserts or fully replaces a household by id.
	Upsert(ctx context.Context, h *models.Household) error

	// SoftDelete marks a household as a tombstone and advances updated_at.
	SoftDelete(ctx context.Context, id string, ts time.Time) error

	// MarkDirty clears is_synced so the next sync pass pushes the household.
	MarkDirty(ctx context.Context, id string) error

	// ListUnsynced returns all dirty households.
	ListUnsynced(ctx context.Context) ([]models.Household, error)

	// MarkSynced sets is_synced only if updated_at still equals asOf.
	// Silently succeeds when no row matches.
	MarkSynced(ctx context.Context, id string, asOf time.Time) error

	// HardDelete removes a confirmed tombstone from storage entirely.
	HardDelete(ctx context.Context, id string) error

	// Remove unconditionally deletes the household row. Used when the local
	// device abandons the household scope.
	Remove(ctx context.Context, id string) error
}
