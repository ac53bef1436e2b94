// Package services implements the mutation API: the only path by which
// feature code changes entity state. Every mutation validates its input,
// writes through the local store with the dirty flag set, and then requests
// an asynchronous sync pass for the affected household. Mutations never wait
// on the network.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
	"github.com/kitchensync/kitchensync/internal/scheduler"
	"github.com/kitchensync/kitchensync/internal/watch"
)

// ItemService is the mutation and query surface for pantry items.
type ItemService struct {
	repo      items.Repository
	hub       *watch.Hub
	requester scheduler.SyncRequester
	log       logging.Logger
	now       func() time.Time
}

// NewItemService wires an ItemService. requester may be nil when sync is not
// configured (e.g. in storage-only tests).
func NewItemService(repo items.Repository, hub *watch.Hub, requester scheduler.SyncRequester, log logging.Logger) *ItemService {
	return &ItemService{
		repo:      repo,
		hub:       hub,
		requester: requester,
		log:       log,
		now:       time.Now,
	}
}

// Create validates and stores a new item, then requests a sync pass.
// The item's ID is assigned here when absent; CreatedAt/UpdatedAt are
// stamped and the record starts dirty.
func (s *ItemService) Create(ctx context.Context, householdID string, item models.Item) (*models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := s.now().UTC()
	item.HouseholdID = householdID
	item.CreatedAt = now
	item.UpdatedAt = now
	item.IsSynced = false
	item.IsDeleted = false

	if err := s.repo.Upsert(ctx, &item); err != nil {
		return nil, err
	}

	s.requestSync(householdID)
	return &item, nil
}

// Update replaces an existing item's domain fields, advances UpdatedAt and
// marks the record dirty. Unknown and deleted items are rejected.
func (s *ItemService) Update(ctx context.Context, householdID string, item models.Item) (*models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	if item.ID == "" {
		return nil, common.NewValidationError("id", "must not be empty")
	}
	if err := validateItem(&item); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted || existing.HouseholdID != householdID {
		return nil, common.ErrNotFound
	}

	item.HouseholdID = householdID
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = s.now().UTC()
	item.IsSynced = false
	item.IsDeleted = false

	if err := s.repo.Upsert(ctx, &item); err != nil {
		return nil, err
	}

	s.requestSync(householdID)
	return &item, nil
}

// Delete soft-deletes an item. The tombstone stays in storage until the sync
// engine confirms the remote deletion.
func (s *ItemService) Delete(ctx context.Context, householdID, id string) error {
	if householdID == "" {
		return common.ErrNoHousehold
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsDeleted || existing.HouseholdID != householdID {
		return common.ErrNotFound
	}

	if err := s.repo.SoftDelete(ctx, id, s.now().UTC()); err != nil {
		return err
	}
	if err := s.repo.MarkDirty(ctx, id); err != nil {
		return err
	}

	s.requestSync(householdID)
	return nil
}

// Get returns a single non-deleted item in the household.
func (s *ItemService) Get(ctx context.Context, householdID, id string) (*models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted || item.HouseholdID != householdID {
		return nil, common.ErrNotFound
	}
	return item, nil
}

// List returns the household's non-deleted items by ascending expiry.
func (s *ItemService) List(ctx context.Context, householdID string) ([]models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	return s.repo.ListActive(ctx, householdID)
}

// ListByLocation returns non-deleted items stored in one location.
func (s *ItemService) ListByLocation(ctx context.Context, householdID, location string) ([]models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	return s.repo.ListByLocation(ctx, householdID, location)
}

// ListExpiring returns non-deleted items expiring within the window.
func (s *ItemService) ListExpiring(ctx context.Context, householdID string, window time.Duration) ([]models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	return s.repo.ListExpiring(ctx, householdID, s.now().Add(window))
}

// Watch delivers the household's current item list immediately and again
// after every subsequent change, until ctx is cancelled. A slow consumer only
// ever misses intermediate states, never the latest one.
func (s *ItemService) Watch(ctx context.Context, householdID string) (<-chan []models.Item, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}

	initial, err := s.repo.ListActive(ctx, householdID)
	if err != nil {
		return nil, err
	}

	events, cancel := s.hub.Subscribe(watch.Items, householdID)
	out := make(chan []models.Item, 1)
	out <- initial

	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				result, err := s.repo.ListActive(ctx, householdID)
				if err != nil {
					s.log.Error(ctx, "watch requery failed", "household", householdID, "error", err)
					continue
				}
				deliverLatest(out, result)
			}
		}
	}()
	return out, nil
}

func (s *ItemService) requestSync(householdID string) {
	if s.requester != nil {
		s.requester.RequestSync(householdID)
	}
}

func validateItem(item *models.Item) error {
	if item.Name == "" {
		return common.NewValidationError("name", "must not be empty")
	}
	if item.Quantity <= 0 {
		return common.NewValidationError("quantity", "must be positive")
	}
	if item.LowStockThreshold < 0 {
		return common.NewValidationError("low_stock_threshold", "must not be negative")
	}
	return nil
}

// deliverLatest offers v on a 1-buffered channel, displacing an undelivered
// older value so the consumer always observes the newest state.
func deliverLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
