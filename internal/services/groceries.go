package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/repositories/groceries"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
	"github.com/kitchensync/kitchensync/internal/scheduler"
	"github.com/kitchensync/kitchensync/internal/watch"
)

// GroceryService is the mutation and query surface for grocery entries,
// including the bulk generators that derive entries from the pantry.
type GroceryService struct {
	repo      groceries.Repository
	items     items.Repository
	hub       *watch.Hub
	requester scheduler.SyncRequester
	log       logging.Logger
	now       func() time.Time
}

// NewGroceryService wires a GroceryService. requester may be nil.
func NewGroceryService(repo groceries.Repository, itemRepo items.Repository, hub *watch.Hub, requester scheduler.SyncRequester, log logging.Logger) *GroceryService {
	return &GroceryService{
		repo:      repo,
		items:     itemRepo,
		hub:       hub,
		requester: requester,
		log:       log,
		now:       time.Now,
	}
}

// Add validates and stores a new grocery entry, then requests a sync pass.
func (s *GroceryService) Add(ctx context.Context, householdID string, entry models.GroceryEntry) (*models.GroceryEntry, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	if entry.Name == "" {
		return nil, common.NewValidationError("name", "must not be empty")
	}
	if entry.Quantity <= 0 {
		return nil, common.NewValidationError("quantity", "must be positive")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ListID == "" {
		entry.ListID = models.DefaultListID
	}
	if entry.Source == "" {
		entry.Source = models.SourceManual
	}
	now := s.now().UTC()
	entry.HouseholdID = householdID
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Checked = false
	entry.IsSynced = false
	entry.IsDeleted = false

	if err := s.repo.Upsert(ctx, &entry); err != nil {
		return nil, err
	}

	s.requestSync(householdID)
	return &entry, nil
}

// SetChecked flips an entry's checked flag and marks it dirty.
func (s *GroceryService) SetChecked(ctx context.Context, householdID, id string, checked bool) error {
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

	if err := s.repo.SetChecked(ctx, id, checked, s.now().UTC()); err != nil {
		return err
	}

	s.requestSync(householdID)
	return nil
}

// Delete soft-deletes a grocery entry.
func (s *GroceryService) Delete(ctx context.Context, householdID, id string) error {
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

// ClearChecked soft-deletes every checked entry in the household so the
// deletions still propagate as tombstones. Returns the number cleared.
func (s *GroceryService) ClearChecked(ctx context.Context, householdID string) (int, error) {
	if householdID == "" {
		return 0, common.ErrNoHousehold
	}

	checked, err := s.repo.ListChecked(ctx, householdID)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC()
	cleared := 0
	for _, entry := range checked {
		if err := s.repo.SoftDelete(ctx, entry.ID, now); err != nil {
			return cleared, err
		}
		if err := s.repo.MarkDirty(ctx, entry.ID); err != nil {
			return cleared, err
		}
		cleared++
	}

	if cleared > 0 {
		s.requestSync(householdID)
	}
	return cleared, nil
}

// List returns the household's non-deleted entries, unchecked first.
func (s *GroceryService) List(ctx context.Context, householdID string) ([]models.GroceryEntry, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	return s.repo.ListActive(ctx, householdID)
}

// Watch delivers the household's current entries immediately and again after
// every subsequent change, until ctx is cancelled.
func (s *GroceryService) Watch(ctx context.Context, householdID string) (<-chan []models.GroceryEntry, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}

	initial, err := s.repo.ListActive(ctx, householdID)
	if err != nil {
		return nil, err
	}

	events, cancel := s.hub.Subscribe(watch.Groceries, householdID)
	out := make(chan []models.GroceryEntry, 1)
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

// GenerateFromExpiring creates one grocery entry per pantry item expiring
// within the window, skipping items whose name already has a live entry.
/// The scan is idempotent: re-running it with no pantry changes creates
// nothing. Returns the number of entries created.
func (s *GroceryService) GenerateFromExpiring(ctx context.Context, householdID string, window time.Duration) (int, error) {
	if householdID == "" {
		return 0, common.ErrNoHousehold
	}

	expiring, err := s.items.ListExpiring(ctx, householdID, s.now().Add(window))
	if err != nil {
		return 0, err
	}
	return s.generate(ctx, householdID, expiring, models.SourceExpiring)
}

// GenerateFromLowStock creates one grocery entry per pantry item at or below
// its low-stock threshold, with the same idempotence guarantee as
// GenerateFromExpiring.
func (s *GroceryService) GenerateFromLowStock(ctx context.Context, householdID string) (int, error) {
	if householdID == "" {
		return 0, common.ErrNoHousehold
	}

	low, err := s.items.ListLowStock(ctx, householdID)
	if err != nil {
		return 0, err
	}
	return s.generate(ctx, householdID, low, models.SourceLowStock)
}

func (s *GroceryService) generate(ctx context.Context, householdID string, source []models.Item, tag string) (int, error) {
	created := 0
	for _, item := range source {
		_, err := s.repo.FindActiveByName(ctx, householdID, item.Name)
		if err == nil {
			continue // already on the list
		}
		if !errors.Is(err, common.ErrNotFound) {
			return created, err
		}

		now := s.now().UTC()
		entry := models.GroceryEntry{
			ID:          uuid.NewString(),
			HouseholdID: householdID,
			ListID:      models.DefaultListID,
			ItemRef:     item.ID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			Source:      tag,
			CreatedAt:   now,
			UpdatedAt:   now,
			IsSynced:    false,
		}
		if err := s.repo.Upsert(ctx, &entry); err != nil {
			return created, err
		}
		created++
	}

	s.log.Info(ctx, "generated grocery entries", "household", householdID, "source", tag, "created", created)
	if created > 0 {
		s.requestSync(householdID)
	}
	return created, nil
}

func (s *GroceryService) requestSync(householdID string) {
	if s.requester != nil {
		s.requester.RequestSync(householdID)
	}
}
