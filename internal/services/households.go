package services

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/dbx"
	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/repositories/groceries"
	"github.com/kitchensync/kitchensync/internal/repositories/households"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
	"github.com/kitchensync/kitchensync/internal/scheduler"
	"github.com/kitchensync/kitchensync/internal/watch"
)

// HouseholdService manages the household records themselves: creation,
// naming, membership, and abandoning a household scope locally.
type HouseholdService struct {
	db        *sql.DB
	repo      households.Repository
	hub       *watch.Hub
	requester scheduler.SyncRequester
	log       logging.Logger
	now       func() time.Time
}

// NewHouseholdService wires a HouseholdService. db is the handle Leave uses
// to purge a scope transactionally. hub and requester may be nil.
func NewHouseholdService(db *sql.DB, repo households.Repository, hub *watch.Hub, requester scheduler.SyncRequester, log logging.Logger) *HouseholdService {
	return &HouseholdService{
		db:        db,
		repo:      repo,
		hub:       hub,
		requester: requester,
		log:       log,
		now:       time.Now,
	}
}

// Create stores a new household with the creator as owner and first member.
func (s *HouseholdService) Create(ctx context.Context, name, ownerID string) (*models.Household, error) {
	if name == "" {
		return nil, common.NewValidationError("name", "must not be empty")
	}
	if ownerID == "" {
		return nil, common.NewValidationError("owner_id", "must not be empty")
	}

	now := s.now().UTC()
	h := models.Household{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		MemberIDs: []string{ownerID},
		CreatedAt: now,
		UpdatedAt: now,
		IsSynced:  false,
	}

	if err := s.repo.Upsert(ctx, &h); err != nil {
		return nil, err
	}

	s.requestSync(h.ID)
	return &h, nil
}

// Rename changes a household's display name.
func (s *HouseholdService) Rename(ctx context.Context, householdID, name string) error {
	if name == "" {
		return common.NewValidationError("name", "must not be empty")
	}

	h, err := s.active(ctx, householdID)
	if err != nil {
		return err
	}

	h.Name = name
	return s.save(ctx, h)
}

// AddMember adds a user to the household member set. Adding an existing
// member is a no-op.
func (s *HouseholdService) AddMember(ctx context.Context, householdID, userID string) error {
	if userID == "" {
		return common.NewValidationError("user_id", "must not be empty")
	}

	h, err := s.active(ctx, householdID)
	if err != nil {
		return err
	}
	if h.HasMember(userID) {
		return nil
	}

	h.MemberIDs = append(h.MemberIDs, userID)
	return s.save(ctx, h)
}

// RemoveMember removes a user from the member set. The owner cannot be
// removed.
func (s *HouseholdService) RemoveMember(ctx context.Context, householdID, userID string) error {
	h, err := s.active(ctx, householdID)
	if err != nil {
		return err
	}
	if userID == h.OwnerID {
		return common.NewValidationError("user_id", "owner cannot be removed")
	}
	if !h.HasMember(userID) {
		return common.ErrNotFound
	}

	h.MemberIDs = slices.DeleteFunc(h.MemberIDs, func(id string) bool { return id == userID })
	return s.save(ctx, h)
}

// Get returns a non-deleted household by id.
func (s *HouseholdService) Get(ctx context.Context, householdID string) (*models.Household, error) {
	return s.active(ctx, householdID)
}

// List returns every household known locally.
func (s *HouseholdService) List(ctx context.Context) ([]models.Household, error) {
	return s.repo.ListAll(ctx)
}

// Leave abandons the household scope on this device: all local records for
// the household are purged outright, without waiting for sync confirmation.
// The remote copy is untouched; other members keep their data. The purges and
// the household row removal commit as one transaction, so a failure leaves
// the scope intact instead of half-abandoned.
func (s *HouseholdService) Leave(ctx context.Context, householdID string) error {
	if householdID == "" {
		return common.ErrNoHousehold
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := items.NewSQLiteRepository(tx, nil).PurgeHousehold(ctx, householdID); err != nil {
			return err
		}
		if err := groceries.NewSQLiteRepository(tx, nil).PurgeHousehold(ctx, householdID); err != nil {
			return err
		}
		return households.NewSQLiteRepository(tx, nil).Remove(ctx, householdID)
	})
	if err != nil {
		return err
	}

	// The in-transaction repositories carry no hub; notify after commit.
	if s.hub != nil {
		for _, c := range []watch.Collection{watch.Items, watch.Groceries, watch.Households} {
			s.hub.Publish(watch.Event{Collection: c, HouseholdID: householdID})
		}
	}

	s.log.Info(ctx, "abandoned household scope", "household", householdID)
	return nil
}

func (s *HouseholdService) active(ctx context.Context, householdID string) (*models.Household, error) {
	if householdID == "" {
		return nil, common.ErrNoHousehold
	}
	h, err := s.repo.GetByID(ctx, householdID)
	if err != nil {
		return nil, err
	}
	if h.IsDeleted {
		return nil, common.ErrNotFound
	}
	return h, nil
}

func (s *HouseholdService) save(ctx context.Context, h *models.Household) error {
	h.UpdatedAt = s.now().UTC()
	h.IsSynced = false
	if err := s.repo.Upsert(ctx, h); err != nil {
		return err
	}
	s.requestSync(h.ID)
	return nil
}

func (s *HouseholdService) requestSync(householdID string) {
	if s.requester != nil {
		s.requester.RequestSync(householdID)
	}
}
