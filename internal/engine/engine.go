// Package engine implements bidirectional reconciliation between the local
// store and the remote store, one household at a time.
//
// A sync pass pushes dirty local records (tombstones become remote deletes,
// everything else remote upserts) and then pulls the remote collections,
// applying an asymmetric last-writer-wins rule: a remote document is accepted
// only when the local record is absent or fully synced. A dirty local record
// always survives the pull; its state reaches the remote on a later push.
// This deliberately favors whichever side has not yet synced and avoids a
// slow push being clobbered by a pull racing ahead of it.
//
// Failures are never fatal: per-record errors leave the dirty flag in place
// and flip the pass outcome to Retry, and a panic inside a pass is recovered
// and reported as Retry. The scheduler owns backoff and re-invocation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/mapper"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/remote"
	"github.com/kitchensync/kitchensync/internal/repositories/groceries"
	"github.com/kitchensync/kitchensync/internal/repositories/households"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
)

// Outcome is what a sync pass reports back to the scheduler.
type Outcome int

const (
	// Success means the pass completed, or there was nothing to reconcile.
	Success Outcome = iota
	// Retry means part of the pass failed; the scheduler should run it
	// again with backoff. Nothing is lost: failed records stay dirty.
	Retry
)

func (o Outcome) String() string {
	if o == Retry {
		return "retry"
	}
	return "success"
}

// Engine reconciles one household's local records against the remote store.
type Engine struct {
	items      items.Repository
	groceries  groceries.Repository
	households households.Repository
	remote     remote.Client
	log        logging.Logger
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New returns an Engine over the given repositories and remote client.
func New(itemRepo items.Repository, groceryRepo groceries.Repository, householdRepo households.Repository, remoteClient remote.Client, log logging.Logger) *Engine {
	return &Engine{
		items:      itemRepo,
		groceries:  groceryRepo,
		households: householdRepo,
		remote:     remoteClient,
		log:        log,
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
	}
}

// RunSyncPass reconciles the household and reports the outcome. Passes are
// single-flight per household: a call while another pass for the same
// household is running coalesces into it and returns Success immediately.
// An empty household id means there is nothing to reconcile and is a benign
// no-op.
func (e *Engine) RunSyncPass(ctx context.Context, householdID string) (out Outcome) {
	if householdID == "" {
		e.log.Debug(ctx, "sync pass skipped: no household selected")
		return Success
	}
	if !e.begin(householdID) {
		e.log.Debug(ctx, "sync pass coalesced", "household", householdID)
		return Success
	}
	defer e.end(householdID)

	defer func() {
		if r := recover(); r != nil {
			e.log.Error(ctx, "sync pass panicked", "household", householdID, "panic", r)
			out = Retry
		}
	}()

	var g errgroup.Group
	g.Go(func() error { return e.syncItems(ctx, householdID) })
	g.Go(func() error { return e.syncGroceries(ctx, householdID) })
	g.Go(func() error { return e.pushHouseholds(ctx, householdID) })

	if err := g.Wait(); err != nil {
		e.log.Warn(ctx, "sync pass incomplete", "household", householdID, "error", err)
		return Retry
	}

	e.log.Info(ctx, "sync pass finished", "household", householdID)
	return Success
}

func (e *Engine) begin(householdID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[householdID]; busy {
		return false
	}
	e.inFlight[householdID] = struct{}{}
	return true
}

func (e *Engine) end(householdID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, householdID)
}

func (e *Engine) syncItems(ctx context.Context, householdID string) error {
	var errs []error
	if err := e.pushItems(ctx, householdID); err != nil {
		errs = append(errs, err)
	}
	// Partial push failures never abort the pull.
	if err := e.pullItems(ctx, householdID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) syncGroceries(ctx context.Context, householdID string) error {
	var errs []error
	if err := e.pushGroceries(ctx, householdID); err != nil {
		errs = append(errs, err)
	}
	if err := e.pullGroceries(ctx, householdID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) pushItems(ctx context.Context, householdID string) error {
	dirty, err := e.items.ListUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("list dirty items: %w", err)
	}

	var errs []error
	for i := range dirty {
		item := &dirty[i]
		if item.HouseholdID != householdID {
			continue
		}
		if err := e.pushItem(ctx, householdID, item); err != nil {
			e.log.Warn(ctx, "item push failed", "household", householdID, "id", item.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushItem(ctx context.Context, householdID string, item *models.Item) error {
	if item.IsDeleted {
		if err := e.remote.DeleteItem(ctx, householdID, item.ID); err != nil {
			return err
		}
		if err := e.items.MarkSynced(ctx, item.ID, item.UpdatedAt); err != nil {
			return err
		}
		// A deleted-and-synced record has no further purpose.
		return e.items.HardDelete(ctx, item.ID)
	}

	if err := e.remote.PutItem(ctx, householdID, mapper.ItemToDoc(item)); err != nil {
		return err
	}
	return e.items.MarkSynced(ctx, item.ID, item.UpdatedAt)
}

func (e *Engine) pullItems(ctx context.Context, householdID string) error {
	docs, err := e.remote.ListItems(ctx, householdID)
	if err != nil {
		return fmt.Errorf("list remote items: %w", err)
	}

	var errs []error
	for _, doc := range docs {
		// AcceptRemote applies the conflict rule atomically: a record
		// with unconfirmed local edits survives the pull untouched and
		// overwrites the remote on a later push.
		rec := mapper.ItemFromDoc(doc, householdID, e.now)
		if err := e.items.AcceptRemote(ctx, &rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushGroceries(ctx context.Context, householdID string) error {
	dirty, err := e.groceries.ListUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("list dirty grocery entries: %w", err)
	}

	var errs []error
	for i := range dirty {
		entry := &dirty[i]
		if entry.HouseholdID != householdID {
			continue
		}
		if err := e.pushGrocery(ctx, householdID, entry); err != nil {
			e.log.Warn(ctx, "grocery push failed", "household", householdID, "id", entry.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushGrocery(ctx context.Context, householdID string, entry *models.GroceryEntry) error {
	if entry.IsDeleted {
		if err := e.remote.DeleteGroceryEntry(ctx, householdID, entry.ListID, entry.ID); err != nil {
			return err
		}
		if err := e.groceries.MarkSynced(ctx, entry.ID, entry.UpdatedAt); err != nil {
			return err
		}
		return e.groceries.HardDelete(ctx, entry.ID)
	}

	if err := e.remote.PutGroceryEntry(ctx, householdID, mapper.GroceryToDoc(entry)); err != nil {
		return err
	}
	return e.groceries.MarkSynced(ctx, entry.ID, entry.UpdatedAt)
}

func (e *Engine) pullGroceries(ctx context.Context, householdID string) error {
	docs, err := e.remote.ListGroceryEntries(ctx, householdID)
	if err != nil {
		return fmt.Errorf("list remote grocery entries: %w", err)
	}

	var errs []error
	for _, doc := range docs {
		rec := mapper.GroceryFromDoc(doc, householdID, e.now)
		if err := e.groceries.AcceptRemote(ctx, &rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// pushHouseholds reconciles the household record itself. Households are
// push-only: membership and naming changes flow outward from the device that
// made them.
func (e *Engine) pushHouseholds(ctx context.Context, householdID string) error {
	dirty, err := e.households.ListUnsynced(ctx)
	if err != nil {
		return fmt.Errorf("list dirty households: %w", err)
	}

	var errs []error
	for i := range dirty {
		h := &dirty[i]
		if h.ID != householdID {
			continue
		}
		if err := e.pushHousehold(ctx, h); err != nil {
			e.log.Warn(ctx, "household push failed", "household", h.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) pushHousehold(ctx context.Context, h *models.Household) error {
	if h.IsDeleted {
		if err := e.remote.DeleteHousehold(ctx, h.ID); err != nil {
			return err
		}
		if err := e.households.MarkSynced(ctx, h.ID, h.UpdatedAt); err != nil {
			return err
		}
		return e.households.HardDelete(ctx, h.ID)
	}

	if err := e.remote.PutHousehold(ctx, mapper.HouseholdToDoc(h)); err != nil {
		return err
	}
	return e.households.MarkSynced(ctx, h.ID, h.UpdatedAt)
}
