package groceries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/dbx"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/watch"
)

const entryColumns = `id, household_id, list_id, item_ref, name, quantity, unit,
	source, is_checked, created_at, updated_at, is_synced, is_deleted`

const entryUpsertQuery = `INSERT INTO grocery_entries (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		household_id = excluded.household_id,
		list_id = excluded.list_id,
		item_ref = excluded.item_ref,
		name = excluded.name,
		quantity = excluded.quantity,
		unit = excluded.unit,
		source = excluded.source,
		is_checked = excluded.is_checked,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	hub *watch.Hub
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
// hub may be nil.
func NewSQLiteRepository(db dbx.DBTX, hub *watch.Hub) *SQLiteRepository {
	return &SQLiteRepository{db: db, hub: hub}
}

func (r *SQLiteRepository) notify(householdID string) {
	if r.hub != nil {
		r.hub.Publish(watch.Event{Collection: watch.Groceries, HouseholdID: householdID})
	}
}

func (r *SQLiteRepository) ListActive(ctx context.Context, householdID string) ([]models.GroceryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM grocery_entries
		WHERE household_id = ? AND is_deleted = 0
		ORDER BY is_checked ASC, created_at DESC`
	return r.queryEntries(ctx, query, householdID)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.GroceryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM grocery_entries WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grocery entry: %w", err)
	}
	return entry, nil
}

func (r *SQLiteRepository) FindActiveByName(ctx context.Context, householdID, name string) (*models.GroceryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM grocery_entries
		WHERE household_id = ? AND name = ? AND is_deleted = 0 LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, householdID, name)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find grocery entry: %w", err)
	}
	return entry, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, entry *models.GroceryEntry) error {
	return r.put(ctx, entry, entryUpsertQuery)
}

// AcceptRemote applies an entry pulled from the remote store: inserted when
// absent, replacing the stored row only while it has no unconfirmed local
// changes. A dirty row wins and the write is a no-op.
func (r *SQLiteRepository) AcceptRemote(ctx context.Context, entry *models.GroceryEntry) error {
	return r.put(ctx, entry, entryUpsertQuery+` WHERE grocery_entries.is_synced = 1`)
}

func (r *SQLiteRepository) put(ctx context.Context, entry *models.GroceryEntry, query string) error {
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.HouseholdID, entry.ListID, entry.ItemRef, entry.Name,
		entry.Quantity, entry.Unit, entry.Source, boolToDB(entry.Checked),
		entry.CreatedAt.UTC().UnixMilli(), entry.UpdatedAt.UTC().UnixMilli(),
		boolToDB(entry.IsSynced), boolToDB(entry.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to upsert grocery entry: %w", err)
	}

	r.notify(entry.HouseholdID)
	return nil
}

func (r *SQLiteRepository) SetChecked(ctx context.Context, id string, checked bool, ts time.Time) error {
	query := `UPDATE grocery_entries
		SET is_checked = ?, updated_at = ?, is_synced = 0
		WHERE id = ? AND is_deleted = 0`
	res, err := r.db.ExecContext(ctx, query, boolToDB(checked), ts.UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update checked status: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}

	r.notifyByID(ctx, id)
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	var householdID string
	err := r.db.QueryRowContext(ctx, `SELECT household_id FROM grocery_entries WHERE id = ?`, id).Scan(&householdID)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up grocery entry: %w", err)
	}

	query := `UPDATE grocery_entries SET is_deleted = 1, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, ts.UTC().UnixMilli(), id); err != nil {
		return fmt.Errorf("failed to soft-delete grocery entry: %w", err)
	}

	r.notify(householdID)
	return nil
}

func (r *SQLiteRepository) MarkDirty(ctx context.Context, id string) error {
	query := `UPDATE grocery_entries SET is_synced = 0 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark grocery entry dirty: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListChecked(ctx context.Context, householdID string) ([]models.GroceryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM grocery_entries
		WHERE household_id = ? AND is_checked = 1 AND is_deleted = 0`
	return r.queryEntries(ctx, query, householdID)
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.GroceryEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM grocery_entries WHERE is_synced = 0`
	return r.queryEntries(ctx, query)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, asOf time.Time) error {
	query := `UPDATE grocery_entries SET is_synced = 1 WHERE id = ? AND updated_at = ?`
	if _, err := r.db.ExecContext(ctx, query, id, asOf.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to mark grocery entry synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM grocery_entries WHERE id = ? AND is_deleted = 1 AND is_synced = 1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to hard-delete grocery entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PurgeHousehold(ctx context.Context, householdID string) error {
	query := `DELETE FROM grocery_entries WHERE household_id = ?`
	if _, err := r.db.ExecContext(ctx, query, householdID); err != nil {
		return fmt.Errorf("failed to purge grocery entries: %w", err)
	}

	r.notify(householdID)
	return nil
}

func (r *SQLiteRepository) notifyByID(ctx context.Context, id string) {
	if r.hub == nil {
		return
	}
	var householdID string
	if err := r.db.QueryRowContext(ctx, `SELECT household_id FROM grocery_entries WHERE id = ?`, id).Scan(&householdID); err != nil {
		return
	}
	r.notify(householdID)
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]models.GroceryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select grocery entries: %w", err)
	}
	defer rows.Close()

	var result []models.GroceryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.GroceryEntry, error) {
	var (
		entry                        models.GroceryEntry
		checked, isSynced, isDeleted int
		created, updated             int64
	)
	err := s.Scan(&entry.ID, &entry.HouseholdID, &entry.ListID, &entry.ItemRef,
		&entry.Name, &entry.Quantity, &entry.Unit, &entry.Source, &checked,
		&created, &updated, &isSynced, &isDeleted)
	if err != nil {
		return nil, err
	}

	entry.Checked = checked != 0
	entry.CreatedAt = time.UnixMilli(created).UTC()
	entry.UpdatedAt = time.UnixMilli(updated).UTC()
	entry.IsSynced = isSynced != 0
	entry.IsDeleted = isDeleted != 0
	return &entry, nil
}

func boolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}
