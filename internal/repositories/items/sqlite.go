package items

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/dbx"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/watch"
)

const itemColumns = `id, household_id, barcode, name, quantity, unit, expiry_date,
	location, photo_url, notes, nutrition_json, added_by, low_stock_threshold,
	created_at, updated_at, is_synced, is_deleted`

const itemUpsertQuery = `INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		household_id = excluded.household_id,
		barcode = excluded.barcode,
		name = excluded.name,
		quantity = excluded.quantity,
		unit = excluded.unit,
		expiry_date = excluded.expiry_date,
		location = excluded.location,
		photo_url = excluded.photo_url,
		notes = excluded.notes,
		nutrition_json = excluded.nutrition_json,
		added_by = excluded.added_by,
		low_stock_threshold = excluded.low_stock_threshold,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		is_synced = excluded.is_synced,
		is_deleted = excluded.is_deleted`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx). Writes publish a change event to the hub when one is attached.
type SQLiteRepository struct {
	db  dbx.DBTX
	hub *watch.Hub
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
// hub may be nil when reactive queries are not needed (e.g. in tests).
func NewSQLiteRepository(db dbx.DBTX, hub *watch.Hub) *SQLiteRepository {
	return &SQLiteRepository{db: db, hub: hub}
}

func (r *SQLiteRepository) notify(householdID string) {
	if r.hub != nil {
		r.hub.Publish(watch.Event{Collection: watch.Items, HouseholdID: householdID})
	}
}

func (r *SQLiteRepository) ListActive(ctx context.Context, householdID string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE household_id = ? AND is_deleted = 0
		ORDER BY expiry_date IS NULL, expiry_date ASC, name ASC`
	return r.queryItems(ctx, query, householdID)
}

func (r *SQLiteRepository) ListByLocation(ctx context.Context, householdID, location string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE household_id = ? AND location = ? AND is_deleted = 0
		ORDER BY expiry_date IS NULL, expiry_date ASC, name ASC`
	return r.queryItems(ctx, query, householdID, location)
}

func (r *SQLiteRepository) ListExpiring(ctx context.Context, householdID string, before time.Time) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE household_id = ? AND is_deleted = 0
		  AND expiry_date IS NOT NULL AND expiry_date <= ?
		ORDER BY expiry_date ASC, name ASC`
	return r.queryItems(ctx, query, householdID, before.UTC().UnixMilli())
}

func (r *SQLiteRepository) ListLowStock(ctx context.Context, householdID string) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE household_id = ? AND is_deleted = 0
		  AND low_stock_threshold > 0 AND quantity <= low_stock_threshold
		ORDER BY name ASC`
	return r.queryItems(ctx, query, householdID)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, item *models.Item) error {
	return r.put(ctx, item, itemUpsertQuery)
}

// AcceptRemote applies a record pulled from the remote store. The conflict
// guard makes the accept-or-skip rule atomic: an existing row is replaced
// only while it still has no unconfirmed local changes, so a mutation racing
// the pull keeps its dirty state and wins.
func (r *SQLiteRepository) AcceptRemote(ctx context.Context, item *models.Item) error {
	return r.put(ctx, item, itemUpsertQuery+` WHERE items.is_synced = 1`)
}

func (r *SQLiteRepository) put(ctx context.Context, item *models.Item, query string) error {
	nutrition, err := encodeNutrition(item.Nutrition)
	if err != nil {
		return fmt.Errorf("failed to encode nutrition: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.HouseholdID, item.Barcode, item.Name, item.Quantity,
		item.Unit, expiryToDB(item.ExpiryDate), item.Location, item.PhotoURL,
		item.Notes, nutrition, item.AddedBy, item.LowStockThreshold,
		item.CreatedAt.UTC().UnixMilli(), item.UpdatedAt.UTC().UnixMilli(),
		boolToDB(item.IsSynced), boolToDB(item.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	r.notify(item.HouseholdID)
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	var householdID string
	err := r.db.QueryRowContext(ctx, `SELECT household_id FROM items WHERE id = ?`, id).Scan(&householdID)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up item: %w", err)
	}

	query := `UPDATE items SET is_deleted = 1, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, ts.UTC().UnixMilli(), id); err != nil {
		return fmt.Errorf("failed to soft-delete item: %w", err)
	}

	r.notify(householdID)
	return nil
}

func (r *SQLiteRepository) MarkDirty(ctx context.Context, id string) error {
	query := `UPDATE items SET is_synced = 0 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark item dirty: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE is_synced = 0`
	return r.queryItems(ctx, query)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, asOf time.Time) error {
	// The updated_at guard keeps a stale acknowledgment from marking a record
	// that was mutated again mid-sync. Zero rows affected is a success.
	query := `UPDATE items SET is_synced = 1 WHERE id = ? AND updated_at = ?`
	if _, err := r.db.ExecContext(ctx, query, id, asOf.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to mark item synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM items WHERE id = ? AND is_deleted = 1 AND is_synced = 1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to hard-delete item: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PurgeHousehold(ctx context.Context, householdID string) error {
	query := `DELETE FROM items WHERE household_id = ?`
	if _, err := r.db.ExecContext(ctx, query, householdID); err != nil {
		return fmt.Errorf("failed to purge items: %w", err)
	}

	r.notify(householdID)
	return nil
}

func (r *SQLiteRepository) queryItems(ctx context.Context, query string, args ...any) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*models.Item, error) {
	var (
		item               models.Item
		expiry             sql.NullInt64
		nutrition          string
		created, updated   int64
		isSynced, isDelete int
	)
	err := s.Scan(&item.ID, &item.HouseholdID, &item.Barcode, &item.Name,
		&item.Quantity, &item.Unit, &expiry, &item.Location, &item.PhotoURL,
		&item.Notes, &nutrition, &item.AddedBy, &item.LowStockThreshold,
		&created, &updated, &isSynced, &isDelete)
	if err != nil {
		return nil, err
	}

	if expiry.Valid {
		t := time.UnixMilli(expiry.Int64).UTC()
		item.ExpiryDate = &t
	}
	if nutrition != "" {
		if err := json.Unmarshal([]byte(nutrition), &item.Nutrition); err != nil {
			return nil, fmt.Errorf("failed to decode nutrition: %w", err)
		}
	}
	item.CreatedAt = time.UnixMilli(created).UTC()
	item.UpdatedAt = time.UnixMilli(updated).UTC()
	item.IsSynced = isSynced != 0
	item.IsDeleted = isDelete != 0
	return &item, nil
}

func encodeNutrition(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func expiryToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func boolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}
