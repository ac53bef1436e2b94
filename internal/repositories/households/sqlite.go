package households

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

const householdColumns = `id, name, owner_id, members_json, created_at,
	updated_at, is_synced, is_deleted`

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

func (r *SQLiteRepository) notify(id string) {
	if r.hub != nil {
		r.hub.Publish(watch.Event{Collection: watch.Households, HouseholdID: id})
	}
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households
		WHERE is_deleted = 0 ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select households: %w", err)
	}
	defer rows.Close()

	var result []models.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	h, err := scanHousehold(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, h *models.Household) error {
	members, err := json.Marshal(h.MemberIDs)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}

	query := `INSERT INTO households (` + householdColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			owner_id = excluded.owner_id,
			members_json = excluded.members_json,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			is_synced = excluded.is_synced,
			is_deleted = excluded.is_deleted`

	_, err = r.db.ExecContext(ctx, query,
		h.ID, h.Name, h.OwnerID, string(members),
		h.CreatedAt.UTC().UnixMilli(), h.UpdatedAt.UTC().UnixMilli(),
		boolToDB(h.IsSynced), boolToDB(h.IsDeleted))
	if err != nil {
		return fmt.Errorf("failed to upsert household: %w", err)
	}

	r.notify(h.ID)
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, ts time.Time) error {
	query := `UPDATE households SET is_deleted = 1, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, ts.UTC().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete household: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}

	r.notify(id)
	return nil
}

func (r *SQLiteRepository) MarkDirty(ctx context.Context, id string) error {
	query := `UPDATE households SET is_synced = 0 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark household dirty: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUnsynced(ctx context.Context) ([]models.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households WHERE is_synced = 0`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select households: %w", err)
	}
	defer rows.Close()

	var result []models.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, asOf time.Time) error {
	query := `UPDATE households SET is_synced = 1 WHERE id = ? AND updated_at = ?`
	if _, err := r.db.ExecContext(ctx, query, id, asOf.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to mark household synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM households WHERE id = ? AND is_deleted = 1 AND is_synced = 1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to hard-delete household: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM households WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to remove household: %w", err)
	}

	r.notify(id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHousehold(s scanner) (*models.Household, error) {
	var (
		h                   models.Household
		members             string
		created, updated    int64
		isSynced, isDeleted int
	)
	err := s.Scan(&h.ID, &h.Name, &h.OwnerID, &members, &created, &updated,
		&isSynced, &isDeleted)
	if err != nil {
		return nil, err
	}

	if members != "" {
		if err := json.Unmarshal([]byte(members), &h.MemberIDs); err != nil {
			return nil, fmt.Errorf("failed to decode members: %w", err)
		}
	}
	h.CreatedAt = time.UnixMilli(created).UTC()
	h.UpdatedAt = time.UnixMilli(updated).UTC()
	h.IsSynced = isSynced != 0
	h.IsDeleted = isDeleted != 0
	return &h, nil
}

func boolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}
