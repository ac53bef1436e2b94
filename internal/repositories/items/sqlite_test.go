package items

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/migrations"
	"github.com/kitchensync/kitchensync/internal/models"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))

	return NewSQLiteRepository(db, nil)
}

func testItem(householdID, name string, mut ...func(*models.Item)) *models.Item {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := &models.Item{
		ID:          uuid.NewString(),
		HouseholdID: householdID,
		Name:        name,
		Quantity:    1,
		Unit:        "pcs",
		Location:    models.LocationPantry,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, m := range mut {
		m(item)
	}
	return item
}

func withExpiry(t time.Time) func(*models.Item) {
	return func(i *models.Item) { i.ExpiryDate = &t }
}

func TestUpsertAndGetByID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	expiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	item := testItem("h1", "Milk", withExpiry(expiry), func(i *models.Item) {
		i.Barcode = "4006381333931"
		i.Nutrition = map[string]any{"kcal": 47.0}
		i.Notes = "semi-skimmed"
		i.LowStockThreshold = 1
	})
	require.NoError(t, repo.Upsert(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	// Upsert with the same id replaces the row entirely.
	item.Name = "Oat milk"
	item.Nutrition = nil
	item.ExpiryDate = nil
	require.NoError(t, repo.Upsert(ctx, item))

	got, err = repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)
	assert.Nil(t, got.Nutrition)
	assert.Nil(t, got.ExpiryDate)
}

func TestGetByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetByID_IncludesTombstones(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := testItem("h1", "Milk")
	require.NoError(t, repo.Upsert(ctx, item))
	require.NoError(t, repo.SoftDelete(ctx, item.ID, time.Now()))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

func TestListActive_OrderingAndScope(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	day := func(d int) time.Time {
		return time.Date(2025, 7, d, 0, 0, 0, 0, time.UTC)
	}
	noExpiry := testItem("h1", "Salt")
	late := testItem("h1", "Yogurt", withExpiry(day(20)))
	early := testItem("h1", "Milk", withExpiry(day(2)))
	other := testItem("h2", "Bread", withExpiry(day(1)))
	deleted := testItem("h1", "Eggs", withExpiry(day(1)))

	for _, it := range []*models.Item{noExpiry, late, early, other, deleted} {
		require.NoError(t, repo.Upsert(ctx, it))
	}
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID, time.Now()))

	got, err := repo.ListActive(ctx, "h1")
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, it := range got {
		names = append(names, it.Name)
	}
	// Soonest expiry first, items without an expiry last.
	assert.Equal(t, []string{"Milk", "Yogurt", "Salt"}, names)
}

func TestListByLocation(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	fridge := testItem("h1", "Milk", func(i *models.Item) { i.Location = models.LocationFridge })
	pantry := testItem("h1", "Rice")
	require.NoError(t, repo.Upsert(ctx, fridge))
	require.NoError(t, repo.Upsert(ctx, pantry))

	got, err := repo.ListByLocation(ctx, "h1", models.LocationFridge)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milk", got[0].Name)
}

func TestListExpiring(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	cutoff := time.Date(2025, 7, 8, 0, 0, 0, 0, time.UTC)
	soon := testItem("h1", "Milk", withExpiry(cutoff.AddDate(0, 0, -1)))
	later := testItem("h1", "Yogurt", withExpiry(cutoff.AddDate(0, 0, 5)))
	never := testItem("h1", "Salt")

	for _, it := range []*models.Item{soon, later, never} {
		require.NoError(t, repo.Upsert(ctx, it))
	}

	got, err := repo.ListExpiring(ctx, "h1", cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milk", got[0].Name)
}

func TestListLowStock(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	low := testItem("h1", "Milk", func(i *models.Item) {
		i.Quantity = 1
		i.LowStockThreshold = 2
	})
	fine := testItem("h1", "Rice", func(i *models.Item) {
		i.Quantity = 5
		i.LowStockThreshold = 2
	})
	noThreshold := testItem("h1", "Salt", func(i *models.Item) {
		i.Quantity = 0
	})

	for _, it := range []*models.Item{low, fine, noThreshold} {
		require.NoError(t, repo.Upsert(ctx, it))
	}

	got, err := repo.ListLowStock(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Milk", got[0].Name)
}

func TestSoftDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := testItem("h1", "Milk", func(i *models.Item) { i.IsSynced = true })
	require.NoError(t, repo.Upsert(ctx, item))

	ts := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SoftDelete(ctx, item.ID, ts))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, ts, got.UpdatedAt)
	// SoftDelete does not touch the sync flag; the caller decides.
	assert.True(t, got.IsSynced)

	assert.ErrorIs(t, repo.SoftDelete(ctx, "missing", ts), common.ErrNotFound)
}

func TestMarkDirtyAndListUnsynced(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	synced := testItem("h1", "Milk", func(i *models.Item) { i.IsSynced = true })
	dirty := testItem("h2", "Bread")
	require.NoError(t, repo.Upsert(ctx, synced))
	require.NoError(t, repo.Upsert(ctx, dirty))

	got, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, dirty.ID, got[0].ID)

	require.NoError(t, repo.MarkDirty(ctx, synced.ID))

	got, err = repo.ListUnsynced(ctx)
	require.NoError(t, err)
	// Dirty records from every household are reported.
	assert.Len(t, got, 2)
}

func TestMarkSynced_StaleAsOfKeepsDirty(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	item := testItem("h1", "Milk")
	require.NoError(t, repo.Upsert(ctx, item))

	// The record was mutated again after the push read it.
	stale := item.UpdatedAt.Add(-time.Minute)
	require.NoError(t, repo.MarkSynced(ctx, item.ID, stale))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced, "stale acknowledgment must not mark the record synced")

	require.NoError(t, repo.MarkSynced(ctx, item.ID, item.UpdatedAt))

	got, err = repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
}

func TestHardDelete_OnlyConfirmedTombstones(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	live := testItem("h1", "Milk", func(i *models.Item) { i.IsSynced = true })
	dirtyTombstone := testItem("h1", "Eggs", func(i *models.Item) { i.IsDeleted = true })
	confirmed := testItem("h1", "Bread", func(i *models.Item) {
		i.IsSynced = true
		i.IsDeleted = true
	})

	for _, it := range []*models.Item{live, dirtyTombstone, confirmed} {
		require.NoError(t, repo.Upsert(ctx, it))
	}

	for _, it := range []*models.Item{live, dirtyTombstone, confirmed} {
		require.NoError(t, repo.HardDelete(ctx, it.ID))
	}

	_, err := repo.GetByID(ctx, live.ID)
	assert.NoError(t, err, "live records must survive HardDelete")
	_, err = repo.GetByID(ctx, dirtyTombstone.ID)
	assert.NoError(t, err, "unsynced tombstones must survive HardDelete")
	_, err = repo.GetByID(ctx, confirmed.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPurgeHousehold(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	mine := testItem("h1", "Milk")
	theirs := testItem("h2", "Bread")
	require.NoError(t, repo.Upsert(ctx, mine))
	require.NoError(t, repo.Upsert(ctx, theirs))

	require.NoError(t, repo.PurgeHousehold(ctx, "h1"))

	_, err := repo.GetByID(ctx, mine.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = repo.GetByID(ctx, theirs.ID)
	assert.NoError(t, err)
}

func TestAcceptRemote(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	pulled := testItem("h1", "Milk", func(i *models.Item) { i.IsSynced = true })
	require.NoError(t, repo.AcceptRemote(ctx, pulled))

	got, err := repo.GetByID(ctx, pulled.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Name)
	assert.True(t, got.IsSynced)

	// A synced row takes the remote version.
	update := *pulled
	update.Name = "Oat milk"
	require.NoError(t, repo.AcceptRemote(ctx, &update))
	got, err = repo.GetByID(ctx, pulled.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)

	// A dirty row wins and the remote version is dropped, even when the
	// local edit landed after the pull already read the remote listing.
	require.NoError(t, repo.MarkDirty(ctx, pulled.ID))
	update.Name = "Soy milk"
	require.NoError(t, repo.AcceptRemote(ctx, &update))
	got, err = repo.GetByID(ctx, pulled.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oat milk", got.Name)
	assert.False(t, got.IsSynced, "dirty flag survives the discarded write")
}
