package services

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/migrations"
	"github.com/kitchensync/kitchensync/internal/repositories/groceries"
	"github.com/kitchensync/kitchensync/internal/repositories/households"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
	"github.com/kitchensync/kitchensync/internal/watch"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(db, "."))
	return db
}

// recordingRequester captures sync requests for assertions.
type recordingRequester struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRequester) RequestSync(householdID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, householdID)
}

func (r *recordingRequester) requested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fixture struct {
	db         *sql.DB
	items      *ItemService
	groceries  *GroceryService
	households *HouseholdService
	requester  *recordingRequester
	hub        *watch.Hub
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	hub := watch.NewHub()
	req := &recordingRequester{}
	log := logging.NewNop()

	itemRepo := items.NewSQLiteRepository(db, hub)
	groceryRepo := groceries.NewSQLiteRepository(db, hub)
	householdRepo := households.NewSQLiteRepository(db, hub)

	f := &fixture{
		db:         db,
		items:      NewItemService(itemRepo, hub, req, log),
		groceries:  NewGroceryService(groceryRepo, itemRepo, hub, req, log),
		households: NewHouseholdService(db, householdRepo, hub, req, log),
		requester:  req,
		hub:        hub,
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.items.now = clock
	f.groceries.now = clock
	f.households.now = clock
	return f
}
