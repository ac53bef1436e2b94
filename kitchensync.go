// Package kitchensync is an offline-first household inventory library: a
// durable local store for pantry items, grocery entries and households, a
// mutation API that records every change locally before any network traffic,
// and a background synchronization engine that reconciles each household's
// records with a shared remote document store.
//
// Applications embed the library through Open, mutate through the services
// on App, and never wait on the network: sync runs in the background and
// retries silently until devices converge.
package kitchensync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/kitchensync/kitchensync/internal/common"
	"github.com/kitchensync/kitchensync/internal/config"
	"github.com/kitchensync/kitchensync/internal/engine"
	"github.com/kitchensync/kitchensync/internal/logging"
	"github.com/kitchensync/kitchensync/internal/migrations"
	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/remote"
	"github.com/kitchensync/kitchensync/internal/repositories/groceries"
	"github.com/kitchensync/kitchensync/internal/repositories/households"
	"github.com/kitchensync/kitchensync/internal/repositories/items"
	"github.com/kitchensync/kitchensync/internal/scheduler"
	"github.com/kitchensync/kitchensync/internal/services"
	"github.com/kitchensync/kitchensync/internal/watch"
)

// Re-exported model and configuration types.
type (
	Config       = config.Config
	Item         = models.Item
	GroceryEntry = models.GroceryEntry
	Household    = models.Household

	// RemoteClient is the remote document store abstraction; inject a
	// custom implementation with WithRemote.
	RemoteClient = remote.Client

	// MemoryRemote is an in-memory RemoteClient for tests and offline
	// development.
	MemoryRemote = remote.MemoryClient

	// ValidationError reports a mutation rejected before any write.
	ValidationError = common.ValidationError
)

// Re-exported sentinel errors; match with errors.Is. The remote errors are
// for custom RemoteClient implementations: return ErrRemoteUnavailable for
// transient faults and ErrRemoteRejected for permanent ones.
var (
	ErrNotFound          = common.ErrNotFound
	ErrNoHousehold       = common.ErrNoHousehold
	ErrRemoteUnavailable = common.ErrRemoteUnavailable
	ErrRemoteRejected    = common.ErrRemoteRejected
)

// NewMemoryRemote returns an empty in-memory remote store.
func NewMemoryRemote() *MemoryRemote { return remote.NewMemoryClient() }

// LoadConfig resolves configuration: defaults, then the JSON file at path
// (empty path skips the file), then environment variables.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

type options struct {
	slogger *slog.Logger
	remote  remote.Client
}

// Option customizes Open.
type Option func(*options)

// WithLogger routes library logs to the given slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.slogger = l }
}

// WithRemote injects a remote store client, overriding the Firestore client
// Open would otherwise build from Config.FirestoreProjectID.
func WithRemote(c RemoteClient) Option {
	return func(o *options) { o.remote = c }
}

// App is the wired library: mutation services, the sync engine, and the
// background scheduler that drives it.
type App struct {
	Items      *services.ItemService
	Groceries  *services.GroceryService
	Households *services.HouseholdService

	db           *sql.DB
	remote       remote.Client
	engine       *engine.Engine
	runner       *scheduler.Runner
	log          logging.Logger
	expiryWindow time.Duration
}

// Open initializes the local database (running migrations), connects the
// remote store, and starts the background sync runner. ctx bounds the
// initialization work and the runner's lifetime.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := logging.NewSlogLogger(slog.Default())
	if o.slogger != nil {
		log = logging.NewSlogLogger(o.slogger)
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	remoteClient := o.remote
	if remoteClient == nil {
		if cfg.FirestoreProjectID == "" {
			_ = db.Close()
			return nil, errors.New("no remote store configured: set FirestoreProjectID or use WithRemote")
		}
		remoteClient, err = remote.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.RemoteTimeout)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	hub := watch.NewHub()
	itemRepo := items.NewSQLiteRepository(db, hub)
	groceryRepo := groceries.NewSQLiteRepository(db, hub)
	householdRepo := households.NewSQLiteRepository(db, hub)

	eng := engine.New(itemRepo, groceryRepo, householdRepo, remoteClient, log)
	runner := scheduler.NewRunner(eng, log, scheduler.Options{
		Interval:    cfg.SyncInterval,
		BackoffBase: cfg.BackoffBase,
		MaxAttempts: cfg.MaxSyncAttempts,
	})
	runner.Start(ctx)

	return &App{
		Items:      services.NewItemService(itemRepo, hub, runner, log),
		Groceries:  services.NewGroceryService(groceryRepo, itemRepo, hub, runner, log),
		Households: services.NewHouseholdService(db, householdRepo, hub, runner, log),
		db:           db,
		remote:       remoteClient,
		engine:       eng,
		runner:       runner,
		log:          log,
		expiryWindow: time.Duration(cfg.ExpiryWindowDays) * 24 * time.Hour,
	}, nil
}

// RefreshGroceries runs both grocery generators for the household: pantry
// items expiring within the configured lookahead window
// (Config.ExpiryWindowDays) and items at or below their low-stock threshold.
// Returns the total number of entries created.
func (a *App) RefreshGroceries(ctx context.Context, householdID string) (int, error) {
	fromExpiring, err := a.Groceries.GenerateFromExpiring(ctx, householdID, a.expiryWindow)
	if err != nil {
		return fromExpiring, err
	}
	fromLowStock, err := a.Groceries.GenerateFromLowStock(ctx, householdID)
	return fromExpiring + fromLowStock, err
}

// SyncNow requests an immediate background sync pass for the household.
// Fire-and-forget; redundant requests coalesce.
func (a *App) SyncNow(householdID string) {
	a.runner.RequestSync(householdID)
}

// Close stops the background runner, then closes the remote client and the
// local database.
func (a *App) Close() error {
	a.runner.Close()
	var errs []error
	if err := a.remote.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RunMigrations applies the embedded schema migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
