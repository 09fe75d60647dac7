package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/project"
)

// reconcileDelay is how long after a confirmed mutation the
// authoritative refetch is scheduled. Long enough to coalesce a run of
// quick mutations into one refetch.
const reconcileDelay = 100 * time.Millisecond

// Mutator is the backend mutation collaborator the updater wraps.
type Mutator interface {
	UpdateStatus(ctx context.Context, id string, status project.Status) error
	CreateProject(ctx context.Context, p project.Project) (project.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// UpdaterConfig holds updater configuration.
type UpdaterConfig struct {
	// Cache is the page cache to patch. Required.
	Cache *Cache

	// Mutator performs the backend writes. Required.
	Mutator Mutator

	// Reconcile is invoked (debounced) after every confirmed mutation
	// to refetch authoritative state. Optional.
	Reconcile func()

	// Clock drives the reconcile delay. Defaults to clock.System().
	Clock clock.Clock

	// Logger for rollback events. Defaults to a stderr logger.
	Logger *log.Logger
}

// Updater performs optimistic mutations: the cache is patched before
// the backend write is attempted, rolled back to the exact pre-write
// snapshot on failure, and reconciled against the server on success.
type Updater struct {
	cache     *Cache
	mutator   Mutator
	reconcile func()
	clk       clock.Clock
	logger    *log.Logger

	mu     sync.Mutex
	timer  clock.Timer
	closed bool
}

// NewUpdater creates an Updater. Close must be called when the owning
// session ends.
func NewUpdater(cfg UpdaterConfig) (*Updater, error) {
	if cfg.Cache == nil {
		return nil, errors.New("cache cannot be nil")
	}
	if cfg.Mutator == nil {
		return nil, errors.New("mutator cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[cache] ", log.LstdFlags)
	}
	return &Updater{
		cache:     cfg.Cache,
		mutator:   cfg.Mutator,
		reconcile: cfg.Reconcile,
		clk:       cfg.Clock,
		logger:    cfg.Logger,
	}, nil
}

// StatusChange optimistically moves project id to status. The patch is
// visible to cache readers before the backend write is attempted; on
// failure the previous snapshot is restored and the error returned so
// the caller can notify the user.
func (u *Updater) StatusChange(ctx context.Context, id string, status project.Status) error {
	snap := u.cache.ApplyStatusChange(id, status)
	if err := u.mutator.UpdateStatus(ctx, id, status); err != nil {
		u.cache.Rollback(snap)
		u.logger.Printf("status change for %s rolled back: %v", id, err)
		return fmt.Errorf("update status: %w", err)
	}
	u.scheduleReconcile()
	return nil
}

// Create optimistically adds p to the cached page, then creates it on
// the backend. The backend's copy (with its assigned id and timestamps)
// replaces the optimistic entry at the next reconcile.
func (u *Updater) Create(ctx context.Context, p project.Project) (project.Project, error) {
	snap := u.cache.ApplyCreate(p)
	created, err := u.mutator.CreateProject(ctx, p)
	if err != nil {
		u.cache.Rollback(snap)
		u.logger.Printf("create %q rolled back: %v", p.Title, err)
		return project.Project{}, fmt.Errorf("create project: %w", err)
	}
	u.scheduleReconcile()
	return created, nil
}

// Delete optimistically removes project id from the cached page.
func (u *Updater) Delete(ctx context.Context, id string) error {
	snap := u.cache.ApplyDelete(id)
	if err := u.mutator.DeleteProject(ctx, id); err != nil {
		u.cache.Rollback(snap)
		u.logger.Printf("delete of %s rolled back: %v", id, err)
		return fmt.Errorf("delete project: %w", err)
	}
	u.scheduleReconcile()
	return nil
}

// BatchStatusChange applies every update as one atomic cache write,
// then confirms them with the backend one by one. Any backend failure
// rolls back the entire batch.
func (u *Updater) BatchStatusChange(ctx context.Context, updates []StatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	snap := u.cache.ApplyBatch(updates)
	for _, up := range updates {
		if err := u.mutator.UpdateStatus(ctx, up.ID, up.Status); err != nil {
			u.cache.Rollback(snap)
			u.logger.Printf("batch of %d rolled back at %s: %v", len(updates), up.ID, err)
			return fmt.Errorf("batch update status %s: %w", up.ID, err)
		}
	}
	u.scheduleReconcile()
	return nil
}

// scheduleReconcile arms (or re-arms) the reconcile timer. Mutations in
// quick succession collapse into a single refetch.
func (u *Updater) scheduleReconcile() {
	if u.reconcile == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return
	}
	if u.timer != nil {
		u.timer.Stop()
	}
	u.timer = u.clk.AfterFunc(reconcileDelay, u.reconcile)
}

// Close cancels any scheduled reconcile. Safe to call more than once.
func (u *Updater) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.closed = true
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}
