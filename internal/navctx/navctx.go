// Package navctx persists each user's last-used filter configuration
// so a direct link into a detail view can restore the dashboard the
// way they left it.
//
// Persistence here is a convenience fallback, never a dependency: save
// failures are logged and swallowed, and nothing on the navigation or
// filtering path waits on a write.
package navctx

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/query"
)

// saveDelay batches rapid filter changes into one write. Saves are
// deliberately not retried; a storm of retrying writers would amplify
// exactly the load that made the first write fail.
const saveDelay = 1 * time.Second

// Store is the durable per-user record the saver writes to.
type Store interface {
	SaveNavigationContext(ctx context.Context, userID string, s filter.State) error
	LoadNavigationContext(ctx context.Context, userID string) (filter.State, bool, error)
}

// Saver debounces and persists filter snapshots per user. At most one
// write per user is in flight at a time; snapshots arriving while one
// is pending supersede it rather than queue behind it.
type Saver struct {
	store  Store
	clk    clock.Clock
	logger *log.Logger

	mu     sync.Mutex
	users  map[string]*userSaves
	closed bool
	wg     sync.WaitGroup
}

type userSaves struct {
	timer    clock.Timer
	latest   filter.State
	inFlight bool
	dirty    bool
}

// NewSaver creates a Saver. Close must be called when the owning
// session ends.
func NewSaver(store Store, clk clock.Clock, logger *log.Logger) *Saver {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[navctx] ", log.LstdFlags)
	}
	return &Saver{
		store:  store,
		clk:    clk,
		logger: logger,
		users:  make(map[string]*userSaves),
	}
}

// Save schedules snap for persistence. Returns immediately; the write
// happens after the save delay, with later snapshots replacing earlier
// unwritten ones. Guest sessions are never persisted.
func (s *Saver) Save(userID string, snap filter.State) {
	if userID == "" || userID == query.GuestUserID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	u := s.users[userID]
	if u == nil {
		u = &userSaves{}
		s.users[userID] = u
	}
	u.latest = snap.Clone()

	if u.timer != nil {
		u.timer.Stop()
	}
	u.timer = s.clk.AfterFunc(saveDelay, func() { s.flush(userID) })
}

// flush writes the latest snapshot for userID, or marks it dirty if a
// write is already in flight; the in-flight writer picks it up when it
// finishes.
func (s *Saver) flush(userID string) {
	s.mu.Lock()
	u := s.users[userID]
	if u == nil || s.closed {
		s.mu.Unlock()
		return
	}
	if u.inFlight {
		u.dirty = true
		s.mu.Unlock()
		return
	}
	u.inFlight = true
	snap := u.latest.Clone()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.write(userID, snap)
}

func (s *Saver) write(userID string, snap filter.State) {
	defer s.wg.Done()

	if err := s.store.SaveNavigationContext(context.Background(), userID, snap); err != nil {
		s.logger.Printf("save for %s failed (not retried): %v", userID, err)
	}

	s.mu.Lock()
	u := s.users[userID]
	u.inFlight = false
	redo := u.dirty && !s.closed
	u.dirty = false
	s.mu.Unlock()

	if redo {
		s.flush(userID)
	}
}

// Load retrieves the user's saved snapshot, sanitized through the same
// routine as fresh state. ok is false when nothing usable is stored;
// callers fall back to Default. Errors are logged, never surfaced.
func (s *Saver) Load(ctx context.Context, userID string, smallScreen bool) (filter.State, bool) {
	if userID == "" || userID == query.GuestUserID {
		return filter.State{}, false
	}

	snap, found, err := s.store.LoadNavigationContext(ctx, userID)
	if err != nil {
		s.logger.Printf("load for %s failed: %v", userID, err)
		return filter.State{}, false
	}
	if !found {
		return filter.State{}, false
	}
	// Stored snapshots may predate the current schema; sanitize fills
	// in anything missing or invalid.
	return filter.Sanitize(snap, smallScreen), true
}

// Close cancels pending timers and waits for in-flight writes to
// finish. Unwritten snapshots are dropped.
func (s *Saver) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, u := range s.users {
		if u.timer != nil {
			u.timer.Stop()
			u.timer = nil
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}
