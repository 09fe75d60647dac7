// Package session is the composition root for one authenticated
// dashboard session. It owns the filter state, the search debouncer,
// the query coordinator, the page cache with its optimistic updater,
// and the navigation-context saver, and wires their lifecycles
// together behind a single Dispatch entry point.
//
// Nothing here is a process-wide singleton. Each session constructs
// its own instances and tears them down in Close, so tests and
// multi-session hosts get full isolation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dlowans/facet/internal/cache"
	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/debounce"
	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/metadata"
	"github.com/dlowans/facet/internal/navctx"
	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/query"
)

// searchDelay is the free-text debounce interval. One query per pause
// in typing, not one per keystroke.
const searchDelay = 300 * time.Millisecond

// Config assembles a session's collaborators.
type Config struct {
	// Fetcher lists project pages. Required.
	Fetcher query.PageFetcher

	// Mutator performs project writes. Required.
	Mutator cache.Mutator

	// NavStore persists navigation context. Required.
	NavStore navctx.Store

	// Metadata populates filter selectors. Optional; selectors render
	// bare "all" options while it is nil or unloaded.
	Metadata *metadata.Cache

	// SmallScreen picks the default view type. Sampled once, at
	// session start.
	SmallScreen bool

	// Clock drives every timer in the session. Defaults to
	// clock.System().
	Clock clock.Clock

	// Logger for session lifecycle events. Defaults to a stderr logger.
	Logger *log.Logger

	// OnResult, if set, is called with every query result change.
	OnResult func(query.Result)
}

// Session owns one user's dashboard state.
type Session struct {
	logger *log.Logger
	meta   *metadata.Cache

	search  *debounce.SearchDebouncer
	coord   *query.Coordinator
	cache   *cache.Cache
	updater *cache.Updater
	saver   *navctx.Saver

	mu          sync.Mutex
	userID      string
	smallScreen bool
	initialized bool
	state       filter.State
	closed      bool
}

// New assembles a session. Start must be called before dispatching;
// Close must be called when the session ends.
func New(cfg Config) (*Session, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if cfg.Mutator == nil {
		return nil, errors.New("mutator cannot be nil")
	}
	if cfg.NavStore == nil {
		return nil, errors.New("nav store cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[session] ", log.LstdFlags)
	}

	s := &Session{
		logger:      cfg.Logger,
		meta:        cfg.Metadata,
		cache:       cache.New(),
		smallScreen: cfg.SmallScreen,
		state:       filter.Default(cfg.SmallScreen),
	}

	coord, err := query.NewCoordinator(query.Config{
		Fetcher: cfg.Fetcher,
		Clock:   cfg.Clock,
		Logger:  cfg.Logger,
		OnUpdate: func(res query.Result) {
			// Confirmed fetches become the cache's authoritative page.
			if !res.Loading && res.Err == nil {
				s.cache.Replace(res.Items, res.TotalItems, res.StatusCounts)
			}
			if cfg.OnResult != nil {
				cfg.OnResult(res)
			}
		},
	})
	if err != nil {
		return nil, err
	}
	s.coord = coord

	s.updater, err = cache.NewUpdater(cache.UpdaterConfig{
		Cache:     s.cache,
		Mutator:   cfg.Mutator,
		Reconcile: coord.Refetch,
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
	})
	if err != nil {
		coord.Close()
		return nil, err
	}

	s.saver = navctx.NewSaver(cfg.NavStore, cfg.Clock, cfg.Logger)
	s.search = debounce.NewSearch(cfg.Clock, searchDelay, func(string) { s.sync() })
	return s, nil
}

// Start binds the session to a user and initializes filter state from
// the persisted navigation context when one exists, falling back to
// device-aware defaults. No query fires before Start: default state
// must not race the persisted snapshot.
func (s *Session) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}

	initial := filter.Default(s.smallScreenNow())
	if snap, ok := s.saver.Load(ctx, userID, s.smallScreenNow()); ok {
		initial = snap
		s.logger.Printf("restored navigation context for %s", userID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	s.userID = userID
	s.initialized = true
	s.state = filter.Reduce(s.state, filter.SetInitialState(initial).WithSource(filter.SourceInitialization))
	s.mu.Unlock()

	// The restored term is already settled input; seeding (not Set)
	// keeps the first query from firing without it.
	s.search.Seed(initial.SearchTerm)
	s.sync()
	return nil
}

// Dispatch applies one action to the filter state. Search-term actions
// additionally feed the debouncer; every other consequence (query
// refresh, navigation-context save) follows from the state change.
func (s *Session) Dispatch(a filter.Action) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = filter.Reduce(s.state, a)
	st := s.state.Clone()
	userID := s.userID
	initialized := s.initialized
	s.mu.Unlock()

	if a.Kind == filter.KindSetSearchTerm {
		s.search.Set(a.Value)
	}
	if initialized {
		s.saver.Save(userID, st)
	}
	s.sync()
}

// sync pushes the current inputs into the query coordinator. The
// coordinator decides whether the effective query actually changed.
func (s *Session) sync() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	st := s.state.Clone()
	userID := s.userID
	initialized := s.initialized
	s.mu.Unlock()

	s.coord.Update(userID, st, s.search.Value(), initialized)
}

// State returns a copy of the current filter state.
func (s *Session) State() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Result returns the coordinator's current query result.
func (s *Session) Result() query.Result {
	return s.coord.Result()
}

// Page returns the cached page including any optimistic patches.
func (s *Session) Page() cache.Snapshot {
	return s.cache.Snapshot()
}

// SearchPending reports whether typed input hasn't settled yet.
func (s *Session) SearchPending() bool {
	return s.search.Pending()
}

// Metadata returns the session's reference-data cache, or an empty one
// when none was configured.
func (s *Session) Metadata() *metadata.Cache {
	if s.meta == nil {
		return metadata.NewCache()
	}
	return s.meta
}

// SetProjectStatus optimistically moves a project to status. The error
// is returned for user notification; the cache has already been rolled
// back when it is non-nil.
func (s *Session) SetProjectStatus(ctx context.Context, id string, status project.Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.updater.StatusChange(ctx, id, status)
}

// CreateProject optimistically adds a project.
func (s *Session) CreateProject(ctx context.Context, p project.Project) (project.Project, error) {
	return s.updater.Create(ctx, p)
}

// DeleteProject optimistically removes a project.
func (s *Session) DeleteProject(ctx context.Context, id string) error {
	return s.updater.Delete(ctx, id)
}

// BatchSetStatus optimistically moves several projects at once, as a
// single atomic cache write.
func (s *Session) BatchSetStatus(ctx context.Context, updates []cache.StatusUpdate) error {
	return s.updater.BatchStatusChange(ctx, updates)
}

// Close tears the session down: pending debounce timers are cancelled,
// in-flight fetches are discarded, and unwritten navigation snapshots
// are dropped. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.search.Close()
	s.updater.Close()
	s.coord.Close()
	s.saver.Close()
}

func (s *Session) smallScreenNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smallScreen
}
