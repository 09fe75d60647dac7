package query

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/project"
)

// Retry policy for transient read failures. Conservative fixed
// constants: two retries, doubling from one second, capped at thirty.
const (
	maxRetries     = 2
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// Result is the coordinator's derived view of the current query.
type Result struct {
	Items        []project.Project
	TotalItems   int
	TotalPages   int
	StatusCounts map[project.Status]int

	Loading bool
	Err     error
}

// Config holds coordinator configuration.
type Config struct {
	// Fetcher is the item-listing collaborator. Required.
	Fetcher PageFetcher

	// Clock drives retry backoff timers. Defaults to clock.System().
	Clock clock.Clock

	// Logger for fetch lifecycle events. Defaults to a stderr logger.
	Logger *log.Logger

	// OnUpdate, if set, is called after every result change (loading,
	// success, error). It runs on the fetch goroutine; callbacks must
	// not block.
	OnUpdate func(Result)
}

// Coordinator owns the query lifecycle for one session. Each change to
// the effective query signature triggers exactly one fetch; responses
// for superseded signatures are discarded, never applied.
type Coordinator struct {
	fetcher  PageFetcher
	clk      clock.Clock
	logger   *log.Logger
	onUpdate func(Result)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	gen     uint64 // incremented per issued fetch; guards stale responses
	lastSig string
	lastReq Request
	result  Result
	closed  bool
}

// NewCoordinator creates a Coordinator. Close must be called when the
// owning session ends.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[query] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		fetcher:  cfg.Fetcher,
		clk:      cfg.Clock,
		logger:   cfg.Logger,
		onUpdate: cfg.OnUpdate,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Update recomputes the effective query signature and, if it changed,
// issues a fetch. Until initialized is true, or while userID is the
// guest sentinel, no fetch is issued and the result is empty and
// non-loading; persisted preferences must finish loading before the
// first query fires.
func (c *Coordinator) Update(userID string, s filter.State, debouncedSearch string, initialized bool) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	if !initialized || userID == "" || userID == GuestUserID {
		c.gen++ // invalidate anything in flight; guest must never see it
		c.lastSig = ""
		c.result = Result{}
		res := c.result
		c.mu.Unlock()
		c.notify(res)
		return
	}

	sig := Signature(userID, s, debouncedSearch)
	if sig == c.lastSig {
		c.mu.Unlock()
		return
	}

	req := Request{
		Filters:       BuildFilters(userID, s, debouncedSearch),
		SortField:     s.SortField,
		SortDirection: s.SortDirection,
		Page:          s.CurrentPage,
		PageSize:      s.PageSize,
	}

	c.lastSig = sig
	c.lastReq = req
	c.gen++
	gen := c.gen
	c.result.Loading = true
	c.result.Err = nil
	res := c.result
	c.mu.Unlock()

	c.notify(res)

	c.wg.Add(1)
	go c.fetch(gen, req)
}

// Refetch re-issues the current query even though the signature is
// unchanged. Cache reconciliation uses it to correct drift between an
// optimistic assumption and the authoritative server state.
func (c *Coordinator) Refetch() {
	c.mu.Lock()
	if c.closed || c.lastSig == "" {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	req := c.lastReq
	c.result.Loading = true
	c.result.Err = nil
	res := c.result
	c.mu.Unlock()

	c.notify(res)

	c.wg.Add(1)
	go c.fetch(gen, req)
}

// Result returns the current derived result.
func (c *Coordinator) Result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneResult(c.result)
}

// Close discards in-flight fetches and prevents further updates. It
// blocks until fetch goroutines have exited.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++ // invalidate anything in flight
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// fetch performs one fetch attempt cycle for the given generation,
// retrying transient failures with exponential backoff. Results are
// applied only if the generation is still current: last request wins.
func (c *Coordinator) fetch(gen uint64, req Request) {
	defer c.wg.Done()

	var lastErr error
	delay := baseRetryDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if c.stale(gen) {
			return
		}

		page, err := c.fetcher.FetchPage(c.ctx, req)
		if err == nil {
			c.apply(gen, Result{
				Items:        page.Items,
				TotalItems:   page.TotalItems,
				TotalPages:   page.TotalPages,
				StatusCounts: page.StatusCounts,
			})
			return
		}

		lastErr = err
		if errors.Is(err, ErrInvalidFilter) || errors.Is(err, context.Canceled) {
			break
		}
		if attempt == maxRetries {
			break
		}

		c.logger.Printf("fetch failed (attempt %d/%d), retrying in %v: %v",
			attempt+1, maxRetries+1, delay, err)
		if !c.sleep(delay) {
			return
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	c.apply(gen, Result{Err: lastErr})
}

// stale reports whether gen has been superseded or the coordinator
// closed.
func (c *Coordinator) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || gen != c.gen
}

// apply installs res if gen is still the current generation.
func (c *Coordinator) apply(gen uint64, res Result) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if res.Err == nil {
			c.logger.Printf("discarding stale response (gen %d)", gen)
		}
		return
	}
	c.result = res
	out := cloneResult(res)
	c.mu.Unlock()

	if res.Err != nil {
		c.logger.Printf("query failed: %v", res.Err)
	}
	c.notify(out)
}

// sleep blocks for d on the injected clock. Returns false if the
// coordinator shut down while waiting.
func (c *Coordinator) sleep(d time.Duration) bool {
	done := make(chan struct{})
	t := c.clk.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return true
	case <-c.ctx.Done():
		t.Stop()
		return false
	}
}

func (c *Coordinator) notify(res Result) {
	if c.onUpdate != nil {
		c.onUpdate(res)
	}
}

func cloneResult(r Result) Result {
	out := r
	if r.Items != nil {
		out.Items = make([]project.Project, len(r.Items))
		for i := range r.Items {
			out.Items[i] = r.Items[i].Clone()
		}
	}
	if r.StatusCounts != nil {
		out.StatusCounts = make(map[project.Status]int, len(r.StatusCounts))
		for k, v := range r.StatusCounts {
			out.StatusCounts[k] = v
		}
	}
	return out
}
