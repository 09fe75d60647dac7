package session

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/dlowans/facet/internal/cache"
	"github.com/dlowans/facet/internal/clock"
	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/navctx"
	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/query"
)

// recordingBackend is fetcher, mutator and nav store in one, answering
// immediately so tests drive time only through the fake clock.
type recordingBackend struct {
	mu       sync.Mutex
	requests []query.Request
	statuses []cache.StatusUpdate
	saved    map[string]filter.State
	page     query.Page
}

func newBackend() *recordingBackend {
	return &recordingBackend{
		saved: make(map[string]filter.State),
		page: query.Page{
			Items: []project.Project{
				{ID: "p1", Title: "Sunset", Status: project.StatusProgress},
			},
			TotalItems: 1,
			TotalPages: 1,
		},
	}
}

func (b *recordingBackend) FetchPage(_ context.Context, req query.Request) (*query.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	p := b.page
	return &p, nil
}

func (b *recordingBackend) UpdateStatus(_ context.Context, id string, status project.Status) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, cache.StatusUpdate{ID: id, Status: status})
	return nil
}

func (b *recordingBackend) CreateProject(_ context.Context, p project.Project) (project.Project, error) {
	return p, nil
}

func (b *recordingBackend) DeleteProject(_ context.Context, _ string) error {
	return nil
}

func (b *recordingBackend) SaveNavigationContext(_ context.Context, userID string, s filter.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved[userID] = s.Clone()
	return nil
}

func (b *recordingBackend) LoadNavigationContext(_ context.Context, userID string) (filter.State, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.saved[userID]
	return s, ok, nil
}

func (b *recordingBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *recordingBackend) request(i int) query.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[i]
}

func (b *recordingBackend) searches() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, r := range b.requests {
		out = append(out, r.Filters.Search)
	}
	return out
}

func waitRequests(t *testing.T, b *recordingBackend, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b.requestCount() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d requests, have %d", n, b.requestCount())
}

func newTestSession(t *testing.T, b *recordingBackend, clk clock.Clock) *Session {
	t.Helper()
	s, err := New(Config{
		Fetcher:  b,
		Mutator:  b,
		NavStore: b,
		Clock:    clk,
		Logger:   log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func startedSession(t *testing.T, b *recordingBackend, clk clock.Clock) *Session {
	t.Helper()
	s := newTestSession(t, b, clk)
	if err := s.Start(context.Background(), "user1"); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	waitRequests(t, b, 1)
	return s
}

func TestSession_NoQueryBeforeStart(t *testing.T) {
	b := newBackend()
	s := newTestSession(t, b, clock.NewFake())

	s.Dispatch(filter.SetCompany("acme"))
	time.Sleep(10 * time.Millisecond)

	if n := b.requestCount(); n != 0 {
		t.Errorf("requests = %d before Start, want 0", n)
	}
}

// Selecting a company from page 3 lands on page 1 of the narrowed
// result set, with exactly one new fetch.
func TestSession_CompanySelectionResetsPage(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)

	s.Dispatch(filter.SetPage(3))
	waitRequests(t, b, 2)

	before := b.requestCount()
	s.Dispatch(filter.SetCompany("acme"))
	waitRequests(t, b, before+1)

	st := s.State()
	if st.SelectedCompany != "acme" || st.CurrentPage != 1 || st.PageSize != 25 {
		t.Errorf("state = company %q page %d size %d, want acme/1/25",
			st.SelectedCompany, st.CurrentPage, st.PageSize)
	}

	req := b.request(b.requestCount() - 1)
	if req.Filters.Company != "acme" || req.Page != 1 {
		t.Errorf("fetch = company %q page %d, want acme page 1", req.Filters.Company, req.Page)
	}
	if n := b.requestCount(); n != before+1 {
		t.Errorf("requests = %d, want exactly one more than %d", n, before)
	}
}

func TestSession_PageSizeChangeResetsPage(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)

	s.Dispatch(filter.SetPage(4))
	waitRequests(t, b, 2)

	s.Dispatch(filter.SetPageSize(50))
	waitRequests(t, b, 3)

	st := s.State()
	if st.CurrentPage != 1 || st.PageSize != 50 {
		t.Errorf("state = page %d size %d, want 1 and 50", st.CurrentPage, st.PageSize)
	}
	req := b.request(b.requestCount() - 1)
	if req.Page != 1 || req.PageSize != 50 {
		t.Errorf("fetch = page %d size %d, want 1 and 50", req.Page, req.PageSize)
	}
}

// Typing "a", "ab", "abc" at 50ms intervals fires one query, for
// "abc", a full debounce delay after the last keystroke. No query ever
// sees "a" or "ab".
func TestSession_TypingDebouncesToFinalTerm(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)
	before := b.requestCount()

	s.Dispatch(filter.SetSearchTerm("a"))
	clk.Advance(50 * time.Millisecond)
	s.Dispatch(filter.SetSearchTerm("ab"))
	clk.Advance(50 * time.Millisecond)
	s.Dispatch(filter.SetSearchTerm("abc"))

	if !s.SearchPending() {
		t.Error("SearchPending() = false while typing")
	}
	if n := b.requestCount(); n != before {
		t.Fatalf("query fired before debounce settled: %v", b.searches())
	}

	clk.Advance(300 * time.Millisecond)
	waitRequests(t, b, before+1)

	for _, term := range b.searches() {
		if term == "a" || term == "ab" {
			t.Fatalf("intermediate term %q reached a query", term)
		}
	}
	req := b.request(b.requestCount() - 1)
	if req.Filters.Search != "abc" {
		t.Errorf("fetch search = %q, want abc", req.Filters.Search)
	}
	if s.SearchPending() {
		t.Error("SearchPending() = true after settle")
	}
}

func TestSession_StartRestoresSavedContext(t *testing.T) {
	b := newBackend()
	saved := filter.Default(false)
	saved.SelectedCompany = "acme"
	saved.CurrentPage = 2
	saved.SearchTerm = "sunset"
	b.saved["user1"] = saved

	clk := clock.NewFake()
	s := startedSession(t, b, clk)

	st := s.State()
	if st.SelectedCompany != "acme" {
		t.Errorf("SelectedCompany = %q, want restored acme", st.SelectedCompany)
	}
	// A restored snapshot keeps its page; the user returns to where
	// they were.
	if st.CurrentPage != 2 {
		t.Errorf("CurrentPage = %d, want restored 2", st.CurrentPage)
	}
	if req := b.request(0); req.Filters.Company != "acme" || req.Page != 2 {
		t.Errorf("first fetch = company %q page %d, want restored values", req.Filters.Company, req.Page)
	}

	// The restored search term is settled input, not fresh typing: the
	// first fetch already carries it, with no debounce window and no
	// second fetch when the delay elapses.
	if req := b.request(0); req.Filters.Search != "sunset" {
		t.Errorf("first fetch search = %q, want restored sunset", req.Filters.Search)
	}
	if s.SearchPending() {
		t.Error("SearchPending() = true for a restored term")
	}
	clk.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	if n := b.requestCount(); n != 1 {
		t.Errorf("requests = %d after restore, want exactly 1: %v", n, b.searches())
	}
}

func TestSession_DispatchSchedulesNavSave(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)

	s.Dispatch(filter.ToggleTag("floral"))
	s.Dispatch(filter.SetCompany("acme"))

	clk.Advance(time.Second)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		snap, ok := b.saved["user1"]
		b.mu.Unlock()
		if ok && snap.SelectedCompany == "acme" {
			if len(snap.SelectedTags) != 1 || snap.SelectedTags[0] != "floral" {
				t.Errorf("saved tags = %v, want [floral]", snap.SelectedTags)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("navigation context never saved")
}

func TestSession_OptimisticStatusChangeAndReconcile(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)
	waitFetchApplied(t, s)
	before := b.requestCount()

	if err := s.SetProjectStatus(context.Background(), "p1", project.StatusCompleted); err != nil {
		t.Fatalf("SetProjectStatus() failed: %v", err)
	}

	// The patch is visible synchronously.
	page := s.Page()
	if page.Items[0].Status != project.StatusCompleted {
		t.Errorf("cached status = %v, want optimistic completed", page.Items[0].Status)
	}

	// Reconciliation refetches the same query shortly after.
	clk.Advance(time.Second)
	waitRequests(t, b, before+1)
}

func waitFetchApplied(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(s.Page().Items) > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("fetch result never reached the cache")
}

func TestSession_ViewTypeChangeFiresNoQuery(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)
	before := b.requestCount()

	s.Dispatch(filter.SetViewType(filter.ViewList))
	time.Sleep(10 * time.Millisecond)

	if n := b.requestCount(); n != before {
		t.Errorf("view type change fired %d queries", n-before)
	}
	if st := s.State(); st.ViewType != filter.ViewList {
		t.Errorf("ViewType = %v, want list", st.ViewType)
	}
}

func TestSession_CloseStopsEverything(t *testing.T) {
	b := newBackend()
	clk := clock.NewFake()
	s := startedSession(t, b, clk)
	before := b.requestCount()

	s.Dispatch(filter.SetSearchTerm("pending"))
	s.Close()
	clk.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)

	if n := b.requestCount(); n != before {
		t.Errorf("queries fired after Close: %d", n-before)
	}
	if n := clk.PendingTimers(); n != 0 {
		t.Errorf("%d timers still armed after Close", n)
	}

	// Dispatch after Close is a no-op, not a panic.
	s.Dispatch(filter.SetCompany("acme"))
}

var _ navctx.Store = (*recordingBackend)(nil)
