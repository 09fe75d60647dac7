package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/query"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "facet.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}
	return s
}

func seedProject(t *testing.T, s *Store, p project.Project) project.Project {
	t.Helper()
	if p.UserID == "" {
		p.UserID = "user1"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	created, err := s.CreateProject(context.Background(), p)
	if err != nil {
		t.Fatalf("CreateProject(%s) failed: %v", p.ID, err)
	}
	return created
}

func defaultRequest(userID string) query.Request {
	st := filter.Default(false)
	return query.Request{
		Filters:       query.BuildFilters(userID, st, ""),
		SortField:     st.SortField,
		SortDirection: st.SortDirection,
		Page:          1,
		PageSize:      st.PageSize,
	}
}

func TestFetchPage_StatusExpansion(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Sunset", Status: project.StatusProgress})
	seedProject(t, s, project.Project{ID: "p2", Title: "Owl", Status: project.StatusWishlist})
	seedProject(t, s, project.Project{ID: "p3", Title: "Nebula", Status: project.StatusArchived})
	seedProject(t, s, project.Project{ID: "p4", Title: "Koi", Status: project.StatusOnHold})

	// Default state: active tab including on-hold.
	page, err := s.FetchPage(context.Background(), defaultRequest("user1"))
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2 (progress + onhold)", page.TotalItems)
	}
	for _, it := range page.Items {
		if it.Status == project.StatusWishlist || it.Status == project.StatusArchived {
			t.Errorf("item %s with status %s leaked into active tab", it.ID, it.Status)
		}
	}
}

func TestFetchPage_OtherUsersInvisible(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Mine", Status: project.StatusProgress})
	seedProject(t, s, project.Project{ID: "p2", Title: "Theirs", Status: project.StatusProgress, UserID: "user2"})

	page, err := s.FetchPage(context.Background(), defaultRequest("user1"))
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].ID != "p1" {
		t.Errorf("got %d items, want only user1's project", page.TotalItems)
	}
}

func TestFetchPage_TagFilterIsConjunctive(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Sunset", Status: project.StatusProgress, Tags: []string{"landscape", "sunset"}})
	seedProject(t, s, project.Project{ID: "p2", Title: "Hills", Status: project.StatusProgress, Tags: []string{"landscape"}})

	st := filter.Default(false)
	st.SelectedTags = []string{"landscape", "sunset"}
	req := defaultRequest("user1")
	req.Filters = query.BuildFilters("user1", st, "")

	page, err := s.FetchPage(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].ID != "p1" {
		t.Errorf("tag AND filter returned %d items, want only p1", page.TotalItems)
	}
}

func TestFetchPage_SearchAndMiniKits(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Mountain Sunset", Status: project.StatusProgress})
	seedProject(t, s, project.Project{ID: "p2", Title: "Sunset Beach", Status: project.StatusProgress, MiniKit: true})
	seedProject(t, s, project.Project{ID: "p3", Title: "Forest", Status: project.StatusProgress})

	st := filter.Default(false)
	st.IncludeMiniKits = false
	req := defaultRequest("user1")
	req.Filters = query.BuildFilters("user1", st, "sunset")

	page, err := s.FetchPage(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].ID != "p1" {
		t.Errorf("search+minikit filter returned %+v, want only p1", page.Items)
	}
}

func TestFetchPage_Pagination(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 30; i++ {
		seedProject(t, s, project.Project{
			ID:        fmt.Sprintf("p%02d", i),
			Title:     fmt.Sprintf("Project %02d", i),
			Status:    project.StatusProgress,
			UpdatedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}

	req := defaultRequest("user1")
	req.SortField = filter.SortTitle
	req.SortDirection = filter.SortAsc
	req.PageSize = 10
	req.Page = 3

	page, err := s.FetchPage(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 30 || page.TotalPages != 3 {
		t.Errorf("totals = %d items %d pages, want 30 and 3", page.TotalItems, page.TotalPages)
	}
	if len(page.Items) != 10 {
		t.Fatalf("page has %d items, want 10", len(page.Items))
	}
	if page.Items[0].ID != "p20" {
		t.Errorf("page 3 starts at %s, want p20", page.Items[0].ID)
	}
}

// Status counts apply every predicate except the status filter, so the
// wishlist badge stays correct while the active tab is selected.
func TestFetchPage_StatusCountsIgnoreStatusFilter(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Sunset", Status: project.StatusProgress})
	seedProject(t, s, project.Project{ID: "p2", Title: "Owl", Status: project.StatusWishlist})
	seedProject(t, s, project.Project{ID: "p3", Title: "Koi", Status: project.StatusWishlist})

	page, err := s.FetchPage(context.Background(), defaultRequest("user1"))
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.TotalItems != 1 {
		t.Errorf("TotalItems = %d, want 1 on the active tab", page.TotalItems)
	}
	if page.StatusCounts[project.StatusWishlist] != 2 {
		t.Errorf("wishlist count = %d, want 2 despite active tab", page.StatusCounts[project.StatusWishlist])
	}
	if page.StatusCounts[project.StatusProgress] != 1 {
		t.Errorf("progress count = %d, want 1", page.StatusCounts[project.StatusProgress])
	}
}

func TestFetchPage_CompanySort(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertCompany(context.Background(), project.Company{ID: "c1", Name: "Zebra Kits"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertCompany(context.Background(), project.Company{ID: "c2", Name: "Artisan"}); err != nil {
		t.Fatal(err)
	}
	seedProject(t, s, project.Project{ID: "p1", Title: "A", Status: project.StatusProgress, CompanyID: "c1"})
	seedProject(t, s, project.Project{ID: "p2", Title: "B", Status: project.StatusProgress, CompanyID: "c2"})

	req := defaultRequest("user1")
	req.SortField = filter.SortCompany
	req.SortDirection = filter.SortAsc

	page, err := s.FetchPage(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.Items[0].ID != "p2" {
		t.Errorf("company sort: first item %s, want p2 (Artisan)", page.Items[0].ID)
	}
}

func TestFetchPage_InvalidRequests(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		name   string
		mutate func(r *query.Request)
	}{
		{"empty user", func(r *query.Request) { r.Filters.UserID = "" }},
		{"zero page", func(r *query.Request) { r.Page = 0 }},
		{"bad page size", func(r *query.Request) { r.PageSize = 33 }},
		{"bad sort field", func(r *query.Request) { r.SortField = "salary" }},
		{"bad status", func(r *query.Request) { r.Filters.Statuses = []project.Status{"in-basket"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := defaultRequest("user1")
			tt.mutate(&req)
			_, err := s.FetchPage(context.Background(), req)
			if !errors.Is(err, query.ErrInvalidFilter) {
				t.Errorf("FetchPage() error = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestUpdateStatus_SetsFinishYearOnCompletion(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Sunset", Status: project.StatusProgress})

	if err := s.UpdateStatus(context.Background(), "p1", project.StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus() failed: %v", err)
	}

	got, err := s.GetProject(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != project.StatusCompleted {
		t.Errorf("status = %v, want completed", got.Status)
	}
	if got.YearFinished != time.Now().Year() {
		t.Errorf("YearFinished = %d, want current year", got.YearFinished)
	}
}

func TestUpdateStatus_UnknownProject(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateStatus(context.Background(), "nope", project.StatusCompleted)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProject(t *testing.T) {
	s := openTestStore(t)
	seedProject(t, s, project.Project{ID: "p1", Title: "Sunset", Status: project.StatusProgress})

	if err := s.DeleteProject(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteProject() failed: %v", err)
	}
	if _, err := s.GetProject(context.Background(), "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProject() after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteProject(context.Background(), "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteProject() = %v, want ErrNotFound", err)
	}
}

func TestNavigationContextRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, found, err := s.LoadNavigationContext(ctx, "user1"); err != nil || found {
		t.Fatalf("LoadNavigationContext() on empty store = found %v, err %v", found, err)
	}

	snap := filter.Default(false)
	snap.SelectedCompany = "acme"
	snap.SelectedTags = []string{"floral"}
	snap.CurrentPage = 3
	if err := s.SaveNavigationContext(ctx, "user1", snap); err != nil {
		t.Fatalf("SaveNavigationContext() failed: %v", err)
	}

	// Second save upserts.
	snap.SelectedCompany = "artisan"
	if err := s.SaveNavigationContext(ctx, "user1", snap); err != nil {
		t.Fatalf("second SaveNavigationContext() failed: %v", err)
	}

	got, found, err := s.LoadNavigationContext(ctx, "user1")
	if err != nil || !found {
		t.Fatalf("LoadNavigationContext() = found %v, err %v", found, err)
	}
	if got.SelectedCompany != "artisan" || got.CurrentPage != 3 {
		t.Errorf("loaded snapshot = %+v, want latest save", got)
	}
}

func TestLoadMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertCompany(ctx, project.Company{ID: "c1", Name: "Artisan"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertArtist(ctx, project.Artist{ID: "a1", Name: "Bergsma"}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertTag(ctx, project.Tag{ID: "t1", Name: "floral", Color: "#3fb950"}); err != nil {
		t.Fatal(err)
	}

	d, err := s.LoadMetadata(ctx)
	if err != nil {
		t.Fatalf("LoadMetadata() failed: %v", err)
	}
	if len(d.Companies) != 1 || d.Companies[0].Name != "Artisan" {
		t.Errorf("companies = %+v", d.Companies)
	}
	if len(d.Artists) != 1 || d.Artists[0].Name != "Bergsma" {
		t.Errorf("artists = %+v", d.Artists)
	}
	if len(d.Tags) != 1 || d.Tags[0].Color != "#3fb950" {
		t.Errorf("tags = %+v", d.Tags)
	}
}
