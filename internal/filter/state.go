// Package filter holds the dashboard's filter, sort, pagination and
// view selections and the reducer that applies validated transitions
// to them.
//
// All mutation goes through Reduce: a pure function over a closed set
// of actions. Components never write State fields directly; they
// dispatch exactly one action per user-facing control.
package filter

import (
	"sort"

	"github.com/dlowans/facet/internal/project"
)

// StatusFilter selects which status tab the dashboard shows. It is a
// superset of project.Status with two composite members.
type StatusFilter string

const (
	// StatusEverything shows all projects regardless of status.
	StatusEverything StatusFilter = "everything"
	// StatusActive shows the active collection: purchased, stash,
	// progress and (subject to the on-hold flag) onhold.
	StatusActive StatusFilter = "active"
	// StatusWishlist through StatusDestashed mirror project statuses.
	StatusWishlist  StatusFilter = "wishlist"
	StatusPurchased StatusFilter = "purchased"
	StatusStash     StatusFilter = "stash"
	StatusProgress  StatusFilter = "progress"
	StatusOnHold    StatusFilter = "onhold"
	StatusCompleted StatusFilter = "completed"
	StatusArchived  StatusFilter = "archived"
	StatusDestashed StatusFilter = "destashed"
)

// StatusFilters lists every valid status filter value.
var StatusFilters = []StatusFilter{
	StatusEverything,
	StatusActive,
	StatusWishlist,
	StatusPurchased,
	StatusStash,
	StatusProgress,
	StatusOnHold,
	StatusCompleted,
	StatusArchived,
	StatusDestashed,
}

// Valid reports whether f is a member of the status filter enum.
func (f StatusFilter) Valid() bool {
	for _, v := range StatusFilters {
		if f == v {
			return true
		}
	}
	return false
}

// ActiveStatuses returns the project statuses that the composite
// "active" tab expands to. The on-hold member is dropped when
// includeOnHold is false.
func ActiveStatuses(includeOnHold bool) []project.Status {
	statuses := []project.Status{
		project.StatusPurchased,
		project.StatusStash,
		project.StatusProgress,
	}
	if includeOnHold {
		statuses = append(statuses, project.StatusOnHold)
	}
	return statuses
}

// SortField identifies the column the list is ordered by.
type SortField string

const (
	SortLastUpdated  SortField = "last_updated"
	SortDateAdded    SortField = "date_added"
	SortTitle        SortField = "title"
	SortCompany      SortField = "company"
	SortArtist       SortField = "artist"
	SortYearFinished SortField = "year_finished"
	SortStatus       SortField = "status"
)

// SortFields lists every valid sort field.
var SortFields = []SortField{
	SortLastUpdated,
	SortDateAdded,
	SortTitle,
	SortCompany,
	SortArtist,
	SortYearFinished,
	SortStatus,
}

// Valid reports whether f is a member of the sort field enum.
func (f SortField) Valid() bool {
	for _, v := range SortFields {
		if f == v {
			return true
		}
	}
	return false
}

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is a member of the sort direction enum.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// ViewType selects how the list renders. It never affects queries.
type ViewType string

const (
	ViewGrid ViewType = "grid"
	ViewList ViewType = "list"
)

// Valid reports whether v is a member of the view type enum.
func (v ViewType) Valid() bool {
	return v == ViewGrid || v == ViewList
}

// AllOption is the sentinel meaning "no constraint" for the company,
// artist, drill shape and year selectors.
const AllOption = "all"

// PageSizes lists the allowed page sizes.
var PageSizes = []int{10, 25, 50, 100}

// ValidPageSize reports whether n is an allowed page size.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if n == s {
			return true
		}
	}
	return false
}

// State holds the complete filter/sort/pagination/view selection for
// one session. Values are only ever changed through Reduce.
type State struct {
	ActiveStatus StatusFilter `json:"active_status"`

	SelectedCompany      string `json:"selected_company"`
	SelectedArtist       string `json:"selected_artist"`
	SelectedDrillShape   string `json:"selected_drill_shape"`
	SelectedYearFinished string `json:"selected_year_finished"`

	IncludeMiniKits  bool `json:"include_mini_kits"`
	IncludeDestashed bool `json:"include_destashed"`
	IncludeArchived  bool `json:"include_archived"`
	IncludeWishlist  bool `json:"include_wishlist"`
	IncludeOnHold    bool `json:"include_on_hold"`

	// SearchTerm tracks the raw input. It is propagated to queries
	// only after the search debounce settles.
	SearchTerm string `json:"search_term"`

	// SelectedTags is kept sorted and duplicate-free so that tag sets
	// compare independent of toggle order.
	SelectedTags []string `json:"selected_tags"`

	SortField     SortField     `json:"sort_field"`
	SortDirection SortDirection `json:"sort_direction"`

	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`

	ViewType ViewType `json:"view_type"`
}

// Default returns the initial state for a fresh session. The small
// screen signal is sampled once, at initialization, to pick the
// default view type; it plays no further role.
func Default(smallScreen bool) State {
	view := ViewGrid
	if smallScreen {
		view = ViewList
	}
	return State{
		ActiveStatus:         StatusActive,
		SelectedCompany:      AllOption,
		SelectedArtist:       AllOption,
		SelectedDrillShape:   AllOption,
		SelectedYearFinished: AllOption,
		IncludeMiniKits:      true,
		IncludeDestashed:     false,
		IncludeArchived:      false,
		IncludeWishlist:      false,
		IncludeOnHold:        true,
		SearchTerm:           "",
		SelectedTags:         []string{},
		SortField:            SortLastUpdated,
		SortDirection:        SortDesc,
		CurrentPage:          1,
		PageSize:             25,
		ViewType:             view,
	}
}

// Sanitize coerces every field of s to a valid value, field by field.
// Invalid or missing enum members fall back to the defaults for the
// given screen size. Sanitize is idempotent and never fails; it is
// applied on construction and whenever a persisted snapshot is loaded,
// since stored data may predate the current schema.
func Sanitize(s State, smallScreen bool) State {
	def := Default(smallScreen)

	if !s.ActiveStatus.Valid() {
		s.ActiveStatus = def.ActiveStatus
	}
	if s.SelectedCompany == "" {
		s.SelectedCompany = AllOption
	}
	if s.SelectedArtist == "" {
		s.SelectedArtist = AllOption
	}
	if s.SelectedDrillShape == "" {
		s.SelectedDrillShape = AllOption
	}
	if s.SelectedYearFinished == "" {
		s.SelectedYearFinished = AllOption
	}
	s.SelectedTags = normalizeTags(s.SelectedTags)
	if !s.SortField.Valid() {
		s.SortField = def.SortField
	}
	if !s.SortDirection.Valid() {
		s.SortDirection = def.SortDirection
	}
	if s.CurrentPage < 1 {
		s.CurrentPage = 1
	}
	if !ValidPageSize(s.PageSize) {
		s.PageSize = def.PageSize
	}
	if !s.ViewType.Valid() {
		s.ViewType = def.ViewType
	}
	return s
}

// Clone returns a copy of s with an independent tag slice.
func (s State) Clone() State {
	out := s
	out.SelectedTags = append([]string(nil), s.SelectedTags...)
	return out
}

// normalizeTags returns ids sorted with duplicates and empties removed.
func normalizeTags(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
