// Package query turns the current filter selection into page fetches
// against the item-listing collaborator and manages the request
// lifecycle: loading state, stale-response discard, and bounded retry.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/project"
)

// GuestUserID is the placeholder identity used before authentication
// resolves. The coordinator never fetches for it.
const GuestUserID = "guest"

// ErrInvalidFilter marks failures attributable to malformed filter
// state. The coordinator surfaces these immediately, without retry;
// retrying a request the server already rejected only repeats the
// rejection.
var ErrInvalidFilter = errors.New("invalid filter state")

// ServerFilters is the server-side filter shape handed to the
// item-listing collaborator. Empty string fields mean "no constraint";
// a nil Statuses slice means all statuses.
type ServerFilters struct {
	UserID string

	// Statuses is the expanded status set for the selected tab, with
	// the include flags already applied.
	Statuses []project.Status

	Company      string
	Artist       string
	DrillShape   string
	YearFinished string

	// ExcludeMiniKits drops small-format kits from the result.
	ExcludeMiniKits bool

	// Tags narrows to projects carrying every listed tag.
	Tags []string

	// Search is the debounced free-text term.
	Search string
}

// Request is one page fetch against the collaborator.
type Request struct {
	Filters       ServerFilters
	SortField     filter.SortField
	SortDirection filter.SortDirection
	Page          int
	PageSize      int
}

// Page is the collaborator's answer to a Request.
type Page struct {
	Items      []project.Project
	TotalItems int
	TotalPages int

	// StatusCounts applies every predicate except the status filter,
	// so tab badges can show counts for the other statuses without
	// re-querying per tab.
	StatusCounts map[project.Status]int
}

// PageFetcher is the item-listing collaborator. Fetches must be
// idempotent: the coordinator retries transient failures.
type PageFetcher interface {
	FetchPage(ctx context.Context, req Request) (*Page, error)
}

// BuildFilters derives the server filter shape from the filter state
// and the debounced search term.
func BuildFilters(userID string, s filter.State, debouncedSearch string) ServerFilters {
	return ServerFilters{
		UserID:          userID,
		Statuses:        expandStatuses(s),
		Company:         selector(s.SelectedCompany),
		Artist:          selector(s.SelectedArtist),
		DrillShape:      selector(s.SelectedDrillShape),
		YearFinished:    selector(s.SelectedYearFinished),
		ExcludeMiniKits: !s.IncludeMiniKits,
		Tags:            append([]string(nil), s.SelectedTags...),
		Search:          debouncedSearch,
	}
}

// expandStatuses maps the status tab plus include flags to an explicit
// status list. The exclusion flags only narrow the composite tabs;
// picking a specific tab always shows that status.
func expandStatuses(s filter.State) []project.Status {
	switch s.ActiveStatus {
	case filter.StatusEverything:
		var out []project.Status
		for _, st := range project.Statuses {
			switch {
			case st == project.StatusDestashed && !s.IncludeDestashed:
			case st == project.StatusArchived && !s.IncludeArchived:
			case st == project.StatusWishlist && !s.IncludeWishlist:
			case st == project.StatusOnHold && !s.IncludeOnHold:
			default:
				out = append(out, st)
			}
		}
		return out
	case filter.StatusActive:
		return filter.ActiveStatuses(s.IncludeOnHold)
	default:
		return []project.Status{project.Status(s.ActiveStatus)}
	}
}

// selector maps the "all" sentinel to an unconstrained filter.
func selector(v string) string {
	if v == filter.AllOption {
		return ""
	}
	return v
}

// Signature builds the effective query signature: the set of inputs
// whose change requires a new fetch. Fields outside it (the raw
// un-debounced search term, the view type) deliberately do not appear.
// The tag set is already sorted in State, so the signature is
// independent of toggle order. Free-form fields are length-prefixed so
// a term containing the field separator cannot collide with a
// different state.
func Signature(userID string, s filter.State, debouncedSearch string) string {
	tags := make([]string, len(s.SelectedTags))
	for i, tag := range s.SelectedTags {
		tags[i] = lenPrefix(tag)
	}
	return strings.Join([]string{
		userID,
		string(s.ActiveStatus),
		s.SelectedCompany,
		s.SelectedArtist,
		s.SelectedDrillShape,
		s.SelectedYearFinished,
		flag(s.IncludeMiniKits),
		flag(s.IncludeDestashed),
		flag(s.IncludeArchived),
		flag(s.IncludeWishlist),
		flag(s.IncludeOnHold),
		lenPrefix(debouncedSearch),
		strings.Join(tags, ","),
		string(s.SortField),
		string(s.SortDirection),
		fmt.Sprintf("%d", s.CurrentPage),
		fmt.Sprintf("%d", s.PageSize),
	}, "|")
}

func lenPrefix(s string) string {
	return fmt.Sprintf("%d:%s", len(s), s)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
