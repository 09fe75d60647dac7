package filter

import "sort"

// Reduce applies one action to s and returns the resulting state. It
// is pure: the input state is never modified, invalid payloads are
// coerced rather than rejected, and it never fails.
//
// Any action that narrows or widens the result set resets the current
// page to 1; changing what you're looking at must not leave you
// stranded on a page that no longer exists. Page, sort and view-type
// actions keep the current page (except set-page-size, which also
// resets to page 1 because the page count changes under it).
func Reduce(s State, a Action) State {
	out := s.Clone()

	switch a.Kind {
	case KindSetStatus:
		if a.Status.Valid() {
			out.ActiveStatus = a.Status
		}

	case KindSetCompany:
		out.SelectedCompany = orAll(a.Value)

	case KindSetArtist:
		out.SelectedArtist = orAll(a.Value)

	case KindSetDrillShape:
		out.SelectedDrillShape = orAll(a.Value)

	case KindSetYearFinished:
		out.SelectedYearFinished = orAll(a.Value)

	case KindSetIncludeFlag:
		switch a.Flag {
		case FlagMiniKits:
			out.IncludeMiniKits = a.FlagValue
		case FlagDestashed:
			out.IncludeDestashed = a.FlagValue
		case FlagArchived:
			out.IncludeArchived = a.FlagValue
		case FlagWishlist:
			out.IncludeWishlist = a.FlagValue
		case FlagOnHold:
			out.IncludeOnHold = a.FlagValue
		default:
			return s
		}

	case KindSetSearchTerm:
		out.SearchTerm = a.Value

	case KindSetTags:
		out.SelectedTags = normalizeTags(a.Tags)

	case KindToggleTag:
		if a.Value == "" {
			return s
		}
		out.SelectedTags = toggleTag(out.SelectedTags, a.Value)

	case KindClearTags:
		out.SelectedTags = []string{}

	case KindSetSort:
		if a.Sort.Valid() {
			out.SortField = a.Sort
		}
		if a.Direction.Valid() {
			out.SortDirection = a.Direction
		}

	case KindSetPage:
		if a.Page >= 1 {
			out.CurrentPage = a.Page
		}

	case KindSetPageSize:
		if ValidPageSize(a.PageSize) {
			out.PageSize = a.PageSize
		}

	case KindSetViewType:
		if a.View.Valid() {
			out.ViewType = a.View
		}

	case KindResetAll:
		// Reset preserves the view type: it is a presentation choice,
		// not a filter.
		view := out.ViewType
		out = Default(view == ViewList)
		out.ViewType = view

	case KindSetInitialState:
		out = Sanitize(a.State, s.ViewType == ViewList)

	case KindBatchUpdate:
		out = applyPartial(out, a.Partial)
		out = Sanitize(out, s.ViewType == ViewList)

	default:
		return s
	}

	if resetsPage(a.Kind) {
		out.CurrentPage = 1
	}
	return out
}

// resetsPage reports whether the action kind changes the filter
// predicate and therefore must send the user back to page 1.
func resetsPage(k Kind) bool {
	switch k {
	case KindSetStatus,
		KindSetCompany,
		KindSetArtist,
		KindSetDrillShape,
		KindSetYearFinished,
		KindSetIncludeFlag,
		KindSetSearchTerm,
		KindSetTags,
		KindToggleTag,
		KindClearTags,
		KindSetPageSize,
		KindResetAll,
		KindBatchUpdate:
		return true
	default:
		// Page, sort, view-type and set-initial-state keep their page:
		// sort reorders the same result set, and an initial snapshot
		// restores the page the user left.
		return false
	}
}

// orAll maps an empty selector value to the "all" sentinel.
func orAll(v string) string {
	if v == "" {
		return AllOption
	}
	return v
}

// toggleTag adds id if absent, removes it if present, keeping the
// slice sorted. Applying it twice with the same id is a no-op.
func toggleTag(tags []string, id string) []string {
	out := make([]string, 0, len(tags)+1)
	found := false
	for _, t := range tags {
		if t == id {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		out = append(out, id)
		sort.Strings(out)
	}
	return out
}

// applyPartial overlays the non-nil fields of p onto s. The current
// page is not settable through a batch; resetsPage forces page 1.
func applyPartial(s State, p Partial) State {
	if p.ActiveStatus != nil {
		s.ActiveStatus = *p.ActiveStatus
	}
	if p.SelectedCompany != nil {
		s.SelectedCompany = *p.SelectedCompany
	}
	if p.SelectedArtist != nil {
		s.SelectedArtist = *p.SelectedArtist
	}
	if p.SelectedDrillShape != nil {
		s.SelectedDrillShape = *p.SelectedDrillShape
	}
	if p.SelectedYearFinished != nil {
		s.SelectedYearFinished = *p.SelectedYearFinished
	}
	if p.IncludeMiniKits != nil {
		s.IncludeMiniKits = *p.IncludeMiniKits
	}
	if p.IncludeDestashed != nil {
		s.IncludeDestashed = *p.IncludeDestashed
	}
	if p.IncludeArchived != nil {
		s.IncludeArchived = *p.IncludeArchived
	}
	if p.IncludeWishlist != nil {
		s.IncludeWishlist = *p.IncludeWishlist
	}
	if p.IncludeOnHold != nil {
		s.IncludeOnHold = *p.IncludeOnHold
	}
	if p.SearchTerm != nil {
		s.SearchTerm = *p.SearchTerm
	}
	if p.SelectedTags != nil {
		s.SelectedTags = normalizeTags(p.SelectedTags)
	}
	if p.SortField != nil {
		s.SortField = *p.SortField
	}
	if p.SortDirection != nil {
		s.SortDirection = *p.SortDirection
	}
	if p.ViewType != nil {
		s.ViewType = *p.ViewType
	}
	if p.PageSize != nil {
		s.PageSize = *p.PageSize
	}
	return s
}
