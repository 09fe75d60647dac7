package filter

// Kind enumerates the closed set of reducer actions. Adding a member
// here requires a case in Reduce and, if the action narrows the result
// set, an entry in resetsPage.
type Kind int

const (
	KindSetStatus Kind = iota
	KindSetCompany
	KindSetArtist
	KindSetDrillShape
	KindSetYearFinished
	KindSetIncludeFlag
	KindSetSearchTerm
	KindSetTags
	KindToggleTag
	KindClearTags
	KindSetSort
	KindSetPage
	KindSetPageSize
	KindSetViewType
	KindResetAll
	KindSetInitialState
	KindBatchUpdate
)

// IncludeFlag names one of the boolean include toggles.
type IncludeFlag string

const (
	FlagMiniKits  IncludeFlag = "mini_kits"
	FlagDestashed IncludeFlag = "destashed"
	FlagArchived  IncludeFlag = "archived"
	FlagWishlist  IncludeFlag = "wishlist"
	FlagOnHold    IncludeFlag = "onhold"
)

// Source records where an action originated. It is diagnostic
// metadata carried through unchanged; Reduce never branches on it.
type Source string

const (
	SourceUser           Source = "user"
	SourceSystem         Source = "system"
	SourceRealTime       Source = "real-time"
	SourceInitialization Source = "initialization"
	SourceBatch          Source = "batch"
)

// Partial is a sparse State used by batch updates. Nil fields are
// left untouched.
type Partial struct {
	ActiveStatus         *StatusFilter
	SelectedCompany      *string
	SelectedArtist       *string
	SelectedDrillShape   *string
	SelectedYearFinished *string
	IncludeMiniKits      *bool
	IncludeDestashed     *bool
	IncludeArchived      *bool
	IncludeWishlist      *bool
	IncludeOnHold        *bool
	SearchTerm           *string
	SelectedTags         []string
	SortField            *SortField
	SortDirection        *SortDirection
	ViewType             *ViewType
	PageSize             *int
}

// Action is one discrete transition request. Only the fields relevant
// to Kind are read; the rest are ignored.
type Action struct {
	Kind Kind

	Status    StatusFilter
	Value     string // company/artist/drill-shape/year/search/tag id
	Flag      IncludeFlag
	FlagValue bool
	Tags      []string
	Sort      SortField
	Direction SortDirection
	Page      int
	PageSize  int
	View      ViewType
	State     State   // set-initial-state payload
	Partial   Partial // batch-update payload

	// Source is pass-through diagnostics; see Source.
	Source Source
}

// Constructors for each action kind. Every user-facing control maps to
// exactly one of these.

func SetStatus(s StatusFilter) Action      { return Action{Kind: KindSetStatus, Status: s} }
func SetCompany(id string) Action          { return Action{Kind: KindSetCompany, Value: id} }
func SetArtist(id string) Action           { return Action{Kind: KindSetArtist, Value: id} }
func SetDrillShape(shape string) Action    { return Action{Kind: KindSetDrillShape, Value: shape} }
func SetYearFinished(year string) Action   { return Action{Kind: KindSetYearFinished, Value: year} }
func SetSearchTerm(term string) Action     { return Action{Kind: KindSetSearchTerm, Value: term} }
func SetTags(ids []string) Action          { return Action{Kind: KindSetTags, Tags: ids} }
func ToggleTag(id string) Action           { return Action{Kind: KindToggleTag, Value: id} }
func ClearTags() Action                    { return Action{Kind: KindClearTags} }
func SetPage(page int) Action              { return Action{Kind: KindSetPage, Page: page} }
func SetPageSize(size int) Action          { return Action{Kind: KindSetPageSize, PageSize: size} }
func SetViewType(v ViewType) Action        { return Action{Kind: KindSetViewType, View: v} }
func ResetAll() Action                     { return Action{Kind: KindResetAll} }
func SetInitialState(s State) Action       { return Action{Kind: KindSetInitialState, State: s} }
func BatchUpdate(p Partial) Action         { return Action{Kind: KindBatchUpdate, Partial: p} }

func SetIncludeFlag(flag IncludeFlag, value bool) Action {
	return Action{Kind: KindSetIncludeFlag, Flag: flag, FlagValue: value}
}

func SetSort(field SortField, dir SortDirection) Action {
	return Action{Kind: KindSetSort, Sort: field, Direction: dir}
}

// WithSource returns a copy of a tagged with the given source.
func (a Action) WithSource(src Source) Action {
	a.Source = src
	return a
}
