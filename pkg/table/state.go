// Package table drives a paginated remote table: it owns pagination, sorting,
// filtering and search state, derives page queries from it, and tracks which
// interaction triggered the fetch in flight.
package table

import (
	"time"

	"github.com/peluware/freddy/pkg/crud"
)

// Defaults
const (
	DefaultPageSize       = 10
	DefaultSearchDebounce = 500 * time.Millisecond
	DefaultStaleTime      = time.Minute
)

// PageSizeOptions are the page sizes offered to users.
var PageSizeOptions = []int{5, 10, 25, 50, 100}

// LoadingTarget is the coarse interaction a fetch was triggered by.
type LoadingTarget int

// Loading targets
const (
	LoadingIdle LoadingTarget = iota
	LoadingData
	LoadingNextPage
	LoadingBackPage
	LoadingSearch
	LoadingPageSize
	// LoadingSorting marks a sort change on LoadingState.ColumnID
	LoadingSorting
)

// String returns the target name.
func (t LoadingTarget) String() string {
	switch t {
	case LoadingIdle:
		return "idle"
	case LoadingData:
		return "data"
	case LoadingNextPage:
		return "next-page"
	case LoadingBackPage:
		return "back-page"
	case LoadingSearch:
		return "search"
	case LoadingPageSize:
		return "page-size"
	case LoadingSorting:
		return "sorting"
	default:
		return "unknown"
	}
}

// LoadingState tells why the table is fetching. The zero value is idle.
type LoadingState struct {
	Target   LoadingTarget
	ColumnID string
}

// Loading returns a coarse loading state.
func Loading(target LoadingTarget) LoadingState {
	return LoadingState{Target: target}
}

// SortingColumn returns the loading state of a sort change on columnID.
func SortingColumn(columnID string) LoadingState {
	return LoadingState{Target: LoadingSorting, ColumnID: columnID}
}

// IsIdle reports whether no fetch is pending.
func (l LoadingState) IsIdle() bool {
	return l.Target == LoadingIdle
}

// IsSorting reports whether a sort change on columnID is pending.
func (l LoadingState) IsSorting(columnID string) bool {
	return l.Target == LoadingSorting && l.ColumnID == columnID
}

func (l LoadingState) String() string {
	if l.Target == LoadingSorting {
		return "sorting:" + l.ColumnID
	}
	return l.Target.String()
}

// Column describes one table column. Sorting and filtering are opt-in.
type Column[T any] struct {
	ID         string
	Header     string
	Sortable   bool
	Filterable bool
	// FilterDebounce delays filter commits; zero applies them immediately
	FilterDebounce time.Duration
	// Cell renders the column value for a row
	Cell func(row T) string
}

// SortingEntry sorts by one column.
type SortingEntry struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// Pagination is the zero-based page index and the page size.
type Pagination struct {
	Index int `json:"pageIndex"`
	Size  int `json:"pageSize"`
}

// ColumnFilter is the committed filter value of one column.
type ColumnFilter struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// State is the committed table state. Together with the cache key it
// identifies one remote query.
type State struct {
	Pagination    Pagination     `json:"pagination"`
	Sorting       []SortingEntry `json:"sorting"`
	ColumnFilters []ColumnFilter `json:"columnFilters"`
	GlobalFilter  string         `json:"globalFilter"`
}

// clone deep-copies s. Empty slices become nil so equal states compare and
// encode identically.
func (s State) clone() State {
	out := s
	out.Sorting = nil
	out.ColumnFilters = nil
	if len(s.Sorting) > 0 {
		out.Sorting = append([]SortingEntry(nil), s.Sorting...)
	}
	if len(s.ColumnFilters) > 0 {
		out.ColumnFilters = append([]ColumnFilter(nil), s.ColumnFilters...)
	}
	return out
}

func (s State) sortIndex(columnID string) int {
	for i, entry := range s.Sorting {
		if entry.ID == columnID {
			return i
		}
	}
	return -1
}

func (s State) filterValue(columnID string) (string, bool) {
	for _, f := range s.ColumnFilters {
		if f.ID == columnID {
			return f.Value, true
		}
	}
	return "", false
}

func (s *State) setFilter(columnID, value string) {
	filters := make([]ColumnFilter, 0, len(s.ColumnFilters)+1)
	replaced := false
	for _, f := range s.ColumnFilters {
		if f.ID != columnID {
			filters = append(filters, f)
			continue
		}
		if value != "" {
			filters = append(filters, ColumnFilter{ID: columnID, Value: value})
		}
		replaced = true
	}
	if !replaced && value != "" {
		filters = append(filters, ColumnFilter{ID: columnID, Value: value})
	}
	s.ColumnFilters = filters
}

// ToPageQuery derives the remote page query from a table state. toQuery
// encodes column filters into the query parameter; when nil the filters are
// not sent.
func ToPageQuery(s State, toQuery func([]ColumnFilter) string) crud.PageQuery {
	q := crud.PageQuery{
		PageQueryBase: crud.PageQueryBase{Search: s.GlobalFilter},
		Page:          crud.Int(s.Pagination.Index),
		Size:          crud.Int(s.Pagination.Size),
	}
	for _, entry := range s.Sorting {
		dir := crud.Asc
		if entry.Desc {
			dir = crud.Desc
		}
		q.Sorts = append(q.Sorts, crud.Sort{Property: entry.ID, Direction: dir})
	}
	if toQuery != nil {
		q.Query = toQuery(append([]ColumnFilter(nil), s.ColumnFilters...))
	}
	return q
}
