package table

import (
	"fmt"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/problem"
)

// ColumnView is the render state of one column header.
type ColumnView struct {
	ID        string
	Header    string
	CanSort   bool
	CanFilter bool
	// Sorted is "", "asc" or "desc"
	Sorted crud.Direction
	// SortIndex is the position in a multi-column sort, -1 when unsorted
	SortIndex int
	// FilterInput is the staged filter value, which may be ahead of the
	// committed one while a debounce is pending
	FilterInput string
	Loading     bool
}

// Snapshot is a consistent view of the table at one point in time.
type Snapshot[T any] struct {
	Version uint64
	State   State
	// Search is the staged search input
	Search   string
	Columns  []ColumnView
	Entities []T
	// Page is nil until a page has loaded
	Page            *crud.PageDetails
	Loading         LoadingState
	Error           *problem.ErrorDescription
	PageCount       int
	CanNextPage     bool
	CanPreviousPage bool
}

func (e *Engine[T, ID]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{
		Version:         e.version,
		State:           e.state.clone(),
		Search:          e.search,
		Loading:         e.loading,
		PageCount:       e.pageCountLocked(),
		CanNextPage:     e.canNextLocked(),
		CanPreviousPage: e.state.Pagination.Index > 0,
	}
	if e.shown != nil {
		snap.Entities = append([]T(nil), e.shown.Content...)
		details := e.shown.Page
		snap.Page = &details
	}
	if e.err != nil {
		desc := *e.err
		snap.Error = &desc
	}

	snap.Columns = make([]ColumnView, 0, len(e.columns))
	for _, col := range e.columns {
		view := ColumnView{
			ID:          col.ID,
			Header:      col.Header,
			CanSort:     col.Sortable,
			CanFilter:   col.Filterable,
			SortIndex:   e.state.sortIndex(col.ID),
			FilterInput: e.filterInput[col.ID],
			Loading:     e.loading.IsSorting(col.ID),
		}
		if view.SortIndex >= 0 {
			view.Sorted = crud.Asc
			if e.state.Sorting[view.SortIndex].Desc {
				view.Sorted = crud.Desc
			}
		}
		snap.Columns = append(snap.Columns, view)
	}
	return snap
}

// Footer is the pagination footer of a table.
type Footer struct {
	// Page reads "Página N de M"; empty until a page has loaded
	Page string
	// Total reads "Total de registros: X"; empty until a page has loaded
	Total           string
	PageSize        int
	PageSizeOptions []int
	CanNextPage     bool
	CanPreviousPage bool
}

// Footer renders the pagination footer.
func (s Snapshot[T]) Footer() Footer {
	f := Footer{
		PageSize:        s.State.Pagination.Size,
		PageSizeOptions: append([]int(nil), PageSizeOptions...),
		CanNextPage:     s.CanNextPage,
		CanPreviousPage: s.CanPreviousPage,
	}
	if s.Page != nil {
		f.Page = fmt.Sprintf("Página %d de %d", s.Page.Number+1, s.Page.TotalPages)
		f.Total = fmt.Sprintf("Total de registros: %d", s.Page.TotalElements)
	}
	return f
}

// Cells renders row through the given columns. Columns without a Cell func
// render empty.
func Cells[T any](columns []Column[T], row T) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if col.Cell != nil {
			out[i] = col.Cell(row)
		}
	}
	return out
}
