package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/result"
	"github.com/peluware/freddy/pkg/testutil"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (i item) GetID() int { return i.ID }

type fakePager struct {
	mu      sync.Mutex
	total   int
	queries []crud.PageQuery
	gate    chan struct{}
	next    chan struct{}
	fail    *problem.ErrorDescription
	renamed map[int]string
}

func (p *fakePager) Page(ctx context.Context, q crud.PageQuery) crud.ReadResult[crud.Page[item]] {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	gate, fail, total := p.gate, p.fail, p.total
	if gate == nil {
		gate, p.next = p.next, nil
	}
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return result.Fail[crud.Page[item]](problem.ErrorDescription{Title: "Error", Description: ctx.Err().Error()})
		}
	}
	if fail != nil {
		return result.Fail[crud.Page[item]](*fail)
	}

	size, number := *q.Size, *q.Page
	var content []item
	for id := number*size + 1; id <= (number+1)*size && id <= total; id++ {
		content = append(content, item{ID: id, Name: p.name(id)})
	}
	return result.Succeed[crud.Page[item], problem.ErrorDescription](crud.Page[item]{
		Content: content,
		Page: crud.PageDetails{
			Size:          size,
			Number:        number,
			TotalElements: int64(total),
			TotalPages:    (total + size - 1) / size,
		},
	})
}

func (p *fakePager) name(id int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name, ok := p.renamed[id]; ok {
		return name
	}
	return fmt.Sprintf("item-%d", id)
}

func (p *fakePager) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

func (p *fakePager) last() crud.PageQuery {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries[len(p.queries)-1]
}

func (p *fakePager) block() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gate = make(chan struct{})
	return p.gate
}

// blockNext holds only the next call until the returned channel is closed.
func (p *fakePager) blockNext() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = make(chan struct{})
	return p.next
}

func (p *fakePager) setTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

func (p *fakePager) failWith(desc problem.ErrorDescription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = &desc
}

func (p *fakePager) rename(id int, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.renamed == nil {
		p.renamed = make(map[int]string)
	}
	p.renamed[id] = name
}

var testColumns = []Column[item]{
	{ID: "id", Header: "ID", Sortable: true, Cell: func(i item) string { return fmt.Sprint(i.ID) }},
	{ID: "name", Header: "Nombre", Filterable: true, Cell: func(i item) string { return i.Name }},
}

func newTestEngine(t *testing.T, pager *fakePager, mutate func(*Options[item, int])) *Engine[item, int] {
	t.Helper()
	opts := Options[item, int]{
		CacheKey:       "items",
		Page:           pager,
		Columns:        testColumns,
		SearchDebounce: 20 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func started(t *testing.T, e *Engine[item, int]) Snapshot[item] {
	t.Helper()
	e.Start()
	e.Wait()
	return e.Snapshot()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options[item, int]{Page: &fakePager{}}); err == nil {
		t.Error("expected error for missing cache key")
	}
	if _, err := New(Options[item, int]{CacheKey: "items"}); err == nil {
		t.Error("expected error for missing page operation")
	}
	_, err := New(Options[item, int]{
		CacheKey: "items",
		Page:     &fakePager{},
		Columns:  []Column[item]{{ID: "a"}, {ID: "a"}},
	})
	if err == nil {
		t.Error("expected error for duplicate column")
	}
}

func TestEngine_StartLoadsInitialPage(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)

	before := e.Snapshot()
	if !before.Loading.IsIdle() || before.PageCount != -1 || !before.CanNextPage {
		t.Errorf("unexpected snapshot before start: %+v", before)
	}

	snap := started(t, e)
	if pager.calls() != 1 {
		t.Fatalf("expected one page request, got %d", pager.calls())
	}
	q := pager.last()
	if *q.Page != 0 || *q.Size != DefaultPageSize || q.Search != "" || len(q.Sorts) != 0 {
		t.Errorf("unexpected initial query %+v", q)
	}
	if len(snap.Entities) != 10 || snap.Entities[0].ID != 1 {
		t.Errorf("unexpected entities %+v", snap.Entities)
	}
	if !snap.Loading.IsIdle() {
		t.Errorf("expected idle after settle, got %s", snap.Loading)
	}
	if snap.PageCount != 5 || snap.CanPreviousPage {
		t.Errorf("unexpected pagination %+v", snap)
	}
}

func TestEngine_FooterOnSecondPage(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 1, Size: 10}}
	})

	footer := started(t, e).Footer()
	if footer.Page != "Página 2 de 5" {
		t.Errorf("unexpected page label %q", footer.Page)
	}
	if footer.Total != "Total de registros: 42" {
		t.Errorf("unexpected total label %q", footer.Total)
	}
	if !footer.CanNextPage || !footer.CanPreviousPage {
		t.Errorf("expected both directions enabled: %+v", footer)
	}
	if footer.PageSize != 10 || len(footer.PageSizeOptions) != 5 {
		t.Errorf("unexpected page size options %+v", footer)
	}
}

func TestEngine_SearchDebounceCommitsOnce(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 2, Size: 10}}
	})
	started(t, e)

	e.OnSearchChange("a")
	e.OnSearchChange("ab")
	e.OnSearchChange("abc")

	staged := e.Snapshot()
	if staged.Search != "abc" || staged.State.GlobalFilter != "" {
		t.Errorf("search must stay staged until input settles: %+v", staged.State)
	}

	waitFor(t, "search commit", func() bool { return e.State().GlobalFilter == "abc" })
	e.Wait()

	if pager.calls() != 2 {
		t.Fatalf("expected one fetch after debounce, got %d", pager.calls()-1)
	}
	q := pager.last()
	if q.Search != "abc" || *q.Page != 0 {
		t.Errorf("expected search on page 0, got search=%q page=%d", q.Search, *q.Page)
	}
}

func TestEngine_SearchSettleWithSameValueRevalidates(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 1, Size: 10}}
	})
	started(t, e)

	var mu sync.Mutex
	var loadings []LoadingState
	e.onChange = func(s Snapshot[item]) {
		mu.Lock()
		defer mu.Unlock()
		loadings = append(loadings, s.Loading)
	}

	e.OnSearchChange("")
	waitFor(t, "revalidation", func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, l := range loadings {
			if l.Target == LoadingSearch {
				return true
			}
		}
		return false
	})
	e.Wait()

	if got := e.State().Pagination.Index; got != 1 {
		t.Errorf("unchanged search must keep the page index, got %d", got)
	}
}

func TestEngine_SetGlobalFilterResetsIndex(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 3, Size: 10}}
	})
	started(t, e)

	gate := pager.block()
	if !e.SetGlobalFilter("x") {
		t.Fatal("expected state change")
	}
	if e.Snapshot().Loading.Target != LoadingSearch {
		t.Errorf("expected search loading")
	}
	close(gate)
	e.Wait()
	if q := pager.last(); q.Search != "x" || *q.Page != 0 {
		t.Errorf("unexpected query %+v", q)
	}
	if e.SetGlobalFilter("x") {
		t.Error("same filter must not change state")
	}
}

func TestEngine_PagingLoadingStates(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) { o.StaleTime = time.Nanosecond })
	started(t, e)

	gate := pager.block()
	if !e.NextPage() {
		t.Fatal("expected next page")
	}
	if got := e.Snapshot().Loading; got.Target != LoadingNextPage {
		t.Errorf("expected next-page loading, got %s", got)
	}
	close(gate)
	e.Wait()

	snap := e.Snapshot()
	if !snap.Loading.IsIdle() || snap.Entities[0].ID != 11 {
		t.Errorf("unexpected snapshot after next page: %+v", snap)
	}

	gate = pager.block()
	e.PreviousPage()
	if got := e.Snapshot().Loading; got.Target != LoadingBackPage {
		t.Errorf("expected back-page loading, got %s", got)
	}
	close(gate)
	e.Wait()

	if e.PreviousPage() {
		t.Error("previous page on first page must be a no-op")
	}
}

func TestEngine_NextPageStopsAtLastPage(t *testing.T) {
	pager := &fakePager{total: 15}
	e := newTestEngine(t, pager, nil)
	started(t, e)

	if !e.NextPage() {
		t.Fatal("expected move to second page")
	}
	e.Wait()
	if e.Snapshot().CanNextPage {
		t.Error("last page must not allow next")
	}
	calls := pager.calls()
	if e.NextPage() {
		t.Error("next page past the end must be a no-op")
	}
	if pager.calls() != calls {
		t.Error("no fetch expected")
	}
}

func TestEngine_KeepsPreviousDataWhileLoading(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	started(t, e)

	gate := pager.block()
	e.NextPage()
	if snap := e.Snapshot(); len(snap.Entities) != 10 || snap.Entities[0].ID != 1 {
		t.Errorf("previous page must stay visible while loading, got %+v", snap.Entities)
	}
	close(gate)
	e.Wait()
}

func TestEngine_SetPageSizeKeepsTopRow(t *testing.T) {
	pager := &fakePager{total: 200}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 3, Size: 10}}
	})
	started(t, e)

	gate := pager.block()
	if !e.SetPageSize(25) {
		t.Fatal("expected state change")
	}
	if got := e.Snapshot().Loading.Target; got != LoadingPageSize {
		t.Errorf("expected page-size loading, got %s", got)
	}
	close(gate)
	e.Wait()

	got := e.State().Pagination
	if got.Size != 25 || got.Index != 1 {
		t.Errorf("expected index 1 size 25, got %+v", got)
	}
	if e.SetPageSize(0) {
		t.Error("non-positive size must be rejected")
	}
}

func TestEngine_ResetAndFirstPage(t *testing.T) {
	pager := &fakePager{total: 100}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 2, Size: 10}}
	})
	started(t, e)

	e.FirstPage()
	e.Wait()
	if e.State().Pagination.Index != 0 {
		t.Error("expected first page")
	}
	e.ResetPageIndex()
	e.Wait()
	if e.State().Pagination.Index != 2 {
		t.Error("expected initial page index")
	}
	e.SetPageIndex(99)
	e.Wait()
	if e.State().Pagination.Index != 9 {
		t.Errorf("expected index clamped to last page, got %d", e.State().Pagination.Index)
	}
}

func TestEngine_Sorting(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	started(t, e)
	calls := pager.calls()

	if e.ToggleSorting("name", false) {
		t.Error("column without sorting must ignore toggles")
	}
	if e.ClearSorting("missing") {
		t.Error("unknown column must ignore clear")
	}
	if pager.calls() != calls {
		t.Error("no fetch expected for ignored sort")
	}

	gate := pager.block()
	e.ToggleSorting("id", false)
	if got := e.Snapshot().Loading; !got.IsSorting("id") {
		t.Errorf("expected sorting loading on id, got %s", got)
	}
	view := e.Snapshot().Columns[0]
	if !view.Loading || view.Sorted != crud.Asc {
		t.Errorf("unexpected column view %+v", view)
	}
	close(gate)
	e.Wait()
	if sorts := pager.last().Sorts; len(sorts) != 1 || sorts[0] != (crud.Sort{Property: "id", Direction: crud.Asc}) {
		t.Errorf("unexpected sorts %+v", sorts)
	}

	e.ToggleSorting("id", false)
	e.Wait()
	if sorts := pager.last().Sorts; sorts[0].Direction != crud.Desc {
		t.Errorf("expected descending, got %+v", sorts)
	}

	e.ToggleSorting("id", false)
	e.Wait()
	if len(e.State().Sorting) != 0 {
		t.Errorf("expected sort cleared, got %+v", e.State().Sorting)
	}

	e.ToggleSortingTo("id", true, false)
	e.Wait()
	if got := e.State().Sorting; len(got) != 1 || !got[0].Desc {
		t.Errorf("expected explicit descending sort, got %+v", got)
	}
	e.ClearSorting("id")
	e.Wait()
	if len(e.State().Sorting) != 0 {
		t.Error("expected no sorts after clear")
	}
}

func TestEngine_ColumnFilter(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.InitialState = State{Pagination: Pagination{Index: 2, Size: 10}}
		o.ToQuery = func(filters []ColumnFilter) string {
			parts := make([]string, 0, len(filters))
			for _, f := range filters {
				parts = append(parts, f.ID+"=="+f.Value)
			}
			return strings.Join(parts, ";")
		}
	})
	started(t, e)

	if e.SetColumnFilter("id", "3") {
		t.Error("column without filtering must ignore values")
	}
	if !e.SetColumnFilter("name", "foo") {
		t.Fatal("expected filter accepted")
	}
	e.Wait()
	q := pager.last()
	if q.Query != "name==foo" || *q.Page != 0 {
		t.Errorf("unexpected filtered query %+v", q)
	}

	e.SetColumnFilter("name", "")
	e.Wait()
	if q := pager.last(); q.Query != "" {
		t.Errorf("empty value must remove the filter, got %q", q.Query)
	}
}

func TestEngine_ColumnFilterDebounce(t *testing.T) {
	pager := &fakePager{total: 42}
	columns := []Column[item]{{ID: "name", Filterable: true, FilterDebounce: 20 * time.Millisecond}}
	e := newTestEngine(t, pager, func(o *Options[item, int]) { o.Columns = columns })
	started(t, e)

	e.SetColumnFilter("name", "f")
	e.SetColumnFilter("name", "fo")
	if view := e.Snapshot().Columns[0]; view.FilterInput != "fo" {
		t.Errorf("expected staged input, got %q", view.FilterInput)
	}
	if len(e.State().ColumnFilters) != 0 {
		t.Error("filter must not commit before debounce")
	}

	waitFor(t, "filter commit", func() bool { return len(e.State().ColumnFilters) == 1 })
	e.Wait()
	if pager.calls() != 2 {
		t.Errorf("expected a single filtered fetch, got %d", pager.calls()-1)
	}
	if got := e.State().ColumnFilters[0]; got != (ColumnFilter{ID: "name", Value: "fo"}) {
		t.Errorf("unexpected committed filter %+v", got)
	}
}

func TestEngine_SetColumnFiltersNoopKeepsStagedInput(t *testing.T) {
	pager := &fakePager{total: 42}
	columns := []Column[item]{{ID: "name", Filterable: true, FilterDebounce: time.Hour}}
	e := newTestEngine(t, pager, func(o *Options[item, int]) { o.Columns = columns })
	started(t, e)

	e.SetColumnFilter("name", "mes")
	if e.SetColumnFilters(nil) {
		t.Error("replacing no filters with no filters must be a no-op")
	}
	if view := e.Snapshot().Columns[0]; view.FilterInput != "mes" {
		t.Errorf("staged input = %q, want it kept after a no-op", view.FilterInput)
	}

	if !e.SetColumnFilters([]ColumnFilter{{ID: "name", Value: "silla"}}) {
		t.Fatal("expected the new filters to be accepted")
	}
	e.Wait()
	if view := e.Snapshot().Columns[0]; view.FilterInput != "silla" {
		t.Errorf("staged input = %q, want it reseeded from the committed filter", view.FilterInput)
	}
}

func TestEngine_RefreshTableTwiceSettlesOnce(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	once := started(t, e)

	gate := pager.block()
	ctx := context.Background()
	if err := e.RefreshTable(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := e.RefreshTable(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := e.Snapshot().Loading.Target; got != LoadingData {
		t.Errorf("expected data loading, got %s", got)
	}
	waitFor(t, "refresh fetches", func() bool { return pager.calls() == 3 })
	close(gate)
	e.Wait()

	snap := e.Snapshot()
	if !snap.Loading.IsIdle() {
		t.Error("expected idle after refresh")
	}
	if snap.Page == nil || *snap.Page != *once.Page || len(snap.Entities) != len(once.Entities) {
		t.Fatalf("two refreshes settled to %+v, want the state of one settle %+v", snap.Page, once.Page)
	}
	if got, want := snap.Footer(), once.Footer(); got.Page != want.Page || got.Total != want.Total {
		t.Errorf("footer = %q %q, want %q %q", got.Page, got.Total, want.Page, want.Total)
	}
}

func TestEngine_RefreshTableWhileLoadingFetchesAgain(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)

	gate := pager.blockNext()
	e.Start()
	waitFor(t, "initial fetch", func() bool { return pager.calls() == 1 })

	pager.setTotal(41)
	if err := e.RefreshTable(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	waitFor(t, "refresh fetch", func() bool { return pager.calls() == 2 })
	close(gate)
	e.Wait()

	snap := e.Snapshot()
	if !snap.Loading.IsIdle() {
		t.Error("expected idle after refresh")
	}
	if snap.Page == nil || snap.Page.TotalElements != 41 {
		t.Errorf("page = %+v, want 41 elements after refresh", snap.Page)
	}
}

func TestEngine_RefreshTableReloadsCachedState(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	started(t, e)

	e.NextPage()
	e.Wait()
	e.PreviousPage()
	e.Wait()
	if pager.calls() != 2 {
		t.Fatalf("returning to a fresh page must be served from cache, got %d fetches", pager.calls())
	}

	pager.rename(1, "renamed")
	if err := e.RefreshTable(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	e.Wait()
	if got := e.Snapshot().Entities[0].Name; got != "renamed" {
		t.Errorf("expected reloaded row, got %q", got)
	}
}

func TestEngine_ErrorKeepsPreviousContent(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	started(t, e)

	pager.failWith(problem.ErrorDescription{Title: "Sin conexión", Description: "Servicio no disponible"})
	_ = e.RefreshTable(context.Background())
	e.Wait()

	snap := e.Snapshot()
	if snap.Error == nil || snap.Error.Title != "Sin conexión" {
		t.Fatalf("expected error description, got %+v", snap.Error)
	}
	if len(snap.Entities) != 10 {
		t.Errorf("previous content must remain after failure, got %d rows", len(snap.Entities))
	}
	if !snap.Loading.IsIdle() {
		t.Errorf("expected idle after failure, got %s", snap.Loading)
	}
}

func TestEngine_ReplaceEntity(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	ctx := context.Background()

	ok, err := e.ReplaceEntity(ctx, item{ID: 2, Name: "x"})
	if err != nil || ok {
		t.Errorf("replace before any load must be a no-op, got %v %v", ok, err)
	}

	started(t, e)
	ok, err = e.ReplaceEntity(ctx, item{ID: 2, Name: "updated"})
	if err != nil || !ok {
		t.Fatalf("expected replacement, got %v %v", ok, err)
	}
	snap := e.Snapshot()
	if snap.Entities[1].Name != "updated" {
		t.Errorf("row 2 not replaced: %+v", snap.Entities[1])
	}
	for i, row := range snap.Entities {
		if i != 1 && row.Name != fmt.Sprintf("item-%d", row.ID) {
			t.Errorf("unrelated row %d changed: %+v", i, row)
		}
	}
	if *snap.Page != (crud.PageDetails{Size: 10, Number: 0, TotalElements: 42, TotalPages: 5}) {
		t.Errorf("page metadata changed: %+v", snap.Page)
	}

	ok, _ = e.ReplaceEntity(ctx, item{ID: 99, Name: "ghost"})
	if ok {
		t.Error("replace of an absent id must be a no-op")
	}
	if pager.calls() != 1 {
		t.Errorf("replace must not refetch, got %d fetches", pager.calls())
	}
}

type fakeFinder struct {
	fail bool
}

func (f fakeFinder) Find(_ context.Context, id int) crud.ReadResult[item] {
	if f.fail {
		return result.Fail[item](problem.ErrorDescription{Title: "No encontrado", Description: "no existe"})
	}
	return result.Succeed[item, problem.ErrorDescription](item{ID: id, Name: "fresh"})
}

func (f fakeFinder) FindMany(ctx context.Context, ids []int) crud.ReadResult[[]item] {
	return crud.FindFuncs[item, int]{One: f.Find}.FindMany(ctx, ids)
}

func TestEngine_RefreshEntity(t *testing.T) {
	pager := &fakePager{total: 42}
	log := &testutil.MockLogger{}
	finder := &fakeFinder{}
	e := newTestEngine(t, pager, func(o *Options[item, int]) {
		o.Find = finder
		o.Logger = log
	})
	started(t, e)
	ctx := context.Background()

	got, err := e.RefreshEntity(ctx, 3)
	if err != nil || got.Name != "fresh" {
		t.Fatalf("unexpected refresh result %+v %v", got, err)
	}
	if e.Snapshot().Entities[2].Name != "fresh" {
		t.Error("refreshed row not replaced")
	}

	finder.fail = true
	_, err = e.RefreshEntity(ctx, 3)
	var desc problem.ErrorDescription
	if !errors.As(err, &desc) || desc.Title != "No encontrado" {
		t.Errorf("expected find failure, got %v", err)
	}
	if !log.HasMessage("failed to refresh entity") {
		t.Error("expected failure to be logged")
	}
}

func TestEngine_RefreshEntityWithoutFind(t *testing.T) {
	e := newTestEngine(t, &fakePager{total: 1}, nil)
	if _, err := e.RefreshEntity(context.Background(), 1); !errors.Is(err, crud.ErrNoCapability) {
		t.Errorf("expected ErrNoCapability, got %v", err)
	}
}

func TestEngine_ClosedIgnoresChanges(t *testing.T) {
	pager := &fakePager{total: 42}
	e := newTestEngine(t, pager, nil)
	started(t, e)
	e.Close()

	if e.NextPage() {
		t.Error("closed engine must ignore changes")
	}
	if err := e.RefreshTable(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestCells(t *testing.T) {
	got := Cells(testColumns, item{ID: 7, Name: "siete"})
	if len(got) != 2 || got[0] != "7" || got[1] != "siete" {
		t.Errorf("unexpected cells %v", got)
	}
}
