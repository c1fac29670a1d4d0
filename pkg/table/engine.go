package table

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/peluware/freddy/pkg/crud"
	"github.com/peluware/freddy/pkg/observability/logger"
	"github.com/peluware/freddy/pkg/problem"
	"github.com/peluware/freddy/pkg/query"
	"github.com/peluware/freddy/pkg/result"
)

// ErrClosed is returned by operations on a closed Engine.
var ErrClosed = errors.New("table engine closed")

// Options configures an Engine.
type Options[T crud.Entity[ID], ID comparable] struct {
	// CacheKey names the resource in the query cache. Required.
	CacheKey string
	// Page loads one page of rows. Required.
	Page crud.Pageable[T]
	// Find reloads single rows for RefreshEntity.
	Find    crud.Findable[T, ID]
	Columns []Column[T]
	// ToQuery encodes committed column filters into PageQuery.Query.
	ToQuery      func([]ColumnFilter) string
	InitialState State
	// SearchDebounce defaults to DefaultSearchDebounce.
	SearchDebounce time.Duration
	// StaleTime is used only when Cache is nil and defaults to DefaultStaleTime.
	StaleTime time.Duration
	Cache     *query.Client[crud.Page[T]]
	Logger    logger.Logger
	// OnChange receives a snapshot after every observable change. Calls may
	// arrive from several goroutines; Snapshot.Version orders them.
	OnChange func(Snapshot[T])
}

// Engine holds the state of one remote table and keeps the displayed page in
// sync with it. All methods are safe for concurrent use.
type Engine[T crud.Entity[ID], ID comparable] struct {
	cacheKey       string
	page           crud.Pageable[T]
	find           crud.Findable[T, ID]
	columns        []Column[T]
	byID           map[string]Column[T]
	toQuery        func([]ColumnFilter) string
	initial        State
	searchDebounce time.Duration
	cache          *query.Client[crud.Page[T]]
	log            logger.Logger
	parser         *problem.Parser
	onChange       func(Snapshot[T])

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	idle         *sync.Cond
	state        State
	search       string
	searchSeq    uint64
	searchTimer  *time.Timer
	filterInput  map[string]string
	filterSeq    map[string]uint64
	filterTimers map[string]*time.Timer
	loading      LoadingState
	inFlight     int
	fetchSeq     uint64
	appliedSeq   uint64
	shown        *crud.Page[T]
	shownKey     string
	err          *problem.ErrorDescription
	version      uint64
	started      bool
	closed       bool
}

// New creates an Engine. Call Start to load the first page.
func New[T crud.Entity[ID], ID comparable](opts Options[T, ID]) (*Engine[T, ID], error) {
	if opts.CacheKey == "" {
		return nil, errors.New("table: cache key is required")
	}
	if opts.Page == nil {
		return nil, errors.New("table: page operation is required")
	}

	log := logger.OrNop(opts.Logger).With("table", opts.CacheKey)

	initial := opts.InitialState.clone()
	if initial.Pagination.Size <= 0 {
		initial.Pagination.Size = DefaultPageSize
	}
	if initial.Pagination.Index < 0 {
		initial.Pagination.Index = 0
	}

	debounce := opts.SearchDebounce
	if debounce <= 0 {
		debounce = DefaultSearchDebounce
	}

	cache := opts.Cache
	if cache == nil {
		staleTime := opts.StaleTime
		if staleTime <= 0 {
			staleTime = DefaultStaleTime
		}
		cache = query.NewClient[crud.Page[T]](query.Options{StaleTime: staleTime, Logger: log})
	}

	byID := make(map[string]Column[T], len(opts.Columns))
	for _, col := range opts.Columns {
		if col.ID == "" {
			return nil, errors.New("table: column id is required")
		}
		if _, dup := byID[col.ID]; dup {
			return nil, errors.New("table: duplicate column " + col.ID)
		}
		byID[col.ID] = col
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine[T, ID]{
		cacheKey:       opts.CacheKey,
		page:           opts.Page,
		find:           opts.Find,
		columns:        append([]Column[T](nil), opts.Columns...),
		byID:           byID,
		toQuery:        opts.ToQuery,
		initial:        initial,
		searchDebounce: debounce,
		cache:          cache,
		log:            log,
		parser:         problem.NewParser(log),
		onChange:       opts.OnChange,
		ctx:            ctx,
		cancel:         cancel,
		state:          initial.clone(),
		search:         initial.GlobalFilter,
		filterInput:    make(map[string]string),
		filterSeq:      make(map[string]uint64),
		filterTimers:   make(map[string]*time.Timer),
	}
	e.idle = sync.NewCond(&e.mu)
	for _, f := range initial.ColumnFilters {
		e.filterInput[f.ID] = f.Value
	}
	return e, nil
}

// Start loads the page for the initial state. Further calls are no-ops.
func (e *Engine[T, ID]) Start() {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.loading = Loading(LoadingData)
	e.fetchLocked()
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)
}

// Wait blocks until no fetch is in flight. Pending debounce timers are not
// waited for.
func (e *Engine[T, ID]) Wait() {
	e.mu.Lock()
	for e.inFlight > 0 {
		e.idle.Wait()
	}
	e.mu.Unlock()
}

// Close stops pending debounces, cancels in-flight fetches and waits for them
// to settle.
func (e *Engine[T, ID]) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.searchTimer != nil {
		e.searchTimer.Stop()
	}
	for _, timer := range e.filterTimers {
		timer.Stop()
	}
	e.mu.Unlock()

	e.cancel()
	e.Wait()
}

// NextPage advances one page when a next page exists.
func (e *Engine[T, ID]) NextPage() bool {
	return e.transition(Loading(LoadingNextPage), func(s *State) bool {
		if !e.canNextLocked() {
			return false
		}
		s.Pagination.Index++
		return true
	})
}

// PreviousPage goes back one page when not on the first page.
func (e *Engine[T, ID]) PreviousPage() bool {
	return e.transition(Loading(LoadingBackPage), func(s *State) bool {
		if s.Pagination.Index <= 0 {
			return false
		}
		s.Pagination.Index--
		return true
	})
}

// FirstPage jumps to page zero.
func (e *Engine[T, ID]) FirstPage() bool {
	return e.SetPageIndex(0)
}

// SetPageIndex jumps to index, clamped to the known page range.
func (e *Engine[T, ID]) SetPageIndex(index int) bool {
	return e.transition(Loading(LoadingData), func(s *State) bool {
		if count := e.pageCountLocked(); count > 0 && index > count-1 {
			index = count - 1
		}
		if index < 0 {
			index = 0
		}
		s.Pagination.Index = index
		return true
	})
}

// ResetPageIndex returns to the initial page index.
func (e *Engine[T, ID]) ResetPageIndex() bool {
	return e.SetPageIndex(e.initial.Pagination.Index)
}

// SetPageSize changes the page size and moves to the page that holds the
// current first row.
func (e *Engine[T, ID]) SetPageSize(size int) bool {
	if size <= 0 {
		return false
	}
	return e.transition(Loading(LoadingPageSize), func(s *State) bool {
		firstRow := s.Pagination.Index * s.Pagination.Size
		s.Pagination.Index = firstRow / size
		s.Pagination.Size = size
		return true
	})
}

// SetSorting replaces the sorting state.
func (e *Engine[T, ID]) SetSorting(sorting []SortingEntry) bool {
	return e.transition(Loading(LoadingData), func(s *State) bool {
		s.Sorting = append([]SortingEntry(nil), sorting...)
		return true
	})
}

// ToggleSorting cycles columnID through ascending, descending and unsorted.
// Without multi the column replaces any other sort. Columns that cannot sort
// are left alone.
func (e *Engine[T, ID]) ToggleSorting(columnID string, multi bool) bool {
	if !e.canSort(columnID) {
		return false
	}
	return e.transition(SortingColumn(columnID), func(s *State) bool {
		i := s.sortIndex(columnID)
		switch {
		case i < 0:
			s.Sorting = sortWith(s.Sorting, SortingEntry{ID: columnID}, multi)
		case !s.Sorting[i].Desc:
			s.Sorting = sortWith(s.Sorting, SortingEntry{ID: columnID, Desc: true}, multi)
		default:
			s.Sorting = sortWithout(s.Sorting, columnID, multi)
		}
		return true
	})
}

// ToggleSortingTo sorts columnID in the given direction.
func (e *Engine[T, ID]) ToggleSortingTo(columnID string, desc, multi bool) bool {
	if !e.canSort(columnID) {
		return false
	}
	return e.transition(SortingColumn(columnID), func(s *State) bool {
		s.Sorting = sortWith(s.Sorting, SortingEntry{ID: columnID, Desc: desc}, multi)
		return true
	})
}

// ClearSorting removes columnID from the sorting state.
func (e *Engine[T, ID]) ClearSorting(columnID string) bool {
	if !e.canSort(columnID) {
		return false
	}
	return e.transition(SortingColumn(columnID), func(s *State) bool {
		s.Sorting = sortWithout(s.Sorting, columnID, true)
		return true
	})
}

// SetColumnFilter sets the filter value of columnID. An empty value removes
// the filter. Columns with a filter debounce stage the value and commit it
// once input settles. It reports whether the column accepted the value.
func (e *Engine[T, ID]) SetColumnFilter(columnID, value string) bool {
	col, ok := e.byID[columnID]
	if !ok || !col.Filterable {
		return false
	}
	if col.FilterDebounce <= 0 {
		e.mu.Lock()
		e.filterInput[columnID] = value
		e.mu.Unlock()
		e.commitFilter(columnID, value)
		return true
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.filterInput[columnID] = value
	e.filterSeq[columnID]++
	seq := e.filterSeq[columnID]
	if timer := e.filterTimers[columnID]; timer != nil {
		timer.Stop()
	}
	e.filterTimers[columnID] = time.AfterFunc(col.FilterDebounce, func() {
		e.mu.Lock()
		if e.filterSeq[columnID] != seq {
			e.mu.Unlock()
			return
		}
		staged := e.filterInput[columnID]
		e.mu.Unlock()
		e.commitFilter(columnID, staged)
	})
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)
	return true
}

func (e *Engine[T, ID]) commitFilter(columnID, value string) bool {
	return e.transition(Loading(LoadingData), func(s *State) bool {
		if current, ok := s.filterValue(columnID); ok && current == value || !ok && value == "" {
			return false
		}
		s.setFilter(columnID, value)
		s.Pagination.Index = 0
		return true
	})
}

// SetColumnFilters replaces all committed column filters. Staged filter
// input is reseeded from the new filters only when they change the state.
func (e *Engine[T, ID]) SetColumnFilters(filters []ColumnFilter) bool {
	changed := e.transition(Loading(LoadingData), func(s *State) bool {
		s.ColumnFilters = nil
		for _, f := range filters {
			s.setFilter(f.ID, f.Value)
		}
		s.Pagination.Index = 0
		return true
	})
	if !changed {
		return false
	}

	e.mu.Lock()
	e.filterInput = make(map[string]string, len(e.state.ColumnFilters))
	for _, f := range e.state.ColumnFilters {
		e.filterInput[f.ID] = f.Value
	}
	e.mu.Unlock()
	return true
}

// SetGlobalFilter commits a search term immediately.
func (e *Engine[T, ID]) SetGlobalFilter(value string) bool {
	return e.transition(Loading(LoadingSearch), func(s *State) bool {
		e.search = value
		e.searchSeq++
		if e.searchTimer != nil {
			e.searchTimer.Stop()
		}
		s.GlobalFilter = value
		s.Pagination.Index = 0
		return true
	})
}

// OnSearchChange stages a search term. The term is committed once no further
// change arrives within the search debounce.
func (e *Engine[T, ID]) OnSearchChange(value string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.search = value
	e.searchSeq++
	seq := e.searchSeq
	if e.searchTimer != nil {
		e.searchTimer.Stop()
	}
	e.searchTimer = time.AfterFunc(e.searchDebounce, func() { e.commitSearch(seq) })
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)
}

// commitSearch applies the settled search term. A term equal to the committed
// one still revalidates the current page.
func (e *Engine[T, ID]) commitSearch(seq uint64) {
	e.mu.Lock()
	if e.searchSeq != seq {
		e.mu.Unlock()
		return
	}
	value := e.search
	e.mu.Unlock()

	changed := e.transition(Loading(LoadingSearch), func(s *State) bool {
		if s.GlobalFilter == value {
			return false
		}
		s.GlobalFilter = value
		s.Pagination.Index = 0
		return true
	})
	if !changed {
		e.refetch(Loading(LoadingSearch))
	}
}

// ReplaceEntity swaps the row with entity's id in the cached page of the
// current state. It reports false when no such page or row is cached.
func (e *Engine[T, ID]) ReplaceEntity(ctx context.Context, entity T) (bool, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false, ErrClosed
	}
	key := e.keyLocked()
	e.mu.Unlock()

	replaced := false
	updated, _, err := e.cache.SetData(ctx, key, func(old crud.Page[T], exists bool) (crud.Page[T], bool) {
		if !exists {
			return old, false
		}
		next, ok := crud.ReplaceByID(old, entity)
		replaced = ok
		return next, ok
	})
	if err != nil {
		e.log.Warn("failed to replace cached entity", "id", entity.GetID(), "error", err)
		return false, err
	}
	if !replaced {
		return false, nil
	}

	e.mu.Lock()
	if e.shownKey == key.String() {
		e.shown = &updated
	}
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)
	return true, nil
}

// RefreshEntity reloads one entity and replaces its row. Failures are logged
// and returned.
func (e *Engine[T, ID]) RefreshEntity(ctx context.Context, id ID) (T, error) {
	var zero T
	if e.find == nil {
		return zero, crud.ErrNoCapability
	}
	entity, desc, ok := e.find.Find(ctx, id).Get()
	if !ok {
		e.log.Error("failed to refresh entity", "id", id, "error", desc.Error())
		return zero, desc
	}
	if _, err := e.ReplaceEntity(ctx, entity); err != nil {
		return entity, err
	}
	return entity, nil
}

// RefreshTable drops every cached page of this table and reloads the current
// one. It never reuses a fetch issued before the call, and once it settles
// the results of older fetches are ignored.
func (e *Engine[T, ID]) RefreshTable(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.loading = Loading(LoadingData)
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)

	err := e.cache.Invalidate(ctx, e.cacheKey)
	if err != nil {
		e.log.Warn("failed to invalidate table cache", "error", err)
	}
	e.refetch(Loading(LoadingData))
	return err
}

// Snapshot returns the current view of the table.
func (e *Engine[T, ID]) Snapshot() Snapshot[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the committed table state.
func (e *Engine[T, ID]) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Columns returns the configured columns.
func (e *Engine[T, ID]) Columns() []Column[T] {
	return append([]Column[T](nil), e.columns...)
}

func (e *Engine[T, ID]) canSort(columnID string) bool {
	col, ok := e.byID[columnID]
	return ok && col.Sortable
}

// transition applies mutate to a copy of the committed state. When mutate
// accepts and the state changed, loading is set and the new state fetched.
// mutate runs with e.mu held.
func (e *Engine[T, ID]) transition(loading LoadingState, mutate func(*State) bool) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	next := e.state.clone()
	if !mutate(&next) {
		e.mu.Unlock()
		return false
	}
	next = next.clone()
	if reflect.DeepEqual(next, e.state) {
		e.mu.Unlock()
		return false
	}
	e.state = next
	e.loading = loading
	e.fetchLocked()
	snap := e.changedLocked()
	e.mu.Unlock()

	e.log.Debug("table state changed", "loading", loading.String())
	e.notify(snap)
	return true
}

func (e *Engine[T, ID]) refetch(loading LoadingState) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.loading = loading
	e.fetchLocked()
	snap := e.changedLocked()
	e.mu.Unlock()
	e.notify(snap)
}

func (e *Engine[T, ID]) keyLocked() query.Key {
	return query.Key{Resource: e.cacheKey, State: e.state.clone()}
}

func (e *Engine[T, ID]) fetchLocked() {
	e.inFlight++
	e.fetchSeq++
	go e.fetch(e.keyLocked(), e.fetchSeq)
}

func (e *Engine[T, ID]) fetch(key query.Key, seq uint64) {
	q := ToPageQuery(key.State.(State), e.toQuery)
	page, outcome, err := e.cache.Fetch(e.ctx, key, func(ctx context.Context) (crud.Page[T], error) {
		return result.Unwrap(e.page.Page(ctx, q))
	})

	e.mu.Lock()
	e.inFlight--
	k := key.String()
	switch {
	case k != e.keyLocked().String():
		e.log.Debug("ignored result for superseded table state", "outcome", string(outcome))
	case seq < e.appliedSeq:
		e.log.Debug("ignored result of an older fetch", "outcome", string(outcome))
	case err != nil:
		e.appliedSeq = seq
		if !e.closed {
			desc := e.describe(err)
			e.err = &desc
			e.log.Warn("failed to load table page", "error", err)
		}
	default:
		e.appliedSeq = seq
		e.shown = &page
		e.shownKey = k
		e.err = nil
	}
	if e.inFlight == 0 {
		e.loading = LoadingState{}
		e.idle.Broadcast()
	}
	closed := e.closed
	snap := e.changedLocked()
	e.mu.Unlock()

	if !closed {
		e.notify(snap)
	}
}

func (e *Engine[T, ID]) describe(err error) problem.ErrorDescription {
	if desc, ok := result.FaultValue[problem.ErrorDescription](err); ok {
		return desc
	}
	var desc problem.ErrorDescription
	if errors.As(err, &desc) {
		return desc
	}
	return e.parser.ParseError(err)
}

func (e *Engine[T, ID]) pageCountLocked() int {
	if e.shown == nil {
		return -1
	}
	return e.shown.Page.TotalPages
}

func (e *Engine[T, ID]) canNextLocked() bool {
	count := e.pageCountLocked()
	switch count {
	case -1:
		return true
	case 0:
		return false
	default:
		return e.state.Pagination.Index < count-1
	}
}

// changedLocked bumps the version and returns the snapshot to publish.
func (e *Engine[T, ID]) changedLocked() Snapshot[T] {
	e.version++
	return e.snapshotLocked()
}

func (e *Engine[T, ID]) notify(snap Snapshot[T]) {
	if e.onChange != nil {
		e.onChange(snap)
	}
}

func sortWith(sorting []SortingEntry, entry SortingEntry, multi bool) []SortingEntry {
	if !multi {
		return []SortingEntry{entry}
	}
	out := make([]SortingEntry, 0, len(sorting)+1)
	replaced := false
	for _, s := range sorting {
		if s.ID == entry.ID {
			out = append(out, entry)
			replaced = true
			continue
		}
		out = append(out, s)
	}
	if !replaced {
		out = append(out, entry)
	}
	return out
}

func sortWithout(sorting []SortingEntry, columnID string, multi bool) []SortingEntry {
	if !multi {
		return nil
	}
	out := make([]SortingEntry, 0, len(sorting))
	for _, s := range sorting {
		if s.ID != columnID {
			out = append(out, s)
		}
	}
	return out
}
