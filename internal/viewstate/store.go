package viewstate

import (
	"maps"
	"sync"

	"github.com/Kyz7/console/internal/tablequery"
)

const DefaultPageSize = 10

type Pagination struct {
	PageIndex int `json:"page_index"`
	PageSize  int `json:"page_size"`
}

// Visibility maps column ids to their visibility; a missing key means visible.
type Visibility map[string]bool

// State is an immutable snapshot. Setters never modify a published snapshot;
// they publish a new one, so pointer identity tells whether anything changed.
type State struct {
	Pagination       Pagination              `json:"pagination"`
	Sorting          tablequery.SortingState `json:"sorting"`
	ColumnVisibility Visibility              `json:"column_visibility"`
	GlobalFilter     string                  `json:"global_filter"`
	DebouncedFilter  string                  `json:"debounced_filter"`
	// DeleteTarget is the id of the row awaiting delete confirmation, "" for none.
	DeleteTarget string `json:"delete_target,omitempty"`
	Initialized  bool   `json:"initialized"`
}

func (s State) View() tablequery.View {
	return tablequery.View{
		PageIndex: s.Pagination.PageIndex,
		PageSize:  s.Pagination.PageSize,
		Search:    s.DebouncedFilter,
		Sorting:   s.Sorting,
	}
}

type Updater[T any] func(current T) T

// Value wraps a literal as an Updater.
func Value[T any](v T) Updater[T] {
	return func(T) T { return v }
}

type Listener func(prev, next *State)

type Store struct {
	mu        sync.Mutex
	defaults  State
	state     *State
	listeners map[int]Listener
	nextID    int
}

func New(pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	defaults := State{
		Pagination:       Pagination{PageIndex: 0, PageSize: pageSize},
		Sorting:          tablequery.SortingState{},
		ColumnVisibility: Visibility{},
	}
	initial := defaults
	return &Store{
		defaults:  defaults,
		state:     &initial,
		listeners: map[int]Listener{},
	}
}

func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to run after every published change. Listeners run
// outside the store lock and may call back into the store.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) update(mutate func(next *State) bool) *State {
	s.mu.Lock()
	prev := s.state
	next := *prev
	if !mutate(&next) {
		s.mu.Unlock()
		return prev
	}
	s.state = &next
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(prev, &next)
	}
	return &next
}

func (s *Store) SetPagination(fn Updater[Pagination]) *State {
	return s.update(func(next *State) bool {
		p := normalizePagination(fn(next.Pagination), next.Pagination)
		if p == next.Pagination {
			return false
		}
		next.Pagination = p
		next.Initialized = true
		return true
	})
}

func (s *Store) SetSorting(fn Updater[tablequery.SortingState]) *State {
	return s.update(func(next *State) bool {
		sorting := fn(cloneSorting(next.Sorting))
		if sorting == nil {
			sorting = tablequery.SortingState{}
		}
		if tablequery.EqualSorting(sorting, next.Sorting) {
			return false
		}
		next.Sorting = sorting
		next.Initialized = true
		return true
	})
}

func (s *Store) SetColumnVisibility(fn Updater[Visibility]) *State {
	return s.update(func(next *State) bool {
		vis := fn(maps.Clone(next.ColumnVisibility))
		if vis == nil {
			vis = Visibility{}
		}
		if maps.Equal(vis, next.ColumnVisibility) {
			return false
		}
		next.ColumnVisibility = vis
		next.Initialized = true
		return true
	})
}

func (s *Store) SetGlobalFilter(fn Updater[string]) *State {
	return s.update(func(next *State) bool {
		filter := fn(next.GlobalFilter)
		if filter == next.GlobalFilter {
			return false
		}
		next.GlobalFilter = filter
		next.Initialized = true
		return true
	})
}

// SetDebouncedFilter always publishes; the debounce timer lives with the caller.
func (s *Store) SetDebouncedFilter(value string) *State {
	return s.update(func(next *State) bool {
		next.DebouncedFilter = value
		next.Initialized = true
		return true
	})
}

func (s *Store) SetDeleteTarget(id string) *State {
	return s.update(func(next *State) bool {
		if id == next.DeleteTarget {
			return false
		}
		next.DeleteTarget = id
		next.Initialized = true
		return true
	})
}

// SyncFromURL reconciles the URL-backed fields in one batch and reports whether
// any of them differed. The store is marked initialized either way.
func (s *Store) SyncFromURL(view tablequery.View) bool {
	changed := false
	s.update(func(next *State) bool {
		p := normalizePagination(Pagination{PageIndex: view.PageIndex, PageSize: view.PageSize}, next.Pagination)
		if p != next.Pagination {
			next.Pagination = p
			changed = true
		}

		sorting := view.Sorting
		if sorting == nil {
			sorting = tablequery.SortingState{}
		}
		if !tablequery.EqualSorting(sorting, next.Sorting) {
			next.Sorting = cloneSorting(sorting)
			changed = true
		}

		if view.Search != next.GlobalFilter {
			next.GlobalFilter = view.Search
			changed = true
		}
		if view.Search != next.DebouncedFilter {
			next.DebouncedFilter = view.Search
			changed = true
		}

		wasInitialized := next.Initialized
		next.Initialized = true
		return changed || !wasInitialized
	})
	return changed
}

func (s *Store) Reset() *State {
	return s.update(func(next *State) bool {
		*next = s.defaults
		return true
	})
}

func normalizePagination(p, current Pagination) Pagination {
	if p.PageIndex < 0 {
		p.PageIndex = 0
	}
	if p.PageSize <= 0 {
		p.PageSize = current.PageSize
	}
	return p
}

func cloneSorting(s tablequery.SortingState) tablequery.SortingState {
	out := make(tablequery.SortingState, len(s))
	copy(out, s)
	return out
}
