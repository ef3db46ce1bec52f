package query

import (
	"maps"
	"sync"
)

// ListState holds the inputs of a listing the way a list view keeps them.
// Every change other than SetPage resets the page to 1.
type ListState struct {
	mu   sync.Mutex
	opts Options
}

func NewListState(size int) *ListState {
	return &ListState{opts: Options{Page: 1, Size: size, Order: Asc, Filters: map[string]string{}}}
}

func (s *ListState) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.opts
	o.Filters = maps.Clone(s.opts.Filters)
	return o
}

func (s *ListState) SetSearch(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Query = q
	s.opts.Page = 1
}

// SetFilter sets or, with an empty value or All, clears a filter.
func (s *ListState) SetFilter(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" || value == All {
		delete(s.opts.Filters, field)
	} else {
		s.opts.Filters[field] = value
	}
	s.opts.Page = 1
}

// ToggleSort flips the order when field is already the sort field and
// otherwise sorts by field ascending.
func (s *ListState) ToggleSort(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opts.Sort == field {
		if s.opts.Order == Desc {
			s.opts.Order = Asc
		} else {
			s.opts.Order = Desc
		}
	} else {
		s.opts.Sort = field
		s.opts.Order = Asc
	}
	s.opts.Page = 1
}

func (s *ListState) SetSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Size = size
	s.opts.Page = 1
}

func (s *ListState) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Page = max(page, 1)
}

// Latest keeps the result of the most recently started request. Results of
// requests started earlier are discarded even when they finish later.
type Latest[T any] struct {
	mu     sync.Mutex
	issued uint64
	value  T
	token  uint64
}

// Begin issues a new request token.
func (l *Latest[T]) Begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issued++
	return l.issued
}

// Commit stores value if token is still the latest issued token.
func (l *Latest[T]) Commit(token uint64, value T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != l.issued {
		return false
	}
	l.value = value
	l.token = token
	return true
}

// Value returns the last committed value and its token.
func (l *Latest[T]) Value() (T, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.token
}
