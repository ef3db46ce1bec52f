package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/icco/catalog/lib/source"
	"github.com/icco/catalog/models"
)

// ErrNotFound is returned by lookups that must name a missing record.
var ErrNotFound = errors.New("record not found")

// Patch is a partial update merged into a stored record.
type Patch[T any] interface {
	Apply(*T)
}

// Descriptor tells a Store how to handle one entity type.
type Descriptor[K cmp.Ordered, T any] struct {
	Name  string
	ID    func(T) K
	SetID func(*T, K)
	// NextID picks the id of a new record given every id in use.
	NextID func(ids []K) K
	// Label is the name compared by CheckNameExists.
	Label        func(T) string
	SearchFields func(T) []string
	// OnCreate fills server-managed fields of a new record.
	OnCreate func(item *T, now time.Time)
	// OnUpdate recomputes derived fields after a patch was applied.
	OnUpdate func(before T, after *T, now time.Time)
	// Clone deep-copies a record. Shallow copies are used when nil.
	Clone func(T) T
}

// Sequential assigns max existing id + 1.
func Sequential[K ~int | ~int64](ids []K) K {
	var highest K
	for _, id := range ids {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}

// RandomUUID assigns a fresh UUID, retrying on the unlikely collision.
func RandomUUID(ids []string) string {
	for {
		id := uuid.NewString()
		if !slices.Contains(ids, id) {
			return id
		}
	}
}

// Store is the in-memory repository of one entity type. Every read returns a
// copy; the live collection never leaves the Store.
type Store[K cmp.Ordered, T any] struct {
	desc   Descriptor[K, T]
	src    *source.Adapter[T]
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	items  []T
	origin source.Origin
	reason error
	loaded bool

	hookMu sync.Mutex
	hooks  []func(K)
}

func New[K cmp.Ordered, T any](desc Descriptor[K, T], src *source.Adapter[T], logger *slog.Logger) *Store[K, T] {
	return &Store[K, T]{
		desc:   desc,
		src:    src,
		logger: logger.With(slog.String("entity", desc.Name)),
		now:    time.Now,
	}
}

func (s *Store[K, T]) Name() string { return s.desc.Name }

// SetClock replaces the time source used for server-managed timestamps.
func (s *Store[K, T]) SetClock(now func() time.Time) { s.now = now }

// Initialize loads the collection from the source. Remote failures are
// reported through the returned result, never as errors.
func (s *Store[K, T]) Initialize(ctx context.Context) source.Result[T] {
	res := s.src.Load(ctx)
	s.mu.Lock()
	s.items = s.cloneAll(res.Items)
	s.origin = res.Origin
	s.reason = res.Reason
	s.loaded = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Repository initialized",
		slog.String("origin", res.Origin.String()),
		slog.Int("count", len(res.Items)))
	return res
}

// Reload forces the source to fetch again and reinitializes.
func (s *Store[K, T]) Reload(ctx context.Context) source.Result[T] {
	s.src.Refresh()
	return s.Initialize(ctx)
}

// Sync replaces the collection with a fresh remote copy. On failure the
// current contents are left untouched.
func (s *Store[K, T]) Sync(ctx context.Context) (int, error) {
	res := s.src.Fetch(ctx)
	if !res.Ok() {
		return 0, fmt.Errorf("failed to sync %s: %w", s.desc.Name, res.Reason)
	}
	s.src.Commit(res)

	s.mu.Lock()
	s.items = s.cloneAll(res.Items)
	s.origin = source.OriginRemote
	s.reason = nil
	s.loaded = true
	s.mu.Unlock()
	return len(res.Items), nil
}

// Replace swaps the whole collection.
func (s *Store[K, T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.cloneAll(items)
	s.loaded = true
}

func (s *Store[K, T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Origin reports where the current contents came from.
func (s *Store[K, T]) Origin() source.Origin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.origin
}

// Reason reports why the current contents came from the fallback snapshot.
func (s *Store[K, T]) Reason() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

func (s *Store[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[K, T]) GetAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneAll(s.items)
}

func (s *Store[K, T]) GetByID(id K) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.clone(s.items[i]), true
	}
	var zero T
	return zero, false
}

func (s *Store[K, T]) Has(id K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(id) >= 0
}

// Add stores a new record under a freshly assigned id. Any id already set on
// item is overwritten.
func (s *Store[K, T]) Add(item T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]K, len(s.items))
	for i, it := range s.items {
		ids[i] = s.desc.ID(it)
	}
	item = s.clone(item)
	s.desc.SetID(&item, s.desc.NextID(ids))
	if s.desc.OnCreate != nil {
		s.desc.OnCreate(&item, s.now())
	}
	s.items = append(s.items, item)
	return s.clone(item)
}

// Update merges patch into the record with the given id.
func (s *Store[K, T]) Update(id K, patch Patch[T]) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	before := s.items[i]
	after := s.clone(before)
	patch.Apply(&after)
	s.desc.SetID(&after, id)
	if s.desc.OnUpdate != nil {
		s.desc.OnUpdate(before, &after, s.now())
	}
	s.items[i] = after
	return s.clone(after), true
}

// Rewrite applies edit to every record in place and returns how many it
// changed. OnUpdate is not run, so server-managed fields keep their values.
func (s *Store[K, T]) Rewrite(edit func(item *T) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.items {
		item := s.clone(s.items[i])
		if !edit(&item) {
			continue
		}
		s.items[i] = item
		n++
	}
	return n
}

// Delete removes a record and then runs the OnDelete hooks. Hooks run one
// after another; a panicking hook does not stop the others.
func (s *Store[K, T]) Delete(id K) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.mu.Unlock()

	s.hookMu.Lock()
	hooks := slices.Clone(s.hooks)
	s.hookMu.Unlock()
	for _, h := range hooks {
		s.runHook(h, id)
	}
	return true
}

func (s *Store[K, T]) runHook(h func(K), id K) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Delete cascade failed",
				slog.Any("id", id),
				slog.Any("panic", r))
		}
	}()
	h(id)
}

// OnDelete registers a hook called with the id of every deleted record.
func (s *Store[K, T]) OnDelete(h func(K)) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Search returns records where any search field contains query, ignoring
// case and accents. An empty query returns everything.
func (s *Store[K, T]) Search(query string) []T {
	q := models.Fold(strings.TrimSpace(query))
	if q == "" || s.desc.SearchFields == nil {
		return s.GetAll()
	}
	return s.Find(func(item T) bool {
		for _, f := range s.desc.SearchFields(item) {
			if strings.Contains(models.Fold(f), q) {
				return true
			}
		}
		return false
	})
}

// CheckNameExists reports whether another record already carries name,
// compared case-insensitively. The record with id exclude is skipped.
func (s *Store[K, T]) CheckNameExists(name string, exclude *K) bool {
	name = strings.TrimSpace(name)
	if s.desc.Label == nil {
		return false
	}
	for _, item := range s.Find(func(item T) bool {
		return strings.EqualFold(strings.TrimSpace(s.desc.Label(item)), name)
	}) {
		if exclude == nil || s.desc.ID(item) != *exclude {
			return true
		}
	}
	return false
}

// Find returns copies of the records matching pred, in collection order.
func (s *Store[K, T]) Find(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, item := range s.items {
		if pred(item) {
			out = append(out, s.clone(item))
		}
	}
	return out
}

func (s *Store[K, T]) indexOf(id K) int {
	return slices.IndexFunc(s.items, func(item T) bool { return s.desc.ID(item) == id })
}

func (s *Store[K, T]) clone(item T) T {
	if s.desc.Clone == nil {
		return item
	}
	return s.desc.Clone(item)
}

func (s *Store[K, T]) cloneAll(items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = s.clone(item)
	}
	return out
}
