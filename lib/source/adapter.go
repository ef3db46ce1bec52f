package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrUnavailable is the fallback reason when the availability flag is off.
	ErrUnavailable = errors.New("remote data source disabled")
	// ErrNoRemote is the fallback reason when no remote source is configured.
	ErrNoRemote = errors.New("no remote data source configured")
)

// Origin tells where a collection was loaded from.
type Origin int

const (
	OriginNone Origin = iota
	OriginRemote
	OriginFallback
	OriginFailed
)

func (o Origin) String() string {
	switch o {
	case OriginRemote:
		return "remote"
	case OriginFallback:
		return "fallback"
	case OriginFailed:
		return "failed"
	default:
		return "none"
	}
}

// State is the load state of an adapter.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "unloaded"
	}
}

// Result is the outcome of a load. Remote results carry no reason; fallback
// and failed results carry the remote error that caused them.
type Result[T any] struct {
	Items  []T
	Origin Origin
	Reason error
}

// Ok reports whether the items came from the remote source.
func (r Result[T]) Ok() bool { return r.Origin == OriginRemote }

// IsFallback reports whether the items came from the bundled snapshot.
func (r Result[T]) IsFallback() bool { return r.Origin == OriginFallback }

// Availability reports the persisted service availability flag.
type Availability interface {
	ServiceAvailable(ctx context.Context) bool
}

// Static is a fixed Availability.
type Static bool

func (s Static) ServiceAvailable(context.Context) bool { return bool(s) }

// Fetcher loads a whole collection from the remote source.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Adapter decides, for one collection, whether to read from the remote source
// or from the bundled fallback snapshot.
type Adapter[T any] struct {
	name     string
	remote   Fetcher[T]
	fallback func() []T
	avail    Availability
	logger   *slog.Logger

	loadMu sync.Mutex
	mu     sync.Mutex
	state  State
	last   Result[T]
}

func New[T any](name string, remote Fetcher[T], fallback func() []T, avail Availability, logger *slog.Logger) *Adapter[T] {
	if fallback == nil {
		fallback = func() []T { return nil }
	}
	return &Adapter[T]{
		name:     name,
		remote:   remote,
		fallback: fallback,
		avail:    avail,
		logger:   logger,
	}
}

func (a *Adapter[T]) Name() string { return a.name }

// Load returns the collection, fetching it on the first call after
// construction or Refresh. Remote failures fall back to the snapshot; Load
// never reports them as errors.
func (a *Adapter[T]) Load(ctx context.Context) Result[T] {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	a.mu.Lock()
	if a.state == StateLoaded {
		res := a.last
		a.mu.Unlock()
		return copyResult(res)
	}
	a.state = StateLoading
	a.mu.Unlock()

	res := a.Fetch(ctx)
	if !res.Ok() {
		a.logger.WarnContext(ctx, "Using fallback snapshot",
			slog.String("entity", a.name),
			slog.Any("reason", res.Reason))
		res = Result[T]{Items: a.fallback(), Origin: OriginFallback, Reason: res.Reason}
	} else {
		a.logger.InfoContext(ctx, "Loaded from remote",
			slog.String("entity", a.name),
			slog.Int("count", len(res.Items)))
	}

	a.mu.Lock()
	a.state = StateLoaded
	a.last = res
	a.mu.Unlock()
	return copyResult(res)
}

// Fetch makes a single remote attempt and never falls back.
func (a *Adapter[T]) Fetch(ctx context.Context) Result[T] {
	if a.remote == nil {
		return Result[T]{Origin: OriginFailed, Reason: ErrNoRemote}
	}
	if a.avail != nil && !a.avail.ServiceAvailable(ctx) {
		return Result[T]{Origin: OriginFailed, Reason: ErrUnavailable}
	}
	items, err := a.remote(ctx)
	if err != nil {
		return Result[T]{Origin: OriginFailed, Reason: err}
	}
	return Result[T]{Items: items, Origin: OriginRemote}
}

// Commit records a successful out-of-band fetch as the loaded result.
func (a *Adapter[T]) Commit(res Result[T]) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateLoaded
	a.last = res
}

// Refresh forces the next Load to fetch again.
func (a *Adapter[T]) Refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateUnloaded
}

func (a *Adapter[T]) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Origin reports where the last load came from.
func (a *Adapter[T]) Origin() Origin {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last.Origin
}

// Reason reports why the last load fell back, if it did.
func (a *Adapter[T]) Reason() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last.Reason
}

func copyResult[T any](r Result[T]) Result[T] {
	r.Items = append([]T(nil), r.Items...)
	return r
}
