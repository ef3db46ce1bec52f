package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/icco/catalog/lib/lock"
)

// ErrUnknownTarget is returned for a sync of an unregistered target.
var ErrUnknownTarget = errors.New("unknown sync target")

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Target is something that can be refreshed from the remote source.
// Repositories and the relationship manager are targets.
type Target interface {
	Name() string
	Sync(ctx context.Context) (int, error)
}

// Report is the state of one target's latest sync.
type Report struct {
	Target     string        `json:"target"`
	Status     Status        `json:"status"`
	Count      int           `json:"count"`
	Message    string        `json:"message"`
	StartedAt  time.Time     `json:"startedAt,omitzero"`
	FinishedAt time.Time     `json:"finishedAt,omitzero"`
	Duration   time.Duration `json:"duration"`
}

// Recorder persists finished sync runs.
type Recorder interface {
	RecordSync(ctx context.Context, r Report) error
}

// Orchestrator runs at most one sync per target at a time. A trigger that
// arrives while its target is syncing is dropped, not queued.
type Orchestrator struct {
	locker lock.Locker
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	targets  map[string]Target
	order    []string
	reports  map[string]Report
	recorder Recorder
	after    []func(ctx context.Context, r Report)
}

func New(locker lock.Locker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		locker:  locker,
		logger:  logger,
		now:     time.Now,
		targets: map[string]Target{},
		reports: map[string]Report{},
	}
}

// Register adds a target. Registering a name twice replaces the target.
func (o *Orchestrator) Register(t Target) {
	o.mu.Lock()
	defer o.mu.Unlock()
	name := t.Name()
	if _, ok := o.targets[name]; !ok {
		o.order = append(o.order, name)
	}
	o.targets[name] = t
	o.reports[name] = Report{Target: name, Status: StatusIdle}
}

func (o *Orchestrator) SetRecorder(r Recorder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorder = r
}

// AfterSync registers a hook run after every successful sync. Hooks run
// while the target still reports StatusSyncing.
func (o *Orchestrator) AfterSync(fn func(ctx context.Context, r Report)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.after = append(o.after, fn)
}

// Targets lists target names in registration order.
func (o *Orchestrator) Targets() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.order)
}

// Sync refreshes one target. The bool is false when the target was already
// syncing and nothing was done; the returned report is then the in-flight one.
// A failed refresh is not an error: it is reported with StatusFailed.
func (o *Orchestrator) Sync(ctx context.Context, name string) (Report, bool, error) {
	o.mu.Lock()
	t, ok := o.targets[name]
	o.mu.Unlock()
	if !ok {
		return Report{}, false, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}

	got, err := o.locker.TryLock(ctx, name)
	if err != nil {
		return Report{}, false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !got {
		o.logger.InfoContext(ctx, "Sync already running", slog.String("target", name))
		r, _ := o.Status(name)
		return r, false, nil
	}
	defer func() {
		if err := o.locker.Unlock(context.WithoutCancel(ctx), name); err != nil {
			o.logger.Error("Failed to release sync lock", slog.String("target", name), slog.Any("error", err))
		}
	}()

	start := o.now()
	o.setReport(Report{Target: name, Status: StatusSyncing, StartedAt: start})

	count, err := t.Sync(ctx)
	end := o.now()
	r := Report{Target: name, Count: count, StartedAt: start, FinishedAt: end, Duration: end.Sub(start)}
	if err != nil {
		r.Status = StatusFailed
		r.Message = fmt.Sprintf("Failed to sync %s: %v", name, err)
		o.logger.ErrorContext(ctx, "Sync failed", slog.String("target", name), slog.Any("error", err))
	} else {
		r.Status = StatusSuccess
		r.Message = fmt.Sprintf("Synced %d %s", count, name)
		o.logger.InfoContext(ctx, "Sync finished",
			slog.String("target", name),
			slog.Int("count", count),
			slog.Duration("duration", r.Duration))
	}

	o.mu.Lock()
	recorder := o.recorder
	hooks := slices.Clone(o.after)
	o.mu.Unlock()

	// Hooks finish before the outcome is published.
	if r.Status == StatusSuccess {
		for _, fn := range hooks {
			fn(ctx, r)
		}
	}
	o.setReport(r)

	if recorder != nil {
		if err := recorder.RecordSync(context.WithoutCancel(ctx), r); err != nil {
			o.logger.ErrorContext(ctx, "Failed to record sync run", slog.String("target", name), slog.Any("error", err))
		}
	}
	return r, true, nil
}

// SyncAll syncs every target concurrently and returns their reports in
// registration order.
func (o *Orchestrator) SyncAll(ctx context.Context) ([]Report, error) {
	names := o.Targets()
	reports := make([]Report, len(names))

	var g errgroup.Group
	g.SetLimit(4)
	for i, name := range names {
		g.Go(func() error {
			r, _, err := o.Sync(ctx, name)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// Status returns the latest report of a target.
func (o *Orchestrator) Status(name string) (Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.reports[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	return r, nil
}

// Statuses returns every report in registration order.
func (o *Orchestrator) Statuses() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Report, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.reports[name])
	}
	return out
}

// Acknowledge returns a finished target to idle once its outcome was seen.
// A running sync is left alone.
func (o *Orchestrator) Acknowledge(name string) (Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.reports[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
	}
	if r.Status == StatusSuccess || r.Status == StatusFailed {
		r.Status = StatusIdle
		o.reports[name] = r
	}
	return r, nil
}

func (o *Orchestrator) setReport(r Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports[r.Target] = r
}
