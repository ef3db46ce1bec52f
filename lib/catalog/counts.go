package catalog

import (
	"context"
	"time"

	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/models"
)

// Counts are the movie counts per genre and per country. A Counts value is
// never modified after it is published.
type Counts struct {
	Genres     map[int64]int `json:"genres"`
	Countries  map[int64]int `json:"countries"`
	ComputedAt time.Time     `json:"computedAt"`
}

// Counts returns the current derived counts.
func (c *Catalog) Counts() *Counts {
	return c.counts.Load()
}

// refreshCounts recomputes the counts from the current movies. Refreshes are
// serialized so an older movie list never replaces a newer one.
func (c *Catalog) refreshCounts() {
	c.countsMu.Lock()
	defer c.countsMu.Unlock()
	c.counts.Store(computeCounts(c.Movies.GetAll(), c.now()))
}

// countedTarget is a sync target whose data feeds the counts. The counts are
// republished as part of the sync, before the orchestrator reports success.
type countedTarget struct {
	syncer.Target
	c *Catalog
}

func (t countedTarget) Sync(ctx context.Context) (int, error) {
	t.c.countsMu.Lock()
	defer t.c.countsMu.Unlock()
	n, err := t.Target.Sync(ctx)
	if err != nil {
		return n, err
	}
	t.c.counts.Store(computeCounts(t.c.Movies.GetAll(), t.c.now()))
	return n, nil
}

func computeCounts(movies []models.Movie, now time.Time) *Counts {
	out := &Counts{Genres: map[int64]int{}, Countries: map[int64]int{}, ComputedAt: now}
	for _, m := range movies {
		for _, g := range m.Genres {
			out.Genres[g.ID]++
		}
		for _, ct := range m.Countries {
			out.Countries[ct.ID]++
		}
	}
	return out
}
