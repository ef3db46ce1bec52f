// Package catalog wires the entity repositories, the relationship manager and
// the query schemas into one validated catalog.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/relations"
	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/lib/repository"
	"github.com/icco/catalog/lib/snapshot"
	"github.com/icco/catalog/lib/source"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/lib/tmdb"
	"github.com/icco/catalog/lib/types"
	"github.com/icco/catalog/models"
)

// Entity names on the remote catalog API.
const (
	EntityMovies       = "movies"
	EntitySeries       = "series"
	EntityGenres       = "genres"
	EntityCountries    = "countries"
	EntityActors       = "actors"
	EntityUsers        = "users"
	EntitySeriesMovies = "series-movies"
	EntityMovieActors  = "movie-actors"
	EntityEpisodes     = "episodes"
)

// ErrNoTMDB is returned by TMDB-backed operations when no TMDB client is set.
var ErrNoTMDB = errors.New("tmdb is not configured")

type Options struct {
	// Snapshot is the fallback dataset. The bundled one is used when nil.
	Snapshot *snapshot.Snapshot
	// Remote is the catalog API. Without it every repository runs on the
	// fallback snapshot.
	Remote       *remote.Client
	Availability source.Availability
	TMDB         *tmdb.Client
	Logger       *slog.Logger
}

type Catalog struct {
	Movies    *repository.Store[int64, models.Movie]
	Series    *repository.Store[int64, models.Series]
	Genres    *repository.Store[int64, models.Genre]
	Countries *repository.Store[int64, models.Country]
	Actors    *repository.Store[int64, models.Actor]
	Users     *repository.Store[string, models.User]
	Relations *relations.Manager

	joins  relations.Sources
	remote *remote.Client
	avail  source.Availability
	tmdb   *tmdb.Client
	logger *slog.Logger
	now    func() time.Time

	countsMu    sync.Mutex
	counts      atomic.Pointer[Counts]
	suggestions query.Latest[[]models.Actor]
}

func New(opts Options) (*Catalog, error) {
	snap := opts.Snapshot
	if snap == nil {
		var err error
		if snap, err = snapshot.Load(); err != nil {
			return nil, fmt.Errorf("failed to load fallback snapshot: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rc, avail := opts.Remote, opts.Availability

	c := &Catalog{
		Movies: repository.New(movieDescriptor(),
			source.New(EntityMovies, source.FromRemote(rc, EntityMovies, source.MapMovie), snap.Movies, avail, logger), logger),
		Series: repository.New(seriesDescriptor(),
			source.New(EntitySeries, source.FromRemote(rc, EntitySeries, source.MapSeries), snap.Series, avail, logger), logger),
		Genres: repository.New(genreDescriptor(),
			source.New(EntityGenres, source.FromRemote(rc, EntityGenres, source.MapGenre), snap.Genres, avail, logger), logger),
		Countries: repository.New(countryDescriptor(),
			source.New(EntityCountries, source.FromRemote(rc, EntityCountries, source.MapCountry), snap.Countries, avail, logger), logger),
		Actors: repository.New(actorDescriptor(),
			source.New(EntityActors, source.FromRemote(rc, EntityActors, source.MapActor), snap.Actors, avail, logger), logger),
		Users: repository.New(userDescriptor(),
			source.New(EntityUsers, source.FromRemote(rc, EntityUsers, source.MapUser), snap.Users, avail, logger), logger),
		joins: relations.Sources{
			SeriesMovies: source.New(EntitySeriesMovies, source.FromRemote(rc, EntitySeriesMovies, source.MapSeriesMovie), snap.SeriesMovies, avail, logger),
			MovieActors:  source.New(EntityMovieActors, source.FromRemote(rc, EntityMovieActors, source.MapMovieActor), snap.MovieActors, avail, logger),
			Episodes:     source.New(EntityEpisodes, source.FromRemote(rc, EntityEpisodes, source.MapEpisode), snap.Episodes, avail, logger),
		},
		remote: rc,
		avail:  avail,
		tmdb:   opts.TMDB,
		logger: logger,
		now:    time.Now,
	}
	c.Relations = relations.NewManager(c.Movies, c.Actors, c.Series, c.joins, logger)
	c.Genres.OnDelete(c.genreDeleted)
	c.Countries.OnDelete(c.countryDeleted)
	c.counts.Store(&Counts{Genres: map[int64]int{}, Countries: map[int64]int{}})
	return c, nil
}

// SetClock replaces the time source of every repository.
func (c *Catalog) SetClock(now func() time.Time) {
	c.now = now
	c.Movies.SetClock(now)
	c.Series.SetClock(now)
	c.Genres.SetClock(now)
	c.Countries.SetClock(now)
	c.Actors.SetClock(now)
	c.Users.SetClock(now)
	c.Relations.SetClock(now)
}

// Initialize loads every repository, then the join tables, then the derived
// counts. Remote failures fall back silently and show up in the returned
// statuses.
func (c *Catalog) Initialize(ctx context.Context) []types.SourceStatus {
	return c.load(ctx, false)
}

// Reload drops every cached load and fetches again, so a changed
// availability flag takes effect. Local changes not on the remote are lost.
func (c *Catalog) Reload(ctx context.Context) []types.SourceStatus {
	return c.load(ctx, true)
}

func (c *Catalog) load(ctx context.Context, refresh bool) []types.SourceStatus {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { loadStore(gctx, c.Movies, refresh); return nil })
	g.Go(func() error { loadStore(gctx, c.Series, refresh); return nil })
	g.Go(func() error { loadStore(gctx, c.Genres, refresh); return nil })
	g.Go(func() error { loadStore(gctx, c.Countries, refresh); return nil })
	g.Go(func() error { loadStore(gctx, c.Actors, refresh); return nil })
	g.Go(func() error { loadStore(gctx, c.Users, refresh); return nil })
	_ = g.Wait()

	if refresh {
		c.joins.SeriesMovies.Refresh()
		c.joins.MovieActors.Refresh()
		c.joins.Episodes.Refresh()
	}
	c.Relations.Initialize(ctx)
	c.refreshCounts()
	return c.Status()
}

func loadStore[K cmp.Ordered, T any](ctx context.Context, s *repository.Store[K, T], refresh bool) {
	if refresh {
		s.Reload(ctx)
		return
	}
	s.Initialize(ctx)
}

// Targets lists everything the sync orchestrator can refresh. Syncing
// movies, genres or countries also republishes the counts.
func (c *Catalog) Targets() []syncer.Target {
	return []syncer.Target{
		countedTarget{Target: c.Movies, c: c},
		c.Series,
		countedTarget{Target: c.Genres, c: c},
		countedTarget{Target: c.Countries, c: c},
		c.Actors,
		c.Users,
		c.Relations,
	}
}

// Status reports where each repository and join table was loaded from.
func (c *Catalog) Status() []types.SourceStatus {
	out := []types.SourceStatus{
		storeStatus(c.Movies),
		storeStatus(c.Series),
		storeStatus(c.Genres),
		storeStatus(c.Countries),
		storeStatus(c.Actors),
		storeStatus(c.Users),
		sourceStatus(c.joins.SeriesMovies),
		sourceStatus(c.joins.MovieActors),
		sourceStatus(c.joins.Episodes),
	}
	return out
}

type statusSource interface {
	Name() string
	Origin() source.Origin
	Reason() error
}

type countedSource interface {
	statusSource
	Len() int
}

func storeStatus(s countedSource) types.SourceStatus {
	st := sourceStatus(s)
	st.Count = s.Len()
	return st
}

func sourceStatus(s statusSource) types.SourceStatus {
	st := types.SourceStatus{Entity: s.Name(), Origin: s.Origin().String()}
	if err := s.Reason(); err != nil {
		st.Reason = err.Error()
	}
	return st
}

func (c *Catalog) ListMovies(opts query.Options) query.Page[models.Movie] {
	return query.Run(c.Movies.GetAll(), movieSchema, opts)
}

func (c *Catalog) ListSeries(opts query.Options) query.Page[models.Series] {
	return query.Run(c.Series.GetAll(), seriesSchema, opts)
}

func (c *Catalog) ListGenres(opts query.Options) query.Page[models.Genre] {
	return query.Run(c.Genres.GetAll(), genreSchema, opts)
}

func (c *Catalog) ListCountries(opts query.Options) query.Page[models.Country] {
	return query.Run(c.Countries.GetAll(), countrySchema, opts)
}

func (c *Catalog) ListActors(opts query.Options) query.Page[models.Actor] {
	return query.Run(c.Actors.GetAll(), actorSchema, opts)
}

func (c *Catalog) ListUsers(opts query.Options) query.Page[models.User] {
	return query.Run(c.Users.GetAll(), userSchema, opts)
}

// ValidateListing reports sort or filter fields the entity does not have.
func ValidateListing(entity string, opts query.Options) error {
	switch entity {
	case EntityMovies:
		return movieSchema.Validate(opts)
	case EntitySeries:
		return seriesSchema.Validate(opts)
	case EntityGenres:
		return genreSchema.Validate(opts)
	case EntityCountries:
		return countrySchema.Validate(opts)
	case EntityActors:
		return actorSchema.Validate(opts)
	case EntityUsers:
		return userSchema.Validate(opts)
	default:
		return fmt.Errorf("unknown entity %q", entity)
	}
}
