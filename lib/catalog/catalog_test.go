package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/catalog/lib/lock"
	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/relations"
	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/lib/source"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/lib/tmdb"
	"github.com/icco/catalog/lib/validation"
	"github.com/icco/catalog/models"
)

var fixedNow = time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCatalog(t *testing.T, opts Options) *Catalog {
	t.Helper()
	opts.Logger = testLogger()
	c, err := New(opts)
	require.NoError(t, err)
	c.SetClock(func() time.Time { return fixedNow })
	c.Initialize(context.Background())
	return c
}

func ptr[T any](v T) *T { return &v }

func TestInitializeFallsBackWithoutRemote(t *testing.T) {
	c := newCatalog(t, Options{})

	for _, st := range c.Status() {
		assert.Equal(t, "fallback", st.Origin, st.Entity)
		assert.Equal(t, source.ErrNoRemote.Error(), st.Reason, st.Entity)
	}
	assert.Equal(t, 7, c.Movies.Len())
	assert.Equal(t, 4, c.Counts().Genres[1])
	assert.Equal(t, 2, c.Counts().Countries[2])
	assert.Len(t, c.Relations.Episodes(5), 3)
}

func TestCreateMovie(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	m, err := c.CreateMovie(ctx, models.Movie{
		Title:     "  Người Nhện  ",
		Genres:    []models.Genre{{ID: 1}, {ID: 1}},
		Countries: []models.Country{{ID: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), m.ID)
	assert.Equal(t, "Người Nhện", m.Title)
	assert.Equal(t, "nguoi-nhen", m.Slug)
	assert.Equal(t, models.TypeSingle, m.Type)
	assert.Equal(t, fixedNow, m.CreatedAt)
	assert.Equal(t, fixedNow, m.ModifiedAt)
	if diff := cmp.Diff([]models.Genre{{ID: 1, Name: "Action"}}, m.Genres); diff != "" {
		t.Errorf("genres mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 5, c.Counts().Genres[1])
}

func TestCreateMovieConflicts(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	_, err := c.CreateMovie(ctx, models.Movie{Title: "the matrix"})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "title", ce.Field)
	assert.Equal(t, "the matrix", ce.Value)

	_, err = c.CreateMovie(ctx, models.Movie{Title: "New", Genres: []models.Genre{{ID: 99}}})
	assert.ErrorIs(t, err, ErrUnknownReference)

	_, err = c.CreateMovie(ctx, models.Movie{Title: ""})
	var fe *validation.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "title", fe.Field)
	assert.Equal(t, 7, c.Movies.Len())
}

func TestUpdateMovie(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()
	later := fixedNow.Add(time.Hour)
	c.SetClock(func() time.Time { return later })

	m, ok, err := c.UpdateMovie(ctx, 4, models.MoviePatch{Title: ptr("Sen to Chihiro")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sen-to-chihiro", m.Slug)
	assert.Equal(t, later, m.ModifiedAt)

	_, ok, err = c.UpdateMovie(ctx, 4, models.MoviePatch{Title: ptr("THE MATRIX")})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.True(t, ok)

	// Keeping its own title is not a conflict.
	_, _, err = c.UpdateMovie(ctx, 1, models.MoviePatch{Title: ptr("The Matrix")})
	assert.NoError(t, err)

	_, ok, err = c.UpdateMovie(ctx, 404, models.MoviePatch{Title: ptr("Gone")})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMovieTypeChangeWithEpisodesIsRejected(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	_, _, err := c.UpdateMovie(ctx, 5, models.MoviePatch{Type: ptr(models.TypeSingle)})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "type", ce.Field)
	assert.Equal(t, models.TypeSeries, mustMovie(t, c, 5).Type)

	// Series to animation keeps episodes meaningful.
	_, _, err = c.UpdateMovie(ctx, 5, models.MoviePatch{Type: ptr(models.TypeAnimation)})
	require.NoError(t, err)

	for _, ep := range c.Relations.Episodes(5) {
		require.True(t, c.RemoveEpisode(ctx, 5, ep.ID))
	}
	m, _, err := c.UpdateMovie(ctx, 5, models.MoviePatch{Type: ptr(models.TypeSingle)})
	require.NoError(t, err)
	assert.Equal(t, models.TypeSingle, m.Type)
}

func mustMovie(t *testing.T, c *Catalog, id int64) models.Movie {
	t.Helper()
	m, ok := c.Movies.GetByID(id)
	require.True(t, ok)
	return m
}

func TestDeleteMovieCascades(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	require.True(t, c.DeleteMovie(ctx, 1))
	_, ok := c.Movies.GetByID(1)
	assert.False(t, ok)
	assert.False(t, c.DeleteMovie(ctx, 1))

	entries, err := c.Relations.SeriesMovies(1)
	require.NoError(t, err)
	var got []models.SeriesMovie
	for _, e := range entries {
		got = append(got, e.SeriesMovie)
	}
	want := []models.SeriesMovie{
		{SeriesID: 1, MovieID: 2, SeasonNumber: 1},
		{SeriesID: 1, MovieID: 3, SeasonNumber: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("series entries mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, c.Relations.ActorMovies(1), 2)
	assert.Equal(t, 3, c.Counts().Genres[1])
}

func TestDeleteGenreDropsItFromMovies(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	before := mustMovie(t, c, 1)
	c.Movies.SetClock(func() time.Time { return fixedNow.Add(time.Hour) })
	require.True(t, c.DeleteGenre(ctx, 1))
	assert.Equal(t, []models.Genre{{ID: 5, Name: "Science Fiction"}}, mustMovie(t, c, 1).Genres)
	assert.Equal(t, before.ModifiedAt, mustMovie(t, c, 1).ModifiedAt)
	assert.Zero(t, c.Counts().Genres[1])
	assert.Equal(t, 3, c.Counts().Genres[5])
}

func TestUpdateGenreRenamesEmbeddedCopies(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()
	c.Movies.SetClock(func() time.Time { return fixedNow.Add(time.Hour) })
	before := mustMovie(t, c, 2)

	_, ok, err := c.UpdateGenre(ctx, 5, models.GenrePatch{Name: ptr("Sci-Fi")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, mustMovie(t, c, 2).Genres, models.Genre{ID: 5, Name: "Sci-Fi"})
	assert.Equal(t, before.ModifiedAt, mustMovie(t, c, 2).ModifiedAt)

	_, _, err = c.UpdateGenre(ctx, 5, models.GenrePatch{Name: ptr("drama")})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "genre", ce.Entity)
}

func TestUserUniqueness(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	u, err := c.CreateUser(ctx, models.User{Username: "thu.ha", Email: "thu@example.com"})
	require.NoError(t, err)
	assert.Len(t, u.ID, 36)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, fixedNow, u.CreatedAt)

	_, err = c.CreateUser(ctx, models.User{Username: "ADMIN", Email: "other@example.com"})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "username", ce.Field)

	_, err = c.CreateUser(ctx, models.User{Username: "another", Email: "Hana@Example.com"})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "email", ce.Field)

	_, _, err = c.UpdateUser(ctx, u.ID, models.UserPatch{Email: ptr("linh@example.com")})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "email", ce.Field)

	_, ok, err := c.UpdateUser(ctx, u.ID, models.UserPatch{Email: ptr("thu@example.com")})
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestActorTMDBUniqueness(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	_, err := c.CreateActor(ctx, models.Actor{Name: "Keanu Again", TMDBID: ptr(int64(6384))})
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "tmdbId", ce.Field)
	assert.Equal(t, int64(6384), ce.Value)

	a, err := c.CreateActor(ctx, models.Actor{Name: "Hugo Weaving", TMDBID: ptr(int64(1331))})
	require.NoError(t, err)
	assert.Equal(t, models.GenderUnknown, a.Gender)

	_, _, err = c.UpdateActor(ctx, a.ID, models.ActorPatch{TMDBID: ptr(int64(530))})
	require.True(t, errors.As(err, &ce))
}

func TestAddEpisodeAdmission(t *testing.T) {
	c := newCatalog(t, Options{})
	ctx := context.Background()

	adm, err := c.AddEpisode(ctx, 5, models.Episode{EpisodeNumber: 1, ServerName: " vietsub "})
	require.NoError(t, err)
	assert.False(t, adm.Admitted)
	assert.Equal(t, int64(1), adm.ConflictID)

	adm, err = c.AddEpisode(ctx, 5, models.Episode{EpisodeNumber: 1, ServerName: "Backup"})
	require.NoError(t, err)
	assert.True(t, adm.Admitted)
	assert.Equal(t, fixedNow, adm.Episode.CreatedAt)

	_, err = c.AddEpisode(ctx, 5, models.Episode{EpisodeNumber: 3})
	var fe *validation.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "serverName", fe.Field)

	_, err = c.AddEpisode(ctx, 1, models.Episode{EpisodeNumber: 1, ServerName: "A"})
	assert.ErrorIs(t, err, relations.ErrNotEpisodic)
}

func TestListUsersByGenderAndRole(t *testing.T) {
	c := newCatalog(t, Options{})

	page := c.ListUsers(query.Options{Filters: map[string]string{"gender": "female", "role": "admin"}})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "linh.nguyen", page.Items[0].Username)

	page = c.ListUsers(query.Options{Filters: map[string]string{"gender": "female", "role": query.All}})
	assert.Equal(t, 2, page.Total)
}

func TestListMoviesSortAndPage(t *testing.T) {
	c := newCatalog(t, Options{})

	page := c.ListMovies(query.Options{Query: "matrix", Sort: "releaseYear", Order: query.Desc, Page: 1, Size: 2})
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 2)
	// 2003 ties keep their original order.
	assert.Equal(t, int64(2), page.Items[0].ID)
	assert.Equal(t, int64(3), page.Items[1].ID)

	assert.Error(t, ValidateListing(EntityMovies, query.Options{Sort: "nope"}))
	assert.NoError(t, ValidateListing(EntityUsers, query.Options{Filters: map[string]string{"role": "admin"}}))
}

func TestStats(t *testing.T) {
	c := newCatalog(t, Options{})
	s := c.Stats()

	assert.Equal(t, 7, s.TotalMovies)
	assert.Equal(t, 5, s.TotalSingle)
	assert.Equal(t, 1, s.TotalSeriesMovies)
	assert.Equal(t, 1, s.TotalAnimation)
	assert.Equal(t, 5, s.TotalEpisodes)
	require.NotEmpty(t, s.GenreDistribution)
	assert.Equal(t, "Action", s.GenreDistribution[0].Name)
	assert.Equal(t, 4, s.GenreDistribution[0].Count)
	assert.Len(t, s.Sources, 9)
}

func remoteCatalog(t *testing.T, handler http.HandlerFunc) *Catalog {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rc := remote.NewClient(srv.URL, 50, time.Second, nil, testLogger())
	return newCatalog(t, Options{Remote: rc, Availability: source.Static(true)})
}

func newOrchestrator(c *Catalog) *syncer.Orchestrator {
	o := syncer.New(lock.NewBusy(testLogger()), testLogger())
	for _, target := range c.Targets() {
		o.Register(target)
	}
	return o
}

func TestFailedSyncLeavesCountsUnchanged(t *testing.T) {
	c := remoteCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	o := newOrchestrator(c)

	before := c.Counts()
	movies := c.Movies.GetAll()

	r, ran, err := o.Sync(context.Background(), EntityMovies)
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, syncer.StatusFailed, r.Status)
	assert.Same(t, before, c.Counts())
	if diff := cmp.Diff(movies, c.Movies.GetAll()); diff != "" {
		t.Errorf("movies changed after failed sync (-before +after):\n%s", diff)
	}
}

func TestSyncReplacesMoviesAndCounts(t *testing.T) {
	c := remoteCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movies" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"result":{"content":[
			{"id":41,"name":"Parasite","year":2019,"type":"single","categories":[{"id":2,"name":"Drama"}],"countries":[{"id":3,"name":"South Korea"}]}
		],"totalPages":1,"number":0,"size":50,"last":true}}`)
	})
	o := newOrchestrator(c)
	before := c.Counts()

	r, _, err := o.Sync(context.Background(), EntityMovies)
	require.NoError(t, err)
	require.Equal(t, syncer.StatusSuccess, r.Status)
	assert.Equal(t, "Synced 1 movies", r.Message)

	assert.NotSame(t, before, c.Counts())
	assert.Equal(t, 1, c.Counts().Genres[2])
	assert.Zero(t, c.Counts().Genres[1])
	m := mustMovie(t, c, 41)
	assert.Equal(t, "parasite", m.Slug)
	assert.Equal(t, "remote", c.Movies.Origin().String())
}

func TestCountsPublishedBeforeSyncSucceeds(t *testing.T) {
	c := remoteCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"content":[
			{"id":41,"name":"Parasite","year":2019,"type":"single","categories":[{"id":2,"name":"Drama"}]}
		],"totalPages":1,"number":0,"size":50,"last":true}}`)
	})
	o := newOrchestrator(c)

	var seen *Counts
	var status syncer.Status
	o.AfterSync(func(_ context.Context, r syncer.Report) {
		seen = c.Counts()
		if cur, err := o.Status(r.Target); err == nil {
			status = cur.Status
		}
	})

	r, _, err := o.Sync(context.Background(), EntityMovies)
	require.NoError(t, err)
	require.Equal(t, syncer.StatusSuccess, r.Status)
	require.NotNil(t, seen)
	assert.Equal(t, syncer.StatusSyncing, status)
	assert.Equal(t, 1, seen.Genres[2])
	assert.Zero(t, seen.Genres[1])
	assert.Same(t, seen, c.Counts())
}

func TestImportMoviesCreatesMissingGenres(t *testing.T) {
	c := newCatalog(t, Options{})

	res, err := c.ImportMovies(context.Background(), []models.MovieDraft{
		{Movie: models.Movie{Title: "Perfect Blue", ReleaseYear: 1997, Type: models.TypeAnimation}, GenreNames: []string{"animation", "Thriller"}},
		{Movie: models.Movie{Title: "The Matrix"}, GenreNames: []string{"Action"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, []string{"The Matrix"}, res.Skipped)

	names := []string{}
	for _, g := range res.Created[0].Genres {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"Animation", "Thriller"}, names)
	assert.True(t, c.Genres.CheckNameExists("thriller", nil))
}

func TestImportActor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/person/1331":
			fmt.Fprint(w, `{"id":1331,"name":"Hugo Weaving","gender":2,"also_known_as":["Hugo Wallace Weaving"],"profile_path":"/hugo.jpg"}`)
		case "/search/person":
			fmt.Fprint(w, `{"results":[{"id":6384,"name":"Keanu Reeves","gender":2},{"id":99,"name":"Keanu Fan","gender":0}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newCatalog(t, Options{TMDB: tmdb.NewClientWithBaseURL("key", srv.URL, testLogger())})
	ctx := context.Background()

	a, err := c.ImportActor(ctx, 1331)
	require.NoError(t, err)
	assert.Equal(t, "Hugo Weaving", a.Name)
	assert.Equal(t, models.GenderMale, a.Gender)
	require.NotNil(t, a.TMDBID)
	assert.Equal(t, int64(1331), *a.TMDBID)

	_, err = c.ImportActor(ctx, 1331)
	var ce *ConflictError
	assert.True(t, errors.As(err, &ce))

	got, current := c.SuggestActors(ctx, "keanu")
	assert.True(t, current)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Keanu Fan", got[1].Name)
	assert.Zero(t, got[1].ID)
}

func TestImportActorWithoutTMDB(t *testing.T) {
	c := newCatalog(t, Options{})
	_, err := c.ImportActor(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoTMDB)
}

type toggle struct{ on atomic.Bool }

func (t *toggle) ServiceAvailable(context.Context) bool { return t.on.Load() }

func TestReloadHonorsAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"content":[],"totalPages":0,"number":0,"size":50,"last":true}}`)
	}))
	defer srv.Close()

	avail := &toggle{}
	avail.on.Store(true)
	c := newCatalog(t, Options{
		Remote:       remote.NewClient(srv.URL, 50, time.Second, nil, testLogger()),
		Availability: avail,
	})
	assert.Equal(t, source.OriginRemote, c.Movies.Origin())
	assert.Zero(t, c.Movies.Len())

	avail.on.Store(false)
	c.Reload(context.Background())
	assert.Equal(t, source.OriginFallback, c.Movies.Origin())
	assert.ErrorIs(t, c.Movies.Reason(), source.ErrUnavailable)
	assert.Equal(t, 7, c.Movies.Len())
}
