package relations

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

	"github.com/icco/catalog/lib/source"
	"github.com/icco/catalog/models"
)

var (
	ErrMovieNotFound   = errors.New("movie not found")
	ErrSeriesNotFound  = errors.New("series not found")
	ErrActorNotFound   = errors.New("actor not found")
	ErrEpisodeNotFound = errors.New("episode not found")
	ErrDuplicateEdge   = errors.New("edge already exists")
	ErrNotEpisodic     = errors.New("movie type does not carry episodes")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Entities is the read side of an entity repository the manager joins
// against, plus its delete hook.
type Entities[T any] interface {
	GetByID(id int64) (T, bool)
	OnDelete(func(id int64))
}

// Sources feed the join tables. Nil adapters start empty.
type Sources struct {
	SeriesMovies *source.Adapter[models.SeriesMovie]
	MovieActors  *source.Adapter[models.MovieActor]
	Episodes     *source.Adapter[models.Episode]
}

// Admission is the outcome of episode admission control. A rejected episode
// names the existing episode that already holds its (server, number) pair.
type Admission struct {
	Episode    models.Episode
	Admitted   bool
	ConflictID int64
}

// Manager owns the join records between entities: ordered series entries,
// cast edges and per-movie episode lists.
type Manager struct {
	movies Entities[models.Movie]
	actors Entities[models.Actor]
	series Entities[models.Series]
	src    Sources
	logger *slog.Logger
	now    func() time.Time

	mu           sync.RWMutex
	seriesMovies map[int64][]models.SeriesMovie
	movieActors  []models.MovieActor
	episodes     map[int64][]models.Episode
	lastEpisode  int64
}

// NewManager builds a manager and registers its delete cascades on the
// given repositories.
func NewManager(movies Entities[models.Movie], actors Entities[models.Actor], series Entities[models.Series], src Sources, logger *slog.Logger) *Manager {
	m := &Manager{
		movies:       movies,
		actors:       actors,
		series:       series,
		src:          src,
		logger:       logger,
		now:          time.Now,
		seriesMovies: map[int64][]models.SeriesMovie{},
		episodes:     map[int64][]models.Episode{},
	}
	movies.OnDelete(m.movieDeleted)
	actors.OnDelete(m.actorDeleted)
	series.OnDelete(m.seriesDeleted)
	return m
}

func (m *Manager) Name() string { return "relations" }

// SetClock replaces the time source used for episode creation times.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Initialize loads every join table through its adapter.
func (m *Manager) Initialize(ctx context.Context) {
	sm := load(ctx, m.src.SeriesMovies)
	ma := load(ctx, m.src.MovieActors)
	ep := load(ctx, m.src.Episodes)
	m.Replace(sm.Items, ma.Items, ep.Items)
}

// Sync fetches all join tables from the remote source and swaps them in only
// when every fetch succeeded.
func (m *Manager) Sync(ctx context.Context) (int, error) {
	if m.src.SeriesMovies == nil || m.src.MovieActors == nil || m.src.Episodes == nil {
		return 0, fmt.Errorf("failed to sync relations: %w", source.ErrNoRemote)
	}
	sm := m.src.SeriesMovies.Fetch(ctx)
	if !sm.Ok() {
		return 0, fmt.Errorf("failed to sync series movies: %w", sm.Reason)
	}
	ma := m.src.MovieActors.Fetch(ctx)
	if !ma.Ok() {
		return 0, fmt.Errorf("failed to sync movie actors: %w", ma.Reason)
	}
	ep := m.src.Episodes.Fetch(ctx)
	if !ep.Ok() {
		return 0, fmt.Errorf("failed to sync episodes: %w", ep.Reason)
	}
	m.src.SeriesMovies.Commit(sm)
	m.src.MovieActors.Commit(ma)
	m.src.Episodes.Commit(ep)
	m.Replace(sm.Items, ma.Items, ep.Items)
	return len(sm.Items) + len(ma.Items) + len(ep.Items), nil
}

// Replace swaps every join table. Series entries are renumbered 1..N in
// season order, duplicate cast edges and clashing episodes are dropped.
func (m *Manager) Replace(seriesMovies []models.SeriesMovie, movieActors []models.MovieActor, episodes []models.Episode) {
	bySeries := map[int64][]models.SeriesMovie{}
	for _, e := range seriesMovies {
		if slices.ContainsFunc(bySeries[e.SeriesID], func(x models.SeriesMovie) bool { return x.MovieID == e.MovieID }) {
			continue
		}
		bySeries[e.SeriesID] = append(bySeries[e.SeriesID], e)
	}
	for id, list := range bySeries {
		slices.SortStableFunc(list, func(a, b models.SeriesMovie) int { return cmp.Compare(a.SeasonNumber, b.SeasonNumber) })
		renumber(list)
		bySeries[id] = list
	}

	var cast []models.MovieActor
	for _, e := range movieActors {
		if slices.ContainsFunc(cast, func(x models.MovieActor) bool { return x.MovieID == e.MovieID && x.ActorID == e.ActorID }) {
			continue
		}
		cast = append(cast, e)
	}

	byMovie := map[int64][]models.Episode{}
	var last int64
	for _, e := range episodes {
		last = max(last, e.ID)
		e.ServerName = strings.TrimSpace(e.ServerName)
		if i := conflictIndex(byMovie[e.MovieID], e, 0); i >= 0 {
			m.logger.Warn("Dropping clashing episode",
				slog.Int64("movie_id", e.MovieID),
				slog.Int64("episode_id", e.ID),
				slog.Int64("conflict_id", byMovie[e.MovieID][i].ID))
			continue
		}
		byMovie[e.MovieID] = append(byMovie[e.MovieID], e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seriesMovies = bySeries
	m.movieActors = cast
	m.episodes = byMovie
	m.lastEpisode = last
}

// MovieDetail joins a movie with its episodes, cast and series membership.
func (m *Manager) MovieDetail(movieID int64) (models.MovieDetail, error) {
	movie, ok := m.movies.GetByID(movieID)
	if !ok {
		return models.MovieDetail{}, ErrMovieNotFound
	}
	return models.MovieDetail{
		Movie:    movie,
		Episodes: m.Episodes(movieID),
		Cast:     m.MovieCast(movieID),
		Series:   m.MovieSeries(movieID),
	}, nil
}

// SeriesMovies returns the entries of a series joined with their movies,
// ordered by season. Entries whose movie is missing are skipped.
func (m *Manager) SeriesMovies(seriesID int64) ([]models.SeriesEntry, error) {
	if _, ok := m.series.GetByID(seriesID); !ok {
		return nil, ErrSeriesNotFound
	}
	m.mu.RLock()
	edges := slices.Clone(m.seriesMovies[seriesID])
	m.mu.RUnlock()

	out := make([]models.SeriesEntry, 0, len(edges))
	for _, e := range edges {
		movie, ok := m.movies.GetByID(e.MovieID)
		if !ok {
			continue
		}
		out = append(out, models.SeriesEntry{SeriesMovie: e, Movie: movie})
	}
	return out, nil
}

// MovieSeries lists the series a movie belongs to.
func (m *Manager) MovieSeries(movieID int64) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for sid, list := range m.seriesMovies {
		if slices.ContainsFunc(list, func(e models.SeriesMovie) bool { return e.MovieID == movieID }) {
			ids = append(ids, sid)
		}
	}
	slices.Sort(ids)
	return ids
}

// AddSeriesMovie appends a movie as the last season of a series.
func (m *Manager) AddSeriesMovie(seriesID, movieID int64) (models.SeriesMovie, error) {
	if _, ok := m.series.GetByID(seriesID); !ok {
		return models.SeriesMovie{}, ErrSeriesNotFound
	}
	if _, ok := m.movies.GetByID(movieID); !ok {
		return models.SeriesMovie{}, ErrMovieNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.seriesMovies[seriesID]
	if slices.ContainsFunc(list, func(e models.SeriesMovie) bool { return e.MovieID == movieID }) {
		return models.SeriesMovie{}, ErrDuplicateEdge
	}
	edge := models.SeriesMovie{SeriesID: seriesID, MovieID: movieID, SeasonNumber: len(list) + 1}
	m.seriesMovies[seriesID] = append(list, edge)
	return edge, nil
}

// RemoveSeriesMovie drops a movie from a series and closes the season gap.
func (m *Manager) RemoveSeriesMovie(seriesID, movieID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeSeriesMovie(seriesID, movieID)
}

func (m *Manager) removeSeriesMovie(seriesID, movieID int64) bool {
	list := m.seriesMovies[seriesID]
	i := slices.IndexFunc(list, func(e models.SeriesMovie) bool { return e.MovieID == movieID })
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	renumber(list)
	m.storeSeries(seriesID, list)
	return true
}

// ReorderSeriesMovies moves the entry at index from to index to and
// renumbers every season to its new position.
func (m *Manager) ReorderSeriesMovies(seriesID int64, from, to int) ([]models.SeriesMovie, error) {
	if _, ok := m.series.GetByID(seriesID); !ok {
		return nil, ErrSeriesNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := slices.Clone(m.seriesMovies[seriesID])
	if !inRange(from, len(list)) || !inRange(to, len(list)) {
		return nil, ErrIndexOutOfRange
	}
	list = move(list, from, to)
	renumber(list)
	m.seriesMovies[seriesID] = list
	return slices.Clone(list), nil
}

// AddMovieActor links an actor to a movie. Each pair may be linked once.
func (m *Manager) AddMovieActor(movieID, actorID int64, character string) (models.MovieActor, error) {
	if _, ok := m.movies.GetByID(movieID); !ok {
		return models.MovieActor{}, ErrMovieNotFound
	}
	if _, ok := m.actors.GetByID(actorID); !ok {
		return models.MovieActor{}, ErrActorNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.castIndex(movieID, actorID) >= 0 {
		return models.MovieActor{}, ErrDuplicateEdge
	}
	edge := models.MovieActor{MovieID: movieID, ActorID: actorID, CharacterName: strings.TrimSpace(character)}
	m.movieActors = append(m.movieActors, edge)
	return edge, nil
}

// UpdateMovieActor renames the character an actor plays in a movie.
func (m *Manager) UpdateMovieActor(movieID, actorID int64, character string) (models.MovieActor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.castIndex(movieID, actorID)
	if i < 0 {
		return models.MovieActor{}, false
	}
	m.movieActors[i].CharacterName = strings.TrimSpace(character)
	return m.movieActors[i], true
}

func (m *Manager) RemoveMovieActor(movieID, actorID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.castIndex(movieID, actorID)
	if i < 0 {
		return false
	}
	m.movieActors = slices.Delete(m.movieActors, i, i+1)
	return true
}

// MovieCast returns the cast edges of a movie joined with their actors.
func (m *Manager) MovieCast(movieID int64) []models.CastMember {
	m.mu.RLock()
	var edges []models.MovieActor
	for _, e := range m.movieActors {
		if e.MovieID == movieID {
			edges = append(edges, e)
		}
	}
	m.mu.RUnlock()

	out := make([]models.CastMember, 0, len(edges))
	for _, e := range edges {
		actor, ok := m.actors.GetByID(e.ActorID)
		if !ok {
			continue
		}
		out = append(out, models.CastMember{MovieActor: e, Actor: actor})
	}
	return out
}

// ActorMovies returns the cast edges of an actor.
func (m *Manager) ActorMovies(actorID int64) []models.MovieActor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.MovieActor
	for _, e := range m.movieActors {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out
}

// Episodes returns the episodes of a movie in list order.
func (m *Manager) Episodes(movieID int64) []models.Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.episodes[movieID])
}

func (m *Manager) HasEpisodes(movieID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.episodes[movieID]) > 0
}

// AddEpisode admits a new episode unless another episode of the movie already
// uses the same server name and episode number.
func (m *Manager) AddEpisode(movieID int64, ep models.Episode) (Admission, error) {
	movie, ok := m.movies.GetByID(movieID)
	if !ok {
		return Admission{}, ErrMovieNotFound
	}
	if !movie.Type.IsEpisodic() {
		return Admission{}, ErrNotEpisodic
	}
	ep.MovieID = movieID
	ep.ServerName = strings.TrimSpace(ep.ServerName)

	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.episodes[movieID]
	if i := conflictIndex(list, ep, 0); i >= 0 {
		return Admission{Episode: ep, ConflictID: list[i].ID}, nil
	}
	m.lastEpisode++
	ep.ID = m.lastEpisode
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = m.now()
	}
	m.episodes[movieID] = append(list, ep)
	return Admission{Episode: ep, Admitted: true}, nil
}

// UpdateEpisode applies patch to an episode, rejecting it when the result
// would clash with another episode of the same movie.
func (m *Manager) UpdateEpisode(movieID, episodeID int64, patch models.EpisodePatch) (Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.episodes[movieID]
	i := slices.IndexFunc(list, func(e models.Episode) bool { return e.ID == episodeID })
	if i < 0 {
		return Admission{}, ErrEpisodeNotFound
	}
	updated := list[i]
	patch.Apply(&updated)
	updated.ServerName = strings.TrimSpace(updated.ServerName)
	if j := conflictIndex(list, updated, episodeID); j >= 0 {
		return Admission{Episode: updated, ConflictID: list[j].ID}, nil
	}
	list[i] = updated
	return Admission{Episode: updated, Admitted: true}, nil
}

func (m *Manager) RemoveEpisode(movieID, episodeID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.episodes[movieID]
	i := slices.IndexFunc(list, func(e models.Episode) bool { return e.ID == episodeID })
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(m.episodes, movieID)
	} else {
		m.episodes[movieID] = list
	}
	return true
}

// ReorderEpisodes moves an episode within its server group. Episode numbers
// are kept as authored. Moves across server groups or out of range are
// ignored and report false.
func (m *Manager) ReorderEpisodes(movieID int64, from, to int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.episodes[movieID]
	if !inRange(from, len(list)) || !inRange(to, len(list)) {
		return false
	}
	if !sameServer(list[from].ServerName, list[to].ServerName) {
		return false
	}
	m.episodes[movieID] = move(slices.Clone(list), from, to)
	return true
}

// EpisodeCounts returns the number of episodes of every movie that has any.
func (m *Manager) EpisodeCounts() map[int64]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]int, len(m.episodes))
	for id, list := range m.episodes {
		out[id] = len(list)
	}
	return out
}

func (m *Manager) movieDeleted(movieID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.episodes, movieID)
	m.movieActors = slices.DeleteFunc(m.movieActors, func(e models.MovieActor) bool { return e.MovieID == movieID })
	for sid := range m.seriesMovies {
		m.removeSeriesMovie(sid, movieID)
	}
}

func (m *Manager) actorDeleted(actorID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movieActors = slices.DeleteFunc(m.movieActors, func(e models.MovieActor) bool { return e.ActorID == actorID })
}

func (m *Manager) seriesDeleted(seriesID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seriesMovies, seriesID)
}

func (m *Manager) storeSeries(seriesID int64, list []models.SeriesMovie) {
	if len(list) == 0 {
		delete(m.seriesMovies, seriesID)
		return
	}
	m.seriesMovies[seriesID] = list
}

func (m *Manager) castIndex(movieID, actorID int64) int {
	return slices.IndexFunc(m.movieActors, func(e models.MovieActor) bool {
		return e.MovieID == movieID && e.ActorID == actorID
	})
}

// conflictIndex finds another episode holding ep's (server, number) pair.
func conflictIndex(list []models.Episode, ep models.Episode, exclude int64) int {
	return slices.IndexFunc(list, func(e models.Episode) bool {
		return (exclude == 0 || e.ID != exclude) &&
			e.EpisodeNumber == ep.EpisodeNumber &&
			sameServer(e.ServerName, ep.ServerName)
	})
}

// sameServer reports whether two server names name one server group. Names
// are trimmed and compared case-insensitively.
func sameServer(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func renumber(list []models.SeriesMovie) {
	for i := range list {
		list[i].SeasonNumber = i + 1
	}
}

func move[T any](list []T, from, to int) []T {
	item := list[from]
	list = slices.Delete(list, from, from+1)
	return slices.Insert(list, to, item)
}

func inRange(i, n int) bool { return i >= 0 && i < n }

func load[T any](ctx context.Context, a *source.Adapter[T]) source.Result[T] {
	if a == nil {
		return source.Result[T]{}
	}
	return a.Load(ctx)
}
