package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/icco/catalog/lib/relations"
	"github.com/icco/catalog/lib/validation"
	"github.com/icco/catalog/models"
)

// Mutations validate their input, enforce uniqueness and then change the
// owning repository. Not-found updates report false with a nil error.

func (c *Catalog) CreateMovie(ctx context.Context, m models.Movie) (models.Movie, error) {
	m.Title = strings.TrimSpace(m.Title)
	if err := validation.Struct(m); err != nil {
		return models.Movie{}, err
	}
	if c.Movies.CheckNameExists(m.Title, nil) {
		return models.Movie{}, conflict("movie", "title", m.Title)
	}
	var err error
	if m.Genres, err = resolve(m.Genres, genreID, c.Genres.GetByID, "genre"); err != nil {
		return models.Movie{}, err
	}
	if m.Countries, err = resolve(m.Countries, countryID, c.Countries.GetByID, "country"); err != nil {
		return models.Movie{}, err
	}

	created := c.Movies.Add(m)
	c.refreshCounts()
	c.mirror(ctx, mirrorCreate, EntityMovies, "", toRemoteMovie(created))
	return created, nil
}

// UpdateMovie applies a patch to a movie. A movie that still has episodes
// cannot become a single movie.
func (c *Catalog) UpdateMovie(ctx context.Context, id int64, p models.MoviePatch) (models.Movie, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.Movie{}, false, err
	}
	cur, ok := c.Movies.GetByID(id)
	if !ok {
		return models.Movie{}, false, nil
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
		if c.Movies.CheckNameExists(title, &id) {
			return models.Movie{}, true, conflict("movie", "title", title)
		}
	}
	if p.Type != nil && cur.Type.IsEpisodic() && !p.Type.IsEpisodic() && c.Relations.HasEpisodes(id) {
		return models.Movie{}, true, &ConflictError{
			Entity: "movie",
			Field:  "type",
			Value:  *p.Type,
			Reason: fmt.Sprintf("movie still has %d episodes", len(c.Relations.Episodes(id))),
		}
	}
	var err error
	if p.Genres != nil {
		if p.Genres, err = resolve(p.Genres, genreID, c.Genres.GetByID, "genre"); err != nil {
			return models.Movie{}, true, err
		}
	}
	if p.Countries != nil {
		if p.Countries, err = resolve(p.Countries, countryID, c.Countries.GetByID, "country"); err != nil {
			return models.Movie{}, true, err
		}
	}

	updated, ok := c.Movies.Update(id, p)
	if !ok {
		return models.Movie{}, false, nil
	}
	c.refreshCounts()
	c.mirror(ctx, mirrorUpdate, EntityMovies, itoa(id), toRemoteMovie(updated))
	return updated, true, nil
}

// DeleteMovie removes a movie together with its episodes, cast edges and
// series entries.
func (c *Catalog) DeleteMovie(ctx context.Context, id int64) bool {
	if !c.Movies.Delete(id) {
		return false
	}
	c.refreshCounts()
	c.mirror(ctx, mirrorDelete, EntityMovies, itoa(id), nil)
	return true
}

func (c *Catalog) CreateSeries(ctx context.Context, s models.Series) (models.Series, error) {
	s.Name = strings.TrimSpace(s.Name)
	if err := validation.Struct(s); err != nil {
		return models.Series{}, err
	}
	if c.Series.CheckNameExists(s.Name, nil) {
		return models.Series{}, conflict("series", "name", s.Name)
	}
	created := c.Series.Add(s)
	c.mirror(ctx, mirrorCreate, EntitySeries, "", created)
	return created, nil
}

func (c *Catalog) UpdateSeries(ctx context.Context, id int64, p models.SeriesPatch) (models.Series, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.Series{}, false, err
	}
	if !c.Series.Has(id) {
		return models.Series{}, false, nil
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if c.Series.CheckNameExists(name, &id) {
			return models.Series{}, true, conflict("series", "name", name)
		}
	}
	updated, ok := c.Series.Update(id, p)
	if ok {
		c.mirror(ctx, mirrorUpdate, EntitySeries, itoa(id), updated)
	}
	return updated, ok, nil
}

func (c *Catalog) DeleteSeries(ctx context.Context, id int64) bool {
	if !c.Series.Delete(id) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntitySeries, itoa(id), nil)
	return true
}

func (c *Catalog) CreateGenre(ctx context.Context, g models.Genre) (models.Genre, error) {
	g.Name = strings.TrimSpace(g.Name)
	if err := validation.Struct(g); err != nil {
		return models.Genre{}, err
	}
	if c.Genres.CheckNameExists(g.Name, nil) {
		return models.Genre{}, conflict("genre", "name", g.Name)
	}
	created := c.Genres.Add(g)
	c.mirror(ctx, mirrorCreate, EntityGenres, "", created)
	return created, nil
}

// UpdateGenre renames a genre and the copies of it embedded in movies.
func (c *Catalog) UpdateGenre(ctx context.Context, id int64, p models.GenrePatch) (models.Genre, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.Genre{}, false, err
	}
	if !c.Genres.Has(id) {
		return models.Genre{}, false, nil
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if c.Genres.CheckNameExists(name, &id) {
			return models.Genre{}, true, conflict("genre", "name", name)
		}
	}
	updated, ok := c.Genres.Update(id, p)
	if !ok {
		return models.Genre{}, false, nil
	}
	c.rewriteMovies(func(m *models.Movie) bool {
		return replaceRef(m.Genres, updated, genreID)
	})
	c.mirror(ctx, mirrorUpdate, EntityGenres, itoa(id), updated)
	return updated, true, nil
}

func (c *Catalog) DeleteGenre(ctx context.Context, id int64) bool {
	if !c.Genres.Delete(id) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntityGenres, itoa(id), nil)
	return true
}

func (c *Catalog) CreateCountry(ctx context.Context, ct models.Country) (models.Country, error) {
	ct.Name = strings.TrimSpace(ct.Name)
	if err := validation.Struct(ct); err != nil {
		return models.Country{}, err
	}
	if c.Countries.CheckNameExists(ct.Name, nil) {
		return models.Country{}, conflict("country", "name", ct.Name)
	}
	created := c.Countries.Add(ct)
	c.mirror(ctx, mirrorCreate, EntityCountries, "", created)
	return created, nil
}

// UpdateCountry renames a country and the copies of it embedded in movies.
func (c *Catalog) UpdateCountry(ctx context.Context, id int64, p models.CountryPatch) (models.Country, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.Country{}, false, err
	}
	if !c.Countries.Has(id) {
		return models.Country{}, false, nil
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if c.Countries.CheckNameExists(name, &id) {
			return models.Country{}, true, conflict("country", "name", name)
		}
	}
	updated, ok := c.Countries.Update(id, p)
	if !ok {
		return models.Country{}, false, nil
	}
	c.rewriteMovies(func(m *models.Movie) bool {
		return replaceRef(m.Countries, updated, countryID)
	})
	c.mirror(ctx, mirrorUpdate, EntityCountries, itoa(id), updated)
	return updated, true, nil
}

func (c *Catalog) DeleteCountry(ctx context.Context, id int64) bool {
	if !c.Countries.Delete(id) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntityCountries, itoa(id), nil)
	return true
}

func (c *Catalog) CreateActor(ctx context.Context, a models.Actor) (models.Actor, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := validation.Struct(a); err != nil {
		return models.Actor{}, err
	}
	if a.TMDBID != nil && c.tmdbTaken(*a.TMDBID, 0) {
		return models.Actor{}, conflict("actor", "tmdbId", *a.TMDBID)
	}
	created := c.Actors.Add(a)
	c.mirror(ctx, mirrorCreate, EntityActors, "", created)
	return created, nil
}

func (c *Catalog) UpdateActor(ctx context.Context, id int64, p models.ActorPatch) (models.Actor, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.Actor{}, false, err
	}
	if !c.Actors.Has(id) {
		return models.Actor{}, false, nil
	}
	if p.TMDBID != nil && c.tmdbTaken(*p.TMDBID, id) {
		return models.Actor{}, true, conflict("actor", "tmdbId", *p.TMDBID)
	}
	updated, ok := c.Actors.Update(id, p)
	if ok {
		c.mirror(ctx, mirrorUpdate, EntityActors, itoa(id), updated)
	}
	return updated, ok, nil
}

// DeleteActor removes an actor and every cast edge that names them.
func (c *Catalog) DeleteActor(ctx context.Context, id int64) bool {
	if !c.Actors.Delete(id) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntityActors, itoa(id), nil)
	return true
}

func (c *Catalog) tmdbTaken(tmdbID, exclude int64) bool {
	return len(c.Actors.Find(func(a models.Actor) bool {
		return a.TMDBID != nil && *a.TMDBID == tmdbID && a.ID != exclude
	})) > 0
}

func (c *Catalog) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	if err := validation.Struct(u); err != nil {
		return models.User{}, err
	}
	if c.Users.CheckNameExists(u.Username, nil) {
		return models.User{}, conflict("user", "username", u.Username)
	}
	if c.emailTaken(u.Email, "") {
		return models.User{}, conflict("user", "email", u.Email)
	}
	created := c.Users.Add(u)
	c.mirror(ctx, mirrorCreate, EntityUsers, "", created)
	return created, nil
}

func (c *Catalog) UpdateUser(ctx context.Context, id string, p models.UserPatch) (models.User, bool, error) {
	if err := validation.Struct(p); err != nil {
		return models.User{}, false, err
	}
	if !c.Users.Has(id) {
		return models.User{}, false, nil
	}
	if p.Username != nil {
		username := strings.TrimSpace(*p.Username)
		p.Username = &username
		if c.Users.CheckNameExists(username, &id) {
			return models.User{}, true, conflict("user", "username", username)
		}
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		p.Email = &email
		if c.emailTaken(email, id) {
			return models.User{}, true, conflict("user", "email", email)
		}
	}
	updated, ok := c.Users.Update(id, p)
	if ok {
		c.mirror(ctx, mirrorUpdate, EntityUsers, id, updated)
	}
	return updated, ok, nil
}

func (c *Catalog) DeleteUser(ctx context.Context, id string) bool {
	if !c.Users.Delete(id) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntityUsers, id, nil)
	return true
}

func (c *Catalog) emailTaken(email, exclude string) bool {
	return len(c.Users.Find(func(u models.User) bool {
		return strings.EqualFold(strings.TrimSpace(u.Email), email) && u.ID != exclude
	})) > 0
}

// AddEpisode runs episode admission control. A clash is reported through the
// returned Admission, not as an error.
func (c *Catalog) AddEpisode(ctx context.Context, movieID int64, ep models.Episode) (relations.Admission, error) {
	ep.ServerName = strings.TrimSpace(ep.ServerName)
	if err := validation.Struct(ep); err != nil {
		return relations.Admission{}, err
	}
	adm, err := c.Relations.AddEpisode(movieID, ep)
	if err != nil || !adm.Admitted {
		return adm, err
	}
	c.mirror(ctx, mirrorCreate, EntityEpisodes, "", toRemoteEpisode(adm.Episode))
	return adm, nil
}

func (c *Catalog) UpdateEpisode(ctx context.Context, movieID, episodeID int64, p models.EpisodePatch) (relations.Admission, error) {
	if err := validation.Struct(p); err != nil {
		return relations.Admission{}, err
	}
	adm, err := c.Relations.UpdateEpisode(movieID, episodeID, p)
	if err != nil || !adm.Admitted {
		return adm, err
	}
	c.mirror(ctx, mirrorUpdate, EntityEpisodes, itoa(episodeID), toRemoteEpisode(adm.Episode))
	return adm, nil
}

func (c *Catalog) RemoveEpisode(ctx context.Context, movieID, episodeID int64) bool {
	if !c.Relations.RemoveEpisode(movieID, episodeID) {
		return false
	}
	c.mirror(ctx, mirrorDelete, EntityEpisodes, itoa(episodeID), nil)
	return true
}

// genreDeleted and countryDeleted drop a removed reference from every movie.
func (c *Catalog) genreDeleted(id int64) {
	c.rewriteMovies(func(m *models.Movie) bool {
		n := len(m.Genres)
		m.Genres = slices.DeleteFunc(m.Genres, func(g models.Genre) bool { return g.ID == id })
		return len(m.Genres) != n
	})
}

func (c *Catalog) countryDeleted(id int64) {
	c.rewriteMovies(func(m *models.Movie) bool {
		n := len(m.Countries)
		m.Countries = slices.DeleteFunc(m.Countries, func(ct models.Country) bool { return ct.ID == id })
		return len(m.Countries) != n
	})
}

// rewriteMovies applies edit to every movie. Embedded copies are not edits of
// the movie itself, so modifiedAt is left alone.
func (c *Catalog) rewriteMovies(edit func(m *models.Movie) bool) {
	c.Movies.Rewrite(edit)
	c.refreshCounts()
}

func genreID(g models.Genre) int64 { return g.ID }

func countryID(ct models.Country) int64 { return ct.ID }

// resolve replaces references by the stored records they point at, dropping
// repeats. An unknown id fails the whole list.
func resolve[T any](in []T, id func(T) int64, get func(int64) (T, bool), kind string) ([]T, error) {
	out := make([]T, 0, len(in))
	seen := map[int64]bool{}
	for _, ref := range in {
		key := id(ref)
		if seen[key] {
			continue
		}
		found, ok := get(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s %d", ErrUnknownReference, kind, key)
		}
		seen[key] = true
		out = append(out, found)
	}
	return out, nil
}

// replaceRef swaps every element with v's id for v.
func replaceRef[T any](list []T, v T, id func(T) int64) bool {
	changed := false
	for i := range list {
		if id(list[i]) == id(v) {
			list[i] = v
			changed = true
		}
	}
	return changed
}
