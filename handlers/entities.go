package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/validation"
	"github.com/icco/catalog/models"
)

// entityAPI binds the CRUD routes of one entity type to the catalog.
type entityAPI[K comparable, T any, P any] struct {
	name    string
	idParam func(*http.Request, string) (K, error)
	list    func(query.Options) query.Page[T]
	get     func(K) (T, bool)
	create  func(context.Context, T) (T, error)
	update  func(context.Context, K, P) (T, bool, error)
	remove  func(context.Context, K) bool
}

func (a entityAPI[K, T, P]) mount(r chi.Router) {
	r.Get("/", a.handleList)
	r.Post("/", a.handleCreate)
	r.Get("/{id}", a.handleGet)
	r.Put("/{id}", a.handleUpdate)
	r.Patch("/{id}", a.handleUpdate)
	r.Delete("/{id}", a.handleDelete)
}

func (a entityAPI[K, T, P]) handleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := catalog.ValidateListing(a.name, opts); err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}
	validation.WriteJSON(w, a.list(opts), http.StatusOK)
}

func (a entityAPI[K, T, P]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := a.idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, ok := a.get(id)
	if !ok {
		notFound(w, a.name)
		return
	}
	validation.WriteJSON(w, item, http.StatusOK)
}

func (a entityAPI[K, T, P]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in T
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := a.create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	validation.WriteJSON(w, created, http.StatusCreated)
}

func (a entityAPI[K, T, P]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := a.idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch P
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	updated, ok, err := a.update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		notFound(w, a.name)
		return
	}
	validation.WriteJSON(w, updated, http.StatusOK)
}

func (a entityAPI[K, T, P]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := a.idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !a.remove(r.Context(), id) {
		notFound(w, a.name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func movieAPI(c *catalog.Catalog) entityAPI[int64, models.Movie, models.MoviePatch] {
	return entityAPI[int64, models.Movie, models.MoviePatch]{
		name:    catalog.EntityMovies,
		idParam: int64Param,
		list:    c.ListMovies,
		get:     c.Movies.GetByID,
		create:  c.CreateMovie,
		update:  c.UpdateMovie,
		remove:  c.DeleteMovie,
	}
}

func seriesAPI(c *catalog.Catalog) entityAPI[int64, models.Series, models.SeriesPatch] {
	return entityAPI[int64, models.Series, models.SeriesPatch]{
		name:    catalog.EntitySeries,
		idParam: int64Param,
		list:    c.ListSeries,
		get:     c.Series.GetByID,
		create:  c.CreateSeries,
		update:  c.UpdateSeries,
		remove:  c.DeleteSeries,
	}
}

func genreAPI(c *catalog.Catalog) entityAPI[int64, models.Genre, models.GenrePatch] {
	return entityAPI[int64, models.Genre, models.GenrePatch]{
		name:    catalog.EntityGenres,
		idParam: int64Param,
		list:    c.ListGenres,
		get:     c.Genres.GetByID,
		create:  c.CreateGenre,
		update:  c.UpdateGenre,
		remove:  c.DeleteGenre,
	}
}

func countryAPI(c *catalog.Catalog) entityAPI[int64, models.Country, models.CountryPatch] {
	return entityAPI[int64, models.Country, models.CountryPatch]{
		name:    catalog.EntityCountries,
		idParam: int64Param,
		list:    c.ListCountries,
		get:     c.Countries.GetByID,
		create:  c.CreateCountry,
		update:  c.UpdateCountry,
		remove:  c.DeleteCountry,
	}
}

func actorAPI(c *catalog.Catalog) entityAPI[int64, models.Actor, models.ActorPatch] {
	return entityAPI[int64, models.Actor, models.ActorPatch]{
		name:    catalog.EntityActors,
		idParam: int64Param,
		list:    c.ListActors,
		get:     c.Actors.GetByID,
		create:  c.CreateActor,
		update:  c.UpdateActor,
		remove:  c.DeleteActor,
	}
}

func userAPI(c *catalog.Catalog) entityAPI[string, models.User, models.UserPatch] {
	return entityAPI[string, models.User, models.UserPatch]{
		name:    catalog.EntityUsers,
		idParam: stringParam,
		list:    c.ListUsers,
		get:     c.Users.GetByID,
		create:  c.CreateUser,
		update:  c.UpdateUser,
		remove:  c.DeleteUser,
	}
}
