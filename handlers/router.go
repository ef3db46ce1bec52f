package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/describe"
	"github.com/icco/catalog/lib/health"
	"github.com/icco/catalog/lib/plex"
	"github.com/icco/catalog/lib/syncer"
)

// Deps are what the API serves. Plex, Describer and History are optional.
type Deps struct {
	DB        *gorm.DB
	Catalog   *catalog.Catalog
	Syncer    *syncer.Orchestrator
	Settings  *db.Settings
	History   *db.History
	Plex      *plex.Client
	Describer *describe.Describer
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", health.Check(d.DB, d.Catalog))

	c := d.Catalog
	r.Route("/api", func(r chi.Router) {
		r.Route("/movies", func(r chi.Router) {
			r.Post("/import/plex", HandleImportPlex(c, d.Plex))
			r.Get("/{id}/detail", HandleMovieDetail(c))
			r.Post("/{id}/describe", HandleDescribe(c, d.Describer))

			r.Get("/{id}/episodes", HandleListEpisodes(c))
			r.Post("/{id}/episodes", HandleAddEpisode(c))
			r.Post("/{id}/episodes/reorder", HandleReorderEpisodes(c))
			r.Put("/{id}/episodes/{episodeID}", HandleUpdateEpisode(c))
			r.Patch("/{id}/episodes/{episodeID}", HandleUpdateEpisode(c))
			r.Delete("/{id}/episodes/{episodeID}", HandleRemoveEpisode(c))

			r.Get("/{id}/actors", HandleMovieCast(c))
			r.Post("/{id}/actors", HandleAddMovieActor(c))
			r.Put("/{id}/actors/{actorID}", HandleUpdateMovieActor(c))
			r.Delete("/{id}/actors/{actorID}", HandleRemoveMovieActor(c))

			movieAPI(c).mount(r)
		})
		r.Route("/series", func(r chi.Router) {
			r.Get("/{id}/movies", HandleSeriesMovies(c))
			r.Post("/{id}/movies", HandleAddSeriesMovie(c))
			r.Post("/{id}/movies/reorder", HandleReorderSeriesMovies(c))
			r.Delete("/{id}/movies/{movieID}", HandleRemoveSeriesMovie(c))

			seriesAPI(c).mount(r)
		})
		r.Route("/genres", genreAPI(c).mount)
		r.Route("/countries", countryAPI(c).mount)
		r.Route("/actors", func(r chi.Router) {
			r.Get("/suggest", HandleSuggestActors(c))
			r.Post("/import/{tmdbID}", HandleImportActor(c))

			actorAPI(c).mount(r)
		})
		r.Route("/users", userAPI(c).mount)

		r.Route("/sync", func(r chi.Router) {
			r.Get("/", HandleSyncStatuses(d.Syncer))
			r.Post("/", HandleSyncAll(d.Syncer))
			r.Get("/{entity}", HandleSyncStatus(d.Syncer))
			r.Post("/{entity}", HandleSync(d.Syncer))
			r.Post("/{entity}/ack", HandleAcknowledge(d.Syncer))
			r.Get("/{entity}/history", HandleSyncHistory(d.History))
		})

		r.Get("/settings/availability", HandleGetAvailability(d.Settings))
		r.Put("/settings/availability", HandleSetAvailability(d.Settings, c))
		r.Put("/settings/session", HandleSetSession(d.Settings))

		r.Get("/status", HandleStatus(c))
		r.Get("/stats", HandleStats(c))
		r.Get("/counts", HandleCounts(c))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		notFound(w, "route")
	})
	return r
}
