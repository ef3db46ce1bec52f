package handlers

import (
	"fmt"
	"net/http"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/relations"
	"github.com/icco/catalog/lib/validation"
	"github.com/icco/catalog/models"
)

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type castRequest struct {
	ActorID       int64  `json:"actorId"`
	CharacterName string `json:"characterName"`
}

type seriesMovieRequest struct {
	MovieID int64 `json:"movieId"`
}

// writeAdmission answers an episode admission. A rejected episode is a 409
// naming the episode that already holds the server and number.
func writeAdmission(w http.ResponseWriter, adm relations.Admission, status int) {
	if adm.Admitted {
		validation.WriteJSON(w, adm.Episode, status)
		return
	}
	err := fmt.Errorf("episode %d already exists on server %q", adm.Episode.EpisodeNumber, adm.Episode.ServerName)
	validation.WriteError(w, err, http.StatusConflict, map[string]any{
		"field":      "episodeNumber",
		"value":      adm.Episode.EpisodeNumber,
		"serverName": adm.Episode.ServerName,
		"conflictId": adm.ConflictID,
	})
}

func HandleMovieDetail(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		detail, err := c.Relations.MovieDetail(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, detail, http.StatusOK)
	}
}

func HandleListEpisodes(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !c.Movies.Has(id) {
			notFound(w, "movie")
			return
		}
		episodes := c.Relations.Episodes(id)
		if episodes == nil {
			episodes = []models.Episode{}
		}
		validation.WriteJSON(w, episodes, http.StatusOK)
	}
}

func HandleAddEpisode(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var ep models.Episode
		if err := decode(r, &ep); err != nil {
			writeError(w, r, err)
			return
		}
		adm, err := c.AddEpisode(r.Context(), id, ep)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeAdmission(w, adm, http.StatusCreated)
	}
}

func HandleUpdateEpisode(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		episodeID, err := int64Param(r, "episodeID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var patch models.EpisodePatch
		if err := decode(r, &patch); err != nil {
			writeError(w, r, err)
			return
		}
		adm, err := c.UpdateEpisode(r.Context(), id, episodeID, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeAdmission(w, adm, http.StatusOK)
	}
}

func HandleRemoveEpisode(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		episodeID, err := int64Param(r, "episodeID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !c.RemoveEpisode(r.Context(), id, episodeID) {
			notFound(w, "episode")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleReorderEpisodes moves an episode within its server group. A move
// across groups changes nothing and answers 409.
func HandleReorderEpisodes(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req reorderRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if !c.Relations.ReorderEpisodes(id, req.From, req.To) {
			validation.WriteError(w, fmt.Errorf("cannot move episode from %d to %d", req.From, req.To), http.StatusConflict)
			return
		}
		validation.WriteJSON(w, c.Relations.Episodes(id), http.StatusOK)
	}
}

func HandleMovieCast(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !c.Movies.Has(id) {
			notFound(w, "movie")
			return
		}
		cast := c.Relations.MovieCast(id)
		if cast == nil {
			cast = []models.CastMember{}
		}
		validation.WriteJSON(w, cast, http.StatusOK)
	}
}

func HandleAddMovieActor(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req castRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		edge, err := c.Relations.AddMovieActor(id, req.ActorID, req.CharacterName)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, edge, http.StatusCreated)
	}
}

func HandleUpdateMovieActor(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		actorID, err := int64Param(r, "actorID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req castRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		edge, ok := c.Relations.UpdateMovieActor(id, actorID, req.CharacterName)
		if !ok {
			notFound(w, "cast entry")
			return
		}
		validation.WriteJSON(w, edge, http.StatusOK)
	}
}

func HandleRemoveMovieActor(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		actorID, err := int64Param(r, "actorID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !c.Relations.RemoveMovieActor(id, actorID) {
			notFound(w, "cast entry")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleSeriesMovies(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		entries, err := c.Relations.SeriesMovies(id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, entries, http.StatusOK)
	}
}

func HandleAddSeriesMovie(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req seriesMovieRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		edge, err := c.Relations.AddSeriesMovie(id, req.MovieID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, edge, http.StatusCreated)
	}
}

func HandleRemoveSeriesMovie(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		movieID, err := int64Param(r, "movieID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !c.Relations.RemoveSeriesMovie(id, movieID) {
			notFound(w, "series entry")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleReorderSeriesMovies(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := int64Param(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req reorderRequest
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		edges, err := c.Relations.ReorderSeriesMovies(id, req.From, req.To)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, edges, http.StatusOK)
	}
}
