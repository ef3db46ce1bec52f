package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/describe"
	"github.com/icco/catalog/lib/plex"
	"github.com/icco/catalog/lib/validation"
	"github.com/icco/catalog/models"
)

func HandleImportActor(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tmdbID, err := int64Param(r, "tmdbID")
		if err != nil {
			writeError(w, r, err)
			return
		}
		actor, err := c.ImportActor(r.Context(), tmdbID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, actor, http.StatusCreated)
	}
}

type suggestResponse struct {
	Actors []models.Actor `json:"actors"`
	// Stale is true when a newer suggestion request started first.
	Stale bool `json:"stale"`
}

func HandleSuggestActors(c *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actors, current := c.SuggestActors(r.Context(), r.URL.Query().Get("q"))
		if actors == nil {
			actors = []models.Actor{}
		}
		validation.WriteJSON(w, suggestResponse{Actors: actors, Stale: !current}, http.StatusOK)
	}
}

// HandleImportPlex imports every movie and show of the configured Plex server.
func HandleImportPlex(c *catalog.Catalog, p *plex.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p == nil {
			writeError(w, r, fmt.Errorf("plex: %w", errUnavailable))
			return
		}
		drafts, err := p.Drafts(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := c.ImportMovies(r.Context(), drafts)
		if err != nil {
			writeError(w, r, err)
			return
		}
		validation.WriteJSON(w, res, http.StatusOK)
	}
}

type describeResponse struct {
	MovieID     int64  `json:"movieId"`
	Description string `json:"description"`
	Applied     bool   `json:"applied"`
}

// HandleDescribe drafts a description for a movie. With ?apply=true the draft
// replaces the stored description.
func HandleDescribe(c *catalog.Catalog, d *describe.Describer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d == nil {
			writeError(w, r, fmt.Errorf("openai: %w", errUnavailable))
			return
		}
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
		text, err := d.Describe(r.Context(), detail)
		if err != nil {
			writeError(w, r, err)
			return
		}

		resp := describeResponse{MovieID: id, Description: text}
		if apply, _ := strconv.ParseBool(r.URL.Query().Get("apply")); apply {
			if _, _, err := c.UpdateMovie(r.Context(), id, models.MoviePatch{Description: &text}); err != nil {
				writeError(w, r, err)
				return
			}
			resp.Applied = true
		}
		validation.WriteJSON(w, resp, http.StatusOK)
	}
}
