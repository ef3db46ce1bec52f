package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/icco/catalog/models"
)

const maxSuggestions = 20

// ImportResult lists what an import created and the titles it skipped.
type ImportResult struct {
	Created []models.Movie `json:"created"`
	Skipped []string       `json:"skipped"`
}

// ImportMovies creates a movie for every draft. Genre names are matched
// against existing genres, ignoring case, and missing genres are created.
// Drafts whose title already exists or that fail validation are skipped.
func (c *Catalog) ImportMovies(ctx context.Context, drafts []models.MovieDraft) (ImportResult, error) {
	res := ImportResult{Created: []models.Movie{}, Skipped: []string{}}
	for _, d := range drafts {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		m := d.Movie
		m.Genres = nil
		for _, name := range d.GenreNames {
			g, err := c.genreByName(ctx, name)
			if err != nil {
				return res, err
			}
			m.Genres = append(m.Genres, g)
		}

		created, err := c.CreateMovie(ctx, m)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping imported movie",
				slog.String("title", m.Title),
				slog.Any("error", err))
			res.Skipped = append(res.Skipped, m.Title)
			continue
		}
		res.Created = append(res.Created, created)
	}

	c.logger.InfoContext(ctx, "Imported movies",
		slog.Int("created", len(res.Created)),
		slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (c *Catalog) genreByName(ctx context.Context, name string) (models.Genre, error) {
	name = strings.TrimSpace(name)
	found := c.Genres.Find(func(g models.Genre) bool { return strings.EqualFold(g.Name, name) })
	if len(found) > 0 {
		return found[0], nil
	}
	g, err := c.CreateGenre(ctx, models.Genre{Name: name})
	if err != nil {
		return models.Genre{}, fmt.Errorf("failed to create genre %q: %w", name, err)
	}
	return g, nil
}

// ImportActor creates an actor from a TMDB person record.
func (c *Catalog) ImportActor(ctx context.Context, tmdbID int64) (models.Actor, error) {
	if c.tmdb == nil {
		return models.Actor{}, ErrNoTMDB
	}
	if c.tmdbTaken(tmdbID, 0) {
		return models.Actor{}, conflict("actor", "tmdbId", tmdbID)
	}
	person, err := c.tmdb.GetPerson(ctx, tmdbID)
	if err != nil {
		return models.Actor{}, fmt.Errorf("failed to get TMDB person: %w", err)
	}
	return c.CreateActor(ctx, person.Actor())
}

// SuggestActors returns stored actors matching q followed by TMDB people not
// yet in the catalog. TMDB candidates carry no id. The bool is false when a
// newer suggestion request started before this one finished; its result is
// then stale.
func (c *Catalog) SuggestActors(ctx context.Context, q string) ([]models.Actor, bool) {
	token := c.suggestions.Begin()

	out := c.Actors.Search(q)
	if c.tmdb != nil && strings.TrimSpace(q) != "" {
		people, err := c.tmdb.SearchPerson(ctx, q)
		switch {
		case errors.Is(err, context.Canceled):
			return nil, false
		case err != nil:
			c.logger.WarnContext(ctx, "Failed to search TMDB people", slog.Any("error", err))
		default:
			for _, p := range people {
				if !c.tmdbTaken(p.ID, 0) {
					out = append(out, p.Actor())
				}
			}
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out, c.suggestions.Commit(token, out)
}
