package plex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/icco/catalog/models"
)

// Item is one movie or show of a Plex library.
type Item struct {
	RatingKey   string
	Title       string
	Year        int
	Rating      float64
	Summary     string
	Thumb       string
	DurationMin int
	ViewCount   int
	Genres      []string
	Show        bool
}

// Drafts reads every movie and show library and turns each item into a
// movie draft ready for import.
func (c *Client) Drafts(ctx context.Context) ([]models.MovieDraft, error) {
	libs, err := c.Libraries(ctx)
	if err != nil {
		return nil, err
	}

	var drafts []models.MovieDraft
	for _, lib := range libs {
		items, err := c.Items(ctx, lib)
		if err != nil {
			return nil, fmt.Errorf("failed to get library items: %w", err)
		}
		for _, item := range items {
			d := Draft(item, c.plexURL)
			c.enrich(ctx, &d, item)
			drafts = append(drafts, d)
		}
	}
	c.logger.InfoContext(ctx, "Read Plex libraries",
		slog.Int("libraries", len(libs)),
		slog.Int("drafts", len(drafts)))
	return drafts, nil
}

// Draft converts a Plex item. Shows tagged anime or animation become
// animation, other shows become series.
func Draft(item Item, plexURL string) models.MovieDraft {
	t := models.TypeSingle
	if item.Show {
		t = models.TypeSeries
		for _, g := range item.Genres {
			if strings.EqualFold(g, "anime") || strings.EqualFold(g, "animation") {
				t = models.TypeAnimation
				break
			}
		}
	}

	m := models.Movie{
		Title:       strings.TrimSpace(item.Title),
		Description: item.Summary,
		ReleaseYear: item.Year,
		Type:        t,
		TMDBRating:  item.Rating,
		Views:       int64(item.ViewCount),
		Status:      "completed",
	}
	if item.DurationMin > 0 {
		m.Duration = fmt.Sprintf("%d min", item.DurationMin)
	}
	if item.Thumb != "" {
		m.ThumbURL = strings.TrimRight(plexURL, "/") + item.Thumb
	}
	return models.MovieDraft{Movie: m, GenreNames: append([]string(nil), item.Genres...)}
}

func (c *Client) enrich(ctx context.Context, d *models.MovieDraft, item Item) {
	if c.tmdb == nil || item.Show {
		return
	}
	result, err := c.tmdb.SearchMovie(ctx, item.Title, item.Year)
	if err != nil {
		c.logger.WarnContext(ctx, "TMDB lookup failed", slog.String("title", item.Title), slog.Any("error", err))
		return
	}
	if len(result.Results) == 0 {
		return
	}
	best := result.Results[0]
	d.Movie.PosterURL = c.tmdb.GetPosterURL(best.PosterPath)
	if best.VoteAverage > 0 {
		d.Movie.TMDBRating = best.VoteAverage
	}
}
