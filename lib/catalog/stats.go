package catalog

import (
	"cmp"
	"slices"

	"github.com/icco/catalog/lib/types"
	"github.com/icco/catalog/models"
)

// Stats summarizes the catalog.
func (c *Catalog) Stats() types.StatsData {
	movies := c.Movies.GetAll()
	counts := c.Counts()

	s := types.StatsData{
		TotalMovies:    len(movies),
		TotalSeries:    c.Series.Len(),
		TotalGenres:    c.Genres.Len(),
		TotalCountries: c.Countries.Len(),
		TotalActors:    c.Actors.Len(),
		TotalUsers:     c.Users.Len(),
		Sources:        c.Status(),
	}
	for _, n := range c.Relations.EpisodeCounts() {
		s.TotalEpisodes += n
	}

	var rated int
	var ratingSum float64
	for _, m := range movies {
		switch m.Type {
		case models.TypeSeries:
			s.TotalSeriesMovies++
		case models.TypeAnimation:
			s.TotalAnimation++
		default:
			s.TotalSingle++
		}
		s.TotalViews += m.Views
		if m.TMDBRating > 0 {
			rated++
			ratingSum += m.TMDBRating
		}
		if !m.CreatedAt.IsZero() && (s.FirstCreated.IsZero() || m.CreatedAt.Before(s.FirstCreated)) {
			s.FirstCreated = m.CreatedAt
		}
		if m.ModifiedAt.After(s.LastModified) {
			s.LastModified = m.ModifiedAt
		}
	}
	if rated > 0 {
		s.AverageTMDBRating = ratingSum / float64(rated)
	}

	for _, g := range c.Genres.GetAll() {
		s.GenreDistribution = append(s.GenreDistribution, types.NameCount{ID: g.ID, Name: g.Name, Count: counts.Genres[g.ID]})
	}
	for _, ct := range c.Countries.GetAll() {
		s.CountryDistribution = append(s.CountryDistribution, types.NameCount{ID: ct.ID, Name: ct.Name, Count: counts.Countries[ct.ID]})
	}
	sortDistribution(s.GenreDistribution)
	sortDistribution(s.CountryDistribution)
	return s
}

// sortDistribution orders buckets by count, largest first, then by name.
func sortDistribution(d []types.NameCount) {
	slices.SortStableFunc(d, func(a, b types.NameCount) int {
		if n := cmp.Compare(b.Count, a.Count); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
