package types

import "time"

// NameCount is one bucket of a distribution.
type NameCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SourceStatus reports where one repository's contents came from.
type SourceStatus struct {
	Entity string `json:"entity"`
	Origin string `json:"origin"`
	Reason string `json:"reason,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// StatsData represents statistics about the catalog.
type StatsData struct {
	TotalMovies         int            `json:"totalMovies"`
	TotalSingle         int            `json:"totalSingle"`
	TotalSeriesMovies   int            `json:"totalSeriesMovies"`
	TotalAnimation      int            `json:"totalAnimation"`
	TotalSeries         int            `json:"totalSeries"`
	TotalGenres         int            `json:"totalGenres"`
	TotalCountries      int            `json:"totalCountries"`
	TotalActors         int            `json:"totalActors"`
	TotalUsers          int            `json:"totalUsers"`
	TotalEpisodes       int            `json:"totalEpisodes"`
	TotalViews          int64          `json:"totalViews"`
	FirstCreated        time.Time      `json:"firstCreated,omitzero"`
	LastModified        time.Time      `json:"lastModified,omitzero"`
	AverageTMDBRating   float64        `json:"averageTmdbRating"`
	GenreDistribution   []NameCount    `json:"genreDistribution"`
	CountryDistribution []NameCount    `json:"countryDistribution"`
	Sources             []SourceStatus `json:"sources"`
}
