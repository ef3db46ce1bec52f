package catalog

import (
	"slices"
	"time"

	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/repository"
	"github.com/icco/catalog/models"
)

func movieDescriptor() repository.Descriptor[int64, models.Movie] {
	return repository.Descriptor[int64, models.Movie]{
		Name:   EntityMovies,
		ID:     func(m models.Movie) int64 { return m.ID },
		SetID:  func(m *models.Movie, id int64) { m.ID = id },
		NextID: repository.Sequential[int64],
		Label:  func(m models.Movie) string { return m.Title },
		SearchFields: func(m models.Movie) []string {
			return []string{m.Title, m.OriginalName, m.Director, m.Description}
		},
		OnCreate: func(m *models.Movie, now time.Time) {
			if m.Type == "" {
				m.Type = models.TypeSingle
			}
			m.Slug = models.Slugify(m.Title)
			m.CreatedAt = now
			m.ModifiedAt = now
		},
		OnUpdate: func(before models.Movie, after *models.Movie, now time.Time) {
			if after.Title != before.Title || after.Slug == "" {
				after.Slug = models.Slugify(after.Title)
			}
			after.CreatedAt = before.CreatedAt
			after.ModifiedAt = now
		},
		Clone: cloneMovie,
	}
}

func cloneMovie(m models.Movie) models.Movie {
	m.Genres = slices.Clone(m.Genres)
	m.Countries = slices.Clone(m.Countries)
	return m
}

func seriesDescriptor() repository.Descriptor[int64, models.Series] {
	return repository.Descriptor[int64, models.Series]{
		Name:   EntitySeries,
		ID:     func(s models.Series) int64 { return s.ID },
		SetID:  func(s *models.Series, id int64) { s.ID = id },
		NextID: repository.Sequential[int64],
		Label:  func(s models.Series) string { return s.Name },
		SearchFields: func(s models.Series) []string {
			return []string{s.Name, s.Description}
		},
	}
}

func genreDescriptor() repository.Descriptor[int64, models.Genre] {
	return repository.Descriptor[int64, models.Genre]{
		Name:         EntityGenres,
		ID:           func(g models.Genre) int64 { return g.ID },
		SetID:        func(g *models.Genre, id int64) { g.ID = id },
		NextID:       repository.Sequential[int64],
		Label:        func(g models.Genre) string { return g.Name },
		SearchFields: func(g models.Genre) []string { return []string{g.Name} },
	}
}

func countryDescriptor() repository.Descriptor[int64, models.Country] {
	return repository.Descriptor[int64, models.Country]{
		Name:         EntityCountries,
		ID:           func(c models.Country) int64 { return c.ID },
		SetID:        func(c *models.Country, id int64) { c.ID = id },
		NextID:       repository.Sequential[int64],
		Label:        func(c models.Country) string { return c.Name },
		SearchFields: func(c models.Country) []string { return []string{c.Name} },
	}
}

func actorDescriptor() repository.Descriptor[int64, models.Actor] {
	return repository.Descriptor[int64, models.Actor]{
		Name:   EntityActors,
		ID:     func(a models.Actor) int64 { return a.ID },
		SetID:  func(a *models.Actor, id int64) { a.ID = id },
		NextID: repository.Sequential[int64],
		Label:  func(a models.Actor) string { return a.Name },
		SearchFields: func(a models.Actor) []string {
			return append([]string{a.Name}, a.AlsoKnownAs...)
		},
		OnCreate: func(a *models.Actor, _ time.Time) {
			if a.Gender == "" {
				a.Gender = models.GenderUnknown
			}
		},
		Clone: cloneActor,
	}
}

func cloneActor(a models.Actor) models.Actor {
	if a.TMDBID != nil {
		id := *a.TMDBID
		a.TMDBID = &id
	}
	a.AlsoKnownAs = slices.Clone(a.AlsoKnownAs)
	return a
}

func userDescriptor() repository.Descriptor[string, models.User] {
	return repository.Descriptor[string, models.User]{
		Name:   EntityUsers,
		ID:     func(u models.User) string { return u.ID },
		SetID:  func(u *models.User, id string) { u.ID = id },
		NextID: repository.RandomUUID,
		Label:  func(u models.User) string { return u.Username },
		SearchFields: func(u models.User) []string {
			return []string{u.Username, u.FullName, u.Email}
		},
		OnCreate: func(u *models.User, now time.Time) {
			if u.Role == "" {
				u.Role = models.RoleUser
			}
			if u.Gender == "" {
				u.Gender = models.GenderUnknown
			}
			u.CreatedAt = now
		},
		OnUpdate: func(before models.User, after *models.User, _ time.Time) {
			after.CreatedAt = before.CreatedAt
		},
	}
}

// Listing schemas. Field names match the JSON names of the models.

var movieSchema = query.Schema[models.Movie]{
	Search: movieDescriptor().SearchFields,
	Fields: map[string]query.Field[models.Movie]{
		"title":       query.StringField(func(m models.Movie) string { return m.Title }),
		"type":        query.StringField(func(m models.Movie) string { return string(m.Type) }),
		"status":      query.StringField(func(m models.Movie) string { return m.Status }),
		"director":    query.StringField(func(m models.Movie) string { return m.Director }),
		"releaseYear": query.NumberField(func(m models.Movie) float64 { return float64(m.ReleaseYear) }),
		"tmdbRating":  query.NumberField(func(m models.Movie) float64 { return m.TMDBRating }),
		"imdbRating":  query.NumberField(func(m models.Movie) float64 { return m.IMDBRating }),
		"views":       query.NumberField(func(m models.Movie) float64 { return float64(m.Views) }),
		"createdAt":   query.TimeField(func(m models.Movie) time.Time { return m.CreatedAt }),
		"modifiedAt":  query.TimeField(func(m models.Movie) time.Time { return m.ModifiedAt }),
	},
}

var seriesSchema = query.Schema[models.Series]{
	Search: seriesDescriptor().SearchFields,
	Fields: map[string]query.Field[models.Series]{
		"name":        query.StringField(func(s models.Series) string { return s.Name }),
		"status":      query.StringField(func(s models.Series) string { return s.Status }),
		"releaseYear": query.NumberField(func(s models.Series) float64 { return float64(s.ReleaseYear) }),
	},
}

var genreSchema = query.Schema[models.Genre]{
	Search: genreDescriptor().SearchFields,
	Fields: map[string]query.Field[models.Genre]{
		"id":   query.NumberField(func(g models.Genre) float64 { return float64(g.ID) }),
		"name": query.StringField(func(g models.Genre) string { return g.Name }),
	},
}

var countrySchema = query.Schema[models.Country]{
	Search: countryDescriptor().SearchFields,
	Fields: map[string]query.Field[models.Country]{
		"id":   query.NumberField(func(c models.Country) float64 { return float64(c.ID) }),
		"name": query.StringField(func(c models.Country) string { return c.Name }),
	},
}

var actorSchema = query.Schema[models.Actor]{
	Search: actorDescriptor().SearchFields,
	Fields: map[string]query.Field[models.Actor]{
		"id":     query.NumberField(func(a models.Actor) float64 { return float64(a.ID) }),
		"name":   query.StringField(func(a models.Actor) string { return a.Name }),
		"gender": query.StringField(func(a models.Actor) string { return string(a.Gender) }),
	},
}

var userSchema = query.Schema[models.User]{
	Search: userDescriptor().SearchFields,
	Fields: map[string]query.Field[models.User]{
		"username":  query.StringField(func(u models.User) string { return u.Username }),
		"fullName":  query.StringField(func(u models.User) string { return u.FullName }),
		"email":     query.StringField(func(u models.User) string { return u.Email }),
		"gender":    query.StringField(func(u models.User) string { return string(u.Gender) }),
		"role":      query.StringField(func(u models.User) string { return string(u.Role) }),
		"createdAt": query.TimeField(func(u models.User) time.Time { return u.CreatedAt }),
	},
}
