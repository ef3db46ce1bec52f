package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/models"
)

// Mapper converts one remote record into the internal entity shape.
type Mapper[T any] func(raw json.RawMessage) (T, error)

// FromRemote builds a Fetcher that lists every record of entity and maps it.
// A record that fails to map fails the whole fetch.
func FromRemote[T any](client *remote.Client, entity string, mapper Mapper[T]) Fetcher[T] {
	if client == nil {
		return nil
	}
	return func(ctx context.Context) ([]T, error) {
		raws, err := client.ListAll(ctx, entity)
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(raws))
		for i, raw := range raws {
			v, err := mapper(raw)
			if err != nil {
				return nil, fmt.Errorf("failed to map %s record %d: %w", entity, i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

// flexString accepts a JSON string, number or boolean.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// flexTime accepts RFC 3339 timestamps as well as zone-less local date-times.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s", string(b))
	}
	if s == "" {
		*f = flexTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = flexTime(t.UTC())
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

type remoteRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type remoteMovie struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	OriginName string      `json:"originName"`
	Director   string      `json:"director"`
	Content    string      `json:"content"`
	Year       int         `json:"year"`
	Type       string      `json:"type"`
	Time       string      `json:"time"`
	PosterURL  string      `json:"posterUrl"`
	ThumbURL   string      `json:"thumbUrl"`
	TrailerURL string      `json:"trailerUrl"`
	Status     string      `json:"status"`
	TMDBVote   float64     `json:"tmdbVoteAverage"`
	IMDBRating float64     `json:"imdbRating"`
	View       int64       `json:"view"`
	Slug       string      `json:"slug"`
	Categories []remoteRef `json:"categories"`
	Countries  []remoteRef `json:"countries"`
	CreatedAt  flexTime    `json:"createdAt"`
	ModifiedAt flexTime    `json:"modifiedAt"`
}

func MapMovie(raw json.RawMessage) (models.Movie, error) {
	var r remoteMovie
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Movie{}, err
	}
	if r.ID == 0 {
		return models.Movie{}, fmt.Errorf("movie without id")
	}
	m := models.Movie{
		ID:           r.ID,
		Title:        r.Name,
		OriginalName: r.OriginName,
		Director:     r.Director,
		Description:  r.Content,
		ReleaseYear:  r.Year,
		Type:         models.ParseMovieType(r.Type),
		Duration:     r.Time,
		PosterURL:    r.PosterURL,
		ThumbURL:     r.ThumbURL,
		TrailerURL:   r.TrailerURL,
		Status:       strings.ToLower(r.Status),
		TMDBRating:   r.TMDBVote,
		IMDBRating:   r.IMDBRating,
		Views:        r.View,
		CreatedAt:    time.Time(r.CreatedAt),
		ModifiedAt:   time.Time(r.ModifiedAt),
		Slug:         r.Slug,
	}
	if m.Slug == "" {
		m.Slug = models.Slugify(m.Title)
	}
	for _, c := range r.Categories {
		m.Genres = append(m.Genres, models.Genre{ID: c.ID, Name: c.Name})
	}
	for _, c := range r.Countries {
		m.Countries = append(m.Countries, models.Country{ID: c.ID, Name: c.Name})
	}
	return m, nil
}

type remoteSeries struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	ReleaseYear int    `json:"releaseYear"`
	Poster      string `json:"poster"`
	PosterURL   string `json:"posterUrl"`
}

func MapSeries(raw json.RawMessage) (models.Series, error) {
	var r remoteSeries
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Series{}, err
	}
	poster := r.PosterURL
	if poster == "" {
		poster = r.Poster
	}
	return models.Series{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      strings.ToLower(r.Status),
		ReleaseYear: r.ReleaseYear,
		PosterURL:   poster,
	}, nil
}

func MapGenre(raw json.RawMessage) (models.Genre, error) {
	var r remoteRef
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Genre{}, err
	}
	return models.Genre{ID: r.ID, Name: r.Name}, nil
}

func MapCountry(raw json.RawMessage) (models.Country, error) {
	var r remoteRef
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Country{}, err
	}
	return models.Country{ID: r.ID, Name: r.Name}, nil
}

type remoteActor struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	TMDBID      *int64     `json:"tmdbId"`
	Gender      flexString `json:"gender"`
	AlsoKnownAs []string   `json:"alsoKnownAs"`
	ProfilePath string     `json:"profilePath"`
}

func MapActor(raw json.RawMessage) (models.Actor, error) {
	var r remoteActor
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Actor{}, err
	}
	return models.Actor{
		ID:          r.ID,
		Name:        r.Name,
		TMDBID:      r.TMDBID,
		Gender:      parseGender(string(r.Gender)),
		AlsoKnownAs: r.AlsoKnownAs,
		ProfilePath: r.ProfilePath,
	}, nil
}

type remoteRole struct {
	Name string `json:"name"`
}

type remoteUser struct {
	ID        flexString   `json:"id"`
	Username  string       `json:"username"`
	FullName  string       `json:"fullName"`
	Email     string       `json:"email"`
	Gender    flexString   `json:"gender"`
	Role      string       `json:"role"`
	Roles     []remoteRole `json:"roles"`
	Avatar    string       `json:"avatar"`
	CreatedAt flexTime     `json:"createdAt"`
}

func MapUser(raw json.RawMessage) (models.User, error) {
	var r remoteUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.User{}, err
	}
	if r.ID == "" {
		return models.User{}, fmt.Errorf("user without id")
	}
	role := models.ParseRole(r.Role)
	for _, rr := range r.Roles {
		if models.ParseRole(rr.Name) == models.RoleAdmin {
			role = models.RoleAdmin
		}
	}
	return models.User{
		ID:        string(r.ID),
		Username:  r.Username,
		FullName:  r.FullName,
		Email:     r.Email,
		Gender:    parseGender(string(r.Gender)),
		Role:      role,
		Avatar:    r.Avatar,
		CreatedAt: time.Time(r.CreatedAt),
	}, nil
}

type remoteEpisode struct {
	ID            int64    `json:"id"`
	MovieID       int64    `json:"movieId"`
	Name          string   `json:"name"`
	EpisodeNumber int      `json:"episodeNumber"`
	ServerName    string   `json:"serverName"`
	LinkEmbed     string   `json:"linkEmbed"`
	LinkM3U8      string   `json:"linkM3u8"`
	CreatedAt     flexTime `json:"createdAt"`
}

func MapEpisode(raw json.RawMessage) (models.Episode, error) {
	var r remoteEpisode
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Episode{}, err
	}
	if r.MovieID == 0 {
		return models.Episode{}, fmt.Errorf("episode %d without movie", r.ID)
	}
	return models.Episode{
		ID:            r.ID,
		MovieID:       r.MovieID,
		Title:         r.Name,
		EpisodeNumber: r.EpisodeNumber,
		ServerName:    r.ServerName,
		EmbedURL:      r.LinkEmbed,
		M3U8URL:       r.LinkM3U8,
		CreatedAt:     time.Time(r.CreatedAt),
	}, nil
}

func MapSeriesMovie(raw json.RawMessage) (models.SeriesMovie, error) {
	var r models.SeriesMovie
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, err
	}
	return r, nil
}

func MapMovieActor(raw json.RawMessage) (models.MovieActor, error) {
	var r models.MovieActor
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, err
	}
	return r, nil
}

// parseGender maps numeric codes and tags to a gender tag.
func parseGender(s string) models.Gender {
	if code, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return models.GenderFromCode(code)
	}
	return models.ParseGender(s)
}
