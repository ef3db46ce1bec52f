package models

import (
	"time"
)

type Movie struct {
	ID           int64     `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title" validate:"required,max=255"`
	OriginalName string    `json:"originalName" yaml:"originalName" validate:"max=255"`
	Director     string    `json:"director" yaml:"director"`
	Description  string    `json:"description" yaml:"description"`
	ReleaseYear  int       `json:"releaseYear" yaml:"releaseYear" validate:"omitempty,gte=1888,lte=2100"`
	Type         MovieType `json:"type" yaml:"type" validate:"omitempty,oneof=single series animation"`
	Duration     string    `json:"duration" yaml:"duration"`
	PosterURL    string    `json:"posterUrl" yaml:"posterUrl" validate:"omitempty,url"`
	ThumbURL     string    `json:"thumbUrl" yaml:"thumbUrl" validate:"omitempty,url"`
	TrailerURL   string    `json:"trailerUrl" yaml:"trailerUrl" validate:"omitempty,url"`
	Status       string    `json:"status" yaml:"status"`
	TMDBRating   float64   `json:"tmdbRating" yaml:"tmdbRating" validate:"gte=0,lte=10"`
	IMDBRating   float64   `json:"imdbRating" yaml:"imdbRating" validate:"gte=0,lte=10"`
	Views        int64     `json:"views" yaml:"views"`
	Genres       []Genre   `json:"genres" yaml:"genres"`
	Countries    []Country `json:"countries" yaml:"countries"`
	CreatedAt    time.Time `json:"createdAt" yaml:"createdAt"`
	ModifiedAt   time.Time `json:"modifiedAt" yaml:"modifiedAt"`
	Slug         string    `json:"slug" yaml:"slug"`
}

// GetTitle returns the display title.
func (m Movie) GetTitle() string {
	return m.Title
}

type Series struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name" validate:"required,max=255"`
	Description string `json:"description" yaml:"description"`
	Status      string `json:"status" yaml:"status"`
	ReleaseYear int    `json:"releaseYear" yaml:"releaseYear" validate:"omitempty,gte=1888,lte=2100"`
	PosterURL   string `json:"posterUrl" yaml:"posterUrl" validate:"omitempty,url"`
}

// SeriesMovie places a movie inside a series. SeasonNumber is the 1-based
// position of the movie in the series.
type SeriesMovie struct {
	SeriesID     int64 `json:"seriesId" yaml:"seriesId"`
	MovieID      int64 `json:"movieId" yaml:"movieId"`
	SeasonNumber int   `json:"seasonNumber" yaml:"seasonNumber"`
}

// MovieActor links an actor to a movie with the character they play.
type MovieActor struct {
	MovieID       int64  `json:"movieId" yaml:"movieId"`
	ActorID       int64  `json:"actorId" yaml:"actorId"`
	CharacterName string `json:"characterName" yaml:"characterName"`
}

type Episode struct {
	ID            int64     `json:"id" yaml:"id"`
	MovieID       int64     `json:"movieId" yaml:"movieId"`
	Title         string    `json:"title" yaml:"title"`
	EpisodeNumber int       `json:"episodeNumber" yaml:"episodeNumber" validate:"gte=0"`
	ServerName    string    `json:"serverName" yaml:"serverName" validate:"required"`
	EmbedURL      string    `json:"embedUrl" yaml:"embedUrl" validate:"omitempty,url"`
	M3U8URL       string    `json:"m3u8Url" yaml:"m3u8Url" validate:"omitempty,url"`
	CreatedAt     time.Time `json:"createdAt" yaml:"createdAt"`
}

type Genre struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name" validate:"required,max=100"`
}

type Country struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name" validate:"required,max=100"`
}

type Actor struct {
	ID          int64    `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name" validate:"required,max=255"`
	TMDBID      *int64   `json:"tmdbId,omitempty" yaml:"tmdbId,omitempty"`
	Gender      Gender   `json:"gender" yaml:"gender" validate:"omitempty,oneof=male female other unknown"`
	AlsoKnownAs []string `json:"alsoKnownAs" yaml:"alsoKnownAs"`
	ProfilePath string   `json:"profilePath" yaml:"profilePath"`
}

type User struct {
	ID        string    `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username" validate:"required,min=3,max=50"`
	FullName  string    `json:"fullName" yaml:"fullName"`
	Email     string    `json:"email" yaml:"email" validate:"required,email"`
	Gender    Gender    `json:"gender" yaml:"gender" validate:"omitempty,oneof=male female other unknown"`
	Role      Role      `json:"role" yaml:"role" validate:"omitempty,oneof=admin user"`
	Avatar    string    `json:"avatar" yaml:"avatar"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// CastMember is a MovieActor edge joined with the actor it references.
type CastMember struct {
	MovieActor
	Actor Actor `json:"actor"`
}

// SeriesEntry is a SeriesMovie edge joined with the movie it references.
type SeriesEntry struct {
	SeriesMovie
	Movie Movie `json:"movie"`
}

// MovieDetail is a movie enriched with everything joined to it.
type MovieDetail struct {
	Movie    Movie        `json:"movie"`
	Episodes []Episode    `json:"episodes"`
	Cast     []CastMember `json:"cast"`
	Series   []int64      `json:"seriesIds"`
}

// MovieDraft is a movie brought in from an outside library. Its genres are
// still plain names and are resolved against the catalog on import.
type MovieDraft struct {
	Movie      Movie    `json:"movie"`
	GenreNames []string `json:"genreNames"`
}
