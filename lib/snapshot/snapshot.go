package snapshot

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/icco/catalog/models"
)

//go:embed snapshot.yaml
var bundled []byte

// Snapshot is the bundled fallback dataset. Accessors return fresh copies, so
// callers may keep or mutate what they get.
type Snapshot struct {
	data dataset
}

type dataset struct {
	Version      string               `yaml:"version"`
	Movies       []models.Movie       `yaml:"movies"`
	Series       []models.Series      `yaml:"series"`
	Genres       []models.Genre       `yaml:"genres"`
	Countries    []models.Country     `yaml:"countries"`
	Actors       []models.Actor       `yaml:"actors"`
	Users        []models.User        `yaml:"users"`
	Episodes     []models.Episode     `yaml:"episodes"`
	MovieActors  []models.MovieActor  `yaml:"movie_actors"`
	SeriesMovies []models.SeriesMovie `yaml:"series_movies"`
}

var (
	once     sync.Once
	loaded   *Snapshot
	parseErr error
)

// Load parses the bundled snapshot on first use.
func Load() (*Snapshot, error) {
	once.Do(func() {
		loaded, parseErr = Parse(bundled)
	})
	return loaded, parseErr
}

// Parse decodes a snapshot document.
func Parse(b []byte) (*Snapshot, error) {
	var d dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &Snapshot{data: d}, nil
}

func (s *Snapshot) Version() string { return s.data.Version }

func (s *Snapshot) Movies() []models.Movie {
	out := make([]models.Movie, len(s.data.Movies))
	for i, m := range s.data.Movies {
		m.Genres = append([]models.Genre(nil), m.Genres...)
		m.Countries = append([]models.Country(nil), m.Countries...)
		out[i] = m
	}
	return out
}

func (s *Snapshot) Series() []models.Series { return clone(s.data.Series) }

func (s *Snapshot) Genres() []models.Genre { return clone(s.data.Genres) }

func (s *Snapshot) Countries() []models.Country { return clone(s.data.Countries) }

func (s *Snapshot) Actors() []models.Actor {
	out := make([]models.Actor, len(s.data.Actors))
	for i, a := range s.data.Actors {
		if a.TMDBID != nil {
			id := *a.TMDBID
			a.TMDBID = &id
		}
		a.AlsoKnownAs = append([]string(nil), a.AlsoKnownAs...)
		out[i] = a
	}
	return out
}

func (s *Snapshot) Users() []models.User { return clone(s.data.Users) }

func (s *Snapshot) Episodes() []models.Episode { return clone(s.data.Episodes) }

func (s *Snapshot) MovieActors() []models.MovieActor { return clone(s.data.MovieActors) }

func (s *Snapshot) SeriesMovies() []models.SeriesMovie { return clone(s.data.SeriesMovies) }

func clone[T any](in []T) []T {
	return append(make([]T, 0, len(in)), in...)
}
