package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/icco/catalog/models"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p"
)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Person is a TMDB person record.
type Person struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Gender      int      `json:"gender"`
	AlsoKnownAs []string `json:"also_known_as"`
	ProfilePath string   `json:"profile_path"`
	Popularity  float64  `json:"popularity"`
}

// Actor converts a person into a catalog actor.
func (p Person) Actor() models.Actor {
	id := p.ID
	return models.Actor{
		Name:        strings.TrimSpace(p.Name),
		TMDBID:      &id,
		Gender:      models.GenderFromCode(p.Gender),
		AlsoKnownAs: append([]string(nil), p.AlsoKnownAs...),
		ProfilePath: p.ProfilePath,
	}
}

type PersonSearchResult struct {
	Results []Person `json:"results"`
}

type MovieResult struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
}

type SearchResult struct {
	Results []MovieResult `json:"results"`
}

func NewClient(apiKey string, logger *slog.Logger) *Client {
	return NewClientWithBaseURL(apiKey, DefaultBaseURL, logger)
}

func NewClientWithBaseURL(apiKey, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// GetPerson fetches one person by TMDB id.
func (c *Client) GetPerson(ctx context.Context, id int64) (*Person, error) {
	var p Person
	if err := c.get(ctx, "/person/"+strconv.FormatInt(id, 10), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SearchPerson searches people by name.
func (c *Client) SearchPerson(ctx context.Context, query string) ([]Person, error) {
	var result PersonSearchResult
	if err := c.get(ctx, "/search/person", url.Values{"query": {query}}, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// SearchMovie searches movies by title, narrowed to year when it is set.
func (c *Client) SearchMovie(ctx context.Context, title string, year int) (*SearchResult, error) {
	q := url.Values{"query": {title}}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	var result SearchResult
	if err := c.get(ctx, "/search/movie", q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) GetPosterURL(posterPath string) string {
	return imageURL("w500", posterPath)
}

func (c *Client) GetProfileURL(profilePath string) string {
	return imageURL("w185", profilePath)
}

func imageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", imageBaseURL, size, path)
}
