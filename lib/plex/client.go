package plex

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/LukeHagar/plexgo"
	"github.com/LukeHagar/plexgo/models/operations"

	"github.com/icco/catalog/lib/tmdb"
)

const pageSize = 50

type Client struct {
	api     *plexgo.PlexAPI
	plexURL string
	tmdb    *tmdb.Client
	logger  *slog.Logger
}

// NewClient connects to a Plex server. tmdbClient is optional; when set it
// supplies posters and ratings for imported movies.
func NewClient(plexURL, plexToken string, tmdbClient *tmdb.Client, logger *slog.Logger) *Client {
	api := plexgo.New(
		plexgo.WithSecurity(plexToken),
		plexgo.WithServerURL(plexURL),
	)
	return &Client{
		api:     api,
		plexURL: plexURL,
		tmdb:    tmdbClient,
		logger:  logger,
	}
}

// Library is a Plex library section.
type Library struct {
	Key   string
	Type  string
	Title string
}

// Libraries lists the movie and show libraries of the server.
func (c *Client) Libraries(ctx context.Context) ([]Library, error) {
	resp, err := c.api.Library.GetAllLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get libraries: %w", err)
	}
	if resp.Object == nil {
		return nil, fmt.Errorf("invalid response from Plex API")
	}

	var libs []Library
	for _, lib := range resp.Object.MediaContainer.Directory {
		if lib.Type != "movie" && lib.Type != "show" {
			continue
		}
		libs = append(libs, Library{Key: lib.Key, Type: lib.Type, Title: lib.Title})
	}
	c.logger.DebugContext(ctx, "Got libraries from Plex", slog.Int("count", len(libs)))
	return libs, nil
}

// Items pages through every item of a library.
func (c *Client) Items(ctx context.Context, lib Library) ([]Item, error) {
	sectionKey, err := strconv.Atoi(lib.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid library key: %w", err)
	}
	libraryType := operations.GetLibraryItemsQueryParamType(1)
	if lib.Type == "show" {
		libraryType = operations.GetLibraryItemsQueryParamType(2)
	}

	includeGuids := operations.IncludeGuids(1)
	includeMeta := operations.GetLibraryItemsQueryParamIncludeMeta(1)
	size := pageSize
	start := 0

	var items []Item
	for {
		request := operations.GetLibraryItemsRequest{
			SectionKey:          sectionKey,
			Type:                libraryType,
			IncludeGuids:        &includeGuids,
			IncludeMeta:         &includeMeta,
			XPlexContainerSize:  &size,
			XPlexContainerStart: &start,
			Tag:                 operations.Tag("all"),
		}
		resp, err := c.api.Library.GetLibraryItems(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("failed to get items from library %s: %w", lib.Title, err)
		}
		if resp.Object == nil {
			return nil, fmt.Errorf("invalid response from Plex API")
		}

		metadata := resp.Object.MediaContainer.Metadata
		for _, m := range metadata {
			item := Item{
				RatingKey:   m.RatingKey,
				Title:       m.Title,
				Year:        deref(m.Year),
				Rating:      deref(m.Rating),
				Summary:     m.Summary,
				Thumb:       deref(m.Thumb),
				DurationMin: deref(m.Duration) / 60000,
				ViewCount:   deref(m.ViewCount),
				Show:        lib.Type == "show",
			}
			for _, g := range m.Genre {
				if g.Tag != nil {
					item.Genres = append(item.Genres, *g.Tag)
				}
			}
			items = append(items, item)
		}

		c.logger.DebugContext(ctx, "Got page from Plex",
			slog.String("library", lib.Title),
			slog.Int("start", start),
			slog.Int("count", len(metadata)),
			slog.Int("total_size", int(resp.Object.MediaContainer.TotalSize)))

		if len(metadata) == 0 || start+len(metadata) >= int(resp.Object.MediaContainer.TotalSize) {
			break
		}
		start += size
	}
	return items, nil
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
