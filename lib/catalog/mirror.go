package catalog

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/icco/catalog/models"
)

type mirrorOp int

const (
	mirrorCreate mirrorOp = iota
	mirrorUpdate
	mirrorDelete
)

func (o mirrorOp) String() string {
	switch o {
	case mirrorCreate:
		return "create"
	case mirrorUpdate:
		return "update"
	default:
		return "delete"
	}
}

// mirror replays a local mutation on the remote catalog API. Failures are
// logged and otherwise ignored; the local change stands.
func (c *Catalog) mirror(ctx context.Context, op mirrorOp, entity, id string, payload any) {
	if c.remote == nil || (c.avail != nil && !c.avail.ServiceAvailable(ctx)) {
		return
	}

	var err error
	switch op {
	case mirrorCreate:
		_, err = c.remote.Create(ctx, entity, payload)
	case mirrorUpdate:
		_, err = c.remote.Update(ctx, entity, id, payload)
	case mirrorDelete:
		err = c.remote.Delete(ctx, entity, id)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to mirror change to remote",
			slog.String("entity", entity),
			slog.String("op", op.String()),
			slog.String("id", id),
			slog.Any("error", err))
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

type remoteRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// remoteMovie is the movie shape the catalog API accepts.
type remoteMovie struct {
	ID         int64       `json:"id,omitempty"`
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
}

func toRemoteMovie(m models.Movie) remoteMovie {
	r := remoteMovie{
		ID:         m.ID,
		Name:       m.Title,
		OriginName: m.OriginalName,
		Director:   m.Director,
		Content:    m.Description,
		Year:       m.ReleaseYear,
		Type:       string(m.Type),
		Time:       m.Duration,
		PosterURL:  m.PosterURL,
		ThumbURL:   m.ThumbURL,
		TrailerURL: m.TrailerURL,
		Status:     m.Status,
		TMDBVote:   m.TMDBRating,
		IMDBRating: m.IMDBRating,
		View:       m.Views,
		Slug:       m.Slug,
	}
	for _, g := range m.Genres {
		r.Categories = append(r.Categories, remoteRef{ID: g.ID, Name: g.Name})
	}
	for _, ct := range m.Countries {
		r.Countries = append(r.Countries, remoteRef{ID: ct.ID, Name: ct.Name})
	}
	return r
}

// remoteEpisode is the episode shape the catalog API accepts.
type remoteEpisode struct {
	ID            int64  `json:"id,omitempty"`
	MovieID       int64  `json:"movieId"`
	Name          string `json:"name"`
	EpisodeNumber int    `json:"episodeNumber"`
	ServerName    string `json:"serverName"`
	LinkEmbed     string `json:"linkEmbed"`
	LinkM3U8      string `json:"linkM3u8"`
}

func toRemoteEpisode(e models.Episode) remoteEpisode {
	return remoteEpisode{
		ID:            e.ID,
		MovieID:       e.MovieID,
		Name:          e.Title,
		EpisodeNumber: e.EpisodeNumber,
		ServerName:    e.ServerName,
		LinkEmbed:     e.EmbedURL,
		LinkM3U8:      e.M3U8URL,
	}
}
