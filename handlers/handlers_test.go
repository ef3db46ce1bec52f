package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/catalog/lib/catalog"
	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/lock"
	"github.com/icco/catalog/lib/query"
	"github.com/icco/catalog/lib/syncer"
	"github.com/icco/catalog/models"
)

type testServer struct {
	srv  *httptest.Server
	cat  *catalog.Catalog
	busy *lock.Busy
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gdb, err := db.Open(ctx, ":memory:", logger)
	require.NoError(t, err)
	settings := db.NewSettings(gdb, logger)

	cat, err := catalog.New(catalog.Options{Availability: settings, Logger: logger})
	require.NoError(t, err)
	cat.Initialize(ctx)

	busy := lock.NewBusy(logger)
	orch := syncer.New(busy, logger)
	for _, target := range cat.Targets() {
		orch.Register(target)
	}
	history := db.NewHistory(gdb)
	orch.SetRecorder(history)

	srv := httptest.NewServer(NewRouter(Deps{
		DB:       gdb,
		Catalog:  cat,
		Syncer:   orch,
		Settings: settings,
		History:  history,
	}))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, cat: cat, busy: busy}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func (s *testServer) decode(t *testing.T, method, path, body string, v any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "fallback", body["dataSource"])
}

func TestListUsersWithFilters(t *testing.T) {
	s := newTestServer(t)

	var page query.Page[models.User]
	resp := s.decode(t, http.MethodGet, "/api/users?role=admin&gender=female", "", &page)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "linh.nguyen", page.Items[0].Username)
	assert.Equal(t, 1, page.TotalPages)

	resp, _ = s.do(t, http.MethodGet, "/api/users?shoeSize=9", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/users?size=500", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMoviesSortedAndPaged(t *testing.T) {
	s := newTestServer(t)

	var page query.Page[models.Movie]
	s.decode(t, http.MethodGet, "/api/movies?q=matrix&sort=releaseYear&order=desc&size=2", "", &page)

	var ids []int64
	for _, m := range page.Items {
		ids = append(ids, m.ID)
	}
	if diff := cmp.Diff([]int64{2, 3}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	s.decode(t, http.MethodGet, "/api/movies?q=mat%20biec", "", &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Mắt Biếc", page.Items[0].Title)
}

func TestCreateMovieConflict(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/movies", `{"title":"THE MATRIX"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "title", body["field"])
	assert.Equal(t, "THE MATRIX", body["value"])

	resp, body = s.do(t, http.MethodPost, "/api/movies", `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "title", body["field"])

	resp, _ = s.do(t, http.MethodPost, "/api/movies", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var created models.Movie
	resp = s.decode(t, http.MethodPost, "/api/movies", `{"title":"Spirited Away 2","genres":[{"id":4}]}`, &created)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "spirited-away-2", created.Slug)
	assert.Equal(t, 8, s.cat.Movies.Len())
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/movies/999",
		"/api/movies/999/detail",
		"/api/series/999/movies",
		"/api/users/nobody",
		"/api/sync/nothing",
		"/api/nope",
	} {
		resp, _ := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, _ := s.do(t, http.MethodDelete, "/api/genres/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/movies/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteGenreCascades(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodDelete, "/api/genres/5", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var m models.Movie
	s.decode(t, http.MethodGet, "/api/movies/1", "", &m)
	assert.Equal(t, []models.Genre{{ID: 1, Name: "Action"}}, m.Genres)
}

func TestEpisodeAdmission(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/api/movies/5/episodes", `{"episodeNumber":2,"serverName":"vietsub"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.EqualValues(t, 2, body["conflictId"])
	assert.Equal(t, "episodeNumber", body["field"])

	resp, body = s.do(t, http.MethodPost, "/api/movies/5/episodes", `{"episodeNumber":3,"serverName":"Vietsub","title":"Episode 3"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Episode 3", body["title"])

	resp, _ = s.do(t, http.MethodPost, "/api/movies/1/episodes", `{"episodeNumber":1,"serverName":"Vietsub"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var eps []models.Episode
	s.decode(t, http.MethodGet, "/api/movies/5/episodes", "", &eps)
	assert.Len(t, eps, 4)
}

func TestReorderSeriesMovies(t *testing.T) {
	s := newTestServer(t)

	var edges []models.SeriesMovie
	resp := s.decode(t, http.MethodPost, "/api/series/1/movies/reorder", `{"from":2,"to":0}`, &edges)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	want := []models.SeriesMovie{
		{SeriesID: 1, MovieID: 3, SeasonNumber: 1},
		{SeriesID: 1, MovieID: 1, SeasonNumber: 2},
		{SeriesID: 1, MovieID: 2, SeasonNumber: 3},
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("series entries mismatch (-want +got):\n%s", diff)
	}

	resp, _ = s.do(t, http.MethodPost, "/api/series/1/movies/reorder", `{"from":0,"to":7}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSync(t *testing.T) {
	s := newTestServer(t)

	var out syncResponse
	resp := s.decode(t, http.MethodPost, "/api/sync/genres", "", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Started)
	assert.Equal(t, syncer.StatusFailed, out.Report.Status)
	assert.Contains(t, out.Report.Message, "no remote data source configured")

	var history []db.SyncRun
	s.decode(t, http.MethodGet, "/api/sync/genres/history", "", &history)
	assert.Len(t, history, 1)

	var acked syncer.Report
	s.decode(t, http.MethodPost, "/api/sync/genres/ack", "", &acked)
	assert.Equal(t, syncer.StatusIdle, acked.Status)

	ok, err := s.busy.TryLock(context.Background(), "genres")
	require.NoError(t, err)
	require.True(t, ok)
	resp = s.decode(t, http.MethodPost, "/api/sync/genres", "", &out)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.False(t, out.Started)

	resp, _ = s.do(t, http.MethodPost, "/api/sync/nothing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAvailability(t *testing.T) {
	s := newTestServer(t)

	var got availability
	s.decode(t, http.MethodGet, "/api/settings/availability", "", &got)
	assert.True(t, got.Available)

	resp, _ := s.do(t, http.MethodPut, "/api/settings/availability", `{"available":false}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.decode(t, http.MethodGet, "/api/settings/availability", "", &got)
	assert.False(t, got.Available)

	resp, _ = s.do(t, http.MethodPut, "/api/settings/session", `{"token":"abc"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestOptionalIntegrationsUnavailable(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodPost, "/api/movies/import/plex", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/movies/1/describe", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/actors/import/6384", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatsAndCounts(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 7, body["totalMovies"])

	var counts catalog.Counts
	s.decode(t, http.MethodGet, "/api/counts", "", &counts)
	assert.Equal(t, 4, counts.Genres[1])
}
