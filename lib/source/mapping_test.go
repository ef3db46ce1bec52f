package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/catalog/lib/remote"
	"github.com/icco/catalog/models"
)

func TestMapMovie(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 7,
		"name": "Người Nhện",
		"originName": "Spider-Man",
		"content": "A hero.",
		"year": 2002,
		"type": "phim-bo",
		"time": "45 min/ep",
		"status": "COMPLETED",
		"tmdbVoteAverage": 7.3,
		"imdbRating": 7.4,
		"view": 1200,
		"categories": [{"id": 1, "name": "Action"}],
		"countries": [{"id": 2, "name": "USA"}],
		"createdAt": "2024-03-01T10:00:00"
	}`)

	m, err := MapMovie(raw)
	require.NoError(t, err)

	want := models.Movie{
		ID:           7,
		Title:        "Người Nhện",
		OriginalName: "Spider-Man",
		Description:  "A hero.",
		ReleaseYear:  2002,
		Type:         models.TypeSeries,
		Duration:     "45 min/ep",
		Status:       "completed",
		TMDBRating:   7.3,
		IMDBRating:   7.4,
		Views:        1200,
		Genres:       []models.Genre{{ID: 1, Name: "Action"}},
		Countries:    []models.Country{{ID: 2, Name: "USA"}},
		CreatedAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Slug:         "nguoi-nhen",
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("MapMovie mismatch (-want +got):\n%s", diff)
	}
}

func TestMapMovie_RequiresID(t *testing.T) {
	_, err := MapMovie(json.RawMessage(`{"name":"x"}`))
	assert.Error(t, err)
}

func TestMapActor_NumericGender(t *testing.T) {
	a, err := MapActor(json.RawMessage(`{"id":3,"name":"Tom","tmdbId":31,"gender":2}`))
	require.NoError(t, err)
	assert.Equal(t, models.GenderMale, a.Gender)
	require.NotNil(t, a.TMDBID)
	assert.Equal(t, int64(31), *a.TMDBID)

	a, err = MapActor(json.RawMessage(`{"id":4,"name":"Ann","gender":"FEMALE"}`))
	require.NoError(t, err)
	assert.Equal(t, models.GenderFemale, a.Gender)
	assert.Nil(t, a.TMDBID)
}

func TestMapUser_Roles(t *testing.T) {
	u, err := MapUser(json.RawMessage(`{"id":42,"username":"ana","email":"a@x.io","gender":1,"roles":[{"name":"ROLE_USER"},{"name":"ROLE_ADMIN"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "42", u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, models.GenderFemale, u.Gender)

	u, err = MapUser(json.RawMessage(`{"id":"b1","username":"bo","role":"user"}`))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, models.GenderUnknown, u.Gender)
}

func TestMapEpisode(t *testing.T) {
	e, err := MapEpisode(json.RawMessage(`{"id":5,"movieId":7,"name":"Tập 1","episodeNumber":1,"serverName":"Vietsub #1","linkEmbed":"https://e.x/1"}`))
	require.NoError(t, err)
	assert.Equal(t, "Tập 1", e.Title)
	assert.Equal(t, "https://e.x/1", e.EmbedURL)

	_, err = MapEpisode(json.RawMessage(`{"id":5}`))
	assert.Error(t, err)
}

func TestFromRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"content":[{"id":1,"name":"Drama"},{"id":2,"name":"Comedy"}],"totalPages":1,"number":0,"last":true}}`)
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL, 10, time.Second, nil, testLogger())
	fetch := FromRemote(client, "genres", MapGenre)
	got, err := fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Genre{{ID: 1, Name: "Drama"}, {ID: 2, Name: "Comedy"}}, got)

	assert.Nil(t, FromRemote[models.Genre](nil, "genres", MapGenre))
}

func TestFromRemote_MapFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"content":[{"name":"no id"}],"totalPages":1,"last":true}}`)
	}))
	defer srv.Close()

	client := remote.NewClient(srv.URL, 10, time.Second, nil, testLogger())
	_, err := FromRemote(client, "movies", MapMovie)(context.Background())
	assert.ErrorContains(t, err, "failed to map movies record 0")
}
