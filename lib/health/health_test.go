package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/catalog/lib/db"
	"github.com/icco/catalog/lib/types"
)

type staticStatus []types.SourceStatus

func (s staticStatus) Status() []types.SourceStatus { return s }

func TestCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := db.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)

	reporter := staticStatus{
		{Entity: "movies", Origin: "fallback", Reason: "no remote data source configured", Count: 7},
		{Entity: "genres", Origin: "fallback", Count: 6},
	}

	rec := httptest.NewRecorder()
	Check(gdb, reporter)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got Health
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.DB.Status)
	assert.Equal(t, "fallback", got.DataSource)
	assert.Len(t, got.Sources, 2)
}

func TestCheckClosedDatabase(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gdb, err := db.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := httptest.NewRecorder()
	Check(gdb, nil)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "none", Summarize(nil))
	assert.Equal(t, "remote", Summarize([]types.SourceStatus{{Origin: "remote"}, {Origin: "remote"}}))
	assert.Equal(t, "mixed", Summarize([]types.SourceStatus{{Origin: "remote"}, {Origin: "fallback"}}))
}
