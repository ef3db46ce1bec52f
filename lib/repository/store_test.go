package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/catalog/lib/source"
)

type genre struct {
	ID      int64
	Name    string
	Slug    string
	Aliases []string
	Edited  time.Time
}

type renamePatch struct{ name string }

func (p renamePatch) Apply(g *genre) { g.Name = p.name }

var genreDesc = Descriptor[int64, genre]{
	Name:         "genres",
	ID:           func(g genre) int64 { return g.ID },
	SetID:        func(g *genre, id int64) { g.ID = id },
	NextID:       Sequential[int64],
	Label:        func(g genre) string { return g.Name },
	SearchFields: func(g genre) []string { return []string{g.Name, g.Slug} },
	OnCreate: func(g *genre, now time.Time) {
		g.Slug = strings.ToLower(g.Name)
		g.Edited = now
	},
	OnUpdate: func(before genre, after *genre, now time.Time) {
		if before.Name != after.Name {
			after.Slug = strings.ToLower(after.Name)
		}
		after.Edited = now
	},
	Clone: func(g genre) genre {
		g.Aliases = append([]string(nil), g.Aliases...)
		return g
	},
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seeded(t *testing.T, items ...genre) *Store[int64, genre] {
	t.Helper()
	src := source.New("genres", nil, func() []genre { return items }, nil, testLogger())
	s := New(genreDesc, src, testLogger())
	s.SetClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })
	s.Initialize(context.Background())
	return s
}

func TestStore_InitializeFallback(t *testing.T) {
	s := seeded(t, genre{ID: 1, Name: "Drama"})
	assert.True(t, s.Loaded())
	assert.Equal(t, source.OriginFallback, s.Origin())
	assert.ErrorIs(t, s.Reason(), source.ErrNoRemote)
	assert.Equal(t, 1, s.Len())
}

func TestStore_AddAssignsNextID(t *testing.T) {
	s := seeded(t, genre{ID: 3, Name: "Drama"}, genre{ID: 7, Name: "Comedy"})

	got := s.Add(genre{ID: 1, Name: "Horror"})
	assert.Equal(t, int64(8), got.ID)
	assert.Equal(t, "horror", got.Slug)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got.Edited)

	stored, ok := s.GetByID(8)
	require.True(t, ok)
	assert.Equal(t, got, stored)
}

func TestStore_GetAllReturnsCopies(t *testing.T) {
	s := seeded(t, genre{ID: 1, Name: "Drama", Aliases: []string{"drame"}})

	all := s.GetAll()
	all[0].Name = "changed"
	all[0].Aliases[0] = "changed"

	got, _ := s.GetByID(1)
	assert.Equal(t, "Drama", got.Name)
	assert.Equal(t, []string{"drame"}, got.Aliases)
	assert.Equal(t, 1, s.Len())
}

func TestStore_UpdateRecomputesDerived(t *testing.T) {
	s := seeded(t, genre{ID: 1, Name: "Drama", Slug: "drama"})

	got, ok := s.Update(1, renamePatch{name: "Melodrama"})
	require.True(t, ok)
	assert.Equal(t, "melodrama", got.Slug)
	assert.Equal(t, int64(1), got.ID)

	_, ok = s.Update(42, renamePatch{name: "x"})
	assert.False(t, ok)
}

func TestStore_RewriteKeepsManagedFields(t *testing.T) {
	edited := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := seeded(t,
		genre{ID: 1, Name: "Drama", Slug: "drama", Edited: edited},
		genre{ID: 2, Name: "Comedy", Slug: "comedy", Edited: edited},
	)

	n := s.Rewrite(func(g *genre) bool {
		if g.ID != 1 {
			return false
		}
		g.Aliases = append(g.Aliases, "drame")
		return true
	})
	assert.Equal(t, 1, n)

	want := []genre{
		{ID: 1, Name: "Drama", Slug: "drama", Aliases: []string{"drame"}, Edited: edited},
		{ID: 2, Name: "Comedy", Slug: "comedy", Edited: edited},
	}
	if diff := cmp.Diff(want, s.GetAll()); diff != "" {
		t.Errorf("rewrite mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DeleteThenGet(t *testing.T) {
	s := seeded(t, genre{ID: 1, Name: "Drama"}, genre{ID: 2, Name: "Comedy"})

	var cascaded []int64
	s.OnDelete(func(id int64) { panic("boom") })
	s.OnDelete(func(id int64) { cascaded = append(cascaded, id) })

	assert.True(t, s.Delete(1))
	_, ok := s.GetByID(1)
	assert.False(t, ok)
	assert.False(t, s.Has(1))
	assert.Equal(t, []int64{1}, cascaded)

	assert.False(t, s.Delete(1))
	assert.Equal(t, []int64{1}, cascaded)
}

func TestStore_Search(t *testing.T) {
	s := seeded(t,
		genre{ID: 1, Name: "Science Fiction", Slug: "sci-fi"},
		genre{ID: 2, Name: "Drama", Slug: "drama"},
		genre{ID: 3, Name: "Fiction", Slug: "fiction"},
	)

	ids := func(gs []genre) []int64 {
		var out []int64
		for _, g := range gs {
			out = append(out, g.ID)
		}
		return out
	}
	assert.Equal(t, []int64{1, 3}, ids(s.Search("  FICTION ")))
	assert.Equal(t, []int64{1}, ids(s.Search("sci-")))
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Search("")))
	assert.Empty(t, s.Search("western"))
}

func TestStore_CheckNameExists(t *testing.T) {
	s := seeded(t, genre{ID: 1, Name: "Drama"}, genre{ID: 2, Name: "Comedy"})

	assert.True(t, s.CheckNameExists("drama", nil))
	assert.True(t, s.CheckNameExists(" DRAMA ", nil))
	assert.False(t, s.CheckNameExists("Dram", nil))

	self := int64(1)
	assert.False(t, s.CheckNameExists("Drama", &self))
	other := int64(2)
	assert.True(t, s.CheckNameExists("Drama", &other))
}

func TestStore_SyncFailureLeavesContents(t *testing.T) {
	items := []genre{{ID: 1, Name: "Drama"}}
	var fetchErr error
	fetch := func(context.Context) ([]genre, error) { return items, fetchErr }
	s := New(genreDesc, source.New("genres", fetch, nil, source.Static(true), testLogger()), testLogger())
	s.Initialize(context.Background())
	require.Equal(t, source.OriginRemote, s.Origin())
	before := s.GetAll()

	fetchErr = errors.New("503")
	items = nil
	_, err := s.Sync(context.Background())
	require.Error(t, err)
	if diff := cmp.Diff(before, s.GetAll()); diff != "" {
		t.Errorf("contents changed after failed sync (-before +after):\n%s", diff)
	}

	fetchErr = nil
	items = []genre{{ID: 5, Name: "Horror"}, {ID: 6, Name: "Western"}}
	n, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, source.OriginRemote, s.Origin())
	assert.False(t, s.Has(1))
}

func TestRandomUUID(t *testing.T) {
	id := RandomUUID([]string{"a"})
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, RandomUUID([]string{id}))
}
