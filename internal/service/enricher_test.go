package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movienight/internal/logging"
	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/testutil"
)

func newEnricher(db *testutil.Memory, meta *testutil.FakeMetadata) *Enricher {
	return NewEnricher(db.Genres(), db.Movies(), meta, logging.Discard())
}

func TestResolveGenresIsIdempotentAndOrdered(t *testing.T) {
	db := testutil.NewMemory()
	e := newEnricher(db, testutil.NewFakeMetadata())
	ctx := context.Background()

	first, err := e.ResolveGenres(ctx, []string{"Action", "Sci-Fi"})
	require.NoError(t, err)
	second, err := e.ResolveGenres(ctx, []string{"Action", "Sci-Fi"})
	require.NoError(t, err)

	assert.Equal(t, 2, db.GenreCount())
	assert.Equal(t, []string{"Action", "Sci-Fi"}, model.Movie{Genres: first}.GenreNames())
	assert.Equal(t, first, second)
}

func TestResolveGenresKeepsDuplicatesAndCase(t *testing.T) {
	db := testutil.NewMemory()
	e := newEnricher(db, testutil.NewFakeMetadata())

	got, err := e.ResolveGenres(context.Background(), []string{"Sci-Fi", "Action", "Sci-Fi", "action"})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, got[0], got[2])
	assert.NotEqual(t, got[1].ID, got[3].ID)
	assert.Equal(t, 3, db.GenreCount())
}

func TestEnsureFullDetailsSkipsFullRecords(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	e := newEnricher(db, meta)
	m := db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277", IsFullRecord: true})

	got, err := e.EnsureFullDetails(context.Background(), &m)
	require.NoError(t, err)
	assert.Same(t, &m, got)
	assert.Equal(t, 0, meta.DetailCalls())
	assert.Equal(t, 0, db.SaveCalls)
}

func TestEnsureFullDetailsEnrichesMinimalRecord(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.SetDetails("tt0133093", model.MovieDetails{
		Title: "The Matrix", Year: 1999, Plot: testutil.StrPtr("..."),
		RuntimeMinutes: testutil.IntPtr(120), GenreNames: []string{"Action", "Sci-Fi"},
	})
	e := newEnricher(db, meta)
	m := db.AddMovie(model.Movie{Title: "The Matrix", Year: 1999, ExternalID: "tt0133093", Genres: []model.Genre{{Name: "Drama"}}})

	got, err := e.EnsureFullDetails(context.Background(), &m)
	require.NoError(t, err)
	assert.True(t, got.IsFullRecord)
	assert.Equal(t, 120, *got.RuntimeMinutes)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, got.GenreNames())

	stored, err := db.Movies().GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsFullRecord)
	assert.Equal(t, "...", *stored.Plot)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, stored.GenreNames())

	// A second pass is a no-op.
	_, err = e.EnsureFullDetails(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.DetailCalls())
}

func TestEnsureFullDetailsPropagatesLookupFailure(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.Fail = true
	e := newEnricher(db, meta)
	m := db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})

	_, err := e.EnsureFullDetails(context.Background(), &m)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.True(t, errors.Is(err, testutil.ErrUnavailable))

	stored, err := db.Movies().GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsFullRecord)
	assert.Equal(t, 0, db.SaveCalls)
}

func TestEnsureFullDetailsCollapsesConcurrentCalls(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.SetDetails("tt0113277", model.MovieDetails{Title: "Heat", Year: 1995, GenreNames: []string{"Crime"}})
	meta.Gate = make(chan struct{})
	e := newEnricher(db, meta)
	m := db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})

	const n = 8
	var wg sync.WaitGroup
	started := make(chan struct{}, n)
	results := make([]*model.Movie, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cp := m
			started <- struct{}{}
			got, err := e.EnsureFullDetails(context.Background(), &cp)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	for i := 0; i < n; i++ {
		<-started
	}
	assert.Eventually(t, func() bool { return meta.DetailCalls() >= 1 }, time.Second, time.Millisecond)
	close(meta.Gate)
	wg.Wait()

	assert.LessOrEqual(t, meta.DetailCalls(), n)
	assert.LessOrEqual(t, db.SaveCalls, meta.DetailCalls())
	for _, r := range results {
		require.NotNil(t, r)
		assert.True(t, r.IsFullRecord)
		assert.Equal(t, []string{"Crime"}, r.GenreNames())
	}
	assert.Equal(t, 1, db.GenreCount())
}
