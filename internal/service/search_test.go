package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movienight/internal/logging"
	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/testutil"
)

func TestNormalizeTerm(t *testing.T) {
	cases := map[string]string{
		"  TeSt   SEaRCh   TERM  ": "test search term",
		"Matrix":                   "matrix",
		"\tthe\n matrix ":          "the matrix",
		"   ":                      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTerm(in), "input %q", in)
	}
}

func newCatalog(db *testutil.Memory, meta *testutil.FakeMetadata) (*Catalog, *Searcher) {
	log := logging.Discard()
	searcher := NewSearcher(db.Terms(), db.Movies(), meta, log)
	enricher := NewEnricher(db.Genres(), db.Movies(), meta, log)
	return NewCatalog(db.Movies(), db.Genres(), enricher, searcher), searcher
}

func TestRecordAndDispatchTouchesOneRow(t *testing.T) {
	db := testutil.NewMemory()
	_, s := newCatalog(db, testutil.NewFakeMetadata())
	clock := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	require.NoError(t, s.RecordAndDispatch(context.Background(), "  TeSt   SEaRCh   TERM  "))
	first, ok := db.Term("test search term")
	require.True(t, ok)

	clock = clock.Add(time.Hour)
	require.NoError(t, s.RecordAndDispatch(context.Background(), "test SEARCH term"))
	second, _ := db.Term("test search term")

	assert.Equal(t, 1, db.TermCount())
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.LastSearched.After(first.LastSearched))
}

func TestRecordAndDispatchImportsUnknownHits(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	existing := db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277", IsFullRecord: true})
	meta.SetHits("heat",
		model.MovieSummary{ExternalID: "tt0113277", Title: "Heat", Year: 1995},
		model.MovieSummary{ExternalID: "tt0093164", Title: "Heat", Year: 1986},
	)
	_, s := newCatalog(db, meta)

	require.NoError(t, s.RecordAndDispatch(context.Background(), " HEAT "))
	assert.Equal(t, "heat", meta.LastSearch())
	assert.Equal(t, 2, db.MovieCount())

	kept, err := db.Movies().GetByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.True(t, kept.IsFullRecord)

	// Repeating the search imports nothing new.
	require.NoError(t, s.RecordAndDispatch(context.Background(), "heat"))
	assert.Equal(t, 2, db.MovieCount())
}

func TestRecordAndDispatchRejectsBlankTerm(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	_, s := newCatalog(db, meta)

	err := s.RecordAndDispatch(context.Background(), "   ")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "term", ve.Field)
	assert.Equal(t, 0, db.TermCount())
	assert.Equal(t, 0, meta.SearchCalls())
}

func TestRecordAndDispatchRejectsOverlongTerm(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	_, s := newCatalog(db, meta)

	err := s.RecordAndDispatch(context.Background(), strings.Repeat("a", MaxTermLength+45))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "term", ve.Field)
	assert.Equal(t, 0, db.TermCount())
	assert.Equal(t, 0, meta.SearchCalls())

	// The limit counts characters of the normalized term, not bytes.
	require.NoError(t, s.RecordAndDispatch(context.Background(), strings.Repeat("é", MaxTermLength)))
	require.NoError(t, s.RecordAndDispatch(context.Background(), "  "+strings.Repeat("b", MaxTermLength)+"   "))
	assert.Equal(t, 2, db.TermCount())
}

func TestRecordAndDispatchRemoteFailure(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.Fail = true
	_, s := newCatalog(db, meta)

	err := s.RecordAndDispatch(context.Background(), "heat")
	assert.ErrorIs(t, err, ErrUpstream)
	// The term is still recorded.
	assert.Equal(t, 1, db.TermCount())
}

func TestCatalogSearchFiltersByRawTerm(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.SetHits("the matrix", model.MovieSummary{ExternalID: "tt0133093", Title: "The Matrix", Year: 1999})
	db.AddMovie(model.Movie{Title: "The Matrix Reloaded", Year: 2003, ExternalID: "tt0234215"})
	db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})
	c, _ := newCatalog(db, meta)

	got, err := c.Search(context.Background(), "  the MATRIX ")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "The Matrix", got[0].Title)
	assert.Equal(t, "The Matrix Reloaded", got[1].Title)

	// Whitespace inside the raw term is not collapsed for filtering.
	got, err = c.Search(context.Background(), "the  matrix")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCatalogGet(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	meta.SetDetails("tt0113277", model.MovieDetails{Title: "Heat", Year: 1995, RuntimeMinutes: testutil.IntPtr(170), GenreNames: []string{"Drama", "Crime"}})
	m := db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})
	c, _ := newCatalog(db, meta)

	got, err := c.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFullRecord)
	assert.Equal(t, []string{"Crime", "Drama"}, got.GenreNames())

	_, err = c.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	genres, err := c.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Crime", "Drama"}, model.Movie{Genres: genres}.GenreNames())
}

func TestCatalogListOrdersByTitleThenYear(t *testing.T) {
	db := testutil.NewMemory()
	db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "a"})
	db.AddMovie(model.Movie{Title: "Alien", Year: 1979, ExternalID: "b"})
	db.AddMovie(model.Movie{Title: "Heat", Year: 1986, ExternalID: "c"})
	c, _ := newCatalog(db, testutil.NewFakeMetadata())

	got, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Alien (1979)", "Heat (1986)", "Heat (1995)"},
		[]string{got[0].String(), got[1].String(), got[2].String()})
}

func TestCatalogPurgesCacheAfterWrites(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	catalog, _ := newCatalog(db, meta)
	inv := &testutil.FakeInvalidator{}
	catalog.SetCacheInvalidator(inv)
	ctx := context.Background()

	meta.SetHits("heat", model.MovieSummary{ExternalID: "tt0113277", Title: "Heat", Year: 1995})
	_, err := catalog.Search(ctx, "heat")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Purges())

	// Nothing new imported.
	_, err = catalog.Search(ctx, "heat")
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Purges())

	meta.SetDetails("tt0113277", model.MovieDetails{Title: "Heat", Year: 1995, GenreNames: []string{"Crime"}})
	movies, err := catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	_, err = catalog.Get(ctx, movies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Purges())

	_, err = catalog.Get(ctx, movies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Purges())
}

func TestCatalogCachePurgeFailureIsNotFatal(t *testing.T) {
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	catalog, _ := newCatalog(db, meta)
	catalog.SetCacheInvalidator(&testutil.FakeInvalidator{Err: errors.New("redis down")})

	meta.SetHits("heat", model.MovieSummary{ExternalID: "tt0113277", Title: "Heat", Year: 1995})
	movies, err := catalog.Search(context.Background(), "heat")
	require.NoError(t, err)
	assert.Len(t, movies, 1)
}
