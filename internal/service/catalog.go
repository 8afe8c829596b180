package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/repository"
)

// Catalog answers movie and genre queries.
type Catalog struct {
	movies   MovieStore
	genres   GenreStore
	enricher *Enricher
	searcher *Searcher
}

func NewCatalog(movies MovieStore, genres GenreStore, enricher *Enricher, searcher *Searcher) *Catalog {
	return &Catalog{movies: movies, genres: genres, enricher: enricher, searcher: searcher}
}

// SetCacheInvalidator makes search imports and enrichments purge cached
// catalog listings.
func (c *Catalog) SetCacheInvalidator(inv CacheInvalidator) {
	c.searcher.cache = inv
	c.enricher.cache = inv
}

// purgeCache drops cached listings after a catalog write.  Failures only
// leave listings stale until their TTL, so they are logged.
func purgeCache(ctx context.Context, inv CacheInvalidator, log *logrus.Entry) {
	if inv == nil {
		return
	}
	if err := inv.Purge(ctx); err != nil {
		log.WithError(err).Warn("catalog cache purge failed")
	}
}

// List returns every movie ordered by title and year.
func (c *Catalog) List(ctx context.Context) ([]model.Movie, error) {
	return c.movies.List(ctx)
}

// Get returns one movie, enriching it first if it is still minimal.
func (c *Catalog) Get(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := c.movies.GetByID(ctx, id)
	if errors.Is(err, repository.ErrMovieNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c.enricher.EnsureFullDetails(ctx, m)
}

// Search records the term, imports remote hits and then returns the local
// movies whose title contains the trimmed term, ignoring case.
func (c *Catalog) Search(ctx context.Context, raw string) ([]model.Movie, error) {
	if err := c.searcher.RecordAndDispatch(ctx, raw); err != nil {
		return nil, err
	}
	return c.movies.SearchTitle(ctx, strings.TrimSpace(raw))
}

// Genres lists all genres by name.
func (c *Catalog) Genres(ctx context.Context) ([]model.Genre, error) {
	return c.genres.List(ctx)
}
