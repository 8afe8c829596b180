package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/model"
)

// Enricher upgrades minimal movie records to full records using the
// metadata service.
type Enricher struct {
	genres GenreStore
	movies MovieStore
	meta   MetadataClient
	log    *logrus.Entry
	cache  CacheInvalidator // optional

	group singleflight.Group
}

func NewEnricher(genres GenreStore, movies MovieStore, meta MetadataClient, log *logrus.Entry) *Enricher {
	return &Enricher{genres: genres, movies: movies, meta: meta, log: log.WithField("component", "enricher")}
}

// EnsureFullDetails returns m unchanged when it already is a full record.
// Otherwise it fetches the details, replaces the scalar fields and the genre
// set, marks the movie as full and stores it in one transaction.
// Concurrent calls for the same movie share one fetch.
func (e *Enricher) EnsureFullDetails(ctx context.Context, m *model.Movie) (*model.Movie, error) {
	if m.IsFullRecord {
		metrics.Enrichments.WithLabelValues("skipped").Inc()
		return m, nil
	}
	// The shared call must not die with whichever request started it.
	v, err, _ := e.group.Do(m.ExternalID, func() (any, error) {
		return e.enrich(context.WithoutCancel(ctx), *m)
	})
	if err != nil {
		metrics.Enrichments.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Enrichments.WithLabelValues("ok").Inc()
	out := *v.(*model.Movie)
	return &out, nil
}

func (e *Enricher) enrich(ctx context.Context, m model.Movie) (*model.Movie, error) {
	details, err := e.meta.GetByExternalID(ctx, m.ExternalID)
	if err != nil {
		e.log.WithError(err).WithField("external_id", m.ExternalID).Warn("metadata lookup failed")
		return nil, fmt.Errorf("lookup %s: %w: %w", m.ExternalID, ErrUpstream, err)
	}
	genres, err := e.ResolveGenres(ctx, details.GenreNames)
	if err != nil {
		return nil, err
	}

	if details.Title != "" {
		m.Title = details.Title
	}
	if details.Year != 0 {
		m.Year = details.Year
	}
	m.Plot = details.Plot
	m.RuntimeMinutes = details.RuntimeMinutes
	m.Genres = genres
	if err := e.movies.SaveFullRecord(ctx, &m); err != nil {
		return nil, fmt.Errorf("save movie %d: %w", m.ID, err)
	}
	m.Genres = distinctByName(genres)
	purgeCache(ctx, e.cache, e.log)
	e.log.WithField("movie_id", m.ID).WithField("external_id", m.ExternalID).Info("movie enriched")
	return &m, nil
}

// ResolveGenres maps every name to a stored genre, creating missing ones.
// The result is 1:1 with names, in order and including duplicates.  Names
// are used verbatim.
func (e *Enricher) ResolveGenres(ctx context.Context, names []string) ([]model.Genre, error) {
	out := make([]model.Genre, 0, len(names))
	for _, name := range names {
		g, err := e.genres.GetOrCreate(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve genre %q: %w", name, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// distinctByName returns the genre set the store would read back.
func distinctByName(genres []model.Genre) []model.Genre {
	out := slices.Clone(genres)
	slices.SortFunc(out, func(a, b model.Genre) int { return strings.Compare(a.Name, b.Name) })
	return slices.CompactFunc(out, func(a, b model.Genre) bool { return a.ID == b.ID })
}
