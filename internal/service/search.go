package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/model"
)

// MaxTermLength is the longest normalized term, in characters, that can be
// recorded.
const MaxTermLength = 255

// NormalizeTerm collapses whitespace runs to a single space, trims and
// lower-cases raw.
func NormalizeTerm(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

// Searcher records search terms and imports remote hits as minimal movies.
type Searcher struct {
	terms  SearchTermStore
	movies MovieStore
	meta   MetadataClient
	log    *logrus.Entry
	now    func() time.Time
	cache  CacheInvalidator // optional
}

func NewSearcher(terms SearchTermStore, movies MovieStore, meta MetadataClient, log *logrus.Entry) *Searcher {
	return &Searcher{
		terms:  terms,
		movies: movies,
		meta:   meta,
		log:    log.WithField("component", "searcher"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// RecordAndDispatch stores the normalized term (or refreshes its
// last_searched time), then searches the metadata service and creates a
// minimal movie for every hit whose external id is not yet known.
func (s *Searcher) RecordAndDispatch(ctx context.Context, raw string) error {
	term := NormalizeTerm(raw)
	if term == "" {
		return invalid("term", "search term must not be blank")
	}
	if utf8.RuneCountInString(term) > MaxTermLength {
		return invalid("term", fmt.Sprintf("search term must be at most %d characters", MaxTermLength))
	}
	if _, err := s.terms.Touch(ctx, term, s.now()); err != nil {
		return fmt.Errorf("record term: %w", err)
	}
	metrics.SearchTermsRecorded.Inc()

	hits, err := s.meta.Search(ctx, term)
	if err != nil {
		s.log.WithError(err).WithField("term", term).Warn("remote search failed")
		return fmt.Errorf("search %q: %w: %w", term, ErrUpstream, err)
	}
	imported := 0
	for _, hit := range hits {
		m := &model.Movie{Title: hit.Title, Year: hit.Year, ExternalID: hit.ExternalID}
		created, err := s.movies.CreateMinimal(ctx, m)
		if err != nil {
			return fmt.Errorf("import %s: %w", hit.ExternalID, err)
		}
		if created {
			imported++
		}
	}
	if imported > 0 {
		metrics.MoviesImported.Add(float64(imported))
		purgeCache(ctx, s.cache, s.log)
		s.log.WithField("term", term).WithField("imported", imported).Info("imported movies from search")
	}
	return nil
}
