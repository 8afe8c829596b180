package service

import (
	"context"
	"time"

	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/queue"
)

// GenreStore is implemented by repository.GenreRepo.
type GenreStore interface {
	GetOrCreate(ctx context.Context, name string) (model.Genre, error)
	List(ctx context.Context) ([]model.Genre, error)
}

// MovieStore is implemented by repository.MovieRepo.
type MovieStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Movie, error)
	List(ctx context.Context) ([]model.Movie, error)
	SearchTitle(ctx context.Context, term string) ([]model.Movie, error)
	CreateMinimal(ctx context.Context, m *model.Movie) (created bool, err error)
	SaveFullRecord(ctx context.Context, m *model.Movie) error
}

// SearchTermStore is implemented by repository.SearchTermRepo.
type SearchTermStore interface {
	Touch(ctx context.Context, term string, at time.Time) (created bool, err error)
}

// ScreeningStore is implemented by repository.ScreeningRepo.
type ScreeningStore interface {
	Create(ctx context.Context, s *model.Screening) error
	GetByID(ctx context.Context, id uint64) (*model.Screening, error)
	List(ctx context.Context, ordering string) ([]model.Screening, error)
	UpdateStartTime(ctx context.Context, id uint64, start time.Time) error
	CreatorID(ctx context.Context, id uint64) (uint64, error)
}

// MetadataClient is implemented by omdb.Client.
type MetadataClient interface {
	GetByExternalID(ctx context.Context, externalID string) (*model.MovieDetails, error)
	Search(ctx context.Context, term string) ([]model.MovieSummary, error)
}

// EventPublisher is implemented by queue.Publisher.
type EventPublisher interface {
	PublishScreeningScheduled(ctx context.Context, ev queue.ScreeningScheduledEvent) error
}

// CacheInvalidator is implemented by middleware.CachePurger.
type CacheInvalidator interface {
	Purge(ctx context.Context) error
}
