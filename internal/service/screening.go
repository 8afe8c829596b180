package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/queue"
	"github.com/iliyamo/movienight/internal/repository"
)

// TimeLayout is the wire format of screening timestamps.
const TimeLayout = "2006-01-02T15:04:05Z"

// Screenings implements the movie night lifecycle.  There is no delete.
type Screenings struct {
	screenings ScreeningStore
	movies     MovieStore
	events     EventPublisher // nil disables events
	log        *logrus.Entry
	now        func() time.Time
}

func NewScreenings(screenings ScreeningStore, movies MovieStore, events EventPublisher, log *logrus.Entry) *Screenings {
	return &Screenings{
		screenings: screenings,
		movies:     movies,
		events:     events,
		log:        log.WithField("component", "screenings"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Screenings) checkStart(start time.Time) error {
	if start.IsZero() {
		return invalid("start_time", "start time is required")
	}
	if !start.After(s.now()) {
		return invalid("start_time", "start time must be in the future")
	}
	return nil
}

// Create schedules a movie night owned by actorID.
func (s *Screenings) Create(ctx context.Context, actorID, movieID uint64, start time.Time) (*model.Screening, error) {
	if movieID == 0 {
		return nil, invalid("movie", "movie is required")
	}
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, invalid("movie", "movie does not exist")
		}
		return nil, err
	}
	if err := s.checkStart(start); err != nil {
		return nil, err
	}

	sc := &model.Screening{MovieID: movieID, StartTime: start.UTC(), CreatorID: actorID}
	if err := s.screenings.Create(ctx, sc); err != nil {
		if errors.Is(err, repository.ErrMissingReference) {
			return nil, s.missingReference(ctx, actorID, movieID)
		}
		return nil, fmt.Errorf("create screening: %w", err)
	}
	metrics.ScreeningsWritten.WithLabelValues("create").Inc()

	out, err := s.screenings.GetByID(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "created", out)
	return out, nil
}

// missingReference tells which foreign key of a rejected insert is dangling.
func (s *Screenings) missingReference(ctx context.Context, actorID, movieID uint64) error {
	if _, err := s.movies.GetByID(ctx, movieID); errors.Is(err, repository.ErrMovieNotFound) {
		return invalid("movie", "movie does not exist")
	}
	s.log.WithField("user_id", actorID).Warn("screening creator does not exist")
	return ErrUnknownActor
}

// Update reschedules a movie night.  Only its creator may do so.
func (s *Screenings) Update(ctx context.Context, actorID, id uint64, start time.Time) (*model.Screening, error) {
	creator, err := s.screenings.CreatorID(ctx, id)
	if errors.Is(err, repository.ErrScreeningNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if creator != actorID {
		return nil, ErrForbidden
	}
	if err := s.checkStart(start); err != nil {
		return nil, err
	}
	if err := s.screenings.UpdateStartTime(ctx, id, start.UTC()); err != nil {
		if errors.Is(err, repository.ErrScreeningNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update screening %d: %w", id, err)
	}
	metrics.ScreeningsWritten.WithLabelValues("update").Inc()

	out, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "rescheduled", out)
	return out, nil
}

// Get returns one movie night.
func (s *Screenings) Get(ctx context.Context, id uint64) (*model.Screening, error) {
	sc, err := s.screenings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrScreeningNotFound) {
		return nil, ErrNotFound
	}
	return sc, err
}

// List returns all movie nights.  An empty ordering means (creator,
// start_time).
func (s *Screenings) List(ctx context.Context, ordering string) ([]model.Screening, error) {
	if ordering != "" && !slices.Contains(model.ScreeningOrderings, ordering) {
		return nil, invalid("ordering", fmt.Sprintf("unsupported ordering %q", ordering))
	}
	return s.screenings.List(ctx, ordering)
}

// CreatorOf returns the creator id of a movie night.
func (s *Screenings) CreatorOf(ctx context.Context, id uint64) (uint64, error) {
	creator, err := s.screenings.CreatorID(ctx, id)
	if errors.Is(err, repository.ErrScreeningNotFound) {
		return 0, ErrNotFound
	}
	return creator, err
}

// publish emits the event in the background; broker failures are logged
// and never fail the request.
func (s *Screenings) publish(ctx context.Context, action string, sc *model.Screening) {
	if s.events == nil {
		return
	}
	ev := queue.ScreeningScheduledEvent{
		Action:       action,
		ScreeningID:  sc.ID,
		MovieID:      sc.MovieID,
		MovieTitle:   sc.Movie.Title,
		CreatorID:    sc.CreatorID,
		CreatorEmail: sc.Creator.Email,
		StartTime:    sc.StartTime.UTC().Format(TimeLayout),
		OccurredAt:   s.now().Format(TimeLayout),
	}
	if end, ok := sc.EndTime(); ok {
		ev.EndTime = end.UTC().Format(TimeLayout)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	go func() {
		defer cancel()
		if err := s.events.PublishScreeningScheduled(ctx, ev); err != nil {
			s.log.WithError(err).WithField("screening_id", sc.ID).Warn("screening event not published")
		}
	}()
}
