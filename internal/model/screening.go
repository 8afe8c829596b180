package model

import (
	"fmt"
	"time"
)

// Screening is a scheduled movie night.  Movie and creator never change
// after creation; only StartTime may be rescheduled.
type Screening struct {
	ID        uint64    // screenings.id
	MovieID   uint64    // screenings.movie_id
	Movie     Movie     // joined movie row
	StartTime time.Time // screenings.start_time (UTC)
	CreatorID uint64    // screenings.creator_id
	Creator   User      // joined user row
}

// EndTime returns StartTime plus the movie runtime.  The second result is
// false when the runtime is unknown.
func (s Screening) EndTime() (time.Time, bool) {
	if s.Movie.RuntimeMinutes == nil || *s.Movie.RuntimeMinutes == 0 {
		return time.Time{}, false
	}
	return s.StartTime.Add(time.Duration(*s.Movie.RuntimeMinutes) * time.Minute), true
}

func (s Screening) String() string {
	return fmt.Sprintf("%s - %s", s.Movie.String(), s.Creator.Email)
}

// Accepted values of the ordering query parameter for screening lists.  An
// empty ordering means the default (creator, start_time).
const (
	OrderStartTime     = "start_time"
	OrderStartTimeDesc = "-start_time"
	OrderID            = "id"
	OrderIDDesc        = "-id"
)

// ScreeningOrderings lists every explicit ordering a caller may request.
var ScreeningOrderings = []string{OrderStartTime, OrderStartTimeDesc, OrderID, OrderIDDesc}
