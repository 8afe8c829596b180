package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/service"
)

// movieDTO is the wire shape of a movie.  The external id keeps its
// historical name imdb_id.
type movieDTO struct {
	ID             uint64   `json:"id"`
	Title          string   `json:"title"`
	Year           int      `json:"year"`
	RuntimeMinutes *int     `json:"runtime_minutes"`
	ImdbID         string   `json:"imdb_id"`
	Plot           *string  `json:"plot"`
	Genres         []string `json:"genres"`
}

type creatorDTO struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type screeningDTO struct {
	ID        uint64     `json:"id"`
	Movie     movieDTO   `json:"movie"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time,omitempty"`
	Creator   creatorDTO `json:"creator"`
}

type genreDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func toMovieDTO(m model.Movie) movieDTO {
	return movieDTO{
		ID:             m.ID,
		Title:          m.Title,
		Year:           m.Year,
		RuntimeMinutes: m.RuntimeMinutes,
		ImdbID:         m.ExternalID,
		Plot:           m.Plot,
		Genres:         m.GenreNames(),
	}
}

func toMovieDTOs(ms []model.Movie) []movieDTO {
	out := make([]movieDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMovieDTO(m))
	}
	return out
}

func toScreeningDTO(s model.Screening) screeningDTO {
	d := screeningDTO{
		ID:        s.ID,
		Movie:     toMovieDTO(s.Movie),
		StartTime: formatTime(s.StartTime),
		Creator: creatorDTO{
			Email:     s.Creator.Email,
			FirstName: s.Creator.FirstName,
			LastName:  s.Creator.LastName,
		},
	}
	if end, ok := s.EndTime(); ok {
		d.EndTime = formatTime(end)
	}
	return d
}

func formatTime(t time.Time) string { return t.UTC().Format(service.TimeLayout) }

// parseTime accepts RFC 3339 and the zone-less "2006-01-02T15:04:05" form,
// which is read as UTC.  Sub-second precision is dropped.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("start_time is required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("start_time must look like %s", service.TimeLayout)
}
