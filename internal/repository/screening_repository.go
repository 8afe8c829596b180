package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/movienight/internal/model"
)

// ScreeningRepo stores movie nights.
type ScreeningRepo struct {
	db *sql.DB
}

func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

// screeningOrderBy whitelists ORDER BY clauses by ordering key.
var screeningOrderBy = map[string]string{
	"":                       "s.creator_id ASC, s.start_time ASC, s.id ASC",
	model.OrderStartTime:     "s.start_time ASC, s.id ASC",
	model.OrderStartTimeDesc: "s.start_time DESC, s.id DESC",
	model.OrderID:            "s.id ASC",
	model.OrderIDDesc:        "s.id DESC",
}

// ErrUnknownOrdering is returned by List for an ordering it does not support.
var ErrUnknownOrdering = errors.New("unknown ordering")

const screeningSelect = `SELECT s.id, s.movie_id, s.start_time, s.creator_id,
       m.id, m.title, m.year, m.runtime_minutes, m.external_id, m.plot, m.is_full_record,
       u.id, u.email, u.first_name, u.last_name
  FROM screenings s
  JOIN movies m ON m.id = s.movie_id
  JOIN users u ON u.id = s.creator_id`

func scanScreening(s rowScanner, sc *model.Screening) error {
	var runtime sql.NullInt64
	var plot sql.NullString
	m := &sc.Movie
	u := &sc.Creator
	if err := s.Scan(&sc.ID, &sc.MovieID, &sc.StartTime, &sc.CreatorID,
		&m.ID, &m.Title, &m.Year, &runtime, &m.ExternalID, &plot, &m.IsFullRecord,
		&u.ID, &u.Email, &u.FirstName, &u.LastName); err != nil {
		return err
	}
	sc.StartTime = sc.StartTime.UTC()
	m.RuntimeMinutes = intFromNull(runtime)
	m.Plot = stringFromNull(plot)
	return nil
}

// Create inserts a screening and sets its ID.  A movie or creator that does
// not exist yields ErrMissingReference.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO screenings (movie_id, start_time, creator_id) VALUES (?, ?, ?)`,
		s.MovieID, s.StartTime.UTC(), s.CreatorID)
	if err != nil {
		return fmt.Errorf("insert screening: %w", translateFK(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID loads a screening with its movie (and genres) and creator.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	var s model.Screening
	if err := scanScreening(r.db.QueryRowContext(ctx, screeningSelect+` WHERE s.id = ?`, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScreeningNotFound
		}
		return nil, err
	}
	genres, err := genresForMovies(ctx, r.db, []uint64{s.MovieID})
	if err != nil {
		return nil, err
	}
	s.Movie.Genres = genres[s.MovieID]
	return &s, nil
}

// List returns every screening in the requested ordering.
func (r *ScreeningRepo) List(ctx context.Context, ordering string) ([]model.Screening, error) {
	orderBy, ok := screeningOrderBy[ordering]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrdering, ordering)
	}
	rows, err := r.db.QueryContext(ctx, screeningSelect+` ORDER BY `+orderBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Screening{}
	var movieIDs []uint64
	seen := map[uint64]bool{}
	for rows.Next() {
		var s model.Screening
		if err := scanScreening(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
		if !seen[s.MovieID] {
			seen[s.MovieID] = true
			movieIDs = append(movieIDs, s.MovieID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	genres, err := genresForMovies(ctx, r.db, movieIDs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Movie.Genres = genres[out[i].MovieID]
	}
	return out, nil
}

// UpdateStartTime reschedules a screening.
func (r *ScreeningRepo) UpdateStartTime(ctx context.Context, id uint64, start time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE screenings SET start_time = ? WHERE id = ?`, start.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows also means "unchanged", so confirm the row exists.
	_, err = r.CreatorID(ctx, id)
	return err
}

// CreatorID returns the id of the user who created the screening.
func (r *ScreeningRepo) CreatorID(ctx context.Context, id uint64) (uint64, error) {
	var creator uint64
	err := r.db.QueryRowContext(ctx, `SELECT creator_id FROM screenings WHERE id = ?`, id).Scan(&creator)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrScreeningNotFound
	}
	return creator, err
}
