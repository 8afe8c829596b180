package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/movienight/internal/model"
)

// MovieRepo manages persistence for movies and their genre links.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

const movieColumns = `m.id, m.title, m.year, m.runtime_minutes, m.external_id, m.plot, m.is_full_record`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(s rowScanner, m *model.Movie) error {
	var runtime sql.NullInt64
	var plot sql.NullString
	if err := s.Scan(&m.ID, &m.Title, &m.Year, &runtime, &m.ExternalID, &plot, &m.IsFullRecord); err != nil {
		return err
	}
	m.RuntimeMinutes = intFromNull(runtime)
	m.Plot = stringFromNull(plot)
	return nil
}

// GetByID retrieves a movie with its genres.  It returns ErrMovieNotFound
// if there is no matching row.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	err := scanMovie(r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id), &m)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	genres, err := genresForMovies(ctx, r.db, []uint64{m.ID})
	if err != nil {
		return nil, err
	}
	m.Genres = genres[m.ID]
	return &m, nil
}

// List returns every movie ordered by title then year.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies m ORDER BY m.title ASC, m.year ASC, m.id ASC`)
}

// SearchTitle returns movies whose title contains term, ignoring case.
func (r *MovieRepo) SearchTitle(ctx context.Context, term string) ([]model.Movie, error) {
	return r.query(ctx, `SELECT `+movieColumns+` FROM movies m
                         WHERE LOWER(m.title) LIKE LOWER(?)
                         ORDER BY m.title ASC, m.year ASC, m.id ASC`, likeContains(term))
}

func (r *MovieRepo) query(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movies := []model.Movie{}
	ids := []uint64{}
	for rows.Next() {
		var m model.Movie
		if err := scanMovie(rows, &m); err != nil {
			return nil, err
		}
		movies = append(movies, m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	genres, err := genresForMovies(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range movies {
		movies[i].Genres = genres[movies[i].ID]
	}
	return movies, nil
}

// CreateMinimal inserts a minimal (not yet enriched) movie unless a movie
// with the same external id already exists.  m.ID is set to the id of the
// new or existing row; created reports whether a row was inserted.
func (r *MovieRepo) CreateMinimal(ctx context.Context, m *model.Movie) (created bool, err error) {
	const q = `INSERT INTO movies (title, year, external_id, is_full_record) VALUES (?, ?, ?, 0)
               ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, q, m.Title, m.Year, m.ExternalID)
	if err != nil {
		return false, fmt.Errorf("insert movie %s: %w", m.ExternalID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	m.ID = uint64(id)
	return n == 1, nil
}

// SaveFullRecord writes the movie's scalar fields, marks it as a full
// record and replaces its genre links, all in one transaction.
func (r *MovieRepo) SaveFullRecord(ctx context.Context, m *model.Movie) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	const upd = `UPDATE movies SET title = ?, year = ?, runtime_minutes = ?, plot = ?, is_full_record = 1 WHERE id = ?`
	res, err := tx.ExecContext(ctx, upd, m.Title, m.Year, nullInt(m.RuntimeMinutes), nullString(m.Plot), m.ID)
	if err != nil {
		return fmt.Errorf("update movie %d: %w", m.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err = tx.QueryRowContext(ctx, `SELECT 1 FROM movies WHERE id = ?`, m.ID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMovieNotFound
			}
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM movie_genres WHERE movie_id = ?`, m.ID); err != nil {
		return fmt.Errorf("clear genres of movie %d: %w", m.ID, err)
	}
	seen := make(map[uint64]bool, len(m.Genres))
	args := []any{}
	for _, g := range m.Genres {
		if seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		args = append(args, m.ID, g.ID)
	}
	if len(args) > 0 {
		values := strings.TrimSuffix(strings.Repeat("(?, ?), ", len(args)/2), ", ")
		if _, err = tx.ExecContext(ctx, `INSERT INTO movie_genres (movie_id, genre_id) VALUES `+values, args...); err != nil {
			return fmt.Errorf("link genres of movie %d: %w", m.ID, translateFK(err))
		}
	}
	m.IsFullRecord = true
	return nil
}
