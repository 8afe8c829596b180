package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movienight/internal/model"
)

// GenreRepo persists genres.  Names are unique under a binary collation.
type GenreRepo struct {
	db *sql.DB
}

// NewGenreRepo constructs a GenreRepo with the given DB handle.
func NewGenreRepo(db *sql.DB) *GenreRepo {
	return &GenreRepo{db: db}
}

// GetOrCreate returns the genre called name, inserting it first when it does
// not exist.  The insert and the lookup are a single statement: on a
// duplicate key MySQL sets LAST_INSERT_ID to the existing row's id, so two
// requests racing on a brand-new name both end up with the same row.
func (r *GenreRepo) GetOrCreate(ctx context.Context, name string) (model.Genre, error) {
	const q = `INSERT INTO genres (name) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`
	res, err := r.db.ExecContext(ctx, q, name)
	if err != nil {
		return model.Genre{}, fmt.Errorf("upsert genre %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Genre{}, fmt.Errorf("genre id for %q: %w", name, err)
	}
	return model.Genre{ID: uint64(id), Name: name}, nil
}

// List returns all genres ordered by name.
func (r *GenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// genresForMovies loads the genres of every movie in ids, keyed by movie id
// and ordered by name.
func genresForMovies(ctx context.Context, q querier, ids []uint64) (map[uint64][]model.Genre, error) {
	out := make(map[uint64][]model.Genre, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT mg.movie_id, g.id, g.name
              FROM movie_genres mg
              JOIN genres g ON g.id = mg.genre_id
              WHERE mg.movie_id IN (` + placeholders(len(ids)) + `)
              ORDER BY g.name ASC`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var movieID uint64
		var g model.Genre
		if err := rows.Scan(&movieID, &g.ID, &g.Name); err != nil {
			return nil, err
		}
		out[movieID] = append(out[movieID], g)
	}
	return out, rows.Err()
}
