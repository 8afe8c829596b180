package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SearchTermRepo records normalized search terms.
type SearchTermRepo struct {
	db *sql.DB
}

func NewSearchTermRepo(db *sql.DB) *SearchTermRepo { return &SearchTermRepo{db: db} }

// Touch creates the term or, if it is already known, moves its
// last_searched timestamp to at.  created reports whether a row was
// inserted.
func (r *SearchTermRepo) Touch(ctx context.Context, term string, at time.Time) (created bool, err error) {
	const q = `INSERT INTO search_terms (term, last_searched) VALUES (?, ?)
               ON DUPLICATE KEY UPDATE last_searched = VALUES(last_searched)`
	res, err := r.db.ExecContext(ctx, q, term, at.UTC())
	if err != nil {
		return false, fmt.Errorf("record search term %q: %w", term, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
