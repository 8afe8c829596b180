package model

import "time"

// SearchTerm records a distinct normalized search string and the last time
// somebody searched for it.
type SearchTerm struct {
	ID           uint64    // search_terms.id
	Term         string    // search_terms.term
	LastSearched time.Time // search_terms.last_searched
}

func (s SearchTerm) String() string { return s.Term }
