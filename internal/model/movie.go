package model

import "fmt"

// Movie represents a catalogued film.  A movie first enters the catalog
// as a minimal record (title, year and external id taken from a search
// hit) and becomes a full record once its details were fetched from the
// metadata service.
//
// Fields:
//
//	ID             – primary key identifier.
//	Title          – display title.
//	Year           – release year.
//	RuntimeMinutes – running time, nil while unknown.
//	ExternalID     – unique IMDb identifier (e.g. tt0133093).
//	Genres         – associated genres ordered by name.
//	Plot           – short synopsis, nil while unknown.
//	IsFullRecord   – true once enrichment completed.
type Movie struct {
	ID             uint64  // movies.id
	Title          string  // movies.title
	Year           int     // movies.year
	RuntimeMinutes *int    // movies.runtime_minutes (nullable)
	ExternalID     string  // movies.external_id
	Genres         []Genre // movie_genres join
	Plot           *string // movies.plot (nullable)
	IsFullRecord   bool    // movies.is_full_record
}

func (m Movie) String() string {
	return fmt.Sprintf("%s (%d)", m.Title, m.Year)
}

// GenreNames returns the names of the movie's genres in their stored order.
func (m Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		names = append(names, g.Name)
	}
	return names
}

// MovieDetails is the full metadata bundle returned by the external
// lookup for a single movie.
type MovieDetails struct {
	Title          string
	Year           int
	Plot           *string
	RuntimeMinutes *int
	GenreNames     []string
}

// MovieSummary is a single hit of a remote search.
type MovieSummary struct {
	ExternalID string
	Title      string
	Year       int
}
