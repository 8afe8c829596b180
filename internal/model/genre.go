package model

// Genre is a row in the `genres` table.  Names are unique and compared
// byte-for-byte, so "Sci-Fi" and "sci-fi" are different genres.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name
}
