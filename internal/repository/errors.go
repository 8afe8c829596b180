// Package repository defines the MySQL-backed stores and the error values
// they share.  These sentinel values allow higher layers such as services
// and handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrMovieNotFound     = errors.New("movie not found")
	ErrScreeningNotFound = errors.New("screening not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailExists       = errors.New("email already exists")
)

// ErrProtected is returned when a delete is rejected because other rows
// still reference the target (e.g. a movie with scheduled screenings).
var ErrProtected = errors.New("referenced by other records")

// ErrMissingReference is returned when an insert or update points at a row
// that does not exist.
var ErrMissingReference = errors.New("referenced record does not exist")

// MySQL server error numbers the stores translate.
const (
	errDupEntry         = 1062
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errRowIsReferenced2 = 1217
	errNoReferencedRow2 = 1216
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrNumber(err) == errDupEntry }

// translateFK maps foreign key violations to ErrProtected or
// ErrMissingReference and returns other errors unchanged.
func translateFK(err error) error {
	switch mysqlErrNumber(err) {
	case errRowIsReferenced, errRowIsReferenced2:
		return ErrProtected
	case errNoReferencedRow, errNoReferencedRow2:
		return ErrMissingReference
	}
	return err
}
