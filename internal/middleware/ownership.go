package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ErrOwnerNotFound must be returned by an OwnerLookup for a missing record.
var ErrOwnerNotFound = errors.New("owner lookup: not found")

// OwnerLookup returns the id of the user owning the record with the given id.
type OwnerLookup func(ctx context.Context, id uint64) (uint64, error)

// RequireOwner lets a request through only when the authenticated user owns
// the record named by the ":id" path parameter.  A missing record is 404, a
// foreign one 403.  It must run after JWTAuth.
func RequireOwner(lookup OwnerLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := UserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			id, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || id == 0 {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			}
			owner, err := lookup(c.Request().Context(), id)
			switch {
			case errors.Is(err, ErrOwnerNotFound):
				return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
			case err != nil:
				return err
			case owner != uid:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "only the creator may modify this movie night"})
			}
			return next(c)
		}
	}
}
