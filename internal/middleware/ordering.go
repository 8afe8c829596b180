package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

const orderingKey = "ordering"

// Ordering validates the "ordering" query parameter against allowed and
// stores it in the context.  An absent parameter stores "".
func Ordering(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			o := c.QueryParam("ordering")
			if o != "" && !slices.Contains(allowed, o) {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error":   "unsupported ordering",
					"field":   "ordering",
					"allowed": allowed,
				})
			}
			c.Set(orderingKey, o)
			return next(c)
		}
	}
}

// OrderingFrom returns the ordering stored by Ordering.
func OrderingFrom(c echo.Context) string {
	o, _ := c.Get(orderingKey).(string)
	return o
}
