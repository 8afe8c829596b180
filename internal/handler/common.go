package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/middleware"
	"github.com/iliyamo/movienight/internal/service"
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the id JWTAuth stored in the context.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoUser
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// writeError maps service errors to HTTP responses.  Unknown errors are
// logged and reported as 500 without details.
func writeError(c echo.Context, log *logrus.Entry, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrUnknownActor):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the creator may modify this movie night"})
	case errors.Is(err, service.ErrUpstream):
		log.WithError(err).Warn("metadata service failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "movie metadata service unavailable"})
	}
	log.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
