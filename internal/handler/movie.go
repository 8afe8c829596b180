package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/service"
)

// MovieHandler serves the read-only catalog.
type MovieHandler struct {
	Catalog *service.Catalog
	Log     *logrus.Entry
}

func NewMovieHandler(catalog *service.Catalog, log *logrus.Entry) *MovieHandler {
	return &MovieHandler{Catalog: catalog, Log: log}
}

// List handles GET /v1/movies.
func (h *MovieHandler) List(c echo.Context) error {
	movies, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovieDTOs(movies))
}

// Get handles GET /v1/movies/:id.  A minimal record is enriched first.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	m, err := h.Catalog.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovieDTO(*m))
}

// Search handles GET /v1/movies/search?term=.
func (h *MovieHandler) Search(c echo.Context) error {
	movies, err := h.Catalog.Search(c.Request().Context(), c.QueryParam("term"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toMovieDTOs(movies))
}

// Genres handles GET /v1/genres.
func (h *MovieHandler) Genres(c echo.Context) error {
	genres, err := h.Catalog.Genres(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]genreDTO, 0, len(genres))
	for _, g := range genres {
		out = append(out, genreDTO{ID: g.ID, Name: g.Name})
	}
	return c.JSON(http.StatusOK, out)
}
