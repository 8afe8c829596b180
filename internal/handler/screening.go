package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/middleware"
	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/service"
)

// ScreeningHandler serves /v1/movie-nights.  Every route requires JWTAuth.
type ScreeningHandler struct {
	Screenings *service.Screenings
	Log        *logrus.Entry
}

func NewScreeningHandler(s *service.Screenings, log *logrus.Entry) *ScreeningHandler {
	return &ScreeningHandler{Screenings: s, Log: log}
}

type createScreeningReq struct {
	Movie     uint64 `json:"movie"`
	StartTime string `json:"start_time"`
}

type updateScreeningReq struct {
	StartTime string `json:"start_time"`
}

// List handles GET /v1/movie-nights.  The ordering comes from the Ordering
// middleware.
func (h *ScreeningHandler) List(c echo.Context) error {
	list, err := h.Screenings.List(c.Request().Context(), middleware.OrderingFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]screeningDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toScreeningDTO(s))
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /v1/movie-nights.
func (h *ScreeningHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req createScreeningReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "start_time"})
	}
	s, err := h.Screenings.Create(c.Request().Context(), uid, req.Movie, start)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toScreeningDTO(*s))
}

// Get handles GET /v1/movie-nights/:id.
func (h *ScreeningHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	s, err := h.Screenings.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreeningDTO(*s))
}

// Update handles PUT and PATCH /v1/movie-nights/:id.  Only start_time can
// change.  A PATCH without start_time returns the record unchanged.
func (h *ScreeningHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	var req updateScreeningReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if c.Request().Method == http.MethodPatch && strings.TrimSpace(req.StartTime) == "" {
		// Nothing to change.
		return h.Get(c)
	}
	start, err := parseTime(req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "field": "start_time"})
	}
	s, err := h.Screenings.Update(c.Request().Context(), uid, id, start)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toScreeningDTO(*s))
}

// Orderings lists the values GET /v1/movie-nights accepts for ?ordering=.
func Orderings() []string { return model.ScreeningOrderings }
