package router // package router defines how HTTP routes are registered for the API

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movienight/internal/handler"
	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/middleware"
	"github.com/iliyamo/movienight/internal/service"
)

// RegisterRoutes registers the probes and the Prometheus scrape endpoint.
// db may be nil, in which case /readyz is not mounted.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAuth registers the account endpoints.  Register, login, refresh
// and logout need no session; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh) // rotates the refresh token
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterCatalog registers the public movie endpoints.  Listings go
// through the response cache; search, which writes and calls the metadata
// service, goes through the rate limiter instead.
func RegisterCatalog(e *echo.Echo, m *handler.MovieHandler, cache, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/genres", m.Genres, cache)
	g.GET("/movies", m.List, cache)
	g.GET("/movies/search", m.Search, limit)
	g.GET("/movies/:id", m.Get)
}

// RegisterScreenings registers the movie night endpoints.  All of them
// require authentication; updates are limited to the creator.
func RegisterScreenings(e *echo.Echo, h *handler.ScreeningHandler, jwtSecret string) {
	g := e.Group("/v1/movie-nights", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List, middleware.Ordering(handler.Orderings()...))
	g.POST("", h.Create)
	g.GET("/:id", h.Get)

	owner := middleware.RequireOwner(creatorLookup(h.Screenings))
	g.PUT("/:id", h.Update, owner)
	g.PATCH("/:id", h.Update, owner)
}

func creatorLookup(s *service.Screenings) middleware.OwnerLookup {
	return func(ctx context.Context, id uint64) (uint64, error) {
		owner, err := s.CreatorOf(ctx, id)
		if errors.Is(err, service.ErrNotFound) {
			return 0, middleware.ErrOwnerNotFound
		}
		return owner, err
	}
}
