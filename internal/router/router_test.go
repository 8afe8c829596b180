package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/movienight/internal/config"
	"github.com/iliyamo/movienight/internal/handler"
	"github.com/iliyamo/movienight/internal/logging"
	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/service"
	"github.com/iliyamo/movienight/internal/testutil"
	"github.com/iliyamo/movienight/internal/utils"
)

type testApp struct {
	e    *echo.Echo
	db   *testutil.Memory
	meta *testutil.FakeMetadata
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.NewMemory()
	meta := testutil.NewFakeMetadata()
	log := logging.Discard()
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost}

	enricher := service.NewEnricher(db.Genres(), db.Movies(), meta, log)
	searcher := service.NewSearcher(db.Terms(), db.Movies(), meta, log)
	catalog := service.NewCatalog(db.Movies(), db.Genres(), enricher, searcher)
	screenings := service.NewScreenings(db.Screenings(), db.Movies(), nil, log)
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }

	e := echo.New()
	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(cfg, db.Users(), db.Tokens(), log), cfg.JWTSecret)
	RegisterCatalog(e, handler.NewMovieHandler(catalog, log), pass, pass)
	RegisterScreenings(e, handler.NewScreeningHandler(screenings, log), cfg.JWTSecret)
	return &testApp{e: e, db: db, meta: meta}
}

func (a *testApp) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(bs)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type authBody struct {
	User struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (a *testApp) register(t *testing.T, email, first string) authBody {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{
		"email": email, "password": "password123", "first_name": first, "last_name": "Tester",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestProbes(t *testing.T) {
	a := newTestApp(t)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/healthz", "", nil).Code)
	rec := a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAuthFlow(t *testing.T) {
	a := newTestApp(t)
	reg := a.register(t, " Ann@Example.com ", "Ann")
	assert.Equal(t, "ann@example.com", reg.User.Email)

	rec := a.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "ann@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/register", "", echo.Map{"email": "short@example.com", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/me", reg.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"email":"ann@example.com","first_name":"Ann","last_name":"Tester"}`, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ann@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/login", "", echo.Map{"email": "ANN@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": reg.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[authBody](t, rec)
	assert.NotEqual(t, reg.Refresh.Token, rotated.Refresh.Token)

	// The old refresh token was revoked by the rotation.
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": reg.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", "", echo.Map{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", "", echo.Map{"refresh_token": rotated.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/me", "", nil).Code)
}

func TestMovieSearchImportsAndRecords(t *testing.T) {
	a := newTestApp(t)
	a.meta.SetHits("the matrix",
		model.MovieSummary{ExternalID: "tt0133093", Title: "The Matrix", Year: 1999},
		model.MovieSummary{ExternalID: "tt0234215", Title: "The Matrix Reloaded", Year: 2003},
	)

	rec := a.do(t, http.MethodGet, "/v1/movies/search?term=%20%20The%20%20%20MATRIX%20", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	// The raw term keeps its double space, so nothing matches locally.
	assert.JSONEq(t, `[]`, rec.Body.String())
	_, ok := a.db.Term("the matrix")
	assert.True(t, ok)

	rec = a.do(t, http.MethodGet, "/v1/movies/search?term=matrix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movies := decode[[]map[string]any](t, rec)
	require.Len(t, movies, 2)
	assert.Len(t, movies[0], 7)
	assert.Equal(t, "tt0133093", movies[0]["imdb_id"])
	assert.Nil(t, movies[0]["runtime_minutes"])
	assert.Equal(t, 2, a.db.TermCount())

	rec = a.do(t, http.MethodGet, "/v1/movies", "", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
}

func TestMovieSearchErrors(t *testing.T) {
	a := newTestApp(t)
	rec := a.do(t, http.MethodGet, "/v1/movies/search?term=%20%20", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"search term must not be blank","field":"term"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/v1/movies/search?term="+strings.Repeat("x", 256), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"term"`)
	assert.Equal(t, 0, a.db.TermCount())

	a.meta.Fail = true
	rec = a.do(t, http.MethodGet, "/v1/movies/search?term=heat", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMovieDetailEnriches(t *testing.T) {
	a := newTestApp(t)
	m := a.db.AddMovie(model.Movie{Title: "The Matrix", Year: 1999, ExternalID: "tt0133093"})
	a.meta.SetDetails("tt0133093", model.MovieDetails{
		Title: "The Matrix", Year: 1999, Plot: testutil.StrPtr("..."),
		RuntimeMinutes: testutil.IntPtr(136), GenreNames: []string{"Sci-Fi", "Action"},
	})

	rec := a.do(t, http.MethodGet, "/v1/movies/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"title":"The Matrix","year":1999,"runtime_minutes":136,
		"imdb_id":"tt0133093","plot":"...","genres":["Action","Sci-Fi"]}`, rec.Body.String())
	assert.Equal(t, uint64(1), m.ID)

	a.do(t, http.MethodGet, "/v1/movies/1", "", nil)
	assert.Equal(t, 1, a.meta.DetailCalls())

	rec = a.do(t, http.MethodGet, "/v1/genres", "", nil)
	assert.JSONEq(t, `[{"id":3,"name":"Action"},{"id":2,"name":"Sci-Fi"}]`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/movies/99", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/movies/abc", "", nil).Code)
}

func TestMovieDetailUpstreamFailure(t *testing.T) {
	a := newTestApp(t)
	a.db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})
	a.meta.Fail = true

	rec := a.do(t, http.MethodGet, "/v1/movies/1", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestMovieNights(t *testing.T) {
	a := newTestApp(t)
	ann := a.register(t, "ann@example.com", "Ann")
	bob := a.register(t, "bob@example.com", "Bob")
	movie := a.db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277", RuntimeMinutes: testutil.IntPtr(170)})

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/movie-nights", "", nil).Code)

	past := time.Now().UTC().Add(-24 * time.Hour).Format("2006-01-02T15:04:05Z")
	rec := a.do(t, http.MethodPost, "/v1/movie-nights", ann.Access.Token, echo.Map{"movie": movie.ID, "start_time": past})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"start_time"`)

	rec = a.do(t, http.MethodPost, "/v1/movie-nights", ann.Access.Token, echo.Map{"movie": 999, "start_time": "2099-01-01T20:00:00Z"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"movie"`)

	ghost, err := utils.NewAccessToken("test-secret", 999, 15)
	require.NoError(t, err)
	rec = a.do(t, http.MethodPost, "/v1/movie-nights", ghost.Token, echo.Map{"movie": movie.ID, "start_time": "2099-01-01T20:00:00Z"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/movie-nights", ann.Access.Token, echo.Map{"movie": movie.ID, "start_time": "next friday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/movie-nights", ann.Access.Token, echo.Map{"movie": movie.ID, "start_time": "2099-01-01T20:00:00"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	assert.Equal(t, "2099-01-01T20:00:00Z", created["start_time"])
	assert.Equal(t, "2099-01-01T22:50:00Z", created["end_time"])
	assert.Equal(t, map[string]any{"email": "ann@example.com", "first_name": "Ann", "last_name": "Tester"}, created["creator"])
	id := uint64(created["id"].(float64))
	path := "/v1/movie-nights/" + strconv.FormatUint(id, 10)

	rec = a.do(t, http.MethodPut, path, bob.Access.Token, echo.Map{"start_time": "2099-02-01T20:00:00Z"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodGet, path, bob.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2099-01-01T20:00:00Z", decode[map[string]any](t, rec)["start_time"])

	rec = a.do(t, http.MethodPatch, path, ann.Access.Token, echo.Map{"start_time": "2099-02-01T20:00:00+02:00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2099-02-01T18:00:00Z", decode[map[string]any](t, rec)["start_time"])

	rec = a.do(t, http.MethodPut, path, ann.Access.Token, echo.Map{"start_time": past})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/movie-nights/999", ann.Access.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		a.do(t, http.MethodPut, "/v1/movie-nights/999", ann.Access.Token, echo.Map{"start_time": "2099-02-01T20:00:00Z"}).Code)
}

func TestMovieNightListOrdering(t *testing.T) {
	a := newTestApp(t)
	ann := a.register(t, "ann@example.com", "Ann")
	bob := a.register(t, "bob@example.com", "Bob")
	movie := a.db.AddMovie(model.Movie{Title: "Heat", Year: 1995, ExternalID: "tt0113277"})

	for _, c := range []struct {
		token string
		start string
	}{
		{bob.Access.Token, "2099-03-01T20:00:00Z"},
		{ann.Access.Token, "2099-05-01T20:00:00Z"},
		{bob.Access.Token, "2099-01-01T20:00:00Z"},
	} {
		rec := a.do(t, http.MethodPost, "/v1/movie-nights", c.token, echo.Map{"movie": movie.ID, "start_time": c.start})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	starts := func(ordering string) []string {
		rec := a.do(t, http.MethodGet, "/v1/movie-nights"+ordering, ann.Access.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []string
		for _, s := range decode[[]map[string]any](t, rec) {
			out = append(out, s["start_time"].(string))
			_, hasEnd := s["end_time"]
			assert.False(t, hasEnd)
		}
		return out
	}
	assert.Equal(t, []string{"2099-01-01T20:00:00Z", "2099-03-01T20:00:00Z", "2099-05-01T20:00:00Z"}, starts("?ordering=start_time"))
	assert.Equal(t, []string{"2099-05-01T20:00:00Z", "2099-03-01T20:00:00Z", "2099-01-01T20:00:00Z"}, starts("?ordering=-start_time"))
	// Default: creator first (ann registered first), then start time.
	assert.Equal(t, []string{"2099-05-01T20:00:00Z", "2099-01-01T20:00:00Z", "2099-03-01T20:00:00Z"}, starts(""))

	rec := a.do(t, http.MethodGet, "/v1/movie-nights?ordering=title", ann.Access.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
