// Package testutil provides in-memory implementations of the stores and a
// scripted metadata client for service and handler tests.
package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/repository"
)

type movieRow struct {
	movie    model.Movie
	genreIDs []uint64
}

type tokenRow struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

// Memory is a process-local database shared by the store views below.  It
// reports the same sentinel errors as the MySQL repositories.
type Memory struct {
	mu         sync.Mutex
	nextID     uint64
	genres     map[uint64]model.Genre
	movies     map[uint64]*movieRow
	terms      map[string]model.SearchTerm
	screenings map[uint64]model.Screening
	users      map[uint64]model.User
	tokens     map[string]tokenRow

	// SaveCalls counts SaveFullRecord invocations.
	SaveCalls int
}

// NewMemory returns an empty database.
func NewMemory() *Memory {
	return &Memory{
		genres:     map[uint64]model.Genre{},
		movies:     map[uint64]*movieRow{},
		terms:      map[string]model.SearchTerm{},
		screenings: map[uint64]model.Screening{},
		users:      map[uint64]model.User{},
		tokens:     map[string]tokenRow{},
	}
}

func (m *Memory) id() uint64 {
	m.nextID++
	return m.nextID
}

// Genres returns the genre store view.
func (m *Memory) Genres() *Genres { return &Genres{m} }

// Movies returns the movie store view.
func (m *Memory) Movies() *Movies { return &Movies{m} }

// Terms returns the search term store view.
func (m *Memory) Terms() *Terms { return &Terms{m} }

// Screenings returns the screening store view.
func (m *Memory) Screenings() *Screenings { return &Screenings{m} }

// Users returns the user store view.
func (m *Memory) Users() *Users { return &Users{m} }

// Tokens returns the refresh token store view.
func (m *Memory) Tokens() *Tokens { return &Tokens{m} }

// AddUser seeds a user and returns it with its id.
func (m *Memory) AddUser(email, first, last string) model.User {
	u := model.User{Email: email, FirstName: first, LastName: last, IsActive: true}
	if err := m.Users().Create(context.Background(), &u); err != nil {
		panic(err)
	}
	return u
}

// AddMovie seeds a movie and returns it with its id.
func (m *Memory) AddMovie(mv model.Movie) model.Movie {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv.ID = m.id()
	row := &movieRow{movie: mv}
	for _, g := range mv.Genres {
		row.genreIDs = append(row.genreIDs, m.genreLocked(g.Name).ID)
	}
	row.movie.Genres = nil
	m.movies[mv.ID] = row
	return m.movieLocked(row)
}

// Term returns a recorded search term.
func (m *Memory) Term(term string) (model.SearchTerm, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.terms[term]
	return st, ok
}

// TermCount returns the number of distinct recorded terms.
func (m *Memory) TermCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.terms)
}

// GenreCount returns the number of stored genres.
func (m *Memory) GenreCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.genres)
}

// MovieCount returns the number of stored movies.
func (m *Memory) MovieCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.movies)
}

func (m *Memory) genreLocked(name string) model.Genre {
	for _, g := range m.genres {
		if g.Name == name {
			return g
		}
	}
	g := model.Genre{ID: m.id(), Name: name}
	m.genres[g.ID] = g
	return g
}

func (m *Memory) movieLocked(row *movieRow) model.Movie {
	out := row.movie
	out.Genres = nil
	for _, id := range row.genreIDs {
		out.Genres = append(out.Genres, m.genres[id])
	}
	slices.SortFunc(out.Genres, func(a, b model.Genre) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (m *Memory) screeningLocked(s model.Screening) model.Screening {
	if row, ok := m.movies[s.MovieID]; ok {
		s.Movie = m.movieLocked(row)
	}
	u := m.users[s.CreatorID]
	u.PasswordHash = ""
	s.Creator = u
	return s
}

// Genres implements service.GenreStore.
type Genres struct{ m *Memory }

func (g *Genres) GetOrCreate(_ context.Context, name string) (model.Genre, error) {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	return g.m.genreLocked(name), nil
}

func (g *Genres) List(_ context.Context) ([]model.Genre, error) {
	g.m.mu.Lock()
	defer g.m.mu.Unlock()
	out := []model.Genre{}
	for _, genre := range g.m.genres {
		out = append(out, genre)
	}
	slices.SortFunc(out, func(a, b model.Genre) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Movies implements service.MovieStore.
type Movies struct{ m *Memory }

func (s *Movies) GetByID(_ context.Context, id uint64) (*model.Movie, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	row, ok := s.m.movies[id]
	if !ok {
		return nil, repository.ErrMovieNotFound
	}
	mv := s.m.movieLocked(row)
	return &mv, nil
}

func (s *Movies) List(ctx context.Context) ([]model.Movie, error) {
	return s.filter(func(model.Movie) bool { return true }), nil
}

func (s *Movies) SearchTitle(_ context.Context, term string) ([]model.Movie, error) {
	needle := strings.ToLower(term)
	return s.filter(func(mv model.Movie) bool {
		return strings.Contains(strings.ToLower(mv.Title), needle)
	}), nil
}

func (s *Movies) filter(keep func(model.Movie) bool) []model.Movie {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []model.Movie{}
	for _, row := range s.m.movies {
		if mv := s.m.movieLocked(row); keep(mv) {
			out = append(out, mv)
		}
	}
	slices.SortFunc(out, func(a, b model.Movie) int {
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		if a.Year != b.Year {
			return a.Year - b.Year
		}
		return int(a.ID) - int(b.ID)
	})
	return out
}

func (s *Movies) CreateMinimal(_ context.Context, mv *model.Movie) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, row := range s.m.movies {
		if row.movie.ExternalID == mv.ExternalID {
			mv.ID = id
			return false, nil
		}
	}
	mv.ID = s.m.id()
	mv.IsFullRecord = false
	s.m.movies[mv.ID] = &movieRow{movie: model.Movie{
		ID: mv.ID, Title: mv.Title, Year: mv.Year, ExternalID: mv.ExternalID,
	}}
	return true, nil
}

func (s *Movies) SaveFullRecord(_ context.Context, mv *model.Movie) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.SaveCalls++
	row, ok := s.m.movies[mv.ID]
	if !ok {
		return repository.ErrMovieNotFound
	}
	row.movie.Title = mv.Title
	row.movie.Year = mv.Year
	row.movie.RuntimeMinutes = mv.RuntimeMinutes
	row.movie.Plot = mv.Plot
	row.movie.IsFullRecord = true
	row.genreIDs = nil
	for _, g := range mv.Genres {
		if _, ok := s.m.genres[g.ID]; !ok {
			return repository.ErrMissingReference
		}
		if !slices.Contains(row.genreIDs, g.ID) {
			row.genreIDs = append(row.genreIDs, g.ID)
		}
	}
	mv.IsFullRecord = true
	return nil
}

// Terms implements service.SearchTermStore.
type Terms struct{ m *Memory }

func (t *Terms) Touch(_ context.Context, term string, at time.Time) (bool, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	st, ok := t.m.terms[term]
	if !ok {
		st = model.SearchTerm{ID: t.m.id(), Term: term}
	}
	st.LastSearched = at
	t.m.terms[term] = st
	return !ok, nil
}

// Screenings implements service.ScreeningStore.
type Screenings struct{ m *Memory }

func (s *Screenings) Create(_ context.Context, sc *model.Screening) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.movies[sc.MovieID]; !ok {
		return repository.ErrMissingReference
	}
	if _, ok := s.m.users[sc.CreatorID]; !ok {
		return repository.ErrMissingReference
	}
	sc.ID = s.m.id()
	s.m.screenings[sc.ID] = model.Screening{ID: sc.ID, MovieID: sc.MovieID, StartTime: sc.StartTime, CreatorID: sc.CreatorID}
	return nil
}

func (s *Screenings) GetByID(_ context.Context, id uint64) (*model.Screening, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.screenings[id]
	if !ok {
		return nil, repository.ErrScreeningNotFound
	}
	out := s.m.screeningLocked(sc)
	return &out, nil
}

func (s *Screenings) List(_ context.Context, ordering string) ([]model.Screening, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []model.Screening{}
	for _, sc := range s.m.screenings {
		out = append(out, s.m.screeningLocked(sc))
	}
	byStart := func(a, b model.Screening) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmpID(a.ID, b.ID)
	}
	switch ordering {
	case "":
		slices.SortFunc(out, func(a, b model.Screening) int {
			if c := cmpID(a.CreatorID, b.CreatorID); c != 0 {
				return c
			}
			return byStart(a, b)
		})
	case model.OrderStartTime:
		slices.SortFunc(out, byStart)
	case model.OrderStartTimeDesc:
		slices.SortFunc(out, func(a, b model.Screening) int { return byStart(b, a) })
	case model.OrderID:
		slices.SortFunc(out, func(a, b model.Screening) int { return cmpID(a.ID, b.ID) })
	case model.OrderIDDesc:
		slices.SortFunc(out, func(a, b model.Screening) int { return cmpID(b.ID, a.ID) })
	default:
		return nil, repository.ErrUnknownOrdering
	}
	return out, nil
}

func (s *Screenings) UpdateStartTime(_ context.Context, id uint64, start time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.screenings[id]
	if !ok {
		return repository.ErrScreeningNotFound
	}
	sc.StartTime = start
	s.m.screenings[id] = sc
	return nil
}

func (s *Screenings) CreatorID(_ context.Context, id uint64) (uint64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sc, ok := s.m.screenings[id]
	if !ok {
		return 0, repository.ErrScreeningNotFound
	}
	return sc.CreatorID, nil
}

func cmpID(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Users implements the user store used by the auth handler.
type Users struct{ m *Memory }

func (u *Users) Create(_ context.Context, user *model.User) error {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	user.Email = repository.NormalizeEmail(user.Email)
	for _, existing := range u.m.users {
		if existing.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = u.m.id()
	user.IsActive = true
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	u.m.users[user.ID] = *user
	return nil
}

func (u *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, existing := range u.m.users {
		if existing.Email == email {
			return existing, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (u *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	user, ok := u.m.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return user, nil
}

// Tokens implements the refresh token store used by the auth handler.
type Tokens struct{ m *Memory }

func (t *Tokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.tokens[hash] = tokenRow{userID: userID, expiresAt: exp}
	return nil
}

func (t *Tokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	row, ok := t.m.tokens[hash]
	if !ok || row.revoked || time.Now().UTC().After(row.expiresAt) {
		return 0, repository.ErrTokenInvalid
	}
	return row.userID, nil
}

func (t *Tokens) RevokeByHash(_ context.Context, hash string) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if row, ok := t.m.tokens[hash]; ok {
		row.revoked = true
		t.m.tokens[hash] = row
	}
	return nil
}

func (t *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for hash, row := range t.m.tokens {
		if row.userID == userID {
			row.revoked = true
			t.m.tokens[hash] = row
		}
	}
	return nil
}
