package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/movienight/internal/model"
	"github.com/iliyamo/movienight/internal/queue"
)

// ErrUnavailable is the error a failing FakeMetadata returns.
var ErrUnavailable = errors.New("metadata service unavailable")

// FakeMetadata is a scripted metadata client that counts calls.
type FakeMetadata struct {
	mu      sync.Mutex
	details map[string]model.MovieDetails
	hits    map[string][]model.MovieSummary

	// Fail makes every call return ErrUnavailable.
	Fail bool
	// Gate, when set, blocks detail lookups until it is closed.
	Gate chan struct{}

	detailCalls atomic.Int32
	searchCalls atomic.Int32
	lastSearch  atomic.Value
}

func NewFakeMetadata() *FakeMetadata {
	return &FakeMetadata{details: map[string]model.MovieDetails{}, hits: map[string][]model.MovieSummary{}}
}

// SetDetails scripts the lookup result for externalID.
func (f *FakeMetadata) SetDetails(externalID string, d model.MovieDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details[externalID] = d
}

// SetHits scripts the search result for a normalized term.
func (f *FakeMetadata) SetHits(term string, hits ...model.MovieSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[term] = hits
}

func (f *FakeMetadata) DetailCalls() int { return int(f.detailCalls.Load()) }
func (f *FakeMetadata) SearchCalls() int { return int(f.searchCalls.Load()) }

// LastSearch returns the term of the most recent search.
func (f *FakeMetadata) LastSearch() string {
	s, _ := f.lastSearch.Load().(string)
	return s
}

func (f *FakeMetadata) GetByExternalID(ctx context.Context, externalID string) (*model.MovieDetails, error) {
	f.detailCalls.Add(1)
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Fail {
		return nil, ErrUnavailable
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[externalID]
	if !ok {
		return nil, errors.New("movie not found")
	}
	return &d, nil
}

func (f *FakeMetadata) Search(_ context.Context, term string) ([]model.MovieSummary, error) {
	f.searchCalls.Add(1)
	f.lastSearch.Store(term)
	if f.Fail {
		return nil, ErrUnavailable
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.MovieSummary(nil), f.hits[term]...), nil
}

// FakePublisher records published events.
type FakePublisher struct {
	mu     sync.Mutex
	events []queue.ScreeningScheduledEvent
	Err    error
}

func (p *FakePublisher) PublishScreeningScheduled(_ context.Context, ev queue.ScreeningScheduledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.Err
}

// Events returns a copy of the recorded events.
func (p *FakePublisher) Events() []queue.ScreeningScheduledEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.ScreeningScheduledEvent(nil), p.events...)
}

// IntPtr and StrPtr build optional fields.
func IntPtr(n int) *int       { return &n }
func StrPtr(s string) *string { return &s }

// FakeInvalidator counts cache purges.
type FakeInvalidator struct {
	purges atomic.Int32
	Err    error
}

func (f *FakeInvalidator) Purge(context.Context) error {
	f.purges.Add(1)
	return f.Err
}

func (f *FakeInvalidator) Purges() int { return int(f.purges.Load()) }
