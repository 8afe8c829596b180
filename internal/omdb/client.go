// Package omdb is a small client for the OMDb API (https://www.omdbapi.com).
// Movies are addressed by IMDb id.  Transient failures (network errors, 5xx
// and 429 responses) are retried a bounded number of times.
package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movienight/internal/config"
	"github.com/iliyamo/movienight/internal/metrics"
	"github.com/iliyamo/movienight/internal/model"
)

// ErrNotFound is returned when OMDb has no movie for the requested id.
var ErrNotFound = errors.New("omdb: movie not found")

// StatusError is a non-2xx response from OMDb.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("omdb: unexpected status %d", e.Code) }

// Client talks to OMDb.  Create with New.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	attempts uint
	delay    time.Duration
	log      *logrus.Entry
}

// New builds a Client from cfg.
func New(cfg config.OMDBConfig, log *logrus.Entry) *Client {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		attempts: uint(attempts),
		delay:    cfg.Delay,
		log:      log.WithField("component", "omdb"),
	}
}

type detailResponse struct {
	Title    string `json:"Title"`
	Year     string `json:"Year"`
	Runtime  string `json:"Runtime"`
	Genre    string `json:"Genre"`
	Plot     string `json:"Plot"`
	ImdbID   string `json:"imdbID"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type searchResponse struct {
	Search []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		ImdbID string `json:"imdbID"`
		Type   string `json:"Type"`
	} `json:"Search"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

// GetByExternalID fetches the full record of one movie.
func (c *Client) GetByExternalID(ctx context.Context, externalID string) (*model.MovieDetails, error) {
	q := url.Values{}
	q.Set("i", externalID)
	q.Set("plot", "full")

	var resp detailResponse
	if err := c.get(ctx, "detail", q, &resp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.Response, "True") {
		metrics.MetadataRequests.WithLabelValues("detail", "not_found").Inc()
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotFound, externalID, resp.Error)
	}
	metrics.MetadataRequests.WithLabelValues("detail", "ok").Inc()
	return &model.MovieDetails{
		Title:          resp.Title,
		Year:           ParseYear(resp.Year),
		Plot:           optional(resp.Plot),
		RuntimeMinutes: ParseRuntime(resp.Runtime),
		GenreNames:     SplitGenres(resp.Genre),
	}, nil
}

// Search returns the movies OMDb matches for term.  No match is an empty
// result, not an error.
func (c *Client) Search(ctx context.Context, term string) ([]model.MovieSummary, error) {
	q := url.Values{}
	q.Set("s", term)
	q.Set("type", "movie")

	var resp searchResponse
	if err := c.get(ctx, "search", q, &resp); err != nil {
		return nil, err
	}
	out := []model.MovieSummary{}
	if !strings.EqualFold(resp.Response, "True") {
		// OMDb reports "Movie not found!" with Response=False.
		c.log.WithField("term", term).WithField("omdb_error", resp.Error).Debug("search returned no results")
		metrics.MetadataRequests.WithLabelValues("search", "empty").Inc()
		return out, nil
	}
	for _, hit := range resp.Search {
		if hit.ImdbID == "" {
			continue
		}
		out = append(out, model.MovieSummary{
			ExternalID: hit.ImdbID,
			Title:      hit.Title,
			Year:       ParseYear(hit.Year),
		})
	}
	metrics.MetadataRequests.WithLabelValues("search", "ok").Inc()
	return out, nil
}

func (c *Client) get(ctx context.Context, op string, q url.Values, dst any) error {
	q.Set("apikey", c.apiKey)
	endpoint := c.baseURL
	if strings.Contains(endpoint, "?") {
		endpoint += "&" + q.Encode()
	} else {
		endpoint += "?" + q.Encode()
	}

	err := retry.Do(
		func() error {
			return c.fetch(ctx, endpoint, dst)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithError(err).WithField("op", op).WithField("attempt", n+1).Warn("retrying omdb request")
		}),
	)
	if err != nil {
		metrics.MetadataRequests.WithLabelValues(op, "error").Inc()
		return err
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("omdb: request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &StatusError{Code: res.StatusCode}
	}
	if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
		return retry.Unrecoverable(fmt.Errorf("omdb: decode response: %w", err))
	}
	return nil
}

// isTransient reports whether a failed request is worth repeating.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return true
}

// ParseYear reads the leading four digits of an OMDb year such as "1995"
// or "2005–2010".  Unparseable values yield 0.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}

// ParseRuntime reads "136 min".  "N/A" and anything unparseable yield nil.
func ParseRuntime(s string) *int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// SplitGenres splits OMDb's comma separated genre list.
func SplitGenres(s string) []string {
	out := []string{}
	if optional(s) == nil {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return nil
	}
	return &s
}
