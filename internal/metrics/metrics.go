// Package metrics provides Prometheus instrumentation for the service.
//
// Metrics registered here:
//
//	movienight_http_requests_total          counter: HTTP requests by method/path/status
//	movienight_http_request_duration_secs   histogram: HTTP latency by method/path
//	movienight_metadata_requests_total      counter: metadata service calls by op/outcome
//	movienight_enrichments_total            counter: enrichment attempts by outcome
//	movienight_search_terms_recorded_total  counter: recorded searches
//	movienight_movies_imported_total        counter: minimal movies created from search hits
//	movienight_screenings_written_total     counter: screening writes by action
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPRequests counts HTTP requests by method, route and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movienight_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "path", "status"})

// HTTPDuration observes request latency by method and route.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "movienight_http_request_duration_secs",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// MetadataRequests counts calls to the external metadata service.
var MetadataRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movienight_metadata_requests_total",
	Help: "External metadata service calls by operation and outcome.",
}, []string{"op", "outcome"})

// Enrichments counts detail enrichment attempts.
var Enrichments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movienight_enrichments_total",
	Help: "Movie enrichment attempts by outcome (skipped, ok, error).",
}, []string{"outcome"})

// SearchTermsRecorded counts recorded searches.
var SearchTermsRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "movienight_search_terms_recorded_total",
	Help: "Search terms recorded or touched.",
})

// MoviesImported counts minimal movie rows created from remote search hits.
var MoviesImported = promauto.NewCounter(prometheus.CounterOpts{
	Name: "movienight_movies_imported_total",
	Help: "Minimal movie records imported from remote search results.",
})

// ScreeningsWritten counts screening writes by action (create, update).
var ScreeningsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "movienight_screenings_written_total",
	Help: "Screening writes by action.",
}, []string{"action"})

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records HTTPRequests and HTTPDuration for every request.  The
// route template (c.Path()) is used as label to keep cardinality bounded.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
