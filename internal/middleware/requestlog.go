package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// RequestID assigns every request an X-Request-ID (a UUID unless the client
// supplied one).
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	})
}

// RequestLogger writes one structured line per request.
func RequestLogger(log *logrus.Entry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			entry := log.WithFields(logrus.Fields{
				"request_id": res.Header().Get(echo.HeaderXRequestID),
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
			})
			if uid, ok := UserID(c); ok {
				entry = entry.WithField("user_id", uid)
			}
			switch {
			case res.Status >= 500:
				entry.WithError(err).Error("request failed")
			case res.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request handled")
			}
			return nil
		}
	}
}
