package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "CycleScope/pkg/logger"
)

// EnvelopeStatusKey is the echo.Context key under which handlers record the
// status carried in the response body. Responses are written with 200, so
// this is the status that counts for logs and metrics.
const EnvelopeStatusKey = "envelope_status"

// StatusOf returns the enveloped status for the request, or the transport status
// when the handler wrote none.
func StatusOf(c echo.Context) int {
	if s, ok := c.Get(EnvelopeStatusKey).(int); ok {
		return s
	}
	return c.Response().Status
}

// RequestLogging logs every HTTP request at debug level.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			l.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", StatusOf(c)),
				applogger.Int64("bytes", c.Response().Size),
				applogger.Duration("latency_ms", time.Since(start)),
			)
			return err
		}
	}
}
