package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nihanthkethireddy/invite/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an id, attaches a request-scoped
// logger to its context and logs the outcome.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		rawQuery := c.Request.URL.RawQuery

		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		reqLog := log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Info()
		default:
			ev = reqLog.Debug()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Int("status", status).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", rawQuery).
			Str("ip", c.ClientIP()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("http request")
	}
}

func instrument(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
