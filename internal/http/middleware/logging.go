// Package middleware holds the Gin middleware of the ops server: request
// correlation, access logging, panic recovery and Prometheus metrics.
//
// Recommended order: RequestID, Logger, Recovery, Metrics. Probe routes
// registered with Quiet are logged at debug level so liveness and scrape
// traffic does not drown the access log.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	loggerKey       = "logger"
	quietKey        = "quietLog"
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// RequestID propagates X-Request-ID, generating a UUID when the header is
// missing or oversized, and echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Quiet marks a route as probe traffic; Logger then emits at debug level.
func Quiet() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(quietKey, true)
		c.Next()
	}
}

// Logger writes one structured access line per request and stores a
// request-scoped logger for handlers (see LoggerFrom). 5xx and requests
// carrying gin errors log at error, 4xx at warn, the rest at info.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("route", routeOf(c)).
			Str("remote_ip", c.ClientIP()).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		case c.GetBool(quietKey):
			ev.Debug().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery turns a panic into a JSON 500 carrying the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid, _ := c.Get(requestIDKey)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": asString(rid),
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global one.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
