package httpserver

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/m3rciful/loginbot/core/logger"
	"github.com/m3rciful/loginbot/core/metrics"
)

// RequestIDHeader carries the request correlation id in and out.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the inbound X-Request-ID or generates one and stores it in the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Logger writes one http.request record per request and feeds the HTTP metrics.
func Logger(m *metrics.Metrics) gin.HandlerFunc {
	log := logger.Component(logger.CompHTTP)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		code := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		lvl := slog.LevelDebug
		if code >= http.StatusInternalServerError {
			lvl = slog.LevelWarn
		}
		logger.LogEvent(c.Request.Context(), log, lvl, "http.request",
			slog.String("status", statusLabel(code)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("http_code", code),
			slog.Duration("duration", latency),
			slog.String("client_ip", c.ClientIP()),
		)
		m.ObserveHTTP(c.Request.Method, path, http.StatusText(code), latency.Seconds())
	}
}

// Recovery converts handler panics into a 500 response.
func Recovery() gin.HandlerFunc {
	log := logger.Component(logger.CompHTTP)
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogEvent(c.Request.Context(), log, slog.LevelError, "http.panic",
					slog.Any("err", r),
					slog.String("path", c.Request.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false})
			}
		}()
		c.Next()
	}
}

func statusLabel(code int) string {
	if code >= http.StatusInternalServerError {
		return "fail"
	}
	return "ok"
}
