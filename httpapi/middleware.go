package httpapi

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// requestLogger logs each request at a level chosen by status. Health and
// metrics scrapes are skipped.
func (h *handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = h.logger.Error()
		case status >= http.StatusBadRequest:
			ev = h.logger.Warn()
		default:
			ev = h.logger.Debug()
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("client", c.ClientIP()).
			Msg("request completed")
	}
}

func (h *handler) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error().
					Str("error", fmt.Sprintf("%v", rec)).
					Str("stack", string(debug.Stack())).
					Str("path", c.Request.URL.Path).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
					Error:   CodeInternal,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}
