package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/response"
)

// RequestLogger emits one line per request once the handler chain is done.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if pid, ok := c.Get(response.PersonIDKey); ok {
			args = append(args, "person_id", pid)
		}
		if c.Writer.Status() >= 500 {
			log.Warn(c.Request.Context(), "request", args...)
			return
		}
		log.Info(c.Request.Context(), "request", args...)
	}
}
