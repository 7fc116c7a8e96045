package middleware

import (
  "strings"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/regwatch/engine/internal/logger"
)

// RequestLogger logs one structured line per request, tagging it with
// a generated request id so a single crawl trigger's handler log and
// coordinator log can be correlated by a human reading both.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
  return func(c *gin.Context) {
    start := time.Now()
    requestID := uuid.New().String()
    c.Set("request_id", requestID)
    c.Writer.Header().Set("X-Request-Id", requestID)

    c.Next()

    path := c.FullPath()
    if path == "" {
      path = c.Request.URL.Path
    }

    fields := []interface{}{
      "method", strings.ToUpper(c.Request.Method),
      "path", path,
      "status", c.Writer.Status(),
      "duration_ms", time.Since(start).Milliseconds(),
      "request_id", requestID,
    }

    switch {
    case c.Writer.Status() >= 500:
      log.Error("http request", fields...)
    case c.Writer.Status() >= 400:
      log.Warn("http request", fields...)
    default:
      log.Info("http request", fields...)
    }
  }
}
