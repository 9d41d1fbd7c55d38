package middleware

import (
	"strings"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request once the handler returns. A
// generation that failed after its event stream started still answers 200,
// so the error code recorded through c.Error decides the level as well.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
			zap.Int("bytes", c.Writer.Size()),
		}

		streamed := strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
		if streamed {
			fields = append(fields, zap.Bool("streamed", true))
		}

		var code string
		if last := c.Errors.Last(); last != nil {
			code = models.ErrorCode(last.Err)
			fields = append(fields,
				zap.String("error_code", code),
				zap.String("errors", c.Errors.String()),
			)
		}

		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("client error", fields...)
		case code == models.ErrCodeCancelled:
			logger.Info("stream cancelled", fields...)
		case code != "":
			logger.Warn("stream ended with error", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}
