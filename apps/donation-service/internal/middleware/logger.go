package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/donation-rush/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/donation-rush/pkg/middleware"
)

// Logger logs one line per request, at a level chosen by status code
func Logger(log *logger.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", c.Writer.Size()),
		}
		if scope := c.GetHeader(pkgmiddleware.ScopeHeader); scope != "" {
			fields = append(fields, zap.String("scope", scope))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.ErrorContext(c.Request.Context(), "Server error", fields...)
		case status >= 400:
			log.WarnContext(c.Request.Context(), "Client error", fields...)
		default:
			log.InfoContext(c.Request.Context(), "Request completed", fields...)
		}
	}
}
