// internal/api/middleware.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestId"
	loggerKey       = "logger"
)

// RequestIDMiddleware propagates or assigns X-Request-ID, logs each request
// with it and puts it on the request context for downstream loggers.
func RequestIDMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		fields := map[string]interface{}{requestIDKey: requestID}
		reqLog := log.WithFields(fields)
		c.Set(loggerKey, reqLog)
		c.Request = c.Request.WithContext(logger.ContextWithFields(c.Request.Context(), fields))

		start := time.Now()
		c.Next()

		reqLog.Info("http request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}

// RecoveryMiddleware turns a handler panic into the search error body.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestLogger(c, log).Error("handler panicked", map[string]interface{}{
					"panic": fmt.Sprint(r),
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, search.ErrorResponse())
			}
		}()
		c.Next()
	}
}

func requestLogger(c *gin.Context, fallback logger.Logger) logger.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logger.Logger); ok {
			return l
		}
	}
	return fallback
}
