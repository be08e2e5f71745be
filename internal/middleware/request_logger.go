package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/playerd/internal/logger"
)

// RequestLogger logs HTTP requests at debug level
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		logger.Debug("HTTP request", []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.String("query", c.Request.URL.RawQuery),
			logger.Int("status", c.Writer.Status()),
			logger.String("duration", duration.String()),
			logger.Int("size", c.Writer.Size()),
			logger.String("ip", c.ClientIP()),
		})
	}
}

// ErrorLogger logs errors attached to the gin context
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, err := range c.Errors {
			logger.Error("Request error", []logger.Field{
				logger.String("method", c.Request.Method),
				logger.String("path", c.Request.URL.Path),
				logger.String("error", err.Error()),
			})
		}
	}
}
