// Package utils holds small helpers shared across the binary.
package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"staking_portfolio/pkg/metrics"
)

// GetEnv returns the environment variable value or a fallback.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// ZapLoggerMiddleware logs each request through zap and feeds the latency
// histogram. The route template is used as the metric label so path
// parameters do not explode cardinality.
func ZapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.HTTPDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(latency.Seconds())

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("clientIP", c.ClientIP()),
		)
	}
}
