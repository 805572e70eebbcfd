package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/aquanex/aquachat/internal/models"
)

// RequestIDMiddleware generates a unique ID for each request
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Generate unique ID: "req_a1b2c3d4"
		requestID := "req_" + uuid.New().String()[:8]

		// Store in Gin context (accessible throughout request lifecycle)
		c.Set("request_id", requestID)

		// Return in response header for client debugging
		c.Header("X-Request-ID", requestID)

		// Continue to next middleware/handler
		c.Next()
	}
}

// LoggingMiddleware logs request start/end with timing
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString("request_id")

		log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"event":      "started",
		}).Info("Request started")

		// Process request
		c.Next()

		// Log completion
		log.WithFields(log.Fields{
			"request_id": requestID,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"event":      "completed",
		}).Info("Request completed")
	}
}

// BearerAuth enforces a static bearer token on protected routes. An empty
// expected token disables the check entirely (local development).
func BearerAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Unauthorized: Missing Bearer token",
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token != expected {
			log.WithFields(log.Fields{
				"request_id": c.GetString("request_id"),
				"event":      "auth_rejected",
			}).Warn("Invalid bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: "Unauthorized: Invalid or missing token",
			})
			return
		}

		c.Next()
	}
}
