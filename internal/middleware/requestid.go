package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the Gin context key under which the request identifier is
// stored for downstream handlers and the request logger.
const RequestIDKey = "request_id"

// RequestID assigns every incoming request a fresh UUID, stores it in the
// context under RequestIDKey, and echoes it back in the X-Request-ID response
// header. The request logger picks it up so one identifier ties a query like
// /api/v1/results to all of its log lines.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()

		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)

		c.Next()
	}
}
