package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/spimexfeed/internal/domain/dto"
	"github.com/avolkov/spimexfeed/internal/logger"
)

// ErrorHandler converts errors attached to the Gin context into a
// standardized JSON error response, unless a handler already wrote one.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled request error")
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", err))
}

// AbortWithError aborts the request with the given status and a standardized
// JSON error body, recording the error on the context for the request logger.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
