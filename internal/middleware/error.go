// File: internal/middleware/error.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coach_admin_backend/internal/common"
)

// ErrorHandler turns errors attached to the context and unmatched routes
// into the {success:false, error} envelope.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			ginErr := c.Errors.Last()
			if _, ok := common.IsAPIError(ginErr.Err); !ok {
				logger.Error("Unhandled application error",
					zap.Error(ginErr.Err),
					zap.String("path", c.Request.URL.Path),
					zap.Any("meta", ginErr.Meta),
					zap.String("request_id", GetRequestID(c)),
				)
			}
			common.RespondWithError(c, ginErr.Err)
			return
		}

		if c.Writer.Written() {
			return
		}
		switch c.Writer.Status() {
		case http.StatusNotFound:
			common.RespondWithError(c, common.ErrNotFound.WithMessage("The requested endpoint does not exist."))
		case http.StatusMethodNotAllowed:
			common.RespondWithError(c, common.ErrMethodNotAllowed)
		}
	}
}
