// File: internal/common/response.go
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the failure envelope the dashboard expects.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RespondWithError sends a JSON error response. API errors keep their status;
// everything else is a 500 carrying the raw error text.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := ErrInternalServer.Message
	if err != nil {
		message = err.Error()
	}
	if apiErr, ok := IsAPIError(err); ok {
		status = apiErr.StatusCode
		message = apiErr.Message
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}

// RespondOK sends a 200 OK response.
func RespondOK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// RespondCreated sends a 201 Created response.
func RespondCreated(c *gin.Context, body interface{}) {
	c.JSON(http.StatusCreated, body)
}
