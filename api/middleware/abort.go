package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/placescout/models"
)

// abort stops the chain with the API's error envelope.
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.SearchResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}
