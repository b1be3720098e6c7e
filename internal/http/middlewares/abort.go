package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abortWithError stops the chain with the same envelope the handlers use.
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"success": false,
		"error":   code,
		"message": message,
	}

	if id := c.GetString(CtxRequestID); id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, body)
}
