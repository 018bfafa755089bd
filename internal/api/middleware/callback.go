package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallbackAuth guards worker callback routes with a shared token. When no
// token is configured the guard is a no-op, which keeps local development
// friction-free.
// Parameters:
//   - token: expected value of the X-Callback-Token header; empty disables.
// Returns:
//   - gin.HandlerFunc: middleware handler.
func CallbackAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got := c.GetHeader("X-Callback-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid callback token",
			})
			return
		}

		c.Next()
	}
}
