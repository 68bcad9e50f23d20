package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"
)

const headerRequestID = "X-Request-Id"

// RequestID propagates the caller's request id or assigns one, so log
// lines across a request can be correlated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			bytes := make([]byte, 8)
			_, _ = rand.Read(bytes)
			id = hex.EncodeToString(bytes)
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}
