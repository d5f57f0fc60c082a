package middleware

import (
	"net/http"

	"marketplace-backend/pkg/apperror"
	"marketplace-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize rejects requests whose declared Content-Length exceeds maxBytes
// and caps the body reader for the rest. Handlers decoding a capped body get
// a 413 VAL_001 from dto.DecodeStrict.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.New("VAL_001", "request body too large", http.StatusRequestEntityTooLarge))
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
