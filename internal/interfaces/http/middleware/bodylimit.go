package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects declared bodies over maxBytes with 413 and caps streamed
// bodies with http.MaxBytesReader. maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abort(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size")
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
