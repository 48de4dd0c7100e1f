package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/transcribekit/errors"
	"github.com/kbukum/transcribekit/util"
)

// BodySizeLimit rejects requests whose declared length exceeds maxBytes and
// caps the body reader for the rest. Handlers that read past the cap get an
// *http.MaxBytesError and should answer with PayloadTooLarge.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, apperrors.DetailBody{
				Detail: "Request body exceeds " + util.FormatSize(maxBytes) + ".",
				Code:   apperrors.ErrCodePayloadTooLarge,
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
