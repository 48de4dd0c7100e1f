package server

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/transcribekit/errors"
)

// RespondWithError inspects err: if it is an *apperrors.AppError the status
// and `{detail}` body are derived from it; otherwise an Unknown 500 is sent.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToDetail())
}

// RespondDetail sends a `{detail}` body with the given status.
func RespondDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, apperrors.DetailBody{Detail: detail})
}
