package endpoint

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribekit/observability"
	"github.com/kbukum/transcribekit/version"
)

// Health returns a handler that reports service health including component
// statuses. Any component down turns the response into a 503.
func Health(serviceName string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := observability.NewServiceHealth(serviceName, version.GetShortVersion()).
			Check(c.Request.Context(), checkers...)
		c.JSON(health.HTTPStatus(), health)
	}
}
