package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/observability"
)

// healthTimeout bounds a single health probe.
const healthTimeout = 5 * time.Second

// Health reports the aggregated health of the given components. The
// status is 503 when any of them is down.
func Health(service, version string, checkers ...observability.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		sh := observability.Check(ctx, service, version, checkers...)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	}
}
