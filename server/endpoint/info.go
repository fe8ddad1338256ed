package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/version"
)

var startTime = time.Now()

// InfoResponse is the body of the info endpoint.
type InfoResponse struct {
	Service string       `json:"service"`
	Build   version.Info `json:"build"`
	Release bool         `json:"release"`
	Uptime  string       `json:"uptime"`
}

// Info reports build information and uptime.
func Info(service string) gin.HandlerFunc {
	build := version.Get()
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, InfoResponse{
			Service: service,
			Build:   build,
			Release: build.IsRelease(),
			Uptime:  time.Since(startTime).Round(time.Second).String(),
		})
	}
}
