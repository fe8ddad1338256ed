package server

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta carries response metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	// Exported lists the storage keys of exported artifacts.
	Exported []string `json:"exported,omitempty"`
}

// RespondWithError derives the status and body from err. Errors without
// an AppError in their chain become a generic 500.
func RespondWithError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		err = errors.PayloadTooLarge(maxErr.Limit)
	}
	status, body := errors.ResponseFor(err)
	c.AbortWithStatusJSON(status, body)
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondOKWithMeta sends a 200 response with data and metadata.
func RespondOKWithMeta(c *gin.Context, data any, meta *Meta) {
	c.JSON(http.StatusOK, DataResponse{Data: data, Meta: meta})
}
