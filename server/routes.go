package server

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/observability"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/server/endpoint"
	"github.com/kbukum/flowtorch/server/middleware"
	"github.com/kbukum/flowtorch/storage"
	"github.com/kbukum/flowtorch/transpiler"
)

// API is what the HTTP surface serves.
type API struct {
	Service    string
	Version    string
	Transpiler *transpiler.Service
	// Store receives exported artifacts. Export is refused when nil.
	Store storage.Storage
	// Limiter throttles /v1/transpile. Nil disables throttling.
	Limiter  *middleware.RateLimiter
	Checkers []observability.HealthChecker
}

// RegisterAPI mounts the transpiler routes and the system endpoints.
func (s *Server) RegisterAPI(api API) {
	h := &handlers{api: api, exportPrefix: s.config.ExportPrefix, log: s.log}

	v1 := s.engine.Group("/v1")
	transpile := []gin.HandlerFunc{h.transpile}
	if api.Limiter != nil {
		transpile = append([]gin.HandlerFunc{api.Limiter.Handler()}, transpile...)
	}
	v1.POST("/transpile", transpile...)
	v1.GET("/plugins", h.plugins)

	s.engine.GET("/health", endpoint.Health(api.Service, api.Version, api.Checkers...))
	s.engine.GET("/info", endpoint.Info(api.Service))

	s.engine.NoRoute(func(c *gin.Context) {
		RespondWithError(c, errors.NotFound("route", c.Request.URL.Path))
	})
	s.engine.NoMethod(func(c *gin.Context) {
		RespondWithError(c, errors.New(errors.ErrCodeNotFound, "Method not allowed.", http.StatusMethodNotAllowed))
	})
}

type handlers struct {
	api          API
	exportPrefix string
	log          *logger.Logger
}

func (h *handlers) transpile(c *gin.Context) {
	var req transpiler.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, bindError(err))
		return
	}
	if rid := logger.RequestIDFromContext(c.Request.Context()); req.RunID == "" && rid != "" {
		req.RunID = rid
	}

	export := false
	if q := c.Query("export"); q != "" {
		v, err := strconv.ParseBool(q)
		if err != nil {
			RespondWithError(c, errors.InvalidInput("export", "must be a boolean"))
			return
		}
		export = v
	}
	if export && h.api.Store == nil {
		RespondWithError(c, errors.ServiceUnavailable("artifact storage"))
		return
	}

	ctx := c.Request.Context()
	res, err := h.api.Transpiler.Transpile(ctx, &req)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if !export {
		RespondOK(c, res)
		return
	}

	keys, err := transpiler.ExportArtifacts(ctx, h.api.Store, h.exportPrefix+"/"+res.RunID, res)
	if err != nil {
		h.log.WithContext(ctx).Error("Artifact export failed", logger.ErrorFields("export", err))
		RespondWithError(c, errors.ExternalServiceError("storage", err))
		return
	}
	RespondOKWithMeta(c, res, &Meta{Exported: keys})
}

func (h *handlers) plugins(c *gin.Context) {
	defs, err := h.api.Transpiler.Plugins(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	if defs == nil {
		defs = []*plugin.Definition{}
	}
	RespondOKWithMeta(c, defs, &Meta{Total: len(defs)})
}

// bindError maps a body decoding failure to an AppError. Size errors
// pass through to RespondWithError.
func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return err
	}
	return errors.InvalidInput("body", err.Error())
}
