package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/orgmap/backend/internal/interfaces/http/handler"
)

// Handlers bundles the handlers the catalog API exposes
type Handlers struct {
	Import  *handler.ImportHandler
	Catalog *handler.CatalogHandler
	History *handler.ImportHistoryHandler
	System  *handler.SystemHandler
}

// APIOptions carries what the route table needs besides handlers
type APIOptions struct {
	// UploadMiddleware runs before each upload handler, e.g. rate limiting
	UploadMiddleware []gin.HandlerFunc
	// Metrics serves /metrics when set
	Metrics http.Handler
}

// RegisterAPI registers the full route table on engine:
//
//	POST /api/v1/{sbu,job_role,grade,job_role_grade}   catalog uploads
//	GET  /api/v1/{sbu,job_roles,grades}                 catalog reads
//	GET  /api/v1/job_roles/:id/grades                   mapped grades
//	GET  /api/v1/grades/expand?notation=                notation preview
//	GET  /api/v1/imports[/:id[/errors]]                 upload history
//	GET  /health, /metrics
func RegisterAPI(engine *gin.Engine, h Handlers, opts APIOptions) *Router {
	engine.GET("/health", h.System.Health)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))

	uploads := NewDomainGroup("uploads", "").Use(opts.UploadMiddleware...)
	uploads.
		POST("/sbu", h.Import.UploadBusinessUnits).
		POST("/job_role", h.Import.UploadJobRoles).
		POST("/grade", h.Import.UploadGrades).
		POST("/job_role_grade", h.Import.UploadJobRoleGrades)

	catalog := NewDomainGroup("catalog", "")
	catalog.
		GET("/sbu", h.Catalog.ListBusinessUnits).
		GET("/job_roles", h.Catalog.ListJobRoles).
		GET("/job_roles/:id/grades", h.Catalog.GradesForJobRole).
		GET("/grades", h.Catalog.ListGrades).
		GET("/grades/expand", h.Catalog.ExpandGrades)

	imports := NewDomainGroup("imports", "/imports")
	imports.
		GET("", h.History.ListHistory).
		GET("/:id", h.History.GetHistory).
		GET("/:id/errors", h.History.GetErrors)

	system := NewDomainGroup("system", "/system")
	system.
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	r.Register(uploads).Register(catalog).Register(imports).Register(system)
	r.Setup()
	return r
}
