package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/interfaces/http/dto"
)

// CatalogQuerier reads the loaded catalogs
type CatalogQuerier interface {
	List(ctx context.Context, catalog organization.Catalog) ([]organization.NamedEntity, error)
	GradesForJobRole(ctx context.Context, jobRoleID int64) ([]organization.Grade, error)
	Expand(notation string) (*importapp.ExpandResult, error)
}

// CatalogHandler serves the catalog read endpoints
type CatalogHandler struct {
	BaseHandler
	queries CatalogQuerier
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(queries CatalogQuerier) *CatalogHandler {
	return &CatalogHandler{queries: queries}
}

// ListBusinessUnits godoc
//
//	@Summary	List business units
//	@Tags		catalog
//	@ID			listBusinessUnits
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=[]dto.CatalogEntryResponse}
//	@Router		/sbu [get]
func (h *CatalogHandler) ListBusinessUnits(c *gin.Context) {
	h.list(c, organization.CatalogBusinessUnits)
}

// ListJobRoles godoc
//
//	@Summary	List job roles
//	@Tags		catalog
//	@ID			listJobRoles
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=[]dto.CatalogEntryResponse}
//	@Router		/job_roles [get]
func (h *CatalogHandler) ListJobRoles(c *gin.Context) {
	h.list(c, organization.CatalogJobRoles)
}

// ListGrades godoc
//
//	@Summary	List grades
//	@Tags		catalog
//	@ID			listGrades
//	@Produce	json
//	@Success	200	{object}	dto.Response{data=[]dto.CatalogEntryResponse}
//	@Router		/grades [get]
func (h *CatalogHandler) ListGrades(c *gin.Context) {
	h.list(c, organization.CatalogGrades)
}

func (h *CatalogHandler) list(c *gin.Context, catalog organization.Catalog) {
	rows, err := h.queries.List(c.Request.Context(), catalog)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCatalogEntryResponses(rows))
}

// GradesForJobRole godoc
//
//	@Summary	List the grades a job role is mapped to
//	@Tags		catalog
//	@ID			listJobRoleGrades
//	@Produce	json
//	@Param		id	path		int	true	"Job role ID"
//	@Success	200	{object}	dto.Response{data=[]dto.CatalogEntryResponse}
//	@Failure	400	{object}	dto.Response
//	@Failure	404	{object}	dto.Response
//	@Router		/job_roles/{id}/grades [get]
func (h *CatalogHandler) GradesForJobRole(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.BadRequest(c, "Invalid job role ID")
		return
	}

	grades, err := h.queries.GradesForJobRole(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewCatalogEntryResponses(grades))
}

// ExpandGrades godoc
//
//	@Summary		Preview a grade notation
//	@Description	Returns the grades a notation such as "MT5 - MT7" denotes, in rank order
//	@Tags			catalog
//	@ID				expandGrades
//	@Produce		json
//	@Param			notation	query		string	true	"Grade notation"
//	@Success		200			{object}	dto.Response{data=dto.ExpandGradeResponse}
//	@Failure		400			{object}	dto.Response
//	@Router			/grades/expand [get]
func (h *CatalogHandler) ExpandGrades(c *gin.Context) {
	var req dto.ExpandGradeRequest
	if err := c.ShouldBindQuery(&req); err != nil || strings.TrimSpace(req.Notation) == "" {
		h.BadRequest(c, "notation is required")
		return
	}

	result, err := h.queries.Expand(req.Notation)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	grades := result.Grades
	if grades == nil {
		grades = []string{}
	}
	h.Success(c, dto.ExpandGradeResponse{Notation: result.Notation, Grades: grades})
}
