package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/orgmap/backend/internal/interfaces/http/dto"
	"github.com/orgmap/backend/internal/interfaces/http/middleware"
)

// ImportHistoryReader is the read side of the import history
type ImportHistoryReader interface {
	ListHistory(ctx context.Context, filter importapp.ListHistoryFilter, page, pageSize int) (*bulk.ImportHistoryListResult, error)
	GetHistory(ctx context.Context, historyID uuid.UUID) (*bulk.ImportHistory, error)
	GetErrorsCSV(ctx context.Context, historyID uuid.UUID) (string, string, error)
}

// ImportHistoryHandler handles import history related HTTP requests
type ImportHistoryHandler struct {
	BaseHandler
	historyService ImportHistoryReader
}

// NewImportHistoryHandler creates a new ImportHistoryHandler
func NewImportHistoryHandler(historyService ImportHistoryReader) *ImportHistoryHandler {
	return &ImportHistoryHandler{
		historyService: historyService,
	}
}

// ListHistory godoc
//
//	@Summary		List import histories
//	@Description	Returns recorded uploads, newest first unless sort_by is given
//	@Tags			import
//	@ID				listImportHistory
//	@Produce		json
//	@Param			entity_type	query		string	false	"Filter by entity type (sbu, job_roles, grades, job_role_grades)"
//	@Param			status		query		string	false	"Filter by status (pending, processing, completed, failed)"
//	@Param			page		query		int		false	"Page number (default: 1)"
//	@Param			page_size	query		int		false	"Page size (default: 20, max: 100)"
//	@Param			sort_by		query		string	false	"Sort column (created_at, file_name, total_rows, error_rows, status, ...)"
//	@Param			sort_order	query		string	false	"asc or desc (default: desc)"
//	@Success		200			{object}	dto.Response{data=dto.ImportHistoryListResponse}
//	@Failure		400			{object}	dto.Response
//	@Failure		500			{object}	dto.Response
//	@Router			/imports [get]
func (h *ImportHistoryHandler) ListHistory(c *gin.Context) {
	var req dto.ImportHistoryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	result, err := h.historyService.ListHistory(c.Request.Context(), importapp.ListHistoryFilter{
		EntityType: req.EntityType,
		Status:     req.Status,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
	}, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.NewImportHistoryListResponse(result), result.TotalCount, result.Page, result.PageSize)
}

// GetHistory godoc
//
//	@Summary		Get import history details
//	@Description	Returns counts, row errors and dropped rows of one upload
//	@Tags			import
//	@ID				getImportHistory
//	@Produce		json
//	@Param			id	path		string	true	"Upload ID"
//	@Success		200	{object}	dto.Response{data=dto.ImportHistoryResponse}
//	@Failure		400	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Router			/imports/{id} [get]
func (h *ImportHistoryHandler) GetHistory(c *gin.Context) {
	historyID, ok := h.parseHistoryID(c)
	if !ok {
		return
	}

	history, err := h.historyService.GetHistory(c.Request.Context(), historyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Import history not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewImportHistoryResponse(history))
}

// GetErrors godoc
//
//	@Summary		Download import errors as CSV
//	@Description	Downloads the row errors of an upload as a CSV file
//	@Tags			import
//	@ID				getImportErrors
//	@Produce		text/csv
//	@Param			id	path		string	true	"Upload ID"
//	@Success		200	{string}	string	"CSV content"
//	@Failure		400	{object}	dto.Response
//	@Failure		404	{object}	dto.Response
//	@Router			/imports/{id}/errors [get]
func (h *ImportHistoryHandler) GetErrors(c *gin.Context) {
	historyID, ok := h.parseHistoryID(c)
	if !ok {
		return
	}

	content, fileName, err := h.historyService.GetErrorsCSV(c.Request.Context(), historyID)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			h.NotFound(c, "Import history not found")
		case errors.Is(err, importapp.ErrNoErrorsToExport):
			h.BadRequest(c, "No errors to export for this import")
		default:
			h.HandleError(c, err)
		}
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Header("Content-Length", strconv.Itoa(len(content)))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(content))
}

func (h *ImportHistoryHandler) parseHistoryID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid history ID")
		return uuid.Nil, false
	}
	return id, true
}
