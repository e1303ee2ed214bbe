package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/bulk"
	"github.com/orgmap/backend/internal/interfaces/http/dto"
	"github.com/orgmap/backend/internal/interfaces/http/middleware"
)

// uploadFormField is the multipart field carrying the catalog file
const uploadFormField = "file"

// CatalogImporter loads one uploaded catalog file
type CatalogImporter interface {
	Import(ctx context.Context, upload importapp.Upload) (*importapp.UploadResult, error)
}

// ImportHandler handles the catalog upload endpoints
type ImportHandler struct {
	BaseHandler
	importer CatalogImporter
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importer CatalogImporter) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// UploadBusinessUnits godoc
//
//	@Summary		Upload business units
//	@Description	Loads a file with an SBU column. Names already stored are skipped.
//	@Tags			import
//	@ID				uploadBusinessUnits
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"CSV or XLSX file"
//	@Param			Idempotency-Key	header		string	false	"Rejects repeats of the same upload"
//	@Success		200				{object}	dto.Response{data=dto.UploadResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Failure		413				{object}	dto.Response
//	@Failure		500				{object}	dto.Response
//	@Router			/sbu [post]
func (h *ImportHandler) UploadBusinessUnits(c *gin.Context) {
	h.upload(c, bulk.ImportEntityBusinessUnits)
}

// UploadJobRoles godoc
//
//	@Summary		Upload job roles
//	@Description	Loads a file with a Job Role column. Names already stored are skipped.
//	@Tags			import
//	@ID				uploadJobRoles
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"CSV or XLSX file"
//	@Param			Idempotency-Key	header		string	false	"Rejects repeats of the same upload"
//	@Success		200				{object}	dto.Response{data=dto.UploadResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Failure		500				{object}	dto.Response
//	@Router			/job_role [post]
func (h *ImportHandler) UploadJobRoles(c *gin.Context) {
	h.upload(c, bulk.ImportEntityJobRoles)
}

// UploadGrades godoc
//
//	@Summary		Upload grades
//	@Description	Loads a file with a Grade column. Range notations such as "MT5 - MT7"
//	@Description	and "MT15 & Above" are expanded before new grades are stored.
//	@Tags			import
//	@ID				uploadGrades
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"CSV or XLSX file"
//	@Param			Idempotency-Key	header		string	false	"Rejects repeats of the same upload"
//	@Success		200				{object}	dto.Response{data=dto.UploadResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Failure		500				{object}	dto.Response
//	@Router			/grade [post]
func (h *ImportHandler) UploadGrades(c *gin.Context) {
	h.upload(c, bulk.ImportEntityGrades)
}

// UploadJobRoleGrades godoc
//
//	@Summary		Upload job role to grade mapping
//	@Description	Loads a file with Job Role and Grade columns and links each job role
//	@Description	to every grade its notation expands to. Unknown job roles are reported
//	@Description	as dropped rows.
//	@Tags			import
//	@ID				uploadJobRoleGrades
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file			formData	file	true	"CSV or XLSX file"
//	@Param			Idempotency-Key	header		string	false	"Rejects repeats of the same upload"
//	@Success		200				{object}	dto.Response{data=dto.UploadResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Failure		500				{object}	dto.Response
//	@Router			/job_role_grade [post]
func (h *ImportHandler) UploadJobRoleGrades(c *gin.Context) {
	h.upload(c, bulk.ImportEntityJobRoleGrades)
}

func (h *ImportHandler) upload(c *gin.Context, entity bulk.ImportEntityType) {
	header, err := c.FormFile(uploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleError(c, err)
			return
		}
		h.Error(c, http.StatusBadRequest, dto.ErrCodeMissingFile, "file is required")
		return
	}
	if header.Filename == "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeMissingFile, "file name is required")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "cannot read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.importer.Import(c.Request.Context(), importapp.Upload{
		Entity:         entity,
		FileName:       header.Filename,
		ContentType:    header.Header.Get("Content-Type"),
		Data:           data,
		IdempotencyKey: c.GetHeader(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewUploadResponse(result))
}
