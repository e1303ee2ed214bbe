package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	importapp "github.com/orgmap/backend/internal/application/import"
	"github.com/orgmap/backend/internal/domain/organization"
	"github.com/orgmap/backend/internal/domain/shared"
	csvimport "github.com/orgmap/backend/internal/infrastructure/import"
	"github.com/orgmap/backend/internal/interfaces/http/dto"
	"github.com/orgmap/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError maps service errors onto the error envelope.
//
//   - unusable upload content: 400 with the import error code
//   - grade notation failures: 400 ERR_IMPORT_GRADE_PARSE
//   - store failures during an upload: 500 ERR_IMPORT_PERSISTENCE naming the failed step and its cause
//   - domain errors: status derived from the normalized code
//
// Anything else is reported as an internal error without its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var tooLarge *http.MaxBytesError
	var gradeErr *organization.GradeParseError
	var domainErr *shared.DomainError
	var persistErr *importapp.PersistenceError

	switch {
	case errors.As(err, &tooLarge):
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case csvimport.IsInputError(err):
		code := csvimport.ErrorCode(err)
		h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
	case errors.As(err, &gradeErr):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeGradeParse, gradeErr.Error())
	case errors.As(err, &persistErr):
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeImportPersistence,
			"Failed to store the upload: "+persistErr.Error())
	case errors.As(err, &domainErr):
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
