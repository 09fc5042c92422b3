package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/logger"
	"github.com/erp/prestashop-connector/internal/infrastructure/prestashop"
	"github.com/erp/prestashop-connector/internal/interfaces/http/dto"
	"github.com/erp/prestashop-connector/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 response for actions that enqueued jobs
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response, deriving the status from the error code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// BindError answers a request whose body or query could not be bound
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, err.Error())
}

// ParseID reads a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.BadRequest(c, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// HandleError converts connector errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := errorCode(err)
	if code == dto.ErrCodeInternal {
		logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	}
	h.Error(c, code, message)
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, connector.ErrBackendNotFound),
		errors.Is(err, connector.ErrBindingNotFound),
		errors.Is(err, connector.ErrJobNotFound),
		errors.Is(err, connector.ErrCheckpointNotFound):
		return dto.ErrCodeNotFound, err.Error()
	case errors.Is(err, connector.ErrInvalidBackendName),
		errors.Is(err, connector.ErrInvalidVersion),
		errors.Is(err, connector.ErrInvalidLocation),
		errors.Is(err, connector.ErrInvalidWebserviceKey),
		errors.Is(err, connector.ErrInvalidModel),
		errors.Is(err, connector.ErrInvalidExternalID),
		errors.Is(err, connector.ErrLanguageNotConfigured),
		errors.Is(err, connectorapp.ErrSeveralDefaultLanguages),
		errors.Is(err, connectorapp.ErrInvalidJobStatus),
		errors.Is(err, connectorapp.ErrNoComponent):
		return dto.ErrCodeInvalidInput, err.Error()
	case errors.Is(err, connector.ErrBindingConflict):
		return dto.ErrCodeConflict, err.Error()
	case errors.Is(err, connectorapp.ErrJobRunning),
		errors.Is(err, connector.ErrNoDefaultLanguage):
		return dto.ErrCodeInvalidState, err.Error()
	case connector.IsMappingError(err):
		return dto.ErrCodeMapping, err.Error()
	case connector.IsIDMissing(err):
		return dto.ErrCodeMissingOnBackend, err.Error()
	}
	if _, ok := connector.IsRetryable(err); ok {
		return dto.ErrCodeUnavailable, err.Error()
	}
	if errors.Is(err, prestashop.ErrWebService) {
		return dto.ErrCodeWebService, err.Error()
	}
	var invalidData *connector.InvalidDataError
	if errors.As(err, &invalidData) {
		return dto.ErrCodeMapping, err.Error()
	}
	var failed *connector.FailedJobError
	if errors.As(err, &failed) {
		return dto.ErrCodeInvalidState, failed.Message
	}
	return dto.ErrCodeInternal, "An unexpected error occurred"
}
