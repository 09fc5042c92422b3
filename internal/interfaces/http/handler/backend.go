package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
)

// BackendService is the part of the connector application used by the backend endpoints
type BackendService interface {
	CreateBackend(ctx context.Context, req connectorapp.CreateBackendRequest) (*connectorapp.BackendResponse, error)
	GetBackend(ctx context.Context, id uuid.UUID) (*connectorapp.BackendResponse, error)
	ListBackends(ctx context.Context) ([]connectorapp.BackendResponse, error)
	UpdateBackend(ctx context.Context, id uuid.UUID, req connectorapp.UpdateBackendRequest) (*connectorapp.BackendResponse, error)
	DeleteBackend(ctx context.Context, id uuid.UUID) error
	UpdateLanguages(ctx context.Context, id uuid.UUID, req connectorapp.UpdateLanguagesRequest) (*connectorapp.BackendResponse, error)
}

// BackendHandler handles the PrestaShop backend configuration endpoints
type BackendHandler struct {
	BaseHandler
	service BackendService
}

// NewBackendHandler creates a new BackendHandler
func NewBackendHandler(service BackendService) *BackendHandler {
	return &BackendHandler{service: service}
}

// Create handles POST /backends
func (h *BackendHandler) Create(c *gin.Context) {
	var req connectorapp.CreateBackendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	backend, err := h.service.CreateBackend(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, backend)
}

// List handles GET /backends
func (h *BackendHandler) List(c *gin.Context) {
	backends, err := h.service.ListBackends(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, backends)
}

// Get handles GET /backends/:id
func (h *BackendHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	backend, err := h.service.GetBackend(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, backend)
}

// Update handles PUT /backends/:id
func (h *BackendHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req connectorapp.UpdateBackendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	backend, err := h.service.UpdateBackend(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, backend)
}

// Delete handles DELETE /backends/:id
func (h *BackendHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBackend(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UpdateLanguages handles PUT /backends/:id/languages
func (h *BackendHandler) UpdateLanguages(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req connectorapp.UpdateLanguagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	backend, err := h.service.UpdateLanguages(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, backend)
}
