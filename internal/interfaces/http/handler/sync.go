package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/interfaces/http/dto"
)

// SyncService is the part of the connector application that reports synchronization state
type SyncService interface {
	ListBindings(ctx context.Context, backendID uuid.UUID, filter connector.BindingFilter) (*connectorapp.ListResult[connectorapp.BindingResponse], error)
	ListCheckpoints(ctx context.Context, backendID uuid.UUID, filter connector.CheckpointFilter) (*connectorapp.ListResult[connectorapp.CheckpointResponse], error)
	ReviewCheckpoint(ctx context.Context, id uuid.UUID) (*connectorapp.CheckpointResponse, error)
	ListJobs(ctx context.Context, filter connector.JobFilter) (*connectorapp.ListResult[connectorapp.JobResponse], error)
	GetJob(ctx context.Context, id uuid.UUID) (*connectorapp.JobResponse, error)
	RequeueJob(ctx context.Context, id uuid.UUID) (*connectorapp.JobResponse, error)
}

// SyncHandler handles the binding, checkpoint and job endpoints
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// BindingListQuery are the query parameters of GET /backends/:id/bindings
type BindingListQuery struct {
	dto.ListRequest
	dto.SortRequest
	Model string `form:"model"`
}

// CheckpointListQuery are the query parameters of GET /backends/:id/checkpoints
type CheckpointListQuery struct {
	dto.ListRequest
	Reviewed *bool `form:"reviewed"`
}

// JobListQuery are the query parameters of GET /jobs
type JobListQuery struct {
	dto.ListRequest
	dto.SortRequest
	BackendID string `form:"backend_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=pending started done failed"`
	Model     string `form:"model"`
}

func successPage[T any](h *BaseHandler, c *gin.Context, page *connectorapp.ListResult[T]) {
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListBindings handles GET /backends/:id/bindings
func (h *SyncHandler) ListBindings(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var query BindingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListBindings(c.Request.Context(), id, connector.BindingFilter{
		Model:     query.Model,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// ListCheckpoints handles GET /backends/:id/checkpoints
func (h *SyncHandler) ListCheckpoints(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var query CheckpointListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	page, err := h.service.ListCheckpoints(c.Request.Context(), id, connector.CheckpointFilter{
		Reviewed: query.Reviewed,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// ReviewCheckpoint handles POST /checkpoints/:id/review
func (h *SyncHandler) ReviewCheckpoint(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	cp, err := h.service.ReviewCheckpoint(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cp)
}

// ListJobs handles GET /jobs
func (h *SyncHandler) ListJobs(c *gin.Context) {
	var query JobListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	filter := connector.JobFilter{
		Model:     query.Model,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.BackendID != "" {
		backendID := uuid.MustParse(query.BackendID)
		filter.BackendID = &backendID
	}
	if query.Status != "" {
		status := connector.JobStatus(query.Status)
		filter.Status = &status
	}
	page, err := h.service.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	successPage(&h.BaseHandler, c, page)
}

// GetJob handles GET /jobs/:id
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	job, err := h.service.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}

// RequeueJob handles POST /jobs/:id/requeue
func (h *SyncHandler) RequeueJob(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	job, err := h.service.RequeueJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, job)
}
