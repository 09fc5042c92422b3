package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectorapp "github.com/erp/prestashop-connector/internal/application/connector"
)

// ActionService runs the synchronization actions of a backend
type ActionService interface {
	CheckConnection(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	SynchronizeMetadata(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	SynchronizeBaseData(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportCustomersSince(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportProducts(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportSaleOrders(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportCarts(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportCarriers(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ImportStockQty(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)
	ExportStockQty(ctx context.Context, backendID uuid.UUID, req connectorapp.ExportStockRequest) (*connectorapp.ActionResult, error)
	ImportRecord(ctx context.Context, backendID uuid.UUID, req connectorapp.ImportRecordRequest) (*connectorapp.ActionResult, error)
}

// ActionHandler exposes the backend actions as POST endpoints
type ActionHandler struct {
	BaseHandler
	service ActionService
}

// NewActionHandler creates a new ActionHandler
func NewActionHandler(service ActionService) *ActionHandler {
	return &ActionHandler{service: service}
}

type actionFunc func(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error)

// run answers 202 when the action enqueued jobs and 200 when it ran in the request
func (h *ActionHandler) run(c *gin.Context, action actionFunc) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	result, err := action(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if len(result.Jobs) > 0 {
		h.Accepted(c, result)
		return
	}
	h.Success(c, result)
}

// CheckConnection handles POST /backends/:id/check-connection
func (h *ActionHandler) CheckConnection(c *gin.Context) {
	h.run(c, h.service.CheckConnection)
}

// SynchronizeMetadata handles POST /backends/:id/synchronize-metadata
func (h *ActionHandler) SynchronizeMetadata(c *gin.Context) {
	h.run(c, h.service.SynchronizeMetadata)
}

// SynchronizeBaseData handles POST /backends/:id/synchronize-basedata
func (h *ActionHandler) SynchronizeBaseData(c *gin.Context) {
	h.run(c, h.service.SynchronizeBaseData)
}

// ImportCustomers handles POST /backends/:id/import-customers
func (h *ActionHandler) ImportCustomers(c *gin.Context) {
	h.run(c, h.service.ImportCustomersSince)
}

// ImportProducts handles POST /backends/:id/import-products
func (h *ActionHandler) ImportProducts(c *gin.Context) {
	h.run(c, h.service.ImportProducts)
}

// ImportOrders handles POST /backends/:id/import-orders
func (h *ActionHandler) ImportOrders(c *gin.Context) {
	h.run(c, h.service.ImportSaleOrders)
}

// ImportCarts handles POST /backends/:id/import-carts
func (h *ActionHandler) ImportCarts(c *gin.Context) {
	h.run(c, h.service.ImportCarts)
}

// ImportCarriers handles POST /backends/:id/import-carriers
func (h *ActionHandler) ImportCarriers(c *gin.Context) {
	h.run(c, h.service.ImportCarriers)
}

// ImportStock handles POST /backends/:id/import-stock
func (h *ActionHandler) ImportStock(c *gin.Context) {
	h.run(c, h.service.ImportStockQty)
}

// ExportStock handles POST /backends/:id/export-stock. An empty body
// exports every bound stock record.
func (h *ActionHandler) ExportStock(c *gin.Context) {
	var req connectorapp.ExportStockRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	h.run(c, func(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error) {
		return h.service.ExportStockQty(ctx, backendID, req)
	})
}

// ImportRecord handles POST /backends/:id/import-record
func (h *ActionHandler) ImportRecord(c *gin.Context) {
	var req connectorapp.ImportRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.run(c, func(ctx context.Context, backendID uuid.UUID) (*connectorapp.ActionResult, error) {
		return h.service.ImportRecord(ctx, backendID, req)
	})
}
