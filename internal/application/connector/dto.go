package connector

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/prestashop-connector/internal/domain/connector"
)

// CreateBackendRequest represents a request to create a backend
type CreateBackendRequest struct {
	Name              string     `json:"name" binding:"required,min=1,max=100"`
	Version           string     `json:"version" binding:"omitempty,oneof=1.5 1.6.0.9 1.6.0.11 1.6.1.2"`
	Location          string     `json:"location" binding:"required,max=500"`
	WebserviceKey     string     `json:"webservice_key" binding:"required,max=100"`
	CompanyID         uuid.UUID  `json:"company_id" binding:"required"`
	WarehouseID       uuid.UUID  `json:"warehouse_id" binding:"required"`
	StockLocationID   *uuid.UUID `json:"stock_location_id"`
	PricelistID       uuid.UUID  `json:"pricelist_id" binding:"required"`
	SaleTeamID        *uuid.UUID `json:"sale_team_id"`
	RefundJournalID   *uuid.UUID `json:"refund_journal_id"`
	TaxesIncluded     bool       `json:"taxes_included"`
	DiscountProductID *uuid.UUID `json:"discount_product_id"`
	ShippingProductID *uuid.UUID `json:"shipping_product_id"`
	ProductTaxID      *uuid.UUID `json:"product_tax_id"`
}

// UpdateBackendRequest represents a request to update a backend
type UpdateBackendRequest struct {
	Name              *string    `json:"name" binding:"omitempty,min=1,max=100"`
	Version           *string    `json:"version" binding:"omitempty,oneof=1.5 1.6.0.9 1.6.0.11 1.6.1.2"`
	Location          *string    `json:"location" binding:"omitempty,max=500"`
	WebserviceKey     *string    `json:"webservice_key" binding:"omitempty,max=100"`
	WarehouseID       *uuid.UUID `json:"warehouse_id"`
	StockLocationID   *uuid.UUID `json:"stock_location_id"`
	PricelistID       *uuid.UUID `json:"pricelist_id"`
	SaleTeamID        *uuid.UUID `json:"sale_team_id"`
	RefundJournalID   *uuid.UUID `json:"refund_journal_id"`
	TaxesIncluded     *bool      `json:"taxes_included"`
	DiscountProductID *uuid.UUID `json:"discount_product_id"`
	ShippingProductID *uuid.UUID `json:"shipping_product_id"`
	ProductTaxID      *uuid.UUID `json:"product_tax_id"`
	Active            *bool      `json:"active"`
}

// LanguageInput updates one language of a backend
type LanguageInput struct {
	ExternalID int64 `json:"external_id" binding:"required,min=1"`
	Active     bool  `json:"active"`
	Default    bool  `json:"default"`
}

// UpdateLanguagesRequest represents a request to update the language map
type UpdateLanguagesRequest struct {
	Languages []LanguageInput `json:"languages" binding:"required,min=1,dive"`
}

// ImportRecordRequest represents a request to import one PrestaShop record
type ImportRecordRequest struct {
	Model      string `json:"model" binding:"required"`
	ExternalID int64  `json:"external_id" binding:"required,min=1"`
	Force      bool   `json:"force"`
	// Direct runs the import in the request instead of enqueuing a job
	Direct bool `json:"direct"`
}

// ExportStockRequest represents a request to export stock quantities. A
// zero ExternalID exports every bound stock record.
type ExportStockRequest struct {
	ExternalID int64            `json:"external_id" binding:"min=0"`
	Quantity   *decimal.Decimal `json:"quantity"`
}

// BackendLanguageResponse represents a backend language in API responses
type BackendLanguageResponse struct {
	ExternalID int64     `json:"external_id"`
	LanguageID uuid.UUID `json:"language_id"`
	Code       string    `json:"code"`
	Active     bool      `json:"active"`
	Default    bool      `json:"default"`
}

// BackendResponse represents a backend in API responses. The webservice
// key is never returned.
type BackendResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	Name                string                    `json:"name"`
	Version             string                    `json:"version"`
	Location            string                    `json:"location"`
	CompanyID           uuid.UUID                 `json:"company_id"`
	WarehouseID         uuid.UUID                 `json:"warehouse_id"`
	StockLocationID     *uuid.UUID                `json:"stock_location_id,omitempty"`
	PricelistID         uuid.UUID                 `json:"pricelist_id"`
	SaleTeamID          *uuid.UUID                `json:"sale_team_id,omitempty"`
	RefundJournalID     *uuid.UUID                `json:"refund_journal_id,omitempty"`
	TaxesIncluded       bool                      `json:"taxes_included"`
	DiscountProductID   *uuid.UUID                `json:"discount_product_id,omitempty"`
	ShippingProductID   *uuid.UUID                `json:"shipping_product_id,omitempty"`
	ProductTaxID        *uuid.UUID                `json:"product_tax_id,omitempty"`
	ImportPartnersSince *time.Time                `json:"import_partners_since,omitempty"`
	ImportOrdersSince   *time.Time                `json:"import_orders_since,omitempty"`
	ImportProductsSince *time.Time                `json:"import_products_since,omitempty"`
	ImportCartsSince    *time.Time                `json:"import_carts_since,omitempty"`
	Languages           []BackendLanguageResponse `json:"languages"`
	Active              bool                      `json:"active"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

// ToBackendResponse converts a domain backend to a response
func ToBackendResponse(b *connector.Backend) BackendResponse {
	languages := make([]BackendLanguageResponse, len(b.Languages))
	for i, lang := range b.Languages {
		languages[i] = BackendLanguageResponse{
			ExternalID: lang.ExternalID,
			LanguageID: lang.LanguageID,
			Code:       lang.Code,
			Active:     lang.Active,
			Default:    lang.Default,
		}
	}
	return BackendResponse{
		ID:                  b.ID,
		Name:                b.Name,
		Version:             b.Version.String(),
		Location:            b.Location,
		CompanyID:           b.CompanyID,
		WarehouseID:         b.WarehouseID,
		StockLocationID:     b.StockLocationID,
		PricelistID:         b.PricelistID,
		SaleTeamID:          b.SaleTeamID,
		RefundJournalID:     b.RefundJournalID,
		TaxesIncluded:       b.TaxesIncluded,
		DiscountProductID:   b.DiscountProductID,
		ShippingProductID:   b.ShippingProductID,
		ProductTaxID:        b.ProductTaxID,
		ImportPartnersSince: b.ImportPartnersSince,
		ImportOrdersSince:   b.ImportOrdersSince,
		ImportProductsSince: b.ImportProductsSince,
		ImportCartsSince:    b.ImportCartsSince,
		Languages:           languages,
		Active:              b.Active,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

// BindingResponse represents a binding in API responses
type BindingResponse struct {
	ID         uuid.UUID `json:"id"`
	Model      string    `json:"model"`
	ExternalID int64     `json:"external_id"`
	InternalID uuid.UUID `json:"internal_id"`
	SyncDate   time.Time `json:"sync_date"`
}

// CheckpointResponse represents a checkpoint in API responses
type CheckpointResponse struct {
	ID         uuid.UUID  `json:"id"`
	BackendID  uuid.UUID  `json:"backend_id"`
	Model      string     `json:"model,omitempty"`
	RecordID   *uuid.UUID `json:"record_id,omitempty"`
	Message    string     `json:"message"`
	Reviewed   bool       `json:"reviewed"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToCheckpointResponse converts a domain checkpoint to a response
func ToCheckpointResponse(c *connector.Checkpoint) CheckpointResponse {
	return CheckpointResponse{
		ID:         c.ID,
		BackendID:  c.BackendID,
		Model:      c.Model,
		RecordID:   c.RecordID,
		Message:    c.Message,
		Reviewed:   c.Reviewed,
		ReviewedAt: c.ReviewedAt,
		CreatedAt:  c.CreatedAt,
	}
}

// JobResponse represents a job in API responses
type JobResponse struct {
	ID          uuid.UUID         `json:"id"`
	BackendID   uuid.UUID         `json:"backend_id"`
	Model       string            `json:"model"`
	Method      string            `json:"method"`
	Args        connector.JobArgs `json:"args"`
	Priority    int               `json:"priority"`
	Status      string            `json:"status"`
	Attempts    int               `json:"attempts"`
	MaxAttempts int               `json:"max_attempts"`
	ETA         *time.Time        `json:"eta,omitempty"`
	Result      string            `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	DoneAt      *time.Time        `json:"done_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ToJobResponse converts a domain job to a response
func ToJobResponse(j *connector.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		BackendID:   j.BackendID,
		Model:       j.Model,
		Method:      string(j.Method),
		Args:        j.Args,
		Priority:    j.Priority,
		Status:      string(j.Status),
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		ETA:         j.ETA,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		DoneAt:      j.DoneAt,
		CreatedAt:   j.CreatedAt,
	}
}

// ActionResult is the outcome of a backend action
type ActionResult struct {
	Action string `json:"action"`
	// Records is the number of records imported or exported in the request
	Records int `json:"records"`
	// Jobs are the jobs enqueued by the action
	Jobs    []uuid.UUID `json:"jobs,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ListResult is a page of a listing
type ListResult[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}
