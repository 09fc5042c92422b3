package connector

import (
	"time"

	"github.com/google/uuid"
)

// Binding models. A binding model names one kind of PrestaShop record and
// the ERP table its bindings point to.
const (
	ModelShopGroup       = "prestashop.shop.group"
	ModelShop            = "prestashop.shop"
	ModelLanguage        = "prestashop.res.lang"
	ModelCountry         = "prestashop.res.country"
	ModelTax             = "prestashop.account.tax"
	ModelPartner         = "prestashop.res.partner"
	ModelAddress         = "prestashop.address"
	ModelPartnerCategory = "prestashop.res.partner.category"
	ModelProductCategory = "prestashop.product.category"
	ModelProductTemplate = "prestashop.product.template"
	ModelCombination     = "prestashop.product.combination"
	ModelOption          = "prestashop.product.combination.option"
	ModelOptionValue     = "prestashop.product.combination.option.value"
	ModelSaleOrder       = "prestashop.sale.order"
	ModelSaleOrderLine   = "prestashop.sale.order.line"
	ModelSaleOrderState  = "prestashop.sale.order.state"
	ModelCarrier         = "prestashop.delivery.carrier"
	ModelCart            = "prestashop.cart"
	ModelCartLine        = "prestashop.cart.line"
	ModelStockAvailable  = "prestashop.stock.available"
	ModelProductImage    = "prestashop.product.image"
)

// AllModels returns every binding model known to the connector
func AllModels() []string {
	return []string{
		ModelShopGroup, ModelShop, ModelLanguage, ModelCountry, ModelTax,
		ModelPartner, ModelAddress, ModelPartnerCategory, ModelProductCategory,
		ModelProductTemplate, ModelCombination, ModelOption, ModelOptionValue,
		ModelSaleOrder, ModelSaleOrderLine, ModelSaleOrderState, ModelCarrier,
		ModelCart, ModelCartLine, ModelStockAvailable, ModelProductImage,
	}
}

// IsValidModel reports whether model is a known binding model
func IsValidModel(model string) bool {
	for _, m := range AllModels() {
		if m == model {
			return true
		}
	}
	return false
}

// Binding pairs a PrestaShop record with an ERP record.
// (BackendID, Model, ExternalID) is unique; an ERP record may be bound from
// several PrestaShop records.
type Binding struct {
	ID         uuid.UUID
	BackendID  uuid.UUID
	Model      string
	ExternalID int64
	InternalID uuid.UUID
	SyncDate   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewBinding creates a new binding
func NewBinding(backendID uuid.UUID, model string, externalID int64, internalID uuid.UUID) (*Binding, error) {
	if backendID == uuid.Nil {
		return nil, ErrInvalidBackendID
	}
	if !IsValidModel(model) {
		return nil, ErrInvalidModel
	}
	if externalID <= 0 {
		return nil, ErrInvalidExternalID
	}
	if internalID == uuid.Nil {
		return nil, ErrInvalidInternalID
	}
	now := time.Now()
	return &Binding{
		ID:         uuid.New(),
		BackendID:  backendID,
		Model:      model,
		ExternalID: externalID,
		InternalID: internalID,
		SyncDate:   now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
