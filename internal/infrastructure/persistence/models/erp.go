package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ERP records written by the importers. Column names follow the GORM naming
// strategy, mapper values are keyed by the same names.

// LanguageModel is an ERP language
type LanguageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Code      string    `gorm:"type:varchar(10);not null;uniqueIndex"`
	ISOCode   string    `gorm:"type:varchar(5)"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LanguageModel) TableName() string {
	return "languages"
}

// CountryModel is an ERP country
type CountryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Code      string    `gorm:"type:varchar(3);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CountryModel) TableName() string {
	return "countries"
}

// TaxModel is an ERP tax
type TaxModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name         string          `gorm:"type:varchar(100);not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	AmountType   string          `gorm:"type:varchar(20);not null"`
	TypeTaxUse   string          `gorm:"type:varchar(20);not null"`
	PriceInclude bool            `gorm:"not null"`
	Active       bool            `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxModel) TableName() string {
	return "taxes"
}

// ShopGroupModel is a PrestaShop shop group
type ShopGroupModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShopGroupModel) TableName() string {
	return "shop_groups"
}

// ShopModel is a PrestaShop shop
type ShopModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name        string     `gorm:"type:varchar(100);not null"`
	ShopGroupID *uuid.UUID `gorm:"type:uuid;index"`
	WarehouseID uuid.UUID  `gorm:"type:uuid"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShopModel) TableName() string {
	return "shops"
}

// PartnerCategoryModel is a customer group
type PartnerCategoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(200);not null"`
	DateAdd   *time.Time
	DateUpd   *time.Time
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartnerCategoryModel) TableName() string {
	return "partner_categories"
}

// PartnerModel is a customer or one of its addresses (ParentID set)
type PartnerModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key"`
	CompanyID         uuid.UUID  `gorm:"type:uuid;index"`
	ParentID          *uuid.UUID `gorm:"type:uuid;index"`
	Type              string     `gorm:"type:varchar(20)"`
	Name              string     `gorm:"type:varchar(255);not null"`
	Email             string     `gorm:"type:varchar(255);index"`
	Comment           string     `gorm:"type:text"`
	Birthday          *time.Time
	Newsletter        bool       `gorm:"not null"`
	Active            bool       `gorm:"not null"`
	Customer          bool       `gorm:"not null"`
	IsCompany         bool       `gorm:"not null"`
	Lang              string     `gorm:"type:varchar(10)"`
	Street            string     `gorm:"type:varchar(255)"`
	Street2           string     `gorm:"type:varchar(255)"`
	City              string     `gorm:"type:varchar(100)"`
	Zip               string     `gorm:"type:varchar(20)"`
	Phone             string     `gorm:"type:varchar(50)"`
	Mobile            string     `gorm:"type:varchar(50)"`
	CountryID         *uuid.UUID `gorm:"type:uuid"`
	VAT               string     `gorm:"column:vat;type:varchar(50)"`
	ShopGroupID       *uuid.UUID `gorm:"type:uuid"`
	ShopID            *uuid.UUID `gorm:"type:uuid"`
	DefaultCategoryID *uuid.UUID `gorm:"type:uuid"`
	DateAdd           *time.Time
	DateUpd           *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PartnerModel) TableName() string {
	return "partners"
}

// PartnerCategoryRelModel links partners to their groups
type PartnerCategoryRelModel struct {
	PartnerID  uuid.UUID `gorm:"type:uuid;primary_key"`
	CategoryID uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (PartnerCategoryRelModel) TableName() string {
	return "partner_category_rels"
}

// ProductCategoryModel is a product category
type ProductCategoryModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name            string     `gorm:"type:varchar(255);not null"`
	ParentID        *uuid.UUID `gorm:"type:uuid;index"`
	Description     string     `gorm:"type:text"`
	LinkRewrite     string     `gorm:"type:varchar(255)"`
	MetaTitle       string     `gorm:"type:varchar(255)"`
	MetaDescription string     `gorm:"type:text"`
	MetaKeywords    string     `gorm:"type:text"`
	Position        int        `gorm:"not null"`
	Active          bool       `gorm:"not null"`
	DefaultShopID   *uuid.UUID `gorm:"type:uuid"`
	DateAdd         *time.Time
	DateUpd         *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// ProductTemplateModel is a product; its sellable variants are ProductVariantModel
type ProductTemplateModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID            uuid.UUID       `gorm:"type:uuid;index"`
	Name                 string          `gorm:"type:varchar(255);not null"`
	Type                 string          `gorm:"type:varchar(20);not null"`
	CategID              *uuid.UUID      `gorm:"type:uuid;index"`
	DefaultShopID        *uuid.UUID      `gorm:"type:uuid"`
	Description          string          `gorm:"type:text"`
	DescriptionHTML      string          `gorm:"type:text"`
	DescriptionShortHTML string          `gorm:"type:text"`
	LinkRewrite          string          `gorm:"type:varchar(255)"`
	MetaTitle            string          `gorm:"type:varchar(255)"`
	MetaDescription      string          `gorm:"type:text"`
	MetaKeywords         string          `gorm:"type:text"`
	DefaultCode          string          `gorm:"type:varchar(64);index"`
	Barcode              string          `gorm:"type:varchar(64)"`
	Weight               decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ListPrice            decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	StandardPrice        decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	WholesalePrice       decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	AvailableForOrder    bool            `gorm:"not null"`
	OnSale               bool            `gorm:"not null"`
	AlwaysAvailable      bool            `gorm:"not null"`
	SaleOK               bool            `gorm:"column:sale_ok;not null"`
	PurchaseOK           bool            `gorm:"column:purchase_ok;not null"`
	Active               bool            `gorm:"not null"`
	ImageKey             string          `gorm:"type:varchar(255)"`
	ImageURL             string          `gorm:"column:image_url;type:varchar(512)"`
	DateAdd              *time.Time
	DateUpd              *time.Time
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductTemplateModel) TableName() string {
	return "product_templates"
}

// ProductTemplateCategoryModel links templates to their extra categories
type ProductTemplateCategoryModel struct {
	TemplateID uuid.UUID `gorm:"type:uuid;primary_key"`
	CategoryID uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (ProductTemplateCategoryModel) TableName() string {
	return "product_template_categories"
}

// ProductTemplateTaxModel links templates to their sale taxes
type ProductTemplateTaxModel struct {
	TemplateID uuid.UUID `gorm:"type:uuid;primary_key"`
	TaxID      uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (ProductTemplateTaxModel) TableName() string {
	return "product_template_taxes"
}

// ProductAttributeModel is a combination option (e.g. "Size")
type ProductAttributeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductAttributeModel) TableName() string {
	return "product_attributes"
}

// AttributeValueModel is a combination option value (e.g. "XL")
type AttributeValueModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	AttributeID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name        string    `gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AttributeValueModel) TableName() string {
	return "attribute_values"
}

// AttributeLineModel lists the values of one attribute used by a template
type AttributeLineModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	TemplateID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attribute_line,priority:1"`
	AttributeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attribute_line,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AttributeLineModel) TableName() string {
	return "attribute_lines"
}

// AttributeLineValueModel links attribute lines to values
type AttributeLineValueModel struct {
	LineID  uuid.UUID `gorm:"type:uuid;primary_key"`
	ValueID uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (AttributeLineValueModel) TableName() string {
	return "attribute_line_values"
}

// AttributePriceModel is the price extra of a value on a template
type AttributePriceModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	TemplateID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attribute_price,priority:1"`
	ValueID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attribute_price,priority:2"`
	PriceExtra decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AttributePriceModel) TableName() string {
	return "attribute_prices"
}

// ProductVariantModel is a sellable product (a template combination)
type ProductVariantModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	TemplateID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	CompanyID     uuid.UUID       `gorm:"type:uuid;index"`
	Type          string          `gorm:"type:varchar(20);not null"`
	CategID       *uuid.UUID      `gorm:"type:uuid"`
	DefaultCode   string          `gorm:"type:varchar(64);index"`
	Barcode       string          `gorm:"type:varchar(64)"`
	DefaultOn     bool            `gorm:"not null"`
	ListPrice     decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	StandardPrice decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	ImpactPrice   decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Active        bool            `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ProductVariantValueModel links variants to their attribute values
type ProductVariantValueModel struct {
	VariantID uuid.UUID `gorm:"type:uuid;primary_key"`
	ValueID   uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (ProductVariantValueModel) TableName() string {
	return "product_variant_values"
}

// CarrierModel is a delivery carrier
type CarrierModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(100);not null"`
	IDReference int64      `gorm:"column:id_reference"`
	ActiveExt   bool       `gorm:"not null"`
	ProductID   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt   time.Time  `gorm:"not null"`
	UpdatedAt   time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CarrierModel) TableName() string {
	return "carriers"
}

// OrderStateModel is a PrestaShop order state
type OrderStateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID uuid.UUID `gorm:"type:uuid;index"`
	Name      string    `gorm:"type:varchar(100);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStateModel) TableName() string {
	return "order_states"
}

// SaleOrderModel is a sale order
type SaleOrderModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primary_key"`
	CompanyID             uuid.UUID       `gorm:"type:uuid;index"`
	Name                  string          `gorm:"type:varchar(64);not null;index"`
	PartnerID             *uuid.UUID      `gorm:"type:uuid;index"`
	PartnerInvoiceID      *uuid.UUID      `gorm:"type:uuid"`
	PartnerShippingID     *uuid.UUID      `gorm:"type:uuid"`
	CarrierID             *uuid.UUID      `gorm:"type:uuid"`
	ShopGroupID           *uuid.UUID      `gorm:"type:uuid"`
	ShopID                *uuid.UUID      `gorm:"type:uuid"`
	StateID               *uuid.UUID      `gorm:"type:uuid"`
	WarehouseID           uuid.UUID       `gorm:"type:uuid"`
	PricelistID           uuid.UUID       `gorm:"type:uuid"`
	TeamID                *uuid.UUID      `gorm:"type:uuid"`
	InvoiceNumber         string          `gorm:"type:varchar(32)"`
	DeliveryNumber        string          `gorm:"type:varchar(32)"`
	TotalAmount           decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalAmountTax        decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalPaidTaxIncl      decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalPaidTaxExcl      decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalShippingTaxIncl  decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalShippingTaxExcl  decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalDiscountsTaxIncl decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	TotalDiscountsTaxExcl decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	DateOrder             *time.Time
	DateAdd               *time.Time
	DateUpd               *time.Time
	CreatedAt             time.Time `gorm:"not null"`
	UpdatedAt             time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleOrderModel) TableName() string {
	return "sale_orders"
}

// SaleOrderLineModel is a sale order line
type SaleOrderLineModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence         int64           `gorm:"not null"`
	Name             string          `gorm:"type:varchar(255);not null"`
	ProductID        *uuid.UUID      `gorm:"type:uuid"`
	Qty              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceUnit        decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	ProductPrice     decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	UnitPriceTaxIncl decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	UnitPriceTaxExcl decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	IsShipping       bool            `gorm:"not null"`
	IsDiscount       bool            `gorm:"not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SaleOrderLineModel) TableName() string {
	return "sale_order_lines"
}

// CartModel is a PrestaShop cart, kept as a quotation
type CartModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key"`
	CompanyID         uuid.UUID  `gorm:"type:uuid;index"`
	Name              string     `gorm:"type:varchar(64);not null"`
	PartnerID         *uuid.UUID `gorm:"type:uuid;index"`
	PartnerInvoiceID  *uuid.UUID `gorm:"type:uuid"`
	PartnerShippingID *uuid.UUID `gorm:"type:uuid"`
	CarrierID         *uuid.UUID `gorm:"type:uuid"`
	ShopGroupID       *uuid.UUID `gorm:"type:uuid"`
	ShopID            *uuid.UUID `gorm:"type:uuid"`
	DateOrder         *time.Time
	DateAdd           *time.Time
	DateUpd           *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartLineModel is a cart row
type CartLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"type:uuid"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
	UpdatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CartLineModel) TableName() string {
	return "cart_lines"
}

// StockAvailableModel is the stock quantity of a product
type StockAvailableModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	ProductTemplateID *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt         time.Time       `gorm:"not null"`
	UpdatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockAvailableModel) TableName() string {
	return "stock_availables"
}

// ConnectorModels returns every model of the connector schema, for AutoMigrate in tests
func ConnectorModels() []any {
	return []any{
		&BackendModel{}, &BackendLanguageModel{}, &BindingModel{}, &CheckpointModel{},
		&JobModel{}, &TranslationModel{}, &SequenceModel{},
		&LanguageModel{}, &CountryModel{}, &TaxModel{}, &ShopGroupModel{}, &ShopModel{},
		&PartnerCategoryModel{}, &PartnerModel{}, &PartnerCategoryRelModel{},
		&ProductCategoryModel{}, &ProductTemplateModel{}, &ProductTemplateCategoryModel{},
		&ProductTemplateTaxModel{}, &ProductAttributeModel{}, &AttributeValueModel{},
		&AttributeLineModel{}, &AttributeLineValueModel{}, &AttributePriceModel{},
		&ProductVariantModel{}, &ProductVariantValueModel{}, &CarrierModel{},
		&OrderStateModel{}, &SaleOrderModel{}, &SaleOrderLineModel{}, &CartModel{},
		&CartLineModel{}, &StockAvailableModel{},
	}
}
